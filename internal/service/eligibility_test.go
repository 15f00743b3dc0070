package service

import (
	"context"
	"testing"
	"time"

	"github.com/500AN/Question-Bank/internal/apperror"
	"github.com/500AN/Question-Bank/internal/model"
	"github.com/500AN/Question-Bank/internal/repository"
	"github.com/500AN/Question-Bank/internal/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var threeKeys = []model.OptionLabel{model.OptionA, model.OptionB, model.OptionA}

func TestStartAttempt_CreatesFirstAttempt(t *testing.T) {
	f := newFixture(t)
	student := f.student(t)
	test := f.test(t, threeKeys)

	resp, err := f.svc.StartAttempt(f.ctx, student.ID, test.ID, ClientMeta{IPAddress: "10.0.0.1", UserAgent: "go-test"})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.AttemptNumber)
	assert.Equal(t, test.Title, resp.TestTitle)
	assert.Equal(t, 30, resp.DurationMinutes)
	assert.Equal(t, 6.0, resp.TotalMarks)
	assert.Equal(t, test.Instructions, resp.Instructions)
	require.Len(t, resp.Questions, 3)
	for i, q := range resp.Questions {
		assert.Equal(t, test.Questions[i].ID, q.ID)
		assert.Len(t, q.Options, 4)
	}

	stored := f.load(t, resp.AttemptID)
	assert.Equal(t, model.AttemptInProgress, stored.Status)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, 6.0, stored.TotalMarks)
	assert.Equal(t, "10.0.0.1", stored.IPAddress)
	assert.True(t, stored.StartTime.Equal(f.clock))
	require.Len(t, stored.Answers, 3)
	for _, ans := range stored.Answers {
		assert.Nil(t, ans.SelectedOption)
		assert.False(t, ans.IsCorrect)
		assert.Zero(t, ans.MarksAwarded)
	}
}

func TestStartAttempt_RestrictionMismatch(t *testing.T) {
	f := newFixture(t)
	student := f.student(t, func(u *model.User) { u.Class = "BCA" })
	test := f.test(t, threeKeys, func(tt *model.Test) { tt.RestrictToClass = testutil.Ptr("MCA") })

	_, err := f.svc.StartAttempt(f.ctx, student.ID, test.ID, ClientMeta{})
	appErr := assertKind(t, err, apperror.KindRestrictionViolation)
	assert.Equal(t, apperror.DimensionClass, appErr.Dimension)
	assert.Equal(t, "This test is restricted to MCA class students only", appErr.Message)
	assert.Zero(t, f.countAttempts(t))
}

func TestStartAttempt_Restrictions(t *testing.T) {
	tests := []struct {
		name      string
		profile   func(*model.User)
		restrict  func(*model.Test)
		dimension string
	}{
		{
			name:     "case-insensitive match passes",
			profile:  func(u *model.User) { u.Department = "computer science" },
			restrict: func(tt *model.Test) { tt.RestrictToDepartment = testutil.Ptr("Computer Science") },
		},
		{
			name:      "missing profile value fails",
			profile:   func(u *model.User) {},
			restrict:  func(tt *model.Test) { tt.RestrictToSemester = testutil.Ptr("3") },
			dimension: apperror.DimensionSemester,
		},
		{
			name:      "batch mismatch",
			profile:   func(u *model.User) { u.Batch = "2024" },
			restrict:  func(tt *model.Test) { tt.RestrictToBatch = testutil.Ptr("2025") },
			dimension: apperror.DimensionBatch,
		},
		{
			name:     "empty restriction is ignored",
			profile:  func(u *model.User) {},
			restrict: func(tt *model.Test) { tt.RestrictToClass = testutil.Ptr("") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			student := f.student(t, tt.profile)
			test := f.test(t, threeKeys, tt.restrict)

			_, err := f.svc.StartAttempt(f.ctx, student.ID, test.ID, ClientMeta{})
			if tt.dimension == "" {
				assert.NoError(t, err)
				return
			}
			appErr := assertKind(t, err, apperror.KindRestrictionViolation)
			assert.Equal(t, tt.dimension, appErr.Dimension)
		})
	}
}

func TestStartAttempt_MaxAttemptsReached(t *testing.T) {
	f := newFixture(t)
	student := f.student(t)
	test := f.test(t, threeKeys)
	testutil.CreateAttempt(t, f.db, &model.Attempt{
		StudentID: student.ID, TestID: test.ID, AttemptNumber: 1, Status: model.AttemptCompleted,
	})

	_, err := f.svc.StartAttempt(f.ctx, student.ID, test.ID, ClientMeta{})
	assertKind(t, err, apperror.KindMaxAttemptsReached)
	assert.EqualValues(t, 1, f.countAttempts(t))
}

func TestStartAttempt_RepeatAttemptsAreUnlimited(t *testing.T) {
	f := newFixture(t)
	student := f.student(t)
	test := f.test(t, threeKeys, func(tt *model.Test) { tt.AllowRepeatAttempts = true })

	for want := 1; want <= 3; want++ {
		attemptID := f.start(t, student.ID, test.ID)
		assert.Equal(t, want, f.load(t, attemptID).AttemptNumber)
		_, err := f.svc.Submit(f.ctx, student.ID, attemptID, nil)
		require.NoError(t, err)
	}
}

func TestStartAttempt_InProgressAttemptIsReported(t *testing.T) {
	f := newFixture(t)
	student := f.student(t)
	test := f.test(t, threeKeys, func(tt *model.Test) { tt.MaxAttempts = 3 })
	first := f.start(t, student.ID, test.ID)

	_, err := f.svc.StartAttempt(f.ctx, student.ID, test.ID, ClientMeta{})
	appErr := assertKind(t, err, apperror.KindAttemptInProgress)
	assert.Equal(t, first, appErr.AttemptID)
	assert.EqualValues(t, 1, f.countAttempts(t))
}

func TestStartAttempt_InProgressAttemptWinsOverAttemptCap(t *testing.T) {
	f := newFixture(t)
	student := f.student(t)
	test := f.test(t, threeKeys)
	first := f.start(t, student.ID, test.ID)

	_, err := f.svc.StartAttempt(f.ctx, student.ID, test.ID, ClientMeta{})
	appErr := assertKind(t, err, apperror.KindAttemptInProgress)
	assert.Equal(t, first, appErr.AttemptID)

	_, err = f.svc.Submit(f.ctx, student.ID, first, nil)
	require.NoError(t, err)
	_, err = f.svc.StartAttempt(f.ctx, student.ID, test.ID, ClientMeta{})
	assertKind(t, err, apperror.KindMaxAttemptsReached)
	assert.EqualValues(t, 1, f.countAttempts(t))
}

func TestStartAttempt_InProgressReportedWhenCapAlreadyExceeded(t *testing.T) {
	f := newFixture(t)
	student := f.student(t)
	test := f.test(t, threeKeys, func(tt *model.Test) { tt.MaxAttempts = 2 })
	testutil.CreateAttempt(t, f.db, &model.Attempt{
		StudentID: student.ID, TestID: test.ID, AttemptNumber: 1, Status: model.AttemptCompleted,
	})
	open := testutil.CreateAttempt(t, f.db, &model.Attempt{StudentID: student.ID, TestID: test.ID, AttemptNumber: 2})

	_, err := f.svc.StartAttempt(f.ctx, student.ID, test.ID, ClientMeta{})
	appErr := assertKind(t, err, apperror.KindAttemptInProgress)
	assert.Equal(t, open.ID, appErr.AttemptID)
}

func TestStartAttempt_Availability(t *testing.T) {
	past := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		keys []model.OptionLabel
		mod  func(*model.Test)
		kind apperror.Kind
	}{
		{"inactive", threeKeys, func(tt *model.Test) { tt.IsActive = false }, apperror.KindNotFound},
		{"not public", threeKeys, func(tt *model.Test) { tt.IsPublic = false }, apperror.KindNotFound},
		{"no questions", nil, func(tt *model.Test) {}, apperror.KindEmptyTest},
		{"not started", threeKeys, func(tt *model.Test) { tt.StartDate = &future }, apperror.KindNotStarted},
		{"ended", threeKeys, func(tt *model.Test) { tt.EndDate = &past }, apperror.KindEnded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			student := f.student(t)
			test := f.test(t, tt.keys, tt.mod)

			_, err := f.svc.StartAttempt(f.ctx, student.ID, test.ID, ClientMeta{})
			assertKind(t, err, tt.kind)
			assert.Zero(t, f.countAttempts(t))
		})
	}
}

func TestStartAttempt_InsideWindow(t *testing.T) {
	f := newFixture(t)
	student := f.student(t)
	from := f.clock.Add(-time.Hour)
	until := f.clock.Add(time.Hour)
	test := f.test(t, threeKeys, func(tt *model.Test) {
		tt.StartDate = &from
		tt.EndDate = &until
	})

	_, err := f.svc.StartAttempt(f.ctx, student.ID, test.ID, ClientMeta{})
	assert.NoError(t, err)
}

func TestStartAttempt_UnknownTestOrStudent(t *testing.T) {
	f := newFixture(t)
	student := f.student(t)
	test := f.test(t, threeKeys)

	_, err := f.svc.StartAttempt(f.ctx, student.ID, 4040, ClientMeta{})
	assertKind(t, err, apperror.KindNotFound)

	_, err = f.svc.StartAttempt(f.ctx, 4040, test.ID, ClientMeta{})
	assertKind(t, err, apperror.KindNotFound)
}

func TestStartAttempt_ShufflesPerAttempt(t *testing.T) {
	f := newFixture(t)
	student := f.student(t)
	test := f.test(t, threeKeys, func(tt *model.Test) { tt.ShuffleQuestions = true })
	f.svc.shuffle = func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}

	resp, err := f.svc.StartAttempt(f.ctx, student.ID, test.ID, ClientMeta{})
	require.NoError(t, err)

	want := []uint{test.Questions[2].ID, test.Questions[1].ID, test.Questions[0].ID}
	got := make([]uint, len(resp.Questions))
	for i, q := range resp.Questions {
		got[i] = q.ID
	}
	assert.Equal(t, want, got)
	assert.Equal(t, want, f.load(t, resp.AttemptID).QuestionIDs())
}

// blindAttemptRepo hides prior attempts from the start transaction, as a
// concurrent start that has not committed yet would.
type blindAttemptRepo struct {
	repository.AttemptRepository
}

func (r blindAttemptRepo) WithTx(tx *gorm.DB) repository.AttemptRepository {
	return blindAttemptRepo{r.AttemptRepository.WithTx(tx)}
}

func (r blindAttemptRepo) FindAllByStudentAndTest(context.Context, uint, uint) ([]model.Attempt, error) {
	return nil, nil
}

func TestStartAttempt_ConcurrentStartResolvesToWinner(t *testing.T) {
	f := newFixture(t)
	student := f.student(t)
	test := f.test(t, threeKeys)
	winner := testutil.CreateAttempt(t, f.db, &model.Attempt{StudentID: student.ID, TestID: test.ID, AttemptNumber: 1})
	f.svc.attemptRepo = blindAttemptRepo{f.repo}

	_, err := f.svc.StartAttempt(f.ctx, student.ID, test.ID, ClientMeta{})
	appErr := assertKind(t, err, apperror.KindAttemptInProgress)
	assert.Equal(t, winner.ID, appErr.AttemptID)
	assert.EqualValues(t, 1, f.countAttempts(t))
}

func TestStartAttempt_CachedQuestionsDoNotHideAvailabilityChanges(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	f.svc.testRepo = repository.NewCachedTestRepository(repository.NewTestRepository(f.db), rdb, time.Hour)

	test := f.test(t, threeKeys)
	f.start(t, f.student(t).ID, test.ID)

	require.NoError(t, f.db.Model(&model.Test{}).Where("id = ?", test.ID).Update("restrict_to_class", "MCA").Error)
	_, err := f.svc.StartAttempt(f.ctx, f.student(t, func(u *model.User) { u.Class = "BCA" }).ID, test.ID, ClientMeta{})
	assertKind(t, err, apperror.KindRestrictionViolation)

	require.NoError(t, f.db.Model(&model.Test{}).Where("id = ?", test.ID).Update("is_active", false).Error)
	_, err = f.svc.StartAttempt(f.ctx, f.student(t, func(u *model.User) { u.Class = "MCA" }).ID, test.ID, ClientMeta{})
	assertKind(t, err, apperror.KindNotFound)
	assert.EqualValues(t, 1, f.countAttempts(t))
}
