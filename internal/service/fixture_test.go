package service

import (
	"context"
	"testing"
	"time"

	"github.com/500AN/Question-Bank/config"
	"github.com/500AN/Question-Bank/internal/apperror"
	"github.com/500AN/Question-Bank/internal/model"
	"github.com/500AN/Question-Bank/internal/repository"
	"github.com/500AN/Question-Bank/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const teacherID uint = 900

type fixture struct {
	db      *gorm.DB
	svc     *attemptService
	repo    repository.AttemptRepository
	clock   time.Time
	ctx     context.Context
	teacher *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	repo := repository.NewAttemptRepository(db)
	cfg := &config.Config{Attempt: config.Attempt{SubmitGracePeriod: 2 * time.Minute}}
	svc := NewAttemptService(
		db,
		repo,
		repository.NewTestRepository(db),
		repository.NewQuestionRepository(db),
		repository.NewUserRepository(db),
		cfg,
	).(*attemptService)

	f := &fixture{
		db:    db,
		svc:   svc,
		repo:  repo,
		clock: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		ctx:   context.Background(),
	}
	svc.now = func() time.Time { return f.clock }
	svc.shuffle = func(int, func(i, j int)) {}
	f.teacher = testutil.CreateUser(t, db, model.RoleTeacher, func(u *model.User) { u.ID = teacherID })
	return f
}

func (f *fixture) student(t *testing.T, mods ...func(*model.User)) *model.User {
	return testutil.CreateUser(t, f.db, model.RoleStudent, mods...)
}

func (f *fixture) test(t *testing.T, keys []model.OptionLabel, mods ...func(*model.Test)) *model.Test {
	return testutil.CreateTest(t, f.db, teacherID, keys, mods...)
}

func (f *fixture) start(t *testing.T, studentID, testID uint) uint {
	t.Helper()
	resp, err := f.svc.StartAttempt(f.ctx, studentID, testID, ClientMeta{IPAddress: "10.0.0.1", UserAgent: "go-test"})
	require.NoError(t, err)
	return resp.AttemptID
}

func (f *fixture) load(t *testing.T, attemptID uint) *model.Attempt {
	t.Helper()
	a, err := f.repo.FindByID(f.ctx, attemptID)
	require.NoError(t, err)
	return a
}

func (f *fixture) countAttempts(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Attempt{}).Count(&n).Error)
	return n
}

func assertKind(t *testing.T, err error, kind apperror.Kind) *apperror.Error {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected *apperror.Error, got %T: %v", err, err)
	assert.Equal(t, kind, appErr.Kind, appErr.Message)
	return appErr
}
