package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/500AN/Question-Bank/config"
	"github.com/500AN/Question-Bank/internal/apperror"
	"github.com/500AN/Question-Bank/internal/dto"
	"github.com/500AN/Question-Bank/internal/model"
	"github.com/500AN/Question-Bank/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// maxWriteRetries bounds how often a write is re-applied after losing a version race.
const maxWriteRetries = 3

type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// AttemptService owns the attempt lifecycle: start, answer, submit and the
// read side used by students and teachers.
type AttemptService interface {
	StartAttempt(ctx context.Context, studentID, testID uint, meta ClientMeta) (*dto.StartAttemptResponse, error)
	SaveAnswer(ctx context.Context, studentID, attemptID, questionID uint, selected *model.OptionLabel, timeSpent int) error
	SaveAnswers(ctx context.Context, studentID, attemptID uint, selections map[uint]*model.OptionLabel) (*dto.SaveAnswersResponse, error)
	Submit(ctx context.Context, studentID, attemptID uint, selections map[uint]*model.OptionLabel) (*dto.SubmitAttemptResponse, error)

	GetAttempt(ctx context.Context, actor model.Actor, attemptID uint) (*dto.AttemptDetailDTO, error)
	GetReview(ctx context.Context, actor model.Actor, attemptID uint) (*dto.AttemptDetailDTO, error)
	ListTestAttempts(ctx context.Context, actor model.Actor, testID uint, page, limit int) ([]dto.AttemptSummaryDTO, dto.Pagination, error)
	MyResults(ctx context.Context, studentID uint) ([]dto.AttemptSummaryDTO, error)
	AllResults(ctx context.Context) ([]dto.AttemptSummaryDTO, error)
	History(ctx context.Context, studentID uint, page, limit int) ([]dto.AttemptSummaryDTO, dto.Pagination, error)
}

type attemptService struct {
	db           *gorm.DB
	attemptRepo  repository.AttemptRepository
	testRepo     repository.TestRepository
	questionRepo repository.QuestionRepository
	userRepo     repository.UserRepository
	gracePeriod  time.Duration

	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

func NewAttemptService(
	db *gorm.DB,
	attemptRepo repository.AttemptRepository,
	testRepo repository.TestRepository,
	questionRepo repository.QuestionRepository,
	userRepo repository.UserRepository,
	cfg *config.Config,
) AttemptService {
	return &attemptService{
		db:           db,
		attemptRepo:  attemptRepo,
		testRepo:     testRepo,
		questionRepo: questionRepo,
		userRepo:     userRepo,
		gracePeriod:  cfg.Attempt.SubmitGracePeriod,
		now:          time.Now,
		shuffle:      rand.Shuffle,
	}
}

// gradingContext is what a write needs to rescore answers.
type gradingContext struct {
	test      *model.Test
	questions map[uint]model.Question
	rules     MarkingRules
}

func (s *attemptService) SaveAnswer(ctx context.Context, studentID, attemptID, questionID uint, selected *model.OptionLabel, timeSpent int) error {
	_, _, err := s.mutate(ctx, studentID, attemptID, func(attempt *model.Attempt, gc *gradingContext) error {
		idx := attempt.AnswerIndex(questionID)
		if idx == -1 {
			return apperror.New(apperror.KindQuestionNotInAttempt, "Question not found in this attempt")
		}
		gradeAnswer(&attempt.Answers[idx], selected, gc.questions[questionID], gc.rules)
		attempt.Answers[idx].TimeSpent = timeSpent
		return nil
	})
	if err != nil {
		return err
	}
	log.Debug().Uint("attemptID", attemptID).Uint("questionID", questionID).Msg("Answer saved")
	return nil
}

func (s *attemptService) SaveAnswers(ctx context.Context, studentID, attemptID uint, selections map[uint]*model.OptionLabel) (*dto.SaveAnswersResponse, error) {
	var saved int
	_, _, err := s.mutate(ctx, studentID, attemptID, func(attempt *model.Attempt, gc *gradingContext) error {
		saved = applySelections(attempt, selections, gc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Uint("attemptID", attemptID).Int("saved", saved).Int("received", len(selections)).Msg("Answers saved")
	return &dto.SaveAnswersResponse{AttemptID: attemptID, SavedCount: saved}, nil
}

func (s *attemptService) Submit(ctx context.Context, studentID, attemptID uint, selections map[uint]*model.OptionLabel) (*dto.SubmitAttemptResponse, error) {
	attempt, gc, err := s.mutate(ctx, studentID, attemptID, func(attempt *model.Attempt, gc *gradingContext) error {
		applySelections(attempt, selections, gc)
		now := s.now()
		attempt.Status = model.AttemptCompleted
		attempt.IsSubmitted = true
		attempt.SubmittedAt = &now
		attempt.EndTime = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	deadline := attempt.StartTime.Add(time.Duration(gc.test.DurationMinutes)*time.Minute + s.gracePeriod)
	late := attempt.SubmittedAt.After(deadline)
	if late {
		log.Warn().
			Uint("attemptID", attempt.ID).
			Time("deadline", deadline).
			Time("submittedAt", *attempt.SubmittedAt).
			Msg("Attempt submitted after the allowed duration")
	}

	resp := &dto.SubmitAttemptResponse{
		AttemptID:   attempt.ID,
		Score:       attempt.Score,
		TotalMarks:  attempt.TotalMarks,
		Percentage:  attempt.Percentage,
		TimeSpent:   attempt.TimeSpent,
		SubmittedAt: *attempt.SubmittedAt,
		Passed:      passed(gc.test, attempt),
		Late:        late,
	}
	if gc.test.ShowResultsImmediately {
		resp.DetailedAnswers = detailedAnswers(attempt, gc.questions)
	}

	log.Info().
		Uint("attemptID", attempt.ID).
		Uint("studentID", studentID).
		Float64("score", attempt.Score).
		Float64("percentage", attempt.Percentage).
		Msg("Test attempt submitted")
	return resp, nil
}

// mutate loads the caller's in-progress attempt, applies fn, recomputes the
// derived fields and writes the result with a version check. A lost version
// race re-reads the attempt and applies fn again.
func (s *attemptService) mutate(
	ctx context.Context,
	studentID, attemptID uint,
	fn func(attempt *model.Attempt, gc *gradingContext) error,
) (*model.Attempt, *gradingContext, error) {
	for try := 1; try <= maxWriteRetries; try++ {
		attempt, err := s.loadOwnedInProgress(ctx, studentID, attemptID)
		if err != nil {
			return nil, nil, err
		}
		gc, err := s.loadGradingContext(ctx, attempt)
		if err != nil {
			return nil, nil, err
		}
		if err := fn(attempt, gc); err != nil {
			return nil, nil, err
		}
		Recompute(attempt)

		err = s.attemptRepo.UpdateIfCurrent(ctx, attempt)
		if err == nil {
			return attempt, gc, nil
		}
		if !errors.Is(err, repository.ErrStaleAttempt) {
			log.Error().Err(err).Uint("attemptID", attemptID).Msg("Failed to update attempt")
			return nil, nil, apperror.Internal("Failed to save attempt", err)
		}
		log.Warn().Uint("attemptID", attemptID).Int("try", try).Msg("Attempt changed concurrently, re-applying update")
	}
	return nil, nil, apperror.Internal("Attempt is busy, please retry", repository.ErrStaleAttempt)
}

func (s *attemptService) loadOwnedInProgress(ctx context.Context, studentID, attemptID uint) (*model.Attempt, error) {
	attempt, err := s.findAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != studentID {
		return nil, apperror.NotFound("Test attempt not found")
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, apperror.AlreadyCompleted()
	}
	return attempt, nil
}

func (s *attemptService) findAttempt(ctx context.Context, attemptID uint) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.FindByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Test attempt not found")
		}
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("Failed to load attempt")
		return nil, apperror.Internal("Failed to load attempt", err)
	}
	return attempt, nil
}

func (s *attemptService) findTest(ctx context.Context, testID uint) (*model.Test, error) {
	test, err := s.testRepo.FindByID(ctx, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Test not found")
		}
		log.Error().Err(err).Uint("testID", testID).Msg("Failed to load test")
		return nil, apperror.Internal("Failed to load test", err)
	}
	return test, nil
}

// findAttemptTest resolves the test an existing attempt belongs to, even
// after the test was soft-deleted.
func (s *attemptService) findAttemptTest(ctx context.Context, testID uint) (*model.Test, error) {
	test, err := s.testRepo.FindByIDUnscoped(ctx, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Test not found")
		}
		log.Error().Err(err).Uint("testID", testID).Msg("Failed to load attempt test")
		return nil, apperror.Internal("Failed to load test", err)
	}
	return test, nil
}

func (s *attemptService) loadQuestions(ctx context.Context, ids []uint) (map[uint]model.Question, error) {
	questions, err := s.questionRepo.FindByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Int("count", len(ids)).Msg("Failed to load questions")
		return nil, apperror.Internal("Failed to load questions", err)
	}
	byID := make(map[uint]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	if len(byID) != len(ids) {
		log.Warn().Int("expected", len(ids)).Int("found", len(byID)).Msg("Some attempt questions no longer exist")
	}
	return byID, nil
}

func (s *attemptService) loadGradingContext(ctx context.Context, attempt *model.Attempt) (*gradingContext, error) {
	test, err := s.findAttemptTest(ctx, attempt.TestID)
	if err != nil {
		return nil, err
	}
	questions, err := s.loadQuestions(ctx, attempt.QuestionIDs())
	if err != nil {
		return nil, err
	}
	return &gradingContext{test: test, questions: questions, rules: MarkingRulesFor(test)}, nil
}

// applySelections rescores every answer named in selections and keeps its
// time spent. Unknown question ids are skipped. It returns how many matched.
func applySelections(attempt *model.Attempt, selections map[uint]*model.OptionLabel, gc *gradingContext) int {
	matched := 0
	for questionID, selected := range selections {
		idx := attempt.AnswerIndex(questionID)
		if idx == -1 {
			continue
		}
		gradeAnswer(&attempt.Answers[idx], selected, gc.questions[questionID], gc.rules)
		matched++
	}
	return matched
}

// passed is nil when the test has no passing mark.
func passed(test *model.Test, attempt *model.Attempt) *bool {
	if test == nil || test.PassingMarks == nil || attempt.Status != model.AttemptCompleted {
		return nil
	}
	ok := attempt.Score >= *test.PassingMarks
	return &ok
}
