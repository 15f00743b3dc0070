package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/500AN/Question-Bank/internal/apperror"
	"github.com/500AN/Question-Bank/internal/dto"
	"github.com/500AN/Question-Bank/internal/model"
	"github.com/500AN/Question-Bank/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// StartAttempt checks that the student may take the test and creates the
// next numbered attempt. Every rejection carries its specific reason.
func (s *attemptService) StartAttempt(ctx context.Context, studentID, testID uint, meta ClientMeta) (*dto.StartAttemptResponse, error) {
	test, err := s.testRepo.FindByIDWithQuestions(ctx, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Test not found or not available")
		}
		log.Error().Err(err).Uint("testID", testID).Msg("StartAttempt: failed to load test")
		return nil, apperror.Internal("Failed to load test", err)
	}
	if !test.IsActive || !test.IsPublic {
		return nil, apperror.NotFound("Test not found or not available")
	}
	if len(test.Questions) == 0 {
		return nil, apperror.New(apperror.KindEmptyTest, "This test has no questions available")
	}

	now := s.now()
	if test.StartDate != nil && now.Before(*test.StartDate) {
		return nil, apperror.New(apperror.KindNotStarted, "Test has not started yet")
	}
	if test.EndDate != nil && now.After(*test.EndDate) {
		return nil, apperror.New(apperror.KindEnded, "Test has ended")
	}

	student, err := s.userRepo.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Student not found")
		}
		log.Error().Err(err).Uint("studentID", studentID).Msg("StartAttempt: failed to load student")
		return nil, apperror.Internal("Failed to load student profile", err)
	}
	if err := checkRestrictions(test, student); err != nil {
		log.Info().Uint("studentID", studentID).Uint("testID", testID).Str("reason", err.Error()).Msg("StartAttempt: restricted")
		return nil, err
	}
	warnMarkingMismatch(test)

	questions := append([]model.Question(nil), test.Questions...)
	if test.ShuffleQuestions {
		s.shuffle(len(questions), func(i, j int) { questions[i], questions[j] = questions[j], questions[i] })
	}
	answers := make([]model.Answer, len(questions))
	for i, q := range questions {
		answers[i] = model.Answer{QuestionID: q.ID}
	}

	attempt := &model.Attempt{
		StudentID:  studentID,
		TestID:     testID,
		Answers:    answers,
		StartTime:  now,
		TotalMarks: test.TotalMarks,
		Status:     model.AttemptInProgress,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Version:    1,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.attemptRepo.WithTx(tx)
		prior, err := repo.FindAllByStudentAndTest(ctx, studentID, testID)
		if err != nil {
			return err
		}
		// an open attempt is reported ahead of the attempt cap
		for _, p := range prior {
			if p.Status == model.AttemptInProgress {
				return apperror.AttemptInProgress(p.ID)
			}
		}
		// allowing repeat attempts lifts the attempt cap entirely
		if !test.AllowRepeatAttempts && len(prior) >= test.MaxAttempts {
			return apperror.New(apperror.KindMaxAttemptsReached, "Maximum attempts reached for this test")
		}
		attempt.AttemptNumber = len(prior) + 1
		return repo.Create(ctx, attempt)
	})
	if err != nil {
		return nil, s.startError(ctx, studentID, testID, err)
	}

	log.Info().
		Uint("attemptID", attempt.ID).
		Uint("studentID", studentID).
		Uint("testID", testID).
		Int("attemptNumber", attempt.AttemptNumber).
		Msg("Test attempt started")

	resp := &dto.StartAttemptResponse{
		AttemptID:       attempt.ID,
		AttemptNumber:   attempt.AttemptNumber,
		TestTitle:       test.Title,
		DurationMinutes: test.DurationMinutes,
		TotalMarks:      test.TotalMarks,
		Instructions:    test.Instructions,
		Questions:       make([]dto.QuestionDTO, len(questions)),
		StartTime:       attempt.StartTime,
	}
	for i, q := range questions {
		resp.Questions[i] = toQuestionDTO(q)
	}
	return resp, nil
}

// startError maps a failed start transaction. A unique index violation means
// a concurrent start for the same attempt number won the race.
func (s *attemptService) startError(ctx context.Context, studentID, testID uint, err error) error {
	if _, ok := apperror.As(err); ok {
		return err
	}
	if errors.Is(err, repository.ErrDuplicateAttempt) {
		winner, findErr := s.attemptRepo.FindInProgress(ctx, studentID, testID)
		if findErr == nil {
			log.Info().Uint("attemptID", winner.ID).Uint("studentID", studentID).Msg("StartAttempt: lost race to concurrent start")
			return apperror.AttemptInProgress(winner.ID)
		}
		log.Error().Err(findErr).Uint("studentID", studentID).Uint("testID", testID).Msg("StartAttempt: duplicate attempt without an in-progress winner")
		return apperror.Internal("Failed to start test", err)
	}
	log.Error().Err(err).Uint("studentID", studentID).Uint("testID", testID).Msg("StartAttempt: failed to create attempt")
	return apperror.Internal("Failed to start test", err)
}

// checkRestrictions compares each configured restriction with the student
// profile, case-insensitively. A missing profile value never matches.
func checkRestrictions(test *model.Test, student *model.User) error {
	checks := []struct {
		dimension string
		required  *string
		actual    string
	}{
		{apperror.DimensionClass, test.RestrictToClass, student.Class},
		{apperror.DimensionSemester, test.RestrictToSemester, student.Semester},
		{apperror.DimensionBatch, test.RestrictToBatch, student.Batch},
		{apperror.DimensionDepartment, test.RestrictToDepartment, student.Department},
	}
	for _, c := range checks {
		if c.required == nil || *c.required == "" {
			continue
		}
		if c.actual == "" || !strings.EqualFold(*c.required, c.actual) {
			return apperror.Restriction(c.dimension, *c.required)
		}
	}
	return nil
}

// warnMarkingMismatch flags tests whose stated total disagrees with the
// flat per-question rate used for grading. Neither value is corrected.
func warnMarkingMismatch(test *model.Test) {
	expected := float64(len(test.Questions)) * test.MarksPerQuestion
	if math.Abs(expected-test.TotalMarks) > 1e-9 {
		log.Warn().
			Uint("testID", test.ID).
			Float64("totalMarks", test.TotalMarks).
			Float64("questionsTimesMarks", expected).
			Msg("Test total marks differ from question count times marks per question")
	}
}
