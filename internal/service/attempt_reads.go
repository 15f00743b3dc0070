package service

import (
	"context"

	"github.com/500AN/Question-Bank/internal/apperror"
	"github.com/500AN/Question-Bank/internal/dto"
	"github.com/500AN/Question-Bank/internal/model"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// authorizeView lets the owning student, the test's creator and admins see
// an attempt. Other students get NotFound so attempt ids do not leak.
func authorizeView(actor model.Actor, attempt *model.Attempt, test *model.Test) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleTeacher:
		if test.CreatedBy == actor.UserID {
			return nil
		}
		return apperror.Forbidden("Access denied")
	case model.RoleStudent:
		if attempt.StudentID == actor.UserID {
			return nil
		}
		return apperror.NotFound("Test attempt not found")
	}
	return apperror.Forbidden("Access denied")
}

func (s *attemptService) loadViewable(ctx context.Context, actor model.Actor, attemptID uint) (*model.Attempt, *model.Test, map[uint]model.Question, error) {
	attempt, err := s.findAttempt(ctx, attemptID)
	if err != nil {
		return nil, nil, nil, err
	}
	test, err := s.findAttemptTest(ctx, attempt.TestID)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := authorizeView(actor, attempt, test); err != nil {
		return nil, nil, nil, err
	}
	questions, err := s.loadQuestions(ctx, attempt.QuestionIDs())
	if err != nil {
		return nil, nil, nil, err
	}
	return attempt, test, questions, nil
}

// GetAttempt returns the attempt with its question content. Students only see
// grading once the attempt is completed and the test publishes results.
func (s *attemptService) GetAttempt(ctx context.Context, actor model.Actor, attemptID uint) (*dto.AttemptDetailDTO, error) {
	attempt, test, questions, err := s.loadViewable(ctx, actor, attemptID)
	if err != nil {
		return nil, err
	}
	reveal := !actor.IsStudent() ||
		(attempt.Status == model.AttemptCompleted && (test.ShowResultsImmediately || test.AllowReview))
	return toAttemptDetail(attempt, test, questions, reveal), nil
}

func (s *attemptService) GetReview(ctx context.Context, actor model.Actor, attemptID uint) (*dto.AttemptDetailDTO, error) {
	attempt, test, questions, err := s.loadViewable(ctx, actor, attemptID)
	if err != nil {
		return nil, err
	}
	if actor.IsStudent() {
		if attempt.Status != model.AttemptCompleted {
			return nil, apperror.Forbidden("Review is available after the test is submitted")
		}
		if !test.AllowReview {
			return nil, apperror.Forbidden("Review is not enabled for this test")
		}
	}
	return toAttemptDetail(attempt, test, questions, true), nil
}

func (s *attemptService) ListTestAttempts(ctx context.Context, actor model.Actor, testID uint, page, limit int) ([]dto.AttemptSummaryDTO, dto.Pagination, error) {
	test, err := s.findTest(ctx, testID)
	if err != nil {
		return nil, dto.Pagination{}, err
	}
	if !actor.IsAdmin() && test.CreatedBy != actor.UserID {
		return nil, dto.Pagination{}, apperror.Forbidden("Access denied")
	}

	page, limit = normalizePage(page, limit)
	attempts, total, err := s.attemptRepo.FindByTestPage(ctx, testID, page, limit)
	if err != nil {
		log.Error().Err(err).Uint("testID", testID).Msg("Failed to list test attempts")
		return nil, dto.Pagination{}, apperror.Internal("Failed to list attempts", err)
	}
	summaries, err := s.summarize(ctx, attempts, true)
	if err != nil {
		return nil, dto.Pagination{}, err
	}
	return summaries, dto.NewPagination(page, limit, total), nil
}

func (s *attemptService) MyResults(ctx context.Context, studentID uint) ([]dto.AttemptSummaryDTO, error) {
	attempts, err := s.attemptRepo.FindCompleted(ctx, &studentID)
	if err != nil {
		log.Error().Err(err).Uint("studentID", studentID).Msg("Failed to list student results")
		return nil, apperror.Internal("Failed to list results", err)
	}
	return s.summarize(ctx, attempts, false)
}

func (s *attemptService) AllResults(ctx context.Context) ([]dto.AttemptSummaryDTO, error) {
	attempts, err := s.attemptRepo.FindCompleted(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list all results")
		return nil, apperror.Internal("Failed to list results", err)
	}
	return s.summarize(ctx, attempts, true)
}

func (s *attemptService) History(ctx context.Context, studentID uint, page, limit int) ([]dto.AttemptSummaryDTO, dto.Pagination, error) {
	page, limit = normalizePage(page, limit)
	attempts, total, err := s.attemptRepo.FindCompletedPage(ctx, studentID, page, limit)
	if err != nil {
		log.Error().Err(err).Uint("studentID", studentID).Msg("Failed to load test history")
		return nil, dto.Pagination{}, apperror.Internal("Failed to load history", err)
	}
	summaries, err := s.summarize(ctx, attempts, false)
	if err != nil {
		return nil, dto.Pagination{}, err
	}
	return summaries, dto.NewPagination(page, limit, total), nil
}

// summarize hydrates listing rows with their tests and, when asked, students.
func (s *attemptService) summarize(ctx context.Context, attempts []model.Attempt, withStudents bool) ([]dto.AttemptSummaryDTO, error) {
	summaries := make([]dto.AttemptSummaryDTO, len(attempts))
	if len(attempts) == 0 {
		return summaries, nil
	}

	testIDs := make([]uint, 0, len(attempts))
	studentIDs := make([]uint, 0, len(attempts))
	seenTest, seenStudent := map[uint]bool{}, map[uint]bool{}
	for _, a := range attempts {
		if !seenTest[a.TestID] {
			seenTest[a.TestID] = true
			testIDs = append(testIDs, a.TestID)
		}
		if !seenStudent[a.StudentID] {
			seenStudent[a.StudentID] = true
			studentIDs = append(studentIDs, a.StudentID)
		}
	}

	tests, err := s.testRepo.FindByIDs(ctx, testIDs)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load tests for attempt listing")
		return nil, apperror.Internal("Failed to load tests", err)
	}
	testsByID := make(map[uint]*model.Test, len(tests))
	for i := range tests {
		testsByID[tests[i].ID] = &tests[i]
	}

	usersByID := map[uint]*model.User{}
	if withStudents {
		users, err := s.userRepo.FindByIDs(ctx, studentIDs)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load students for attempt listing")
			return nil, apperror.Internal("Failed to load students", err)
		}
		for i := range users {
			usersByID[users[i].ID] = &users[i]
		}
	}

	for i := range attempts {
		a := &attempts[i]
		if err := copier.Copy(&summaries[i], a); err != nil {
			log.Error().Err(err).Uint("attemptID", a.ID).Msg("Failed to copy Attempt model to AttemptSummaryDTO")
			return nil, apperror.Internal("Failed to prepare results", err)
		}
		if test, ok := testsByID[a.TestID]; ok {
			summaries[i].Test = toTestSummary(test)
			summaries[i].Passed = passed(test, a)
		}
		if user, ok := usersByID[a.StudentID]; ok {
			summaries[i].Student = toStudentSummary(user)
		}
	}
	return summaries, nil
}
