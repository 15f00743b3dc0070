package service

import (
	"context"
	"errors"
	"time"

	"github.com/500AN/Question-Bank/internal/apperror"
	"github.com/500AN/Question-Bank/internal/dto"
	"github.com/500AN/Question-Bank/internal/model"
	"github.com/500AN/Question-Bank/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	coachingTimeout      = 15 * time.Second
	maxCoachingQuestions = 5
)

type ImprovementService interface {
	Analyze(ctx context.Context, studentID, testID uint) (*dto.ImprovementReport, error)
}

type improvementService struct {
	attemptRepo  repository.AttemptRepository
	testRepo     repository.TestRepository
	questionRepo repository.QuestionRepository
	coach        CoachingService
}

func NewImprovementService(
	attemptRepo repository.AttemptRepository,
	testRepo repository.TestRepository,
	questionRepo repository.QuestionRepository,
	coach CoachingService,
) ImprovementService {
	return &improvementService{
		attemptRepo:  attemptRepo,
		testRepo:     testRepo,
		questionRepo: questionRepo,
		coach:        coach,
	}
}

func (s *improvementService) Analyze(ctx context.Context, studentID, testID uint) (*dto.ImprovementReport, error) {
	test, err := s.testRepo.FindByID(ctx, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Test not found")
		}
		log.Error().Err(err).Uint("testID", testID).Msg("Improvement: failed to load test")
		return nil, apperror.Internal("Failed to load test", err)
	}

	attempts, err := s.attemptRepo.FindCompletedByStudentAndTest(ctx, studentID, testID)
	if err != nil {
		log.Error().Err(err).Uint("studentID", studentID).Uint("testID", testID).Msg("Improvement: failed to load attempts")
		return nil, apperror.Internal("Failed to load attempts", err)
	}
	if len(attempts) == 0 {
		return nil, apperror.NotFound("No completed attempts found for this test")
	}
	if !test.ShowImprovementAnalysis {
		return nil, apperror.Forbidden("Improvement analysis is not enabled for this test")
	}

	report := BuildImprovementReport(test, attempts)
	if report.QuestionAnalysis != nil && s.coach != nil && s.coach.Enabled() {
		report.CoachingNote = s.coachingNote(ctx, test, report.QuestionAnalysis)
	}
	return report, nil
}

// coachingNote never fails the report; errors are logged and dropped.
func (s *improvementService) coachingNote(ctx context.Context, test *model.Test, analysis *dto.QuestionAnalysis) string {
	var weakIDs []uint
	rates := map[uint]float64{}
	for _, q := range analysis.Questions {
		last := q.Attempts[len(q.Attempts)-1]
		if q.NeverCorrect || !last.IsCorrect {
			weakIDs = append(weakIDs, q.QuestionID)
			rates[q.QuestionID] = q.SuccessRate
		}
		if len(weakIDs) == maxCoachingQuestions {
			break
		}
	}
	if len(weakIDs) == 0 {
		return ""
	}

	questions, err := s.questionRepo.FindByIDs(ctx, weakIDs)
	if err != nil {
		log.Warn().Err(err).Uint("testID", test.ID).Msg("Improvement: could not load questions for coaching")
		return ""
	}
	byID := make(map[uint]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	weak := make([]WeakQuestion, 0, len(weakIDs))
	for _, id := range weakIDs {
		q, ok := byID[id]
		if !ok {
			continue
		}
		weak = append(weak, WeakQuestion{
			QuestionText:  q.QuestionText,
			CorrectAnswer: correctOptionText(q),
			Explanation:   q.Explanation,
			SuccessRate:   rates[id],
		})
	}

	ctx, cancel := context.WithTimeout(ctx, coachingTimeout)
	defer cancel()
	note, err := s.coach.StudyNote(ctx, test.Title, weak)
	if err != nil {
		log.Warn().Err(err).Uint("testID", test.ID).Msg("Improvement: coaching note unavailable")
		return ""
	}
	return note
}

func correctOptionText(q model.Question) string {
	for _, o := range q.Options {
		if o.Label == q.CorrectOption {
			return string(o.Label) + ". " + o.Text
		}
	}
	return string(q.CorrectOption)
}

// BuildImprovementReport analyses completed attempts ordered by attempt number.
// attempts must not be empty.
func BuildImprovementReport(test *model.Test, attempts []model.Attempt) *dto.ImprovementReport {
	progress := make([]dto.AttemptProgress, len(attempts))
	var sum float64
	for i, a := range attempts {
		progress[i] = dto.AttemptProgress{
			AttemptNumber: a.AttemptNumber,
			Score:         a.Score,
			Percentage:    a.Percentage,
			TimeSpent:     a.TimeSpent,
			SubmittedAt:   a.SubmittedAt,
		}
		if i > 0 {
			prev := attempts[i-1]
			progress[i].Improvement = &dto.ImprovementDelta{
				ScoreChange:      a.Score - prev.Score,
				PercentageChange: a.Percentage - prev.Percentage,
				TimeChange:       a.TimeSpent - prev.TimeSpent,
			}
		}
		sum += a.Percentage
	}

	first, last := attempts[0], attempts[len(attempts)-1]
	best := 0
	for i := range attempts {
		if attempts[i].Percentage > attempts[best].Percentage {
			best = i
		}
	}

	report := &dto.ImprovementReport{
		TestInfo: dto.ImprovementTestInfo{
			Title:         test.Title,
			TotalMarks:    test.TotalMarks,
			TotalAttempts: len(attempts),
		},
		Attempts: progress,
		OverallImprovement: dto.OverallImprovement{
			FirstAttempt: dto.ScorePoint{Score: first.Score, Percentage: first.Percentage},
			LastAttempt:  dto.ScorePoint{Score: last.Score, Percentage: last.Percentage},
			TotalImprovement: dto.ScorePoint{
				Score:      last.Score - first.Score,
				Percentage: last.Percentage - first.Percentage,
			},
			BestAttempt:  progress[best],
			AverageScore: sum / float64(len(attempts)),
		},
		Trends: dto.Trends{
			Improving:             last.Percentage > first.Percentage,
			ConsistentImprovement: consistentImprovement(attempts),
			BestStreak:            bestStreak(attempts),
		},
	}
	if len(attempts) > 1 {
		report.QuestionAnalysis = analyzeQuestions(attempts)
	}
	return report
}

// consistentImprovement is nil below three attempts.
func consistentImprovement(attempts []model.Attempt) *bool {
	if len(attempts) < 3 {
		return nil
	}
	ok := true
	for i := 1; i < len(attempts); i++ {
		if attempts[i].Percentage < attempts[i-1].Percentage {
			ok = false
			break
		}
	}
	return &ok
}

// bestStreak is the longest run of strictly increasing percentages.
func bestStreak(attempts []model.Attempt) int {
	current, best := 0, 0
	for i := 1; i < len(attempts); i++ {
		if attempts[i].Percentage > attempts[i-1].Percentage {
			current++
			if current > best {
				best = current
			}
		} else {
			current = 0
		}
	}
	return best
}

func analyzeQuestions(attempts []model.Attempt) *dto.QuestionAnalysis {
	var order []uint
	history := map[uint][]dto.QuestionAttemptResult{}
	for _, a := range attempts {
		for _, ans := range a.Answers {
			if _, seen := history[ans.QuestionID]; !seen {
				order = append(order, ans.QuestionID)
			}
			history[ans.QuestionID] = append(history[ans.QuestionID], dto.QuestionAttemptResult{
				AttemptNumber:  a.AttemptNumber,
				IsCorrect:      ans.IsCorrect,
				SelectedOption: ans.SelectedOption,
				MarksAwarded:   ans.MarksAwarded,
			})
		}
	}

	analysis := &dto.QuestionAnalysis{
		TotalQuestions: len(order),
		Questions:      make([]dto.QuestionProgress, 0, len(order)),
	}
	for _, id := range order {
		results := history[id]
		correct := 0
		for _, r := range results {
			if r.IsCorrect {
				correct++
			}
		}
		qp := dto.QuestionProgress{
			QuestionID:          id,
			SuccessRate:         float64(correct) / float64(len(results)) * 100,
			Attempts:            results,
			Improved:            len(results) > 1 && !results[0].IsCorrect && results[len(results)-1].IsCorrect,
			ConsistentlyCorrect: correct == len(results),
			NeverCorrect:        correct == 0,
		}
		if qp.Improved {
			analysis.ImprovedQuestions++
		}
		if qp.ConsistentlyCorrect {
			analysis.ConsistentQuestions++
		}
		if qp.NeverCorrect {
			analysis.DifficultQuestions++
		}
		analysis.Questions = append(analysis.Questions, qp)
	}
	return analysis
}
