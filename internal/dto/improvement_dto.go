package dto

import (
	"time"

	"github.com/500AN/Question-Bank/internal/model"
)

type ImprovementReport struct {
	TestInfo           ImprovementTestInfo `json:"test_info"`
	Attempts           []AttemptProgress   `json:"attempts"`
	OverallImprovement OverallImprovement  `json:"overall_improvement"`
	Trends             Trends              `json:"trends"`
	QuestionAnalysis   *QuestionAnalysis   `json:"question_analysis,omitempty"`
	CoachingNote       string              `json:"coaching_note,omitempty"`
}

type ImprovementTestInfo struct {
	Title         string  `json:"title"`
	TotalMarks    float64 `json:"total_marks"`
	TotalAttempts int     `json:"total_attempts"`
}

type AttemptProgress struct {
	AttemptNumber int               `json:"attempt_number"`
	Score         float64           `json:"score"`
	Percentage    float64           `json:"percentage"`
	TimeSpent     int               `json:"time_spent"`
	SubmittedAt   *time.Time        `json:"submitted_at"`
	Improvement   *ImprovementDelta `json:"improvement"`
}

type ImprovementDelta struct {
	ScoreChange      float64 `json:"score_change"`
	PercentageChange float64 `json:"percentage_change"`
	TimeChange       int     `json:"time_change"`
}

type ScorePoint struct {
	Score      float64 `json:"score"`
	Percentage float64 `json:"percentage"`
}

type OverallImprovement struct {
	FirstAttempt     ScorePoint      `json:"first_attempt"`
	LastAttempt      ScorePoint      `json:"last_attempt"`
	TotalImprovement ScorePoint      `json:"total_improvement"` // last minus first
	BestAttempt      AttemptProgress `json:"best_attempt"`
	// AverageScore is the mean percentage across attempts.
	AverageScore float64 `json:"average_score"`
}

type Trends struct {
	Improving             bool  `json:"improving"`
	ConsistentImprovement *bool `json:"consistent_improvement"`
	BestStreak            int   `json:"best_streak"`
}

type QuestionAnalysis struct {
	TotalQuestions      int                `json:"total_questions"`
	ImprovedQuestions   int                `json:"improved_questions"`
	ConsistentQuestions int                `json:"consistent_questions"`
	DifficultQuestions  int                `json:"difficult_questions"`
	Questions           []QuestionProgress `json:"questions"`
}

type QuestionProgress struct {
	QuestionID          uint                    `json:"question_id"`
	SuccessRate         float64                 `json:"success_rate"`
	Attempts            []QuestionAttemptResult `json:"attempts"`
	Improved            bool                    `json:"improved"`
	ConsistentlyCorrect bool                    `json:"consistently_correct"`
	NeverCorrect        bool                    `json:"never_correct"`
}

type QuestionAttemptResult struct {
	AttemptNumber  int                `json:"attempt_number"`
	IsCorrect      bool               `json:"is_correct"`
	SelectedOption *model.OptionLabel `json:"selected_option"`
	MarksAwarded   float64            `json:"marks_awarded"`
}
