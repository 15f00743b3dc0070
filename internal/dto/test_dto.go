package dto

import "github.com/500AN/Question-Bank/internal/model"

// TestSummaryDTO is the slice of a test shown next to attempts.
type TestSummaryDTO struct {
	ID                      uint     `json:"id"`
	Title                   string   `json:"title"`
	TotalMarks              float64  `json:"total_marks"`
	DurationMinutes         int      `json:"duration_minutes"`
	PassingMarks            *float64 `json:"passing_marks,omitempty"`
	AllowReview             bool     `json:"allow_review"`
	ShowImprovementAnalysis bool     `json:"show_improvement_analysis"`
}

type StudentSummaryDTO struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	RollNumber string `json:"roll_number,omitempty"`
	Class      string `json:"class,omitempty"`
	Batch      string `json:"batch,omitempty"`
}

type OptionDTO struct {
	Label model.OptionLabel `json:"label"`
	Text  string            `json:"text"`
}

// QuestionDTO is question content as shown to a test taker; it never carries the answer key.
type QuestionDTO struct {
	ID              uint        `json:"id"`
	QuestionText    string      `json:"question_text"`
	Options         []OptionDTO `json:"options"`
	DifficultyLevel string      `json:"difficulty_level,omitempty"`
}
