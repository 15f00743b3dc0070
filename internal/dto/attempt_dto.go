package dto

import (
	"time"

	"github.com/500AN/Question-Bank/internal/model"
)

type StartAttemptResponse struct {
	AttemptID       uint          `json:"attempt_id"`
	AttemptNumber   int           `json:"attempt_number"`
	TestTitle       string        `json:"test_title"`
	DurationMinutes int           `json:"duration_minutes"`
	TotalMarks      float64       `json:"total_marks"`
	Instructions    string        `json:"instructions,omitempty"`
	Questions       []QuestionDTO `json:"questions"`
	StartTime       time.Time     `json:"start_time"`
}

type SaveAnswersResponse struct {
	AttemptID  uint `json:"attempt_id"`
	SavedCount int  `json:"saved_count"`
}

// DetailedAnswerDTO is one graded answer with the answer key revealed.
type DetailedAnswerDTO struct {
	QuestionID     uint               `json:"question_id"`
	QuestionText   string             `json:"question_text"`
	Options        []OptionDTO        `json:"options"`
	SelectedOption *model.OptionLabel `json:"selected_option"`
	CorrectOption  model.OptionLabel  `json:"correct_option"`
	IsCorrect      bool               `json:"is_correct"`
	MarksAwarded   float64            `json:"marks_awarded"`
	Explanation    string             `json:"explanation,omitempty"`
}

type SubmitAttemptResponse struct {
	AttemptID       uint                `json:"attempt_id"`
	Score           float64             `json:"score"`
	TotalMarks      float64             `json:"total_marks"`
	Percentage      float64             `json:"percentage"`
	TimeSpent       int                 `json:"time_spent"`
	SubmittedAt     time.Time           `json:"submitted_at"`
	Passed          *bool               `json:"passed,omitempty"`
	Late            bool                `json:"late"`
	DetailedAnswers []DetailedAnswerDTO `json:"detailed_answers,omitempty"`
}

// AttemptAnswerDTO is an answer inside GetAttempt/GetReview. The grading fields
// are nil while the answer key is hidden from the caller.
type AttemptAnswerDTO struct {
	QuestionID     uint               `json:"question_id"`
	Question       *QuestionDTO       `json:"question,omitempty"`
	SelectedOption *model.OptionLabel `json:"selected_option"`
	TimeSpent      int                `json:"time_spent"`
	IsCorrect      *bool              `json:"is_correct,omitempty"`
	MarksAwarded   *float64           `json:"marks_awarded,omitempty"`
	CorrectOption  *model.OptionLabel `json:"correct_option,omitempty"`
	Explanation    *string            `json:"explanation,omitempty"`
}

type AttemptDetailDTO struct {
	ID            uint                `json:"id"`
	StudentID     uint                `json:"student_id"`
	TestID        uint                `json:"test_id"`
	AttemptNumber int                 `json:"attempt_number"`
	Status        model.AttemptStatus `json:"status"`
	StartTime     time.Time           `json:"start_time"`
	EndTime       *time.Time          `json:"end_time,omitempty"`
	TimeSpent     int                 `json:"time_spent"`
	Score         float64             `json:"score"`
	TotalMarks    float64             `json:"total_marks"`
	Percentage    float64             `json:"percentage"`
	IsSubmitted   bool                `json:"is_submitted"`
	SubmittedAt   *time.Time          `json:"submitted_at,omitempty"`
	Test          *TestSummaryDTO     `json:"test,omitempty"`
	Answers       []AttemptAnswerDTO  `json:"answers"`
}

// AttemptSummaryDTO is a row in result and history listings.
type AttemptSummaryDTO struct {
	ID            uint                `json:"id"`
	StudentID     uint                `json:"student_id"`
	TestID        uint                `json:"test_id"`
	AttemptNumber int                 `json:"attempt_number"`
	Status        model.AttemptStatus `json:"status"`
	Score         float64             `json:"score"`
	TotalMarks    float64             `json:"total_marks"`
	Percentage    float64             `json:"percentage"`
	TimeSpent     int                 `json:"time_spent"`
	StartTime     time.Time           `json:"start_time"`
	SubmittedAt   *time.Time          `json:"submitted_at,omitempty"`
	Passed        *bool               `json:"passed,omitempty"`
	Student       *StudentSummaryDTO  `json:"student,omitempty"`
	Test          *TestSummaryDTO     `json:"test,omitempty"`
}
