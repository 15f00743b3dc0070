package model

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in-progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned" // reserved, no operation transitions into it
)

// Attempt is one student's pass at one test. Score, Percentage and TimeSpent
// are derived fields and must only be written through service.Recompute.
type Attempt struct {
	ID            uint                        `gorm:"primarykey" json:"id"`
	StudentID     uint                        `json:"student_id" gorm:"not null;index;uniqueIndex:idx_attempt_student_test_number,priority:1"`
	TestID        uint                        `json:"test_id" gorm:"not null;index;uniqueIndex:idx_attempt_student_test_number,priority:2"`
	AttemptNumber int                         `json:"attempt_number" gorm:"not null;uniqueIndex:idx_attempt_student_test_number,priority:3"`
	Answers       datatypes.JSONSlice[Answer] `json:"answers" gorm:"not null"`
	StartTime     time.Time                   `json:"start_time" gorm:"not null"`
	EndTime       *time.Time                  `json:"end_time"`
	TimeSpent     int                         `json:"time_spent"` // minutes
	Score         float64                     `json:"score"`
	TotalMarks    float64                     `json:"total_marks" gorm:"not null"`
	Percentage    float64                     `json:"percentage"`
	Status        AttemptStatus               `json:"status" gorm:"type:varchar(20);not null;index"`
	IsSubmitted   bool                        `json:"is_submitted"`
	SubmittedAt   *time.Time                  `json:"submitted_at"`
	IPAddress     string                      `json:"ip_address" gorm:"size:64"`
	UserAgent     string                      `json:"user_agent" gorm:"type:text"`
	Version       int                         `json:"-" gorm:"not null"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// AnswerIndex returns the position of the answer for questionID, or -1.
func (a *Attempt) AnswerIndex(questionID uint) int {
	for i, ans := range a.Answers {
		if ans.QuestionID == questionID {
			return i
		}
	}
	return -1
}

// QuestionIDs returns the attempt's fixed question set in stored order.
func (a *Attempt) QuestionIDs() []uint {
	ids := make([]uint, len(a.Answers))
	for i, ans := range a.Answers {
		ids[i] = ans.QuestionID
	}
	return ids
}
