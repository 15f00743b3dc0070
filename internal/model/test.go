package model

import (
	"time"

	"gorm.io/gorm"
)

type NegativeMarking struct {
	Enabled       bool    `json:"enabled"`
	MarksDeducted float64 `json:"marks_deducted"`
}

// Test is the test definition configured by a teacher. Questions is not a
// column: repositories hydrate it explicitly from TestQuestion rows.
type Test struct {
	ID                      uint            `gorm:"primarykey" json:"id"`
	Title                   string          `json:"title" gorm:"size:200;not null"`
	Description             string          `json:"description,omitempty" gorm:"type:text"`
	Instructions            string          `json:"instructions,omitempty" gorm:"type:text"`
	DurationMinutes         int             `json:"duration_minutes" gorm:"not null"`
	TotalMarks              float64         `json:"total_marks" gorm:"not null"`
	MarksPerQuestion        float64         `json:"marks_per_question" gorm:"not null"`
	NegativeMarking         NegativeMarking `json:"negative_marking" gorm:"embedded;embeddedPrefix:negative_marking_"`
	CreatedBy               uint            `json:"created_by" gorm:"index"`
	IsActive                bool            `json:"is_active"`
	IsPublic                bool            `json:"is_public"`
	StartDate               *time.Time      `json:"start_date,omitempty"`
	EndDate                 *time.Time      `json:"end_date,omitempty"`
	MaxAttempts             int             `json:"max_attempts" gorm:"default:1"`
	ShuffleQuestions        bool            `json:"shuffle_questions"`
	ShowResultsImmediately  bool            `json:"show_results_immediately"`
	AllowReview             bool            `json:"allow_review"`
	AllowRepeatAttempts     bool            `json:"allow_repeat_attempts"`
	ShowImprovementAnalysis bool            `json:"show_improvement_analysis"`
	PassingMarks            *float64        `json:"passing_marks,omitempty"`
	RestrictToClass         *string         `json:"restrict_to_class,omitempty"`
	RestrictToSemester      *string         `json:"restrict_to_semester,omitempty"`
	RestrictToBatch         *string         `json:"restrict_to_batch,omitempty"`
	RestrictToDepartment    *string         `json:"restrict_to_department,omitempty"`
	Questions               []Question      `json:"questions,omitempty" gorm:"-"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
	DeletedAt               gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TestQuestion records ordered membership of a question in a test.
type TestQuestion struct {
	TestID     uint `gorm:"primaryKey" json:"test_id"`
	QuestionID uint `gorm:"primaryKey" json:"question_id"`
	Position   int  `gorm:"not null" json:"position"`
}
