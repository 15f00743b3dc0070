package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionOption struct {
	Label OptionLabel `json:"label"`
	Text  string      `json:"text"`
}

// Question is owned by the authoring side and read-only here.
type Question struct {
	ID              uint                                `gorm:"primarykey" json:"id"`
	QuestionText    string                              `json:"question_text" gorm:"type:text;not null"`
	Options         datatypes.JSONSlice[QuestionOption] `json:"options" gorm:"not null"`
	CorrectOption   OptionLabel                         `json:"correct_option" gorm:"type:varchar(1);not null"`
	Explanation     string                              `json:"explanation,omitempty" gorm:"type:text"`
	DifficultyLevel string                              `json:"difficulty_level" gorm:"size:16"` // "easy", "medium", "hard"
	Marks           float64                             `json:"marks"`
	IsActive        bool                                `json:"is_active"`
	CreatedBy       uint                                `json:"created_by"`
	CreatedAt       time.Time                           `json:"created_at"`
	UpdatedAt       time.Time                           `json:"updated_at"`
	DeletedAt       gorm.DeletedAt                      `gorm:"index" json:"-"`
}
