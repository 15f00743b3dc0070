package model

import "fmt"

// OptionLabel is one of the four fixed option labels of a question.
type OptionLabel string

const (
	OptionA OptionLabel = "A"
	OptionB OptionLabel = "B"
	OptionC OptionLabel = "C"
	OptionD OptionLabel = "D"
)

// OptionLabels lists the labels in presentation order.
var OptionLabels = []OptionLabel{OptionA, OptionB, OptionC, OptionD}

// ParseOptionLabel validates a label such as "B".
func ParseOptionLabel(s string) (OptionLabel, error) {
	for _, l := range OptionLabels {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("invalid option label %q", s)
}

// Answer is embedded in an Attempt, one per question assigned at start.
// IsCorrect and MarksAwarded are always derived by the scoring engine.
type Answer struct {
	QuestionID     uint         `json:"question_id"`
	SelectedOption *OptionLabel `json:"selected_option"`
	IsCorrect      bool         `json:"is_correct"`
	MarksAwarded   float64      `json:"marks_awarded"`
	TimeSpent      int          `json:"time_spent"` // seconds
}
