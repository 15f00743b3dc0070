package dto

import (
	"fmt"
	"strconv"

	"github.com/500AN/Question-Bank/internal/apperror"
	"github.com/500AN/Question-Bank/internal/model"
)

// SaveAnswerRequest saves one answer. Omitting selected_option clears the selection.
type SaveAnswerRequest struct {
	QuestionID     uint    `json:"question_id" binding:"required"`
	SelectedOption *string `json:"selected_option" binding:"omitempty,oneof=A B C D"`
	TimeSpent      int     `json:"time_spent" binding:"min=0"` // seconds
}

// SaveAnswersRequest maps question ids to option indices (0 = A ... 3 = D).
// A null index clears the selection.
type SaveAnswersRequest struct {
	Answers map[string]*int `json:"answers" binding:"required"`
}

// SubmitAttemptRequest carries answers merged in just before submission.
type SubmitAttemptRequest struct {
	Answers map[string]*int `json:"answers"`
}

// OptionFromIndex converts a client option index into its label.
func OptionFromIndex(i int) (model.OptionLabel, error) {
	if i < 0 || i >= len(model.OptionLabels) {
		return "", fmt.Errorf("option index %d out of range 0-%d", i, len(model.OptionLabels)-1)
	}
	return model.OptionLabels[i], nil
}

// OptionIndex is the inverse of OptionFromIndex.
func OptionIndex(label model.OptionLabel) int {
	for i, l := range model.OptionLabels {
		if l == label {
			return i
		}
	}
	return -1
}

// ToOptionSelections converts the wire map into selections keyed by question id.
// Keys that are not numeric ids are dropped; any out-of-range index fails the whole map.
func ToOptionSelections(answers map[string]*int) (map[uint]*model.OptionLabel, error) {
	selections := make(map[uint]*model.OptionLabel, len(answers))
	var fields []apperror.FieldError
	for key, idx := range answers {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil || id == 0 {
			continue
		}
		if idx == nil {
			selections[uint(id)] = nil
			continue
		}
		label, err := OptionFromIndex(*idx)
		if err != nil {
			fields = append(fields, apperror.FieldError{Field: "answers." + key, Message: err.Error()})
			continue
		}
		selections[uint(id)] = &label
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("Invalid option index", fields...)
	}
	return selections, nil
}
