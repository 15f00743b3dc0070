package service

import (
	"math"

	"github.com/500AN/Question-Bank/internal/model"
)

// MarkingRules is the per-test marking scheme applied to every answer.
type MarkingRules struct {
	MarksPerQuestion float64
	NegativeMarking  bool
	Deduction        float64
}

func MarkingRulesFor(test *model.Test) MarkingRules {
	return MarkingRules{
		MarksPerQuestion: test.MarksPerQuestion,
		NegativeMarking:  test.NegativeMarking.Enabled,
		Deduction:        test.NegativeMarking.MarksDeducted,
	}
}

// Score grades one selection. An empty selection is never penalised.
func Score(selected *model.OptionLabel, correct model.OptionLabel, rules MarkingRules) (bool, float64) {
	if selected == nil {
		return false, 0
	}
	if *selected == correct {
		return true, rules.MarksPerQuestion
	}
	if rules.NegativeMarking {
		return false, -rules.Deduction
	}
	return false, 0
}

// Recompute derives score, percentage and time spent from the answers and
// timestamps. It must run after every change to an attempt.
func Recompute(attempt *model.Attempt) {
	var score float64
	for _, ans := range attempt.Answers {
		score += ans.MarksAwarded
	}
	attempt.Score = score

	attempt.Percentage = 0
	if attempt.TotalMarks > 0 {
		attempt.Percentage = score / attempt.TotalMarks * 100
	}

	if attempt.EndTime != nil && !attempt.StartTime.IsZero() {
		attempt.TimeSpent = int(math.Round(attempt.EndTime.Sub(attempt.StartTime).Minutes()))
	}
}

// gradeAnswer overwrites the selection of an answer and rescores it.
func gradeAnswer(ans *model.Answer, selected *model.OptionLabel, question model.Question, rules MarkingRules) {
	ans.SelectedOption = selected
	ans.IsCorrect, ans.MarksAwarded = Score(selected, question.CorrectOption, rules)
}
