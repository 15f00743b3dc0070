package service

import (
	"github.com/500AN/Question-Bank/internal/dto"
	"github.com/500AN/Question-Bank/internal/model"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
)

func toOptionDTOs(options []model.QuestionOption) []dto.OptionDTO {
	out := make([]dto.OptionDTO, len(options))
	for i, o := range options {
		out[i] = dto.OptionDTO{Label: o.Label, Text: o.Text}
	}
	return out
}

// toQuestionDTO strips the answer key.
func toQuestionDTO(q model.Question) dto.QuestionDTO {
	return dto.QuestionDTO{
		ID:              q.ID,
		QuestionText:    q.QuestionText,
		Options:         toOptionDTOs(q.Options),
		DifficultyLevel: q.DifficultyLevel,
	}
}

func detailedAnswers(attempt *model.Attempt, questions map[uint]model.Question) []dto.DetailedAnswerDTO {
	out := make([]dto.DetailedAnswerDTO, 0, len(attempt.Answers))
	for _, ans := range attempt.Answers {
		q := questions[ans.QuestionID]
		out = append(out, dto.DetailedAnswerDTO{
			QuestionID:     ans.QuestionID,
			QuestionText:   q.QuestionText,
			Options:        toOptionDTOs(q.Options),
			SelectedOption: ans.SelectedOption,
			CorrectOption:  q.CorrectOption,
			IsCorrect:      ans.IsCorrect,
			MarksAwarded:   ans.MarksAwarded,
			Explanation:    q.Explanation,
		})
	}
	return out
}

func toTestSummary(test *model.Test) *dto.TestSummaryDTO {
	var out dto.TestSummaryDTO
	if err := copier.Copy(&out, test); err != nil {
		log.Error().Err(err).Uint("testID", test.ID).Msg("Failed to copy Test model to TestSummaryDTO")
	}
	return &out
}

func toStudentSummary(user *model.User) *dto.StudentSummaryDTO {
	var out dto.StudentSummaryDTO
	if err := copier.Copy(&out, user); err != nil {
		log.Error().Err(err).Uint("userID", user.ID).Msg("Failed to copy User model to StudentSummaryDTO")
	}
	return &out
}

// toAttemptDetail builds the attempt view. With reveal false the grading
// fields and the answer key are left out.
func toAttemptDetail(attempt *model.Attempt, test *model.Test, questions map[uint]model.Question, reveal bool) *dto.AttemptDetailDTO {
	var out dto.AttemptDetailDTO
	src := *attempt
	src.Answers = nil // mapped below
	if err := copier.Copy(&out, &src); err != nil {
		log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("Failed to copy Attempt model to AttemptDetailDTO")
	}
	if !reveal {
		out.Score, out.Percentage = 0, 0
	}
	out.Test = toTestSummary(test)
	out.Answers = make([]dto.AttemptAnswerDTO, len(attempt.Answers))
	for i, ans := range attempt.Answers {
		a := dto.AttemptAnswerDTO{
			QuestionID:     ans.QuestionID,
			SelectedOption: ans.SelectedOption,
			TimeSpent:      ans.TimeSpent,
		}
		q, ok := questions[ans.QuestionID]
		if ok {
			qd := toQuestionDTO(q)
			a.Question = &qd
		}
		if reveal {
			isCorrect, marks := ans.IsCorrect, ans.MarksAwarded
			a.IsCorrect = &isCorrect
			a.MarksAwarded = &marks
			if ok {
				correct, explanation := q.CorrectOption, q.Explanation
				a.CorrectOption = &correct
				a.Explanation = &explanation
			}
		}
		out.Answers[i] = a
	}
	return &out
}
