package repository

import (
	"context"

	"github.com/500AN/Question-Bank/internal/model"
	"gorm.io/gorm"
)

// QuestionRepository reads the question bank. Authoring lives elsewhere.
type QuestionRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Question, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Question, error)
}

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) FindByID(ctx context.Context, id uint) (*model.Question, error) {
	var question model.Question
	if err := r.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

// FindByIDs returns the questions that exist, in no particular order.
// Soft-deleted questions are included so that attempts started before the
// deletion can still be graded and reviewed.
func (r *questionRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Question, error) {
	var questions []model.Question
	if len(ids) == 0 {
		return questions, nil
	}
	err := r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Find(&questions).Error
	return questions, err
}
