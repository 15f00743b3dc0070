package repository

import (
	"context"

	"github.com/500AN/Question-Bank/internal/model"
	"gorm.io/gorm"
)

// TestRepository reads test definitions. Questions are hydrated explicitly
// by FindByIDWithQuestions; every other finder leaves Test.Questions empty.
type TestRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Test, error)
	// FindByIDUnscoped also returns soft-deleted tests, for attempts that
	// were started before the test was removed.
	FindByIDUnscoped(ctx context.Context, id uint) (*model.Test, error)
	FindByIDWithQuestions(ctx context.Context, id uint) (*model.Test, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Test, error)
}

type testRepository struct {
	db *gorm.DB
}

func NewTestRepository(db *gorm.DB) TestRepository {
	return &testRepository{db: db}
}

func (r *testRepository) FindByID(ctx context.Context, id uint) (*model.Test, error) {
	var test model.Test
	if err := r.db.WithContext(ctx).First(&test, id).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *testRepository) FindByIDUnscoped(ctx context.Context, id uint) (*model.Test, error) {
	var test model.Test
	if err := r.db.WithContext(ctx).Unscoped().First(&test, id).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *testRepository) FindByIDWithQuestions(ctx context.Context, id uint) (*model.Test, error) {
	test, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var links []model.TestQuestion
	if err := r.db.WithContext(ctx).Where("test_id = ?", id).Order("position ASC").Find(&links).Error; err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return test, nil
	}

	ids := make([]uint, len(links))
	for i, l := range links {
		ids[i] = l.QuestionID
	}
	var questions []model.Question
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	test.Questions = make([]model.Question, 0, len(links))
	for _, l := range links {
		// soft-deleted questions drop out of the set
		if q, ok := byID[l.QuestionID]; ok {
			test.Questions = append(test.Questions, q)
		}
	}
	return test, nil
}

func (r *testRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Test, error) {
	var tests []model.Test
	if len(ids) == 0 {
		return tests, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tests).Error
	return tests, err
}
