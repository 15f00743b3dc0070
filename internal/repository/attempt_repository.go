package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/500AN/Question-Bank/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateAttempt is returned by Create when (student, test, attempt number) already exists.
	ErrDuplicateAttempt = errors.New("attempt number already taken for this student and test")
	// ErrStaleAttempt is returned by UpdateIfCurrent when the stored version or status moved on.
	ErrStaleAttempt = errors.New("attempt was modified concurrently")
)

type AttemptRepository interface {
	WithTx(tx *gorm.DB) AttemptRepository
	Create(ctx context.Context, attempt *model.Attempt) error
	FindByID(ctx context.Context, id uint) (*model.Attempt, error)
	FindAllByStudentAndTest(ctx context.Context, studentID, testID uint) ([]model.Attempt, error)
	FindCompletedByStudentAndTest(ctx context.Context, studentID, testID uint) ([]model.Attempt, error)
	FindInProgress(ctx context.Context, studentID, testID uint) (*model.Attempt, error)
	FindCompleted(ctx context.Context, studentID *uint) ([]model.Attempt, error)
	FindCompletedPage(ctx context.Context, studentID uint, page, limit int) ([]model.Attempt, int64, error)
	FindByTestPage(ctx context.Context, testID uint, page, limit int) ([]model.Attempt, int64, error)
	UpdateIfCurrent(ctx context.Context, attempt *model.Attempt) error
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) WithTx(tx *gorm.DB) AttemptRepository {
	return &attemptRepository{db: tx}
}

func (r *attemptRepository) Create(ctx context.Context, attempt *model.Attempt) error {
	if attempt.Version == 0 {
		attempt.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAttempt
		}
		return err
	}
	return nil
}

func (r *attemptRepository) FindByID(ctx context.Context, id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	if err := r.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindAllByStudentAndTest returns every attempt of the pair, oldest first.
func (r *attemptRepository) FindAllByStudentAndTest(ctx context.Context, studentID, testID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND test_id = ?", studentID, testID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) FindCompletedByStudentAndTest(ctx context.Context, studentID, testID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND test_id = ? AND status = ?", studentID, testID, model.AttemptCompleted).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) FindInProgress(ctx context.Context, studentID, testID uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND test_id = ? AND status = ?", studentID, testID, model.AttemptInProgress).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindCompleted lists completed attempts, most recent submission first.
// A nil studentID lists every student's attempts.
func (r *attemptRepository) FindCompleted(ctx context.Context, studentID *uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	query := r.db.WithContext(ctx).Where("status = ?", model.AttemptCompleted)
	if studentID != nil {
		query = query.Where("student_id = ?", *studentID)
	}
	err := query.Order("submitted_at DESC").Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) FindCompletedPage(ctx context.Context, studentID uint, page, limit int) ([]model.Attempt, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Attempt{}).
		Where("student_id = ? AND status = ?", studentID, model.AttemptCompleted)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var attempts []model.Attempt
	err := query.Order("submitted_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&attempts).Error
	return attempts, total, err
}

func (r *attemptRepository) FindByTestPage(ctx context.Context, testID uint, page, limit int) ([]model.Attempt, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Attempt{}).Where("test_id = ?", testID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var attempts []model.Attempt
	err := query.Order("created_at DESC").Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&attempts).Error
	return attempts, total, err
}

// UpdateIfCurrent writes the mutable fields only if the stored row still has
// attempt.Version and is in progress, then bumps attempt.Version.
func (r *attemptRepository) UpdateIfCurrent(ctx context.Context, attempt *model.Attempt) error {
	res := r.db.WithContext(ctx).Model(&model.Attempt{}).
		Where("id = ? AND version = ? AND status = ?", attempt.ID, attempt.Version, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"answers":      attempt.Answers,
			"score":        attempt.Score,
			"percentage":   attempt.Percentage,
			"time_spent":   attempt.TimeSpent,
			"status":       attempt.Status,
			"is_submitted": attempt.IsSubmitted,
			"submitted_at": attempt.SubmittedAt,
			"end_time":     attempt.EndTime,
			"version":      attempt.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleAttempt
	}
	attempt.Version++
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
