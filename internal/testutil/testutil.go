// Package testutil builds in-memory databases and fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/500AN/Question-Bank/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with the full schema.
// A single connection keeps it alive and serialises transactions.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Question{},
		&model.Test{},
		&model.TestQuestion{},
		&model.Attempt{},
	))
	return db
}

func Ptr[T any](v T) *T { return &v }

func CreateUser(t *testing.T, db *gorm.DB, role string, mods ...func(*model.User)) *model.User {
	t.Helper()
	u := &model.User{
		Name:  "user",
		Email: uuid.NewString() + "@example.com",
		Role:  role,
	}
	for _, m := range mods {
		m(u)
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateTest stores an active public test with one question per answer key,
// two marks each, linked in key order.
func CreateTest(t *testing.T, db *gorm.DB, createdBy uint, keys []model.OptionLabel, mods ...func(*model.Test)) *model.Test {
	t.Helper()
	test := &model.Test{
		Title:            "Algebra basics",
		Instructions:     "Answer every question.",
		DurationMinutes:  30,
		MarksPerQuestion: 2,
		TotalMarks:       float64(2 * len(keys)),
		CreatedBy:        createdBy,
		IsActive:         true,
		IsPublic:         true,
		MaxAttempts:      1,
	}
	for _, m := range mods {
		m(test)
	}
	require.NoError(t, db.Create(test).Error)

	for i, key := range keys {
		q := &model.Question{
			QuestionText: "Question " + string(rune('1'+i)),
			Options: []model.QuestionOption{
				{Label: model.OptionA, Text: "first"},
				{Label: model.OptionB, Text: "second"},
				{Label: model.OptionC, Text: "third"},
				{Label: model.OptionD, Text: "fourth"},
			},
			CorrectOption:   key,
			Explanation:     "because " + string(key),
			DifficultyLevel: "easy",
			Marks:           2,
			IsActive:        true,
			CreatedBy:       createdBy,
		}
		require.NoError(t, db.Create(q).Error)
		require.NoError(t, db.Create(&model.TestQuestion{TestID: test.ID, QuestionID: q.ID, Position: i + 1}).Error)
		test.Questions = append(test.Questions, *q)
	}
	return test
}

// CreateAttempt stores an attempt row directly, bypassing the service.
func CreateAttempt(t *testing.T, db *gorm.DB, a *model.Attempt) *model.Attempt {
	t.Helper()
	if a.Status == "" {
		a.Status = model.AttemptInProgress
	}
	if a.Version == 0 {
		a.Version = 1
	}
	if a.StartTime.IsZero() {
		a.StartTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	}
	if a.Answers == nil {
		a.Answers = []model.Answer{}
	}
	require.NoError(t, db.Create(a).Error)
	return a
}
