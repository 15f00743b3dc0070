package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/500AN/Question-Bank/config"
	"github.com/500AN/Question-Bank/internal/apperror"
	adminctrl "github.com/500AN/Question-Bank/internal/controller/admin"
	userctrl "github.com/500AN/Question-Bank/internal/controller/user"
	"github.com/500AN/Question-Bank/internal/middleware"
	"github.com/500AN/Question-Bank/internal/model"
	"github.com/500AN/Question-Bank/internal/repository"
	"github.com/500AN/Question-Bank/internal/service"
	"github.com/500AN/Question-Bank/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const jwtSecret = "router-test-secret"

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Code       apperror.Kind   `json:"code"`
	Data       json.RawMessage `json:"data"`
	Pagination *struct {
		Total int64 `json:"total"`
	} `json:"pagination"`
	AttemptID *uint `json:"attempt_id"`
}

type server struct {
	t      *testing.T
	db     *gorm.DB
	engine *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	cfg := &config.Config{
		JWT:     config.JWT{Secret: jwtSecret},
		Attempt: config.Attempt{SubmitGracePeriod: 2 * time.Minute},
	}

	attemptRepo := repository.NewAttemptRepository(db)
	testRepo := repository.NewTestRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	attempts := service.NewAttemptService(db, attemptRepo, testRepo, questionRepo, repository.NewUserRepository(db), cfg)
	improvement := service.NewImprovementService(attemptRepo, testRepo, questionRepo, service.NewCoachingService(nil, cfg))

	engine := gin.New()
	Register(engine, cfg, userctrl.NewAttemptController(attempts, improvement), adminctrl.NewResultController(attempts))
	return &server{t: t, db: db, engine: engine}
}

func (s *server) token(user *model.User) string {
	claims := middleware.Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(s.t, err)
	return signed
}

func (s *server) do(user *model.User, method, path string, body interface{}) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(user))
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealthz(t *testing.T) {
	s := newServer(t)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAttemptLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	teacher := testutil.CreateUser(t, s.db, model.RoleTeacher)
	student := testutil.CreateUser(t, s.db, model.RoleStudent)
	test := testutil.CreateTest(t, s.db, teacher.ID, []model.OptionLabel{model.OptionA, model.OptionB, model.OptionC}, func(tt *model.Test) {
		tt.ShowResultsImmediately = true
		tt.AllowReview = true
	})
	q := test.Questions

	status, env := s.do(student, http.MethodPost, fmt.Sprintf("/api/v1/attempts/start/%d", test.ID), nil)
	require.Equal(t, http.StatusCreated, status, env.Message)
	started := decode[struct {
		AttemptID uint `json:"attempt_id"`
		Questions []struct {
			ID            uint    `json:"id"`
			CorrectOption *string `json:"correct_option"`
		} `json:"questions"`
	}](t, env.Data)
	require.Len(t, started.Questions, 3)
	assert.Nil(t, started.Questions[0].CorrectOption)
	base := fmt.Sprintf("/api/v1/attempts/%d", started.AttemptID)

	status, env = s.do(student, http.MethodPost, fmt.Sprintf("/api/v1/attempts/start/%d", test.ID), nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperror.KindAttemptInProgress, env.Code)
	require.NotNil(t, env.AttemptID)
	assert.Equal(t, started.AttemptID, *env.AttemptID)

	status, env = s.do(student, http.MethodPut, base+"/answer", map[string]interface{}{
		"question_id": q[0].ID, "selected_option": "A", "time_spent": 20,
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = s.do(student, http.MethodPut, base+"/answer", map[string]interface{}{
		"question_id": q[0].ID, "selected_option": "Z",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperror.KindValidationFailed, env.Code)

	status, env = s.do(student, http.MethodPut, base+"/answers", map[string]interface{}{
		"answers": map[string]interface{}{strconv.Itoa(int(q[1].ID)): 1, "999": 2},
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, 1, decode[struct {
		SavedCount int `json:"saved_count"`
	}](t, env.Data).SavedCount)

	status, env = s.do(student, http.MethodPut, base+"/answers", map[string]interface{}{
		"answers": map[string]interface{}{strconv.Itoa(int(q[2].ID)): 7},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperror.KindValidationFailed, env.Code)

	status, env = s.do(student, http.MethodPost, base+"/submit", map[string]interface{}{
		"answers": map[string]interface{}{strconv.Itoa(int(q[2].ID)): 0},
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	submitted := decode[struct {
		Score           float64           `json:"score"`
		Percentage      float64           `json:"percentage"`
		DetailedAnswers []json.RawMessage `json:"detailed_answers"`
	}](t, env.Data)
	assert.Equal(t, 4.0, submitted.Score)
	assert.InDelta(t, 66.67, submitted.Percentage, 0.01)
	assert.Len(t, submitted.DetailedAnswers, 3)

	status, env = s.do(student, http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperror.KindAlreadyCompleted, env.Code)

	status, _ = s.do(student, http.MethodGet, base+"/review", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = s.do(student, http.MethodGet, "/api/v1/attempts/history", nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Pagination)
	assert.EqualValues(t, 1, env.Pagination.Total)

	status, env = s.do(teacher, http.MethodGet, fmt.Sprintf("/api/v1/attempts/test/%d", test.ID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]json.RawMessage](t, env.Data), 1)
}

func TestRoutesEnforceRoles(t *testing.T) {
	s := newServer(t)
	teacher := testutil.CreateUser(t, s.db, model.RoleTeacher)
	student := testutil.CreateUser(t, s.db, model.RoleStudent)
	test := testutil.CreateTest(t, s.db, teacher.ID, []model.OptionLabel{model.OptionA})

	status, env := s.do(nil, http.MethodGet, "/api/v1/attempts/results/my", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperror.KindUnauthorized, env.Code)

	status, _ = s.do(teacher, http.MethodPost, fmt.Sprintf("/api/v1/attempts/start/%d", test.ID), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(student, http.MethodGet, "/api/v1/attempts/results", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(teacher, http.MethodGet, "/api/v1/attempts/results", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = s.do(student, http.MethodGet, "/api/v1/attempts/abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperror.KindValidationFailed, env.Code)
}

func TestImprovementOverHTTP(t *testing.T) {
	s := newServer(t)
	teacher := testutil.CreateUser(t, s.db, model.RoleTeacher)
	student := testutil.CreateUser(t, s.db, model.RoleStudent)
	test := testutil.CreateTest(t, s.db, teacher.ID, []model.OptionLabel{model.OptionA}, func(tt *model.Test) {
		tt.AllowRepeatAttempts = true
		tt.ShowImprovementAnalysis = true
	})
	path := fmt.Sprintf("/api/v1/attempts/%d/improvement", test.ID)

	status, env := s.do(student, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apperror.KindNotFound, env.Code)

	for _, pick := range []int{1, 0} {
		_, env = s.do(student, http.MethodPost, fmt.Sprintf("/api/v1/attempts/start/%d", test.ID), nil)
		id := decode[struct {
			AttemptID uint `json:"attempt_id"`
		}](t, env.Data).AttemptID
		status, env = s.do(student, http.MethodPost, fmt.Sprintf("/api/v1/attempts/%d/submit", id), map[string]interface{}{
			"answers": map[string]interface{}{strconv.Itoa(int(test.Questions[0].ID)): pick},
		})
		require.Equal(t, http.StatusOK, status, env.Message)
	}

	status, env = s.do(student, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	report := decode[struct {
		Trends struct {
			Improving bool `json:"improving"`
		} `json:"trends"`
		CoachingNote string `json:"coaching_note"`
	}](t, env.Data)
	assert.True(t, report.Trends.Improving)
	assert.Empty(t, report.CoachingNote)
}
