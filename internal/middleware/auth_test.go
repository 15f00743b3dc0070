package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/500AN/Question-Bank/internal/apperror"
	"github.com/500AN/Question-Bank/internal/dto"
	"github.com/500AN/Question-Bank/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, subject, role string, ttl time.Duration) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func newAuthRouter(roles ...string) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{Authenticate(secret)}
	if len(roles) > 0 {
		handlers = append(handlers, Authorize(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		c.JSON(http.StatusOK, actor)
	})
	r.GET("/whoami", handlers...)
	return r
}

func call(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate_ValidToken(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), "42", model.RoleStudent, time.Hour)

	w := call(newAuthRouter(), "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)

	var actor model.Actor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &actor))
	assert.Equal(t, model.Actor{UserID: 42, Role: model.RoleStudent}, actor)
}

func TestAuthenticate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header func(t *testing.T) string
	}{
		{"missing header", func(*testing.T) string { return "" }},
		{"wrong scheme", func(t *testing.T) string {
			return "Basic " + sign(t, jwt.SigningMethodHS256, []byte(secret), "42", model.RoleStudent, time.Hour)
		}},
		{"empty bearer", func(*testing.T) string { return "Bearer   " }},
		{"garbage", func(*testing.T) string { return "Bearer not-a-jwt" }},
		{"wrong secret", func(t *testing.T) string {
			return "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), "42", model.RoleStudent, time.Hour)
		}},
		{"other hmac algorithm", func(t *testing.T) string {
			return "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(secret), "42", model.RoleStudent, time.Hour)
		}},
		{"expired", func(t *testing.T) string {
			return "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), "42", model.RoleStudent, -time.Minute)
		}},
		{"non-numeric subject", func(t *testing.T) string {
			return "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), "alice", model.RoleStudent, time.Hour)
		}},
		{"unknown role", func(t *testing.T) string {
			return "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), "42", "janitor", time.Hour)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(newAuthRouter(), tt.header(t))
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, apperror.KindUnauthorized, resp.Code)
		})
	}
}

func TestAuthorize(t *testing.T) {
	r := newAuthRouter(model.RoleTeacher, model.RoleAdmin)

	admin := sign(t, jwt.SigningMethodHS256, []byte(secret), "1", model.RoleAdmin, time.Hour)
	assert.Equal(t, http.StatusOK, call(r, "Bearer "+admin).Code)

	student := sign(t, jwt.SigningMethodHS256, []byte(secret), "2", model.RoleStudent, time.Hour)
	w := call(r, "Bearer "+student)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apperror.KindForbidden, resp.Code)
	assert.Equal(t, "User role student is not authorized to access this route", resp.Message)
}

func TestAuthorize_WithoutAuthenticate(t *testing.T) {
	r := gin.New()
	r.GET("/whoami", Authorize(model.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, call(r, "").Code)
}
