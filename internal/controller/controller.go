// Package controller holds the HTTP helpers shared by the user and admin controllers.
package controller

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/500AN/Question-Bank/internal/apperror"
	"github.com/500AN/Question-Bank/internal/dto"
	"github.com/500AN/Question-Bank/internal/middleware"
	"github.com/500AN/Question-Bank/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

func init() {
	// report json names in field errors
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindForbidden, apperror.KindRestrictionViolation:
		return http.StatusForbidden
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindAlreadyCompleted, apperror.KindAttemptInProgress:
		return http.StatusConflict
	case apperror.KindValidationFailed,
		apperror.KindEmptyTest,
		apperror.KindNotStarted,
		apperror.KindEnded,
		apperror.KindMaxAttemptsReached,
		apperror.KindQuestionNotInAttempt:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// RespondError writes err in the response envelope. Untyped errors become a
// generic server error and their text is only logged.
func RespondError(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Internal("Server error", err)
	}
	status := StatusFor(appErr.Kind)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}

	resp := dto.Response{
		Success: false,
		Message: appErr.Message,
		Code:    appErr.Kind,
		Errors:  appErr.Fields,
	}
	if appErr.Kind == apperror.KindAttemptInProgress {
		id := appErr.AttemptID
		resp.AttemptID = &id
	}
	c.JSON(status, resp)
}

// RespondBindError translates a ShouldBindJSON failure into ValidationFailed.
func RespondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperror.FieldError, len(verrs))
		for i, fe := range verrs {
			fields[i] = apperror.FieldError{Field: fe.Field(), Message: validationMessage(fe)}
		}
		RespondError(c, apperror.Validation("Validation failed", fields...))
		return
	}
	RespondError(c, apperror.Validation("Invalid request body", apperror.FieldError{Field: "body", Message: "malformed JSON"}))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	}
	return "is invalid"
}

func OK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, dto.Response{Success: true, Message: message, Data: data})
}

func OKPage(c *gin.Context, data interface{}, page dto.Pagination) {
	c.JSON(http.StatusOK, dto.Response{Success: true, Data: data, Pagination: &page})
}

// ParseID reads a positive numeric path parameter.
func ParseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		RespondError(c, apperror.Validation("Invalid ID format", apperror.FieldError{Field: name, Message: "must be a positive integer"}))
		return 0, false
	}
	return uint(id), true
}

// PageQuery reads ?page and ?limit; bad or missing values fall back to the service defaults.
func PageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return page, limit
}

// Actor returns the authenticated caller or aborts with 401.
func Actor(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		RespondError(c, apperror.New(apperror.KindUnauthorized, "Not authorized"))
	}
	return actor, ok
}
