package user

import (
	"errors"
	"io"
	"net/http"

	"github.com/500AN/Question-Bank/internal/apperror"
	"github.com/500AN/Question-Bank/internal/controller"
	"github.com/500AN/Question-Bank/internal/dto"
	"github.com/500AN/Question-Bank/internal/model"
	"github.com/500AN/Question-Bank/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type AttemptController struct {
	attemptService     service.AttemptService
	improvementService service.ImprovementService
}

func NewAttemptController(as service.AttemptService, is service.ImprovementService) *AttemptController {
	return &AttemptController{
		attemptService:     as,
		improvementService: is,
	}
}

// StartAttempt godoc
// @Summary (Student) Start a test attempt
// @Description Checks availability, profile restrictions and attempt limits, then creates the next attempt. Correct options are never included.
// @Tags Student - Attempts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Test ID"
// @Success 201 {object} dto.Response{data=dto.StartAttemptResponse}
// @Failure 400 {object} dto.Response "Empty test, not started, ended or maximum attempts reached"
// @Failure 403 {object} dto.Response "Profile restriction"
// @Failure 404 {object} dto.Response "Test or student not found"
// @Failure 409 {object} dto.Response "An attempt is already in progress (attempt_id is set)"
// @Router /attempts/start/{id} [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	testID, ok := controller.ParseID(ctx, "id")
	if !ok {
		return
	}

	meta := service.ClientMeta{IPAddress: ctx.ClientIP(), UserAgent: ctx.Request.UserAgent()}
	resp, err := c.attemptService.StartAttempt(ctx.Request.Context(), actor.UserID, testID, meta)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	controller.OK(ctx, http.StatusCreated, "Test started successfully", resp)
}

// SaveAnswer godoc
// @Summary (Student) Save one answer
// @Description Overwrites the answer for one question of an in-progress attempt. Omitting selected_option clears it.
// @Tags Student - Attempts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Attempt ID"
// @Param answer body dto.SaveAnswerRequest true "Answer"
// @Success 200 {object} dto.Response
// @Failure 400 {object} dto.Response "Validation failed or question not in attempt"
// @Failure 404 {object} dto.Response "Attempt not found"
// @Failure 409 {object} dto.Response "Attempt already completed"
// @Router /attempts/{id}/answer [put]
func (c *AttemptController) SaveAnswer(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParseID(ctx, "id")
	if !ok {
		return
	}
	var req dto.SaveAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.RespondBindError(ctx, err)
		return
	}

	var selected *model.OptionLabel
	if req.SelectedOption != nil {
		label, err := model.ParseOptionLabel(*req.SelectedOption)
		if err != nil {
			controller.RespondError(ctx, apperror.Validation("Validation failed",
				apperror.FieldError{Field: "selected_option", Message: err.Error()}))
			return
		}
		selected = &label
	}

	err := c.attemptService.SaveAnswer(ctx.Request.Context(), actor.UserID, attemptID, req.QuestionID, selected, req.TimeSpent)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	controller.OK(ctx, http.StatusOK, "Answer submitted successfully", nil)
}

// SaveAnswers godoc
// @Summary (Student) Save several answers
// @Description Bulk save keyed by question id with option indices 0-3. Unknown question ids are ignored; any out-of-range index rejects the whole request.
// @Tags Student - Attempts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Attempt ID"
// @Param answers body dto.SaveAnswersRequest true "Answers"
// @Success 200 {object} dto.Response{data=dto.SaveAnswersResponse}
// @Failure 400 {object} dto.Response
// @Failure 404 {object} dto.Response
// @Failure 409 {object} dto.Response
// @Router /attempts/{id}/answers [put]
func (c *AttemptController) SaveAnswers(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParseID(ctx, "id")
	if !ok {
		return
	}
	var req dto.SaveAnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.RespondBindError(ctx, err)
		return
	}
	selections, err := dto.ToOptionSelections(req.Answers)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}

	resp, err := c.attemptService.SaveAnswers(ctx.Request.Context(), actor.UserID, attemptID, selections)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	controller.OK(ctx, http.StatusOK, "Answers saved successfully", resp)
}

// SubmitAttempt godoc
// @Summary (Student) Submit an attempt
// @Description Optionally merges a final bulk of answers, then completes and scores the attempt. Detailed answers are returned only when the test shows results immediately.
// @Tags Student - Attempts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Attempt ID"
// @Param answers body dto.SubmitAttemptRequest false "Final answers"
// @Success 200 {object} dto.Response{data=dto.SubmitAttemptResponse}
// @Failure 400 {object} dto.Response
// @Failure 404 {object} dto.Response
// @Failure 409 {object} dto.Response "Attempt already completed"
// @Router /attempts/{id}/submit [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParseID(ctx, "id")
	if !ok {
		return
	}
	var req dto.SubmitAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		controller.RespondBindError(ctx, err)
		return
	}
	selections, err := dto.ToOptionSelections(req.Answers)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}

	resp, err := c.attemptService.Submit(ctx.Request.Context(), actor.UserID, attemptID, selections)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	if resp.Late {
		log.Info().Uint("attemptID", attemptID).Msg("Late submission accepted")
	}
	controller.OK(ctx, http.StatusOK, "Test submitted successfully", resp)
}

// GetAttempt godoc
// @Summary Get an attempt
// @Description Owner student, the test's teacher or an admin. Students see grading only after completion when the test publishes results.
// @Tags Attempts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Attempt ID"
// @Success 200 {object} dto.Response{data=dto.AttemptDetailDTO}
// @Failure 403 {object} dto.Response
// @Failure 404 {object} dto.Response
// @Router /attempts/{id} [get]
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParseID(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.attemptService.GetAttempt(ctx.Request.Context(), actor, attemptID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	controller.OK(ctx, http.StatusOK, "", resp)
}

// GetReview godoc
// @Summary Review an attempt with correct answers
// @Tags Attempts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Attempt ID"
// @Success 200 {object} dto.Response{data=dto.AttemptDetailDTO}
// @Failure 403 {object} dto.Response "Review not allowed"
// @Failure 404 {object} dto.Response
// @Router /attempts/{id}/review [get]
func (c *AttemptController) GetReview(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParseID(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.attemptService.GetReview(ctx.Request.Context(), actor, attemptID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	controller.OK(ctx, http.StatusOK, "", resp)
}

// GetHistory godoc
// @Summary (Student) Completed attempts, paginated
// @Tags Student - Attempts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {object} dto.Response{data=[]dto.AttemptSummaryDTO}
// @Router /attempts/history [get]
func (c *AttemptController) GetHistory(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	page, limit := controller.PageQuery(ctx)
	items, pagination, err := c.attemptService.History(ctx.Request.Context(), actor.UserID, page, limit)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	controller.OKPage(ctx, items, pagination)
}

// GetMyResults godoc
// @Summary (Student) All completed attempts, newest first
// @Tags Student - Attempts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response{data=[]dto.AttemptSummaryDTO}
// @Router /attempts/results/my [get]
func (c *AttemptController) GetMyResults(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	items, err := c.attemptService.MyResults(ctx.Request.Context(), actor.UserID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	controller.OK(ctx, http.StatusOK, "", items)
}

// GetImprovement godoc
// @Summary (Student) Improvement analysis across repeat attempts
// @Tags Student - Attempts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Test ID"
// @Success 200 {object} dto.Response{data=dto.ImprovementReport}
// @Failure 403 {object} dto.Response "Analysis disabled for this test"
// @Failure 404 {object} dto.Response "Test not found or no completed attempts"
// @Router /attempts/{id}/improvement [get]
func (c *AttemptController) GetImprovement(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	testID, ok := controller.ParseID(ctx, "id")
	if !ok {
		return
	}
	report, err := c.improvementService.Analyze(ctx.Request.Context(), actor.UserID, testID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	controller.OK(ctx, http.StatusOK, "", report)
}
