package admin

import (
	"net/http"

	"github.com/500AN/Question-Bank/internal/controller"
	"github.com/500AN/Question-Bank/internal/service"
	"github.com/gin-gonic/gin"
)

// ResultController serves teacher and admin views over attempts.
type ResultController struct {
	attemptService service.AttemptService
}

func NewResultController(as service.AttemptService) *ResultController {
	return &ResultController{attemptService: as}
}

// GetAllResults godoc
// @Summary (Teacher/Admin) All completed attempts
// @Tags Teacher - Results
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response{data=[]dto.AttemptSummaryDTO}
// @Failure 403 {object} dto.Response
// @Router /attempts/results [get]
func (c *ResultController) GetAllResults(ctx *gin.Context) {
	items, err := c.attemptService.AllResults(ctx.Request.Context())
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	controller.OK(ctx, http.StatusOK, "", items)
}

// GetTestAttempts godoc
// @Summary (Teacher/Admin) Attempts of one test, paginated
// @Description Only the test's creator or an admin.
// @Tags Teacher - Results
// @Produce json
// @Security BearerAuth
// @Param id path int true "Test ID"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {object} dto.Response{data=[]dto.AttemptSummaryDTO}
// @Failure 403 {object} dto.Response
// @Failure 404 {object} dto.Response
// @Router /attempts/test/{id} [get]
func (c *ResultController) GetTestAttempts(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	testID, ok := controller.ParseID(ctx, "id")
	if !ok {
		return
	}
	page, limit := controller.PageQuery(ctx)
	items, pagination, err := c.attemptService.ListTestAttempts(ctx.Request.Context(), actor, testID, page, limit)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	controller.OKPage(ctx, items, pagination)
}
