package router

import (
	"net/http"

	"github.com/500AN/Question-Bank/config"
	adminctrl "github.com/500AN/Question-Bank/internal/controller/admin"
	userctrl "github.com/500AN/Question-Bank/internal/controller/user"
	"github.com/500AN/Question-Bank/internal/middleware"
	"github.com/500AN/Question-Bank/internal/model"
	"github.com/gin-gonic/gin"
)

// Register mounts the attempt API under /api/v1 plus the health probe.
func Register(
	router *gin.Engine,
	cfg *config.Config,
	attemptCtrl *userctrl.AttemptController,
	resultCtrl *adminctrl.ResultController,
) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1", middleware.Authenticate(cfg.JWT.Secret))

	student := middleware.Authorize(model.RoleStudent)
	staff := middleware.Authorize(model.RoleTeacher, model.RoleAdmin)

	attempts := api.Group("/attempts")
	{
		attempts.POST("/start/:id", student, attemptCtrl.StartAttempt)
		attempts.GET("/history", student, attemptCtrl.GetHistory)
		attempts.GET("/results/my", student, attemptCtrl.GetMyResults)
		attempts.GET("/results", staff, resultCtrl.GetAllResults)
		attempts.GET("/test/:id", staff, resultCtrl.GetTestAttempts)

		attempts.PUT("/:id/answer", student, attemptCtrl.SaveAnswer)
		attempts.PUT("/:id/answers", student, attemptCtrl.SaveAnswers)
		attempts.POST("/:id/submit", student, attemptCtrl.SubmitAttempt)
		attempts.GET("/:id/improvement", student, attemptCtrl.GetImprovement)
		attempts.GET("/:id/review", attemptCtrl.GetReview)
		attempts.GET("/:id", attemptCtrl.GetAttempt)
	}
}
