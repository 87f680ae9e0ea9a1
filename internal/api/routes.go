package api

import (
	"github.com/gin-gonic/gin"
	"github.com/hireflow/hireflow/internal/config"
	"github.com/hireflow/hireflow/internal/exam"
	"github.com/hireflow/hireflow/internal/export"
	"github.com/hireflow/hireflow/internal/repository"
)

func SetupRoutes(
	cfg *config.Config,
	exams *exam.Service,
	exports *export.Service,
	invitations *repository.InvitationsRepository,
	tests *repository.TestsRepository,
	results *repository.ResultsRepository,
	images *repository.ImagesRepository,
) *gin.Engine {
	router := gin.Default()

	handler := NewHandler(cfg, exams, exports, invitations, tests, images)

	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))

	router.Use(ErrorHandlerMiddleware())

	// Health endpoint (no auth)
	router.GET("/health", handler.Health)

	// Taker routes: authenticated by invitation token / session id, not JWT.
	api := router.Group("/api/v1")
	{
		api.GET("/invitations/:token", handler.ValidateInvitation)
		api.GET("/tests/:id", handler.GetTest)

		api.POST("/sessions", handler.StartSession)
		api.POST("/sessions/:id/verification/system", handler.PassSystemChecks)
		api.POST("/sessions/:id/verification/identity", handler.PassIdentity)
		api.POST("/sessions/:id/verification/rules", handler.AcceptRules)

		api.PUT("/sessions/:id/answers", handler.SaveAnswer)
		api.PUT("/sessions/:id/code", handler.SaveCode)
		api.GET("/sessions/:id/code", handler.GetEditorCode)
		api.POST("/sessions/:id/code-runs", handler.RecordCodeRun)

		api.POST("/sessions/:id/proctor/events", handler.RecordProctorEvent)
		api.POST("/sessions/:id/proctor/camera", handler.CameraStatus)

		api.POST("/sessions/:id/submit", handler.Submit)
		api.GET("/results/:invitationId", handler.GetResult)

		api.POST("/uploads/verification", handler.UploadVerificationImage)
		api.GET("/uploads/:id", handler.GetUploadedImage)
	}

	// Employer routes (JWT + rate limiting)
	admin := router.Group("/api/v1/admin")
	admin.Use(JWTAuthMiddleware(cfg.JWTSecret))
	admin.Use(RateLimitMiddleware(rateLimiter))
	{
		admin.POST("/export/applicants", handler.ExportApplicants)
		admin.GET("/tests/:id/results", handler.ListTestResults(results))
	}

	return router
}
