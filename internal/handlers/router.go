package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sabaq-center/sabaq-service/internal/config"
	"github.com/sabaq-center/sabaq-service/internal/livestore"
	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
	"github.com/sabaq-center/sabaq-service/internal/services"
	"github.com/sabaq-center/sabaq-service/internal/utils"
	"github.com/sabaq-center/sabaq-service/internal/validator"
)

type HandlerManager struct {
	sabaqHandler      *SabaqHandler
	sessionHandler    *SessionHandler
	attendanceHandler *AttendanceHandler
	enrollmentHandler *EnrollmentHandler
	questionHandler   *QuestionHandler
	emailHandler      *EmailHandler
	authMiddleware    *CasdoorAuthMiddleware
	serviceManager    services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	cfg *config.Config,
	userRepo repositories.UserRepository,
	progress *livestore.ProgressPublisher,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(cfg.Casdoor, userRepo)
	qrTokens := NewQRTokenIssuer(cfg.QRTokenSecret, 5*time.Minute)

	return &HandlerManager{
		sabaqHandler:      NewSabaqHandler(serviceManager.Sabaq(), logger),
		sessionHandler:    NewSessionHandler(serviceManager.Session(), validator, qrTokens, progress, logger),
		attendanceHandler: NewAttendanceHandler(serviceManager.Attendance(), validator, qrTokens, logger),
		enrollmentHandler: NewEnrollmentHandler(serviceManager.Enrollment(), logger),
		questionHandler:   NewQuestionHandler(serviceManager.Question(), logger),
		emailHandler:      NewEmailHandler(serviceManager.Notification(), logger),
		authMiddleware:    authMiddleware,
		serviceManager:    serviceManager,
	}
}

// SetupRoutes sets up all API routes. Route-level role checks are the coarse
// gate; the services re-check against the capability table and the
// sabaq-scoped grants.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Sabaq routes
		sabaqs := v1.Group("/sabaqs")
		{
			sabaqs.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.sabaqHandler.CreateSabaq)
			sabaqs.GET("", hm.sabaqHandler.ListSabaqs)
			sabaqs.GET("/:id", hm.sabaqHandler.GetSabaq)
			sabaqs.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleSuperAdmin), hm.sabaqHandler.DeleteSabaq)

			// Sabaq-scoped admin grants
			sabaqs.POST("/:id/admins/:user_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleJanab), hm.sabaqHandler.AddAdmin)
			sabaqs.DELETE("/:id/admins/:user_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleJanab), hm.sabaqHandler.RemoveAdmin)

			// Enrollment review queue of a sabaq
			sabaqs.GET("/:id/enrollments", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleManager, models.RoleAttendanceIncharge, models.RoleJanab), hm.enrollmentHandler.ListEnrollments)
		}

		// Session routes
		sessions := v1.Group("/sessions")
		{
			manage := hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleManager, models.RoleJanab)

			sessions.POST("", manage, hm.sessionHandler.CreateSession)
			sessions.GET("", hm.sessionHandler.ListSessions)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleJanab), hm.sessionHandler.DeleteSession)

			// Lifecycle transitions
			sessions.POST("/:id/start", manage, hm.sessionHandler.StartSession)
			sessions.POST("/:id/end", manage, hm.sessionHandler.EndSession)
			sessions.POST("/:id/resume", manage, hm.sessionHandler.ResumeSession)
			sessions.POST("/:id/end-with-report", manage, hm.sessionHandler.EndSessionWithReport)

			// QR issuance for the projector screen
			sessions.GET("/:id/qr-token", manage, hm.sessionHandler.IssueQRToken)

			// Attendance channels
			marking := hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleManager, models.RoleAttendanceIncharge, models.RoleJanab)
			sessions.POST("/:id/attendance/manual", marking, hm.attendanceHandler.MarkManual)
			sessions.POST("/:id/attendance/location", hm.attendanceHandler.MarkByLocation)
			sessions.POST("/:id/attendance/bulk", marking, hm.attendanceHandler.BulkMark)
			sessions.GET("/:id/attendance", marking, hm.attendanceHandler.ListAttendance)
			sessions.DELETE("/:id/attendance/:user_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.attendanceHandler.DeleteAttendance)

			// Session Q&A
			sessions.GET("/:id/questions", hm.questionHandler.ListQuestions)
		}

		// QR marking is session-less at the route level; the token names the session.
		v1.POST("/attendance/qr", hm.attendanceHandler.MarkByQR)

		// Report job progress polling
		v1.GET("/report-jobs/:job_id/progress",
			hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleManager, models.RoleJanab),
			hm.sessionHandler.GetReportProgress)

		// Enrollment routes
		enrollments := v1.Group("/enrollments")
		{
			enrollments.POST("", hm.enrollmentHandler.RequestEnrollment)
			enrollments.POST("/:id/review", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleManager, models.RoleJanab), hm.enrollmentHandler.ReviewEnrollment)
		}

		// Question routes
		questions := v1.Group("/questions")
		{
			questions.POST("", hm.questionHandler.SubmitQuestion)
			questions.POST("/:id/vote", hm.questionHandler.UpvoteQuestion)
			questions.DELETE("/:id/vote", hm.questionHandler.RemoveVote)
			questions.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleJanab), hm.questionHandler.DeleteQuestion)
		}

		// Email queue administration
		admin := v1.Group("/admin")
		admin.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
		{
			admin.POST("/email-queue/process", hm.emailHandler.ProcessQueue)
			admin.POST("/email-queue/retry", hm.emailHandler.RetryFailed)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "sabaq-service",
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "sabaq-service",
		})
	})
}
