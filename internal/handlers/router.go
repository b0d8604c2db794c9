package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusassess/assessment-service/internal/config"
	"github.com/campusassess/assessment-service/internal/models"
	"github.com/campusassess/assessment-service/internal/repositories"
	"github.com/campusassess/assessment-service/internal/services"
	"github.com/campusassess/assessment-service/internal/utils"
	"github.com/campusassess/assessment-service/internal/validator"
)

type HandlerManager struct {
	serviceManager    services.ServiceManager
	assessmentHandler *AssessmentHandler
	questionHandler   *QuestionHandler
	attemptHandler    *AttemptHandler
	practiceHandler   *PracticeHandler
	authMiddleware    *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		serviceManager:    serviceManager,
		assessmentHandler: NewAssessmentHandler(serviceManager.Assessment(), validator, logger),
		questionHandler:   NewQuestionHandler(serviceManager.Question(), serviceManager.Import(), validator, logger),
		attemptHandler:    NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		practiceHandler: NewPracticeHandler(
			serviceManager.Question(),
			serviceManager.PracticeResult(),
			serviceManager.Reconciliation(),
			validator,
			logger,
		),
		authMiddleware: authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware()) // Apply authentication to all API routes
	{
		// Assessment routes
		assessments := v1.Group("/assessments")
		{
			// Create/modify assessments - Instructors and Admins only
			assessments.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.assessmentHandler.CreateAssessment)
			assessments.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.assessmentHandler.UpdateAssessment)
			assessments.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.assessmentHandler.DeleteAssessment)

			// View assessments - All authenticated users
			assessments.GET("", hm.assessmentHandler.ListAssessments)
			assessments.GET("/:id", hm.assessmentHandler.GetAssessment)
			assessments.GET("/:id/questions", hm.assessmentHandler.GetAssessmentWithQuestions)
			assessments.GET("/unit/:unit_code", hm.assessmentHandler.GetAssessmentsByUnit)

			// Stats - Instructors and Admins only
			assessments.GET("/:id/stats", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.assessmentHandler.GetAssessmentStats)
			assessments.GET("/unit/:unit_code/stats", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.assessmentHandler.GetUnitStats)

			// Composition - Instructors and Admins only
			assessments.POST("/:id/questions", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.assessmentHandler.AddQuestionToAssessment)
			assessments.DELETE("/:id/questions/:question_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.assessmentHandler.RemoveQuestionFromAssessment)

			// Attempts on an assessment
			assessments.POST("/:id/attempts", hm.attemptHandler.StartAttempt)
			assessments.GET("/:id/attempts/active", hm.attemptHandler.GetActiveAttempt)
			assessments.GET("/:id/attempts", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.attemptHandler.GetAssessmentAttempts)
		}

		// Question routes
		questions := v1.Group("/questions")
		{
			questions.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.questionHandler.CreateQuestion)
			questions.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.questionHandler.DeleteQuestion)
			questions.POST("/:id/approve", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.questionHandler.ApproveQuestion)
			questions.POST("/import", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.questionHandler.ImportQuestions)

			questions.GET("", hm.questionHandler.ListQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/submit", hm.attemptHandler.SubmitAttempt)
			attempts.GET("/me", hm.attemptHandler.GetMyAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/responses", hm.attemptHandler.GetAttemptWithResponses)

			// Student-specific routes - Instructors and Admins only
			attempts.GET("/student/:student_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.attemptHandler.GetStudentAttempts)
		}

		// Practice routes
		practice := v1.Group("/practice")
		{
			practice.POST("/generate", hm.authMiddleware.RequireRoleMiddleware(models.RoleStudent), hm.practiceHandler.GeneratePracticeSet)
			practice.GET("/results/me", hm.practiceHandler.GetMyPracticeResults)

			// Reporting - Instructors and Admins only
			practice.GET("/results", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.practiceHandler.ListPracticeResults)
			practice.GET("/results/student/:student_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.practiceHandler.GetStudentPracticeResults)

			// Manual reconciliation sweep - Admins only
			practice.POST("/reconcile", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.practiceHandler.RunReconciliationSweep)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "assessment-service",
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "assessment-service",
		})
	})
}
