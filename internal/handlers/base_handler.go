package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusassess/assessment-service/internal/repositories"
	"github.com/campusassess/assessment-service/internal/services"
	"github.com/campusassess/assessment-service/internal/utils"
	"github.com/campusassess/assessment-service/internal/validator"
)

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the pieces every handler needs.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.FromContext(c, h.logger).Info(msg, args...)
}

// parseIDParam reads a positive integer path parameter. On failure it writes
// the error response and returns 0; callers must bail out on 0.
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	value := c.Param(param)
	id, err := strconv.ParseUint(value, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param + " parameter",
		})
		return 0
	}
	return uint(id)
}

// currentUserID reads the authenticated user from the request context. On
// failure it writes the 401 response and returns false.
func (h *BaseHandler) currentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}

	id, ok := userID.(string)
	if !ok || id == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}

	return id, true
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule": businessRuleError.Rule,
			},
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrAssessmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Assessment not found"})
	case errors.Is(err, services.ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Question not found"})
	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Attempt not found"})
	case errors.Is(err, services.ErrPracticeResultNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Practice result not found"})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "User not found"})
	case errors.Is(err, services.ErrAssessmentNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Assessment is not active"})
	case errors.Is(err, services.ErrAttemptAlreadyActive):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "An attempt is already in progress"})
	case errors.Is(err, services.ErrAttemptNotCompleted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Attempt is not completed"})
	case errors.Is(err, services.ErrQuestionAlreadyComposed):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Question is already part of this assessment"})
	case errors.Is(err, services.ErrQuestionNotApproved):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Question is not approved"})
	case errors.Is(err, services.ErrUnitMismatch):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Question and assessment belong to different units"})
	case errors.Is(err, services.ErrNoQuestionsAvailable):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: "No approved questions match the requested criteria"})
	case errors.Is(err, services.ErrNotPracticeAssessment):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Assessment is not a practice assessment"})
	case repositories.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Resource not found"})
	default:
		utils.FromContext(c, h.logger).Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
