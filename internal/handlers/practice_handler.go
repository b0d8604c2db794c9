package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusassess/assessment-service/internal/models"
	"github.com/campusassess/assessment-service/internal/repositories"
	"github.com/campusassess/assessment-service/internal/services"
	"github.com/campusassess/assessment-service/internal/utils"
	"github.com/campusassess/assessment-service/internal/validator"
)

type PracticeHandler struct {
	BaseHandler
	questionService       services.QuestionService
	practiceResultService services.PracticeResultService
	reconciliationService services.ReconciliationService
	validator             *validator.Validator
}

func NewPracticeHandler(
	questionService services.QuestionService,
	practiceResultService services.PracticeResultService,
	reconciliationService services.ReconciliationService,
	validator *validator.Validator,
	logger utils.Logger,
) *PracticeHandler {
	return &PracticeHandler{
		BaseHandler:           NewBaseHandler(logger),
		questionService:       questionService,
		practiceResultService: practiceResultService,
		reconciliationService: reconciliationService,
		validator:             validator,
	}
}

// GeneratePracticeSet creates a practice assessment from the approved
// question pool
func (h *PracticeHandler) GeneratePracticeSet(c *gin.Context) {
	var req services.GeneratePracticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Generating practice set", "unit_code", req.UnitCode)

	practiceSet, err := h.questionService.GeneratePracticeSet(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, practiceSet)
}

// GetMyPracticeResults lists the caller's canonical practice results
func (h *PracticeHandler) GetMyPracticeResults(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	filters := h.parsePracticeResultFilters(c)

	results, err := h.practiceResultService.GetByStudent(c.Request.Context(), userID, filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetStudentPracticeResults lists a student's practice results (staff only)
func (h *PracticeHandler) GetStudentPracticeResults(c *gin.Context) {
	studentID := c.Param("student_id")
	if studentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid student_id parameter",
		})
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	filters := h.parsePracticeResultFilters(c)

	results, err := h.practiceResultService.GetByStudent(c.Request.Context(), studentID, filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// ListPracticeResults lists practice results across students (staff only)
func (h *PracticeHandler) ListPracticeResults(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	filters := h.parsePracticeResultFilters(c)
	if studentID := c.Query("student_id"); studentID != "" {
		filters.StudentID = &studentID
	}

	results, err := h.practiceResultService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// RunReconciliationSweep triggers a batch reconciliation pass (admin only)
func (h *PracticeHandler) RunReconciliationSweep(c *gin.Context) {
	h.LogRequest(c, "Running reconciliation sweep")

	result, err := h.reconciliationService.Sweep(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Reconciliation sweep completed",
		Data:    result,
	})
}

func (h *PracticeHandler) parsePracticeResultFilters(c *gin.Context) repositories.PracticeResultFilters {
	filters := repositories.PracticeResultFilters{Limit: 20}

	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit <= 100 {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset >= 0 {
		filters.Offset = offset
	}

	if unitCode := c.Query("unit_code"); unitCode != "" {
		code := strings.ToUpper(unitCode)
		filters.UnitCode = &code
	}
	if status := c.Query("status"); status != "" {
		s := models.PracticeResultStatus(status)
		filters.Status = &s
	}

	return filters
}
