package services

import (
	"context"
	"io"

	"github.com/campusassess/assessment-service/internal/models"
	"github.com/campusassess/assessment-service/internal/repositories"
	"github.com/campusassess/assessment-service/internal/validator"
	"gorm.io/gorm"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateAssessmentRequest = validator.AssessmentCreateRequest
type UpdateAssessmentRequest = validator.AssessmentUpdateRequest
type ComposeQuestionRequest = validator.ComposeQuestionRequest
type CreateQuestionRequest = validator.QuestionCreateRequest
type UpdateQuestionRequest = validator.QuestionUpdateRequest
type SubmitAttemptRequest = validator.AttemptSubmitRequest
type GeneratePracticeRequest = validator.PracticeGenerateRequest

type AssessmentResponse struct {
	*models.Assessment
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanTake   bool `json:"can_take"`
}

type AssessmentListResponse struct {
	Assessments []*AssessmentResponse `json:"assessments"`
	Total       int64                 `json:"total"`
	Page        int                   `json:"page"`
	Size        int                   `json:"size"`
}

type QuestionResponse struct {
	*models.Question
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type QuestionListResponse struct {
	Questions []*QuestionResponse `json:"questions"`
	Total     int64               `json:"total"`
	Page      int                 `json:"page"`
	Size      int                 `json:"size"`
}

type AttemptResponse struct {
	*models.StudentAssessment
	CanSubmit bool `json:"can_submit"`
}

// PracticeSetResponse reports what a practice generation actually produced.
// Selected may fall short of Requested; Shortfall carries the difference so
// clients can surface it.
type PracticeSetResponse struct {
	Assessment *models.Assessment `json:"assessment"`
	Questions  []*models.Question `json:"questions"`
	Requested  int                `json:"requested"`
	Selected   int                `json:"selected"`
	Shortfall  int                `json:"shortfall"`
}

type PracticeResultListResponse struct {
	Results []*models.PracticeAssessment `json:"results"`
	Total   int64                        `json:"total"`
	Page    int                          `json:"page"`
	Size    int                          `json:"size"`
}

// SweepResult summarizes one reconciliation pass.
type SweepResult struct {
	AttemptRows     int `json:"attempt_rows"`
	PlaceholderRows int `json:"placeholder_rows"`
	Failures        int `json:"failures"`
}

// ActivationSweepResult summarizes one scheduler pass.
type ActivationSweepResult struct {
	Examined    int `json:"examined"`
	Activated   int `json:"activated"`
	Deactivated int `json:"deactivated"`
	Failures    int `json:"failures"`
}

// ImportResult reports a bulk question import. Row failures are recorded
// per row; they do not abort the rest of the file.
type ImportResult struct {
	Created   int      `json:"created"`
	RowErrors []string `json:"row_errors,omitempty"`
}

// ===== SERVICE INTERFACES =====

type AssessmentService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateAssessmentRequest, creatorID string) (*AssessmentResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*AssessmentResponse, error)
	GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*AssessmentResponse, error)
	Update(ctx context.Context, id uint, req *UpdateAssessmentRequest, userID string) (*AssessmentResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// List operations
	List(ctx context.Context, filters repositories.AssessmentFilters, userID string) (*AssessmentListResponse, error)
	GetByUnit(ctx context.Context, unitCode string, filters repositories.AssessmentFilters, userID string) (*AssessmentListResponse, error)

	// Question composition; both operations keep total_marks equal to the
	// sum of composed question marks.
	ComposeQuestion(ctx context.Context, assessmentID uint, req *ComposeQuestionRequest, userID string) error
	RemoveQuestion(ctx context.Context, assessmentID, questionID uint, userID string) error

	// Statistics
	GetStats(ctx context.Context, id uint, userID string) (*repositories.AssessmentStats, error)
	GetUnitStats(ctx context.Context, unitCode string, userID string) (*repositories.UnitStats, error)

	// Permission checks
	CanAccess(ctx context.Context, assessmentID uint, userID string) (bool, error)
	CanEdit(ctx context.Context, assessmentID uint, userID string) (bool, error)
	CanDelete(ctx context.Context, assessmentID uint, userID string) (bool, error)
	CanTake(ctx context.Context, assessmentID uint, userID string) (bool, error)
}

type QuestionService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateQuestionRequest, creatorID string) (*QuestionResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*QuestionResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuestionRequest, userID string) (*QuestionResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// List operations
	List(ctx context.Context, filters repositories.QuestionFilters, userID string) (*QuestionListResponse, error)

	// Approval workflow; only approved questions enter practice pools.
	Approve(ctx context.Context, id uint, userID string) error

	// GeneratePracticeSet builds a practice assessment from randomly
	// selected approved questions. Fewer matches than requested is a
	// partial success; zero matches is an error.
	GeneratePracticeSet(ctx context.Context, req *GeneratePracticeRequest, studentID string) (*PracticeSetResponse, error)
}

type AttemptService interface {
	// Core attempt operations
	Start(ctx context.Context, assessmentID uint, studentID string) (*AttemptResponse, error)
	Submit(ctx context.Context, req *SubmitAttemptRequest, studentID string) (*AttemptResponse, error)

	// Get operations
	GetByID(ctx context.Context, id uint, userID string) (*AttemptResponse, error)
	GetByIDWithResponses(ctx context.Context, id uint, userID string) (*AttemptResponse, error)
	GetActiveAttempt(ctx context.Context, assessmentID uint, studentID string) (*AttemptResponse, error)

	// List operations
	GetByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters, userID string) ([]*AttemptResponse, int64, error)
	GetByAssessment(ctx context.Context, assessmentID uint, filters repositories.AttemptFilters, userID string) ([]*AttemptResponse, int64, error)
}

// ReconciliationService owns every write to the canonical practice result
// table.
type ReconciliationService interface {
	// ReconcileAttempt upserts the canonical row for a completed practice
	// attempt inside the caller's transaction.
	ReconcileAttempt(ctx context.Context, tx *gorm.DB, attempt *models.StudentAssessment, assessment *models.Assessment) (*models.PracticeAssessment, error)

	// Sweep runs the batch reconciliation over both legacy sources. Row
	// failures are logged and counted, never fatal to the pass.
	Sweep(ctx context.Context) (*SweepResult, error)
}

// PracticeResultService is the read-only reporting surface over canonical
// practice results.
type PracticeResultService interface {
	GetByStudent(ctx context.Context, studentID string, filters repositories.PracticeResultFilters, userID string) (*PracticeResultListResponse, error)
	List(ctx context.Context, filters repositories.PracticeResultFilters, userID string) (*PracticeResultListResponse, error)
}

// ActivationScheduler periodically aligns is_active flags with availability
// windows.
type ActivationScheduler interface {
	Start(ctx context.Context) error
	Stop()
	RunOnce(ctx context.Context) (*ActivationSweepResult, error)
}

// ImportService loads question banks from spreadsheet files.
type ImportService interface {
	ImportQuestionsXLSX(ctx context.Context, r io.Reader, creatorID string) (*ImportResult, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Assessment() AssessmentService
	Question() QuestionService
	Attempt() AttemptService
	PracticeResult() PracticeResultService
	Reconciliation() ReconciliationService
	Scheduler() ActivationScheduler
	Import() ImportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
