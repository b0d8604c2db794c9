package repositories

import (
	"context"

	"github.com/campusassess/assessment-service/internal/models"
	"gorm.io/gorm"
)

// AssessmentRepository owns assessment definitions and the total-marks
// counter. Multi-step writes receive the caller's transaction handle; a nil
// tx falls back to the repository's own connection.
type AssessmentRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error)
	Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters AssessmentFilters) ([]*models.Assessment, int64, error)
	GetByUnit(ctx context.Context, tx *gorm.DB, unitCode string, filters AssessmentFilters) ([]*models.Assessment, int64, error)

	// IncrementTotalMarks applies a relative in-database update
	// (total_marks = total_marks + delta) so concurrent composers are
	// serialized by the store, never by application memory.
	IncrementTotalMarks(ctx context.Context, tx *gorm.DB, id uint, delta int) error

	// SetActiveFlag persists is_active only when it differs from the stored
	// value and reports whether a row actually changed.
	SetActiveFlag(ctx context.Context, tx *gorm.DB, id uint, active bool) (bool, error)

	// ListActivationCandidates returns assessments whose window is fully
	// specified; those are the only rows the scheduler may flip.
	ListActivationCandidates(ctx context.Context, tx *gorm.DB) ([]*models.Assessment, error)

	// Statistics
	GetStats(ctx context.Context, tx *gorm.DB, id uint) (*AssessmentStats, error)
	GetUnitStats(ctx context.Context, tx *gorm.DB, unitCode string) (*UnitStats, error)
}

// AssessmentQuestionRepository manages the ordered composition mapping.
type AssessmentQuestionRepository interface {
	Compose(ctx context.Context, tx *gorm.DB, mapping *models.AssessmentQuestion) error
	Remove(ctx context.Context, tx *gorm.DB, assessmentID, questionID uint) error
	Exists(ctx context.Context, tx *gorm.DB, assessmentID, questionID uint) (bool, error)
	GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.AssessmentQuestion, error)
	NextOrder(ctx context.Context, tx *gorm.DB, assessmentID uint) (int, error)

	// SumMarks computes the marks total over the currently composed
	// questions, used to verify the total-marks invariant.
	SumMarks(ctx context.Context, tx *gorm.DB, assessmentID uint) (int, error)
}
