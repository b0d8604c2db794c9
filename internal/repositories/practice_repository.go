package repositories

import (
	"context"

	"github.com/campusassess/assessment-service/internal/models"
	"gorm.io/gorm"
)

// PracticeResultRepository owns the canonical practice result table. Writes
// go exclusively through the reconciliation engine; the finders below expose
// the two legacy sources that may not yet be represented canonically.
type PracticeResultRepository interface {
	GetByKey(ctx context.Context, tx *gorm.DB, studentID string, assessmentID uint) (*models.PracticeAssessment, error)
	Create(ctx context.Context, tx *gorm.DB, result *models.PracticeAssessment) error
	Update(ctx context.Context, tx *gorm.DB, result *models.PracticeAssessment) error

	// Query operations (reporting surface; read-only consumers)
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters PracticeResultFilters) ([]*models.PracticeAssessment, int64, error)
	List(ctx context.Context, tx *gorm.DB, filters PracticeResultFilters) ([]*models.PracticeAssessment, int64, error)
	CountByKey(ctx context.Context, tx *gorm.DB, studentID string, assessmentID uint) (int64, error)

	// FindUnreconciledAttempts returns completed attempts on practice
	// assessments that have no canonical row yet. The join deliberately
	// matches attempts through assessments.created_by = student_id, the
	// legacy migration semantics.
	FindUnreconciledAttempts(ctx context.Context, tx *gorm.DB) ([]*models.StudentAssessment, error)

	// FindUnattemptedPractice returns practice assessments whose creator has
	// neither an attempt nor a canonical row; those become CREATED
	// placeholders.
	FindUnattemptedPractice(ctx context.Context, tx *gorm.DB) ([]*models.Assessment, error)
}
