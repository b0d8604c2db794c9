package repositories

import (
	"context"

	"github.com/campusassess/assessment-service/internal/models"
	"gorm.io/gorm"
)

// AttemptRepository owns attempt rows and their response sets.
type AttemptRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, attempt *models.StudentAssessment) error
	GetByID(ctx context.Context, tx *gorm.DB, attemptID uint) (*models.StudentAssessment, error)
	GetByIDWithResponses(ctx context.Context, tx *gorm.DB, attemptID uint) (*models.StudentAssessment, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.StudentAssessment) error
	Delete(ctx context.Context, tx *gorm.DB, attemptID uint) error

	// Upsert inserts the attempt if its ID is zero, else updates the
	// scoring, timing and status columns of the existing row.
	Upsert(ctx context.Context, tx *gorm.DB, attempt *models.StudentAssessment) error

	// ReplaceResponses deletes the attempt's stored responses and bulk
	// inserts the given set. A resubmission fully replaces prior responses.
	ReplaceResponses(ctx context.Context, tx *gorm.DB, attemptID uint, responses []*models.StudentResponse) error

	// Query operations
	GetActiveAttempt(ctx context.Context, tx *gorm.DB, studentID string, assessmentID uint) (*models.StudentAssessment, error)
	List(ctx context.Context, tx *gorm.DB, filters AttemptFilters) ([]*models.StudentAssessment, int64, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters AttemptFilters) ([]*models.StudentAssessment, int64, error)
	GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint, filters AttemptFilters) ([]*models.StudentAssessment, int64, error)
	CountByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) (int64, error)
}
