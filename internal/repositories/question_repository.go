package repositories

import (
	"context"

	"github.com/campusassess/assessment-service/internal/models"
	"gorm.io/gorm"
)

// QuestionRepository owns the unit question banks.
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters QuestionFilters) ([]*models.Question, int64, error)
	GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error)

	// GetRandomApproved returns up to filters.Count approved questions in
	// random order. Returning fewer than requested is not an error; the
	// caller decides the shortfall policy.
	GetRandomApproved(ctx context.Context, tx *gorm.DB, filters RandomQuestionFilters) ([]*models.Question, error)

	// Validation and checks
	IsComposed(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
	SetApproved(ctx context.Context, tx *gorm.DB, id uint, approved bool) error
}
