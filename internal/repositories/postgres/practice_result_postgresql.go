package postgres

import (
	"context"
	"fmt"

	"github.com/campusassess/assessment-service/internal/cache"
	"github.com/campusassess/assessment-service/internal/models"
	"github.com/campusassess/assessment-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type PracticeResultPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewPracticeResultPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.PracticeResultRepository {
	return &PracticeResultPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (p *PracticeResultPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

// GetByKey retrieves the canonical row for a (student, assessment) pair
func (p *PracticeResultPostgreSQL) GetByKey(ctx context.Context, tx *gorm.DB, studentID string, assessmentID uint) (*models.PracticeAssessment, error) {
	var result models.PracticeAssessment
	err := p.getDB(tx).WithContext(ctx).
		Where("student_id = ? AND assessment_id = ?", studentID, assessmentID).
		First(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get practice result: %w", err)
	}

	return &result, nil
}

// Create inserts a canonical row. The unique index on
// (student_id, assessment_id) is the dedup backstop.
func (p *PracticeResultPostgreSQL) Create(ctx context.Context, tx *gorm.DB, result *models.PracticeAssessment) error {
	if err := p.getDB(tx).WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("failed to create practice result: %w", err)
	}

	p.cacheManager.InvalidatePracticeResultCache(ctx, result.StudentID)

	return nil
}

// Update rewrites the scoring columns of an existing canonical row
func (p *PracticeResultPostgreSQL) Update(ctx context.Context, tx *gorm.DB, result *models.PracticeAssessment) error {
	err := p.getDB(tx).WithContext(ctx).
		Model(&models.PracticeAssessment{}).
		Where("practice_id = ?", result.PracticeID).
		Updates(map[string]interface{}{
			"title":           result.Title,
			"unit_code":       result.UnitCode,
			"score":           result.Score,
			"total_possible":  result.TotalPossible,
			"percentage":      result.Percentage,
			"grade":           result.Grade,
			"completion_date": result.CompletionDate,
			"status":          result.Status,
			"updated_at":      result.UpdatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update practice result: %w", err)
	}

	p.cacheManager.InvalidatePracticeResultCache(ctx, result.StudentID)

	return nil
}

// GetByStudent retrieves a student's practice results with caching on the
// unfiltered first page, the report screen's common read.
func (p *PracticeResultPostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.PracticeResultFilters) ([]*models.PracticeAssessment, int64, error) {
	filters.StudentID = &studentID
	return p.List(ctx, tx, filters)
}

// List retrieves practice results with filters and pagination
func (p *PracticeResultPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.PracticeResultFilters) ([]*models.PracticeAssessment, int64, error) {
	query := p.getDB(tx).WithContext(ctx).Model(&models.PracticeAssessment{})

	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.UnitCode != nil {
		query = query.Where("unit_code = ?", *filters.UnitCode)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count practice results: %w", err)
	}

	query = query.Order("updated_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var results []*models.PracticeAssessment
	if err := query.Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list practice results: %w", err)
	}

	return results, total, nil
}

// CountByKey counts canonical rows for a (student, assessment) pair. The
// unique index keeps this at most 1; anything above is corruption worth
// surfacing.
func (p *PracticeResultPostgreSQL) CountByKey(ctx context.Context, tx *gorm.DB, studentID string, assessmentID uint) (int64, error) {
	var count int64
	err := p.getDB(tx).WithContext(ctx).
		Model(&models.PracticeAssessment{}).
		Where("student_id = ? AND assessment_id = ?", studentID, assessmentID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count practice results: %w", err)
	}

	return count, nil
}

// FindUnreconciledAttempts returns completed attempts on practice assessments
// that have no canonical row yet. The join conditions attempts on
// assessments.created_by = student_assessments.student_id: historical data
// recorded self-created practice this way, and rows outside that shape are
// intentionally left alone.
func (p *PracticeResultPostgreSQL) FindUnreconciledAttempts(ctx context.Context, tx *gorm.DB) ([]*models.StudentAssessment, error) {
	var attempts []*models.StudentAssessment
	err := p.getDB(tx).WithContext(ctx).
		Model(&models.StudentAssessment{}).
		Joins("JOIN assessments ON assessments.id = student_assessments.assessment_id AND assessments.created_by = student_assessments.student_id").
		Where("assessments.is_practice = ?", true).
		Where("assessments.deleted_at IS NULL").
		Where("student_assessments.status = ?", models.AttemptCompleted).
		Where(`NOT EXISTS (
			SELECT 1 FROM practice_assessments pa
			WHERE pa.student_id = student_assessments.student_id
			  AND pa.assessment_id = student_assessments.assessment_id
		)`).
		Preload("Assessment").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find unreconciled attempts: %w", err)
	}

	return attempts, nil
}

// FindUnattemptedPractice returns practice assessments whose creator has
// neither an attempt nor a canonical row. These become CREATED placeholders
// so the report screen shows generated-but-untaken practice.
func (p *PracticeResultPostgreSQL) FindUnattemptedPractice(ctx context.Context, tx *gorm.DB) ([]*models.Assessment, error) {
	var assessments []*models.Assessment
	err := p.getDB(tx).WithContext(ctx).
		Model(&models.Assessment{}).
		Where("is_practice = ?", true).
		Where(`NOT EXISTS (
			SELECT 1 FROM student_assessments sa
			WHERE sa.assessment_id = assessments.id
			  AND sa.student_id = assessments.created_by
		)`).
		Where(`NOT EXISTS (
			SELECT 1 FROM practice_assessments pa
			WHERE pa.assessment_id = assessments.id
			  AND pa.student_id = assessments.created_by
		)`).
		Find(&assessments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find unattempted practice assessments: %w", err)
	}

	return assessments, nil
}
