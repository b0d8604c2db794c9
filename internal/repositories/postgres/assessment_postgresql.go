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

type AssessmentPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAssessmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (a *AssessmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// Create creates a new assessment and invalidates listing caches
func (a *AssessmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	if err := a.getDB(tx).WithContext(ctx).Create(assessment).Error; err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}

	a.cacheManager.Assessment.SafeInvalidatePattern(ctx, "list:*", "create_assessment")
	a.cacheManager.Assessment.SafeInvalidatePattern(ctx, fmt.Sprintf("unit:%s:*", assessment.UnitCode), "create_assessment")

	return nil
}

// GetByID retrieves an assessment by ID with caching
func (a *AssessmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	var assessment models.Assessment

	err := a.cacheManager.Assessment.CacheOrExecute(ctx, cacheKey, &assessment, cache.AssessmentCacheConfig.TTL, func() (interface{}, error) {
		var dbAssessment models.Assessment
		if err := a.getDB(tx).WithContext(ctx).First(&dbAssessment, id).Error; err != nil {
			return nil, fmt.Errorf("failed to get assessment: %w", err)
		}
		return &dbAssessment, nil
	})
	if err != nil {
		return nil, err
	}

	return &assessment, nil
}

// GetByIDWithQuestions retrieves an assessment with its composed questions in order
func (a *AssessmentPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	var assessment models.Assessment
	err := a.getDB(tx).WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("assessment_questions.order ASC")
		}).
		Preload("Questions.Question").
		First(&assessment, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment with questions: %w", err)
	}

	return &assessment, nil
}

// Update updates an assessment's definitional fields. The total_marks counter
// and the is_active flag have their own write paths and are not touched here.
func (a *AssessmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	err := a.getDB(tx).WithContext(ctx).Model(&models.Assessment{}).Where("id = ?", assessment.ID).Updates(map[string]interface{}{
		"title":            assessment.Title,
		"unit_code":        assessment.UnitCode,
		"duration_minutes": assessment.DurationMinutes,
		"start_time":       assessment.StartTime,
		"end_time":         assessment.EndTime,
		"is_practice":      assessment.IsPractice,
		"allow_offline":    assessment.AllowOffline,
		"updated_at":       assessment.UpdatedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update assessment: %w", err)
	}

	a.cacheManager.InvalidateAssessmentCache(ctx, assessment.ID, assessment.UnitCode)

	return nil
}

// Delete soft deletes an assessment. Assessments with recorded attempts are
// kept; attempt and practice result history must stay resolvable.
func (a *AssessmentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := a.getDB(tx)

	var assessment models.Assessment
	if err := db.WithContext(ctx).Select("id, unit_code").First(&assessment, id).Error; err != nil {
		return fmt.Errorf("failed to get assessment before delete: %w", err)
	}

	attemptCount, err := a.helpers.CountAttempts(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check attempts: %w", err)
	}
	if attemptCount > 0 {
		return fmt.Errorf("cannot delete assessment with existing attempts")
	}

	if err := db.WithContext(ctx).Delete(&models.Assessment{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}

	a.cacheManager.InvalidateAssessmentCache(ctx, id, assessment.UnitCode)

	return nil
}

// List retrieves assessments with filters and pagination
func (a *AssessmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	query := a.getDB(tx).WithContext(ctx).Model(&models.Assessment{})
	query = a.helpers.ApplyAssessmentFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assessments: %w", err)
	}

	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var assessments []*models.Assessment
	if err := query.Find(&assessments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list assessments: %w", err)
	}

	return assessments, total, nil
}

// GetByUnit retrieves assessments for a unit with filters and pagination
func (a *AssessmentPostgreSQL) GetByUnit(ctx context.Context, tx *gorm.DB, unitCode string, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	filters.UnitCode = &unitCode
	return a.List(ctx, tx, filters)
}

// IncrementTotalMarks applies a relative update so the counter is adjusted
// against the stored value rather than a value read into memory. Concurrent
// composers on the same assessment serialize on the row.
func (a *AssessmentPostgreSQL) IncrementTotalMarks(ctx context.Context, tx *gorm.DB, id uint, delta int) error {
	result := a.getDB(tx).WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ?", id).
		Update("total_marks", gorm.Expr("total_marks + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("failed to increment total marks: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	a.cacheManager.Assessment.SafeDelete(ctx, "increment_total_marks", fmt.Sprintf("id:%d", id))

	return nil
}

// SetActiveFlag writes is_active only when it differs from the stored value
// and reports whether a row changed. Re-running the scheduler over an
// already-correct flag is a no-op with no write.
func (a *AssessmentPostgreSQL) SetActiveFlag(ctx context.Context, tx *gorm.DB, id uint, active bool) (bool, error) {
	result := a.getDB(tx).WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ? AND is_active <> ?", id, active).
		Update("is_active", active)
	if result.Error != nil {
		return false, fmt.Errorf("failed to set active flag: %w", result.Error)
	}

	changed := result.RowsAffected > 0
	if changed {
		a.cacheManager.Assessment.SafeDelete(ctx, "set_active_flag", fmt.Sprintf("id:%d", id))
		a.cacheManager.Assessment.SafeInvalidatePattern(ctx, "list:*", "set_active_flag")
	}

	return changed, nil
}

// ListActivationCandidates returns assessments with a fully specified window.
// Rows missing either bound are never flipped automatically.
func (a *AssessmentPostgreSQL) ListActivationCandidates(ctx context.Context, tx *gorm.DB) ([]*models.Assessment, error) {
	var assessments []*models.Assessment
	err := a.getDB(tx).WithContext(ctx).
		Where("start_time IS NOT NULL AND end_time IS NOT NULL").
		Find(&assessments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activation candidates: %w", err)
	}

	return assessments, nil
}

// GetStats computes attempt and composition statistics for an assessment
func (a *AssessmentPostgreSQL) GetStats(ctx context.Context, tx *gorm.DB, id uint) (*repositories.AssessmentStats, error) {
	db := a.getDB(tx)
	stats := &repositories.AssessmentStats{}

	var assessment models.Assessment
	if err := db.WithContext(ctx).Select("id, total_marks").First(&assessment, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get assessment for stats: %w", err)
	}
	stats.TotalMarks = assessment.TotalMarks

	var questionCount int64
	if err := db.WithContext(ctx).
		Model(&models.AssessmentQuestion{}).
		Where("assessment_id = ?", id).
		Count(&questionCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count composed questions: %w", err)
	}
	stats.QuestionCount = int(questionCount)

	totalAttempts, err := a.helpers.CountAttempts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	stats.TotalAttempts = int(totalAttempts)

	completedAttempts, err := a.helpers.CountAttemptsByStatus(ctx, id, models.AttemptCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed attempts: %w", err)
	}
	stats.CompletedAttempts = int(completedAttempts)

	if completedAttempts > 0 {
		var avgScore float64
		err := db.WithContext(ctx).
			Model(&models.StudentAssessment{}).
			Where("assessment_id = ? AND status = ?", id, models.AttemptCompleted).
			Select("COALESCE(AVG(score), 0)").
			Scan(&avgScore).Error
		if err != nil {
			return nil, fmt.Errorf("failed to compute average score: %w", err)
		}
		stats.AverageScore = avgScore
	}

	return stats, nil
}

// GetUnitStats computes aggregate statistics for a unit
func (a *AssessmentPostgreSQL) GetUnitStats(ctx context.Context, tx *gorm.DB, unitCode string) (*repositories.UnitStats, error) {
	db := a.getDB(tx)
	stats := &repositories.UnitStats{}

	type assessmentCounts struct {
		Total    int64
		Active   int64
		Practice int64
	}
	var ac assessmentCounts
	err := db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("unit_code = ?", unitCode).
		Select(
			"COUNT(*) as total",
			"COUNT(*) FILTER (WHERE is_active) as active",
			"COUNT(*) FILTER (WHERE is_practice) as practice",
		).
		Scan(&ac).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute unit assessment stats: %w", err)
	}
	stats.TotalAssessments = int(ac.Total)
	stats.ActiveAssessments = int(ac.Active)
	stats.PracticeCount = int(ac.Practice)

	type questionCounts struct {
		Total    int64
		Approved int64
	}
	var qc questionCounts
	err = db.WithContext(ctx).
		Model(&models.Question{}).
		Where("unit_code = ?", unitCode).
		Select(
			"COUNT(*) as total",
			"COUNT(*) FILTER (WHERE approved) as approved",
		).
		Scan(&qc).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute unit question stats: %w", err)
	}
	stats.QuestionCount = int(qc.Total)
	stats.ApprovedQuestions = int(qc.Approved)

	return stats, nil
}
