package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusassess/assessment-service/internal/cache"
	"github.com/campusassess/assessment-service/internal/models"
	"github.com/campusassess/assessment-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type AttemptPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// Create creates a new attempt
func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.StudentAssessment) error {
	if err := a.getDB(tx).WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}

	return nil
}

// GetByID retrieves an attempt by ID
func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, attemptID uint) (*models.StudentAssessment, error) {
	var attempt models.StudentAssessment
	err := a.getDB(tx).WithContext(ctx).First(&attempt, attemptID).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	return &attempt, nil
}

// GetByIDWithResponses retrieves an attempt with its responses and assessment
func (a *AttemptPostgreSQL) GetByIDWithResponses(ctx context.Context, tx *gorm.DB, attemptID uint) (*models.StudentAssessment, error) {
	var attempt models.StudentAssessment
	err := a.getDB(tx).WithContext(ctx).
		Preload("Assessment").
		Preload("Responses").
		Preload("Responses.Question").
		First(&attempt, attemptID).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt with responses: %w", err)
	}

	return &attempt, nil
}

// Update updates an attempt's scoring, timing and status columns
func (a *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.StudentAssessment) error {
	err := a.getDB(tx).WithContext(ctx).
		Model(&models.StudentAssessment{}).
		Where("attempt_id = ?", attempt.AttemptID).
		Updates(map[string]interface{}{
			"start_time":     attempt.StartTime,
			"end_time":       attempt.EndTime,
			"score":          attempt.Score,
			"total_possible": attempt.TotalPossible,
			"status":         attempt.Status,
			"is_offline":     attempt.IsOffline,
			"session_data":   attempt.SessionData,
			"updated_at":     attempt.UpdatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}

	return nil
}

// Delete removes an attempt and its responses
func (a *AttemptPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, attemptID uint) error {
	db := a.getDB(tx)

	if err := db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Delete(&models.StudentResponse{}).Error; err != nil {
		return fmt.Errorf("failed to delete attempt responses: %w", err)
	}

	result := db.WithContext(ctx).Delete(&models.StudentAssessment{}, attemptID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// Upsert inserts the attempt when its ID is zero, otherwise updates the
// existing row. Offline sync replays carry an existing attempt ID.
func (a *AttemptPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, attempt *models.StudentAssessment) error {
	if attempt.AttemptID == 0 {
		return a.Create(ctx, tx, attempt)
	}

	var existing models.StudentAssessment
	err := a.getDB(tx).WithContext(ctx).
		Select("attempt_id").
		First(&existing, attempt.AttemptID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.Create(ctx, tx, attempt)
		}
		return fmt.Errorf("failed to check attempt existence: %w", err)
	}

	return a.Update(ctx, tx, attempt)
}

// ReplaceResponses deletes the attempt's stored responses and bulk inserts
// the given set. Resubmission replaces, never appends.
func (a *AttemptPostgreSQL) ReplaceResponses(ctx context.Context, tx *gorm.DB, attemptID uint, responses []*models.StudentResponse) error {
	db := a.getDB(tx)

	if err := db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Delete(&models.StudentResponse{}).Error; err != nil {
		return fmt.Errorf("failed to clear prior responses: %w", err)
	}

	if len(responses) == 0 {
		return nil
	}

	for _, response := range responses {
		response.ResponseID = 0
		response.AttemptID = attemptID
	}

	if err := db.WithContext(ctx).CreateInBatches(responses, 100).Error; err != nil {
		return fmt.Errorf("failed to insert responses: %w", err)
	}

	return nil
}

// GetActiveAttempt returns the in-progress attempt for a student on an
// assessment, or gorm.ErrRecordNotFound when none is open.
func (a *AttemptPostgreSQL) GetActiveAttempt(ctx context.Context, tx *gorm.DB, studentID string, assessmentID uint) (*models.StudentAssessment, error) {
	var attempt models.StudentAssessment
	err := a.getDB(tx).WithContext(ctx).
		Where("student_id = ? AND assessment_id = ? AND status = ?", studentID, assessmentID, models.AttemptInProgress).
		First(&attempt).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active attempt: %w", err)
	}

	return &attempt, nil
}

// List retrieves attempts with filters and pagination
func (a *AttemptPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.StudentAssessment, int64, error) {
	query := a.getDB(tx).WithContext(ctx).Model(&models.StudentAssessment{})
	query = a.helpers.ApplyAttemptFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var attempts []*models.StudentAssessment
	if err := query.Preload("Assessment").Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	return attempts, total, nil
}

// GetByStudent retrieves a student's attempts
func (a *AttemptPostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AttemptFilters) ([]*models.StudentAssessment, int64, error) {
	filters.StudentID = &studentID
	return a.List(ctx, tx, filters)
}

// GetByAssessment retrieves attempts on an assessment
func (a *AttemptPostgreSQL) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint, filters repositories.AttemptFilters) ([]*models.StudentAssessment, int64, error) {
	filters.AssessmentID = &assessmentID
	return a.List(ctx, tx, filters)
}

// CountByAssessment counts attempts on an assessment
func (a *AttemptPostgreSQL) CountByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) (int64, error) {
	var count int64
	err := a.getDB(tx).WithContext(ctx).
		Model(&models.StudentAssessment{}).
		Where("assessment_id = ?", assessmentID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	return count, nil
}
