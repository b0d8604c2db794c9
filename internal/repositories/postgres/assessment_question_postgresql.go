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

type AssessmentQuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAssessmentQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AssessmentQuestionRepository {
	return &AssessmentQuestionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (aq *AssessmentQuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return aq.db
}

// Compose inserts a composition mapping. The unique index on
// (assessment_id, question_id) rejects duplicate composition at the store.
func (aq *AssessmentQuestionPostgreSQL) Compose(ctx context.Context, tx *gorm.DB, mapping *models.AssessmentQuestion) error {
	if err := aq.getDB(tx).WithContext(ctx).Create(mapping).Error; err != nil {
		return fmt.Errorf("failed to compose question into assessment: %w", err)
	}

	aq.cacheManager.Assessment.SafeDelete(ctx, "compose_question", fmt.Sprintf("id:%d", mapping.AssessmentID))
	aq.cacheManager.Question.SafeInvalidatePattern(ctx, fmt.Sprintf("assessment:%d:*", mapping.AssessmentID), "compose_question")

	return nil
}

// Remove deletes a composition mapping
func (aq *AssessmentQuestionPostgreSQL) Remove(ctx context.Context, tx *gorm.DB, assessmentID, questionID uint) error {
	result := aq.getDB(tx).WithContext(ctx).
		Where("assessment_id = ? AND question_id = ?", assessmentID, questionID).
		Delete(&models.AssessmentQuestion{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove question from assessment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	aq.cacheManager.Assessment.SafeDelete(ctx, "remove_question", fmt.Sprintf("id:%d", assessmentID))
	aq.cacheManager.Question.SafeInvalidatePattern(ctx, fmt.Sprintf("assessment:%d:*", assessmentID), "remove_question")

	return nil
}

// Exists checks whether a question is already composed into an assessment
func (aq *AssessmentQuestionPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, assessmentID, questionID uint) (bool, error) {
	var count int64
	err := aq.getDB(tx).WithContext(ctx).
		Model(&models.AssessmentQuestion{}).
		Where("assessment_id = ? AND question_id = ?", assessmentID, questionID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check composition: %w", err)
	}

	return count > 0, nil
}

// GetByAssessment returns the composition mappings in presentation order
func (aq *AssessmentQuestionPostgreSQL) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.AssessmentQuestion, error) {
	var mappings []*models.AssessmentQuestion
	err := aq.getDB(tx).WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Order(`"order" ASC`).
		Preload("Question").
		Find(&mappings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment questions: %w", err)
	}

	return mappings, nil
}

// NextOrder returns the next free position in the assessment's ordering
func (aq *AssessmentQuestionPostgreSQL) NextOrder(ctx context.Context, tx *gorm.DB, assessmentID uint) (int, error) {
	var maxOrder int
	err := aq.getDB(tx).WithContext(ctx).
		Model(&models.AssessmentQuestion{}).
		Where("assessment_id = ?", assessmentID).
		Select(`COALESCE(MAX("order"), 0)`).
		Scan(&maxOrder).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get next order: %w", err)
	}

	return maxOrder + 1, nil
}

// SumMarks computes the marks total over the composed questions
func (aq *AssessmentQuestionPostgreSQL) SumMarks(ctx context.Context, tx *gorm.DB, assessmentID uint) (int, error) {
	var sum int
	err := aq.getDB(tx).WithContext(ctx).
		Model(&models.AssessmentQuestion{}).
		Joins("JOIN questions ON questions.id = assessment_questions.question_id").
		Where("assessment_questions.assessment_id = ?", assessmentID).
		Select("COALESCE(SUM(questions.marks), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum composed marks: %w", err)
	}

	return sum, nil
}
