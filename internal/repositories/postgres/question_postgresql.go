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

type QuestionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

// Create creates a new question
func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if err := q.getDB(tx).WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	q.cacheManager.Question.SafeInvalidatePattern(ctx, "list:*", "create_question")

	return nil
}

// CreateBatch inserts questions in bulk (xlsx import path)
func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	if err := q.getDB(tx).WithContext(ctx).CreateInBatches(questions, 100).Error; err != nil {
		return fmt.Errorf("failed to create questions in batch: %w", err)
	}

	q.cacheManager.Question.SafeInvalidatePattern(ctx, "list:*", "create_question_batch")

	return nil
}

// GetByID retrieves a question by ID with caching
func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	var question models.Question

	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestion models.Question
		if err := q.getDB(tx).WithContext(ctx).First(&dbQuestion, id).Error; err != nil {
			return nil, fmt.Errorf("failed to get question: %w", err)
		}
		return &dbQuestion, nil
	})
	if err != nil {
		return nil, err
	}

	return &question, nil
}

// GetByIDs retrieves multiple questions by their IDs
func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var questions []*models.Question
	err := q.getDB(tx).WithContext(ctx).
		Where("id IN ?", ids).
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get questions by ids: %w", err)
	}

	return questions, nil
}

// Update updates a question's content fields. Approval has its own write path.
func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	err := q.getDB(tx).WithContext(ctx).Model(&models.Question{}).Where("id = ?", question.ID).Updates(map[string]interface{}{
		"text":            question.Text,
		"type":            question.Type,
		"options":         question.Options,
		"correct_answers": question.CorrectAnswers,
		"marks":           question.Marks,
		"unit_code":       question.UnitCode,
		"topic":           question.Topic,
		"difficulty":      question.Difficulty,
		"updated_at":      question.UpdatedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	q.cacheManager.InvalidateQuestionCache(ctx, question.ID)

	return nil
}

// Delete removes a question that is not composed into any assessment
func (q *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	composed, err := q.IsComposed(ctx, tx, id)
	if err != nil {
		return err
	}
	if composed {
		return fmt.Errorf("cannot delete question composed into an assessment")
	}

	result := q.getDB(tx).WithContext(ctx).Delete(&models.Question{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete question: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	q.cacheManager.InvalidateQuestionCache(ctx, id)

	return nil
}

// List retrieves questions with filters and pagination
func (q *QuestionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	query := q.getDB(tx).WithContext(ctx).Model(&models.Question{})
	query = q.applyFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	query = q.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var questions []*models.Question
	if err := query.Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}

	return questions, total, nil
}

// GetByAssessment returns the questions composed into an assessment in order
func (q *QuestionPostgreSQL) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error) {
	var questions []*models.Question
	err := q.getDB(tx).WithContext(ctx).
		Joins("JOIN assessment_questions ON assessment_questions.question_id = questions.id").
		Where("assessment_questions.assessment_id = ?", assessmentID).
		Order(`assessment_questions."order" ASC`).
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get questions for assessment: %w", err)
	}

	return questions, nil
}

// GetRandomApproved returns up to filters.Count approved questions in random
// order. The shortfall policy belongs to the caller; fewer matches than
// requested is a valid result here.
func (q *QuestionPostgreSQL) GetRandomApproved(ctx context.Context, tx *gorm.DB, filters repositories.RandomQuestionFilters) ([]*models.Question, error) {
	query := q.getDB(tx).WithContext(ctx).
		Model(&models.Question{}).
		Where("approved = ?", true).
		Where("unit_code = ?", filters.UnitCode)

	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if len(filters.Topics) > 0 {
		query = query.Where("topic IN ?", filters.Topics)
	}
	if len(filters.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", filters.ExcludeIDs)
	}

	var questions []*models.Question
	err := query.Order("RANDOM()").Limit(filters.Count).Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get random approved questions: %w", err)
	}

	return questions, nil
}

// IsComposed checks whether a question is composed into any assessment
func (q *QuestionPostgreSQL) IsComposed(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	var count int64
	err := q.getDB(tx).WithContext(ctx).
		Model(&models.AssessmentQuestion{}).
		Where("question_id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check question composition: %w", err)
	}

	return count > 0, nil
}

// SetApproved updates the approval flag
func (q *QuestionPostgreSQL) SetApproved(ctx context.Context, tx *gorm.DB, id uint, approved bool) error {
	result := q.getDB(tx).WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", id).
		Update("approved", approved)
	if result.Error != nil {
		return fmt.Errorf("failed to set question approval: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	q.cacheManager.InvalidateQuestionCache(ctx, id)

	return nil
}

func (q *QuestionPostgreSQL) applyFilters(query *gorm.DB, filters repositories.QuestionFilters) *gorm.DB {
	if filters.UnitCode != nil {
		query = query.Where("unit_code = ?", *filters.UnitCode)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.Topic != nil {
		query = query.Where("topic = ?", *filters.Topic)
	}
	if filters.Approved != nil {
		query = query.Where("approved = ?", *filters.Approved)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	return query
}
