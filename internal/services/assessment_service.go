package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campusassess/assessment-service/internal/models"
	"github.com/campusassess/assessment-service/internal/repositories"
	"github.com/campusassess/assessment-service/internal/validator"
	"gorm.io/gorm"
)

type assessmentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAssessmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) AssessmentService {
	return &assessmentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *assessmentService) Create(ctx context.Context, req *CreateAssessmentRequest, creatorID string) (*AssessmentResponse, error) {
	s.logger.Info("Creating assessment", "creator_id", creatorID, "title", req.Title, "unit_code", req.UnitCode)

	// Titles are stored normalized; uniqueness and search compare the
	// canonical form.
	req.Title = strings.ToUpper(strings.TrimSpace(req.Title))

	if errors := s.validator.GetBusinessValidator().ValidateAssessmentCreate(req); len(errors) > 0 {
		return nil, errors
	}

	canCreate, err := s.canCreateAssessment(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("permission check failed: %w", err)
	}
	if !canCreate {
		return nil, NewPermissionError(creatorID, 0, "assessment", "create", "insufficient role permissions")
	}

	assessment := &models.Assessment{
		Title:           req.Title,
		UnitCode:        req.UnitCode,
		CreatedBy:       creatorID,
		DurationMinutes: req.DurationMinutes,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		IsPractice:      req.IsPractice,
		AllowOffline:    req.AllowOffline,
	}

	if err := s.repo.Assessment().Create(ctx, s.db, assessment); err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}

	s.logger.Info("Assessment created successfully", "assessment_id", assessment.ID)

	return s.buildAssessmentResponse(ctx, assessment, creatorID), nil
}

func (s *assessmentService) GetByID(ctx context.Context, id uint, userID string) (*AssessmentResponse, error) {
	canAccess, err := s.CanAccess(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, id, "assessment", "read", "not owner or insufficient permissions")
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	s.refreshActivation(ctx, assessment)

	return s.buildAssessmentResponse(ctx, assessment, userID), nil
}

func (s *assessmentService) GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*AssessmentResponse, error) {
	canAccess, err := s.CanAccess(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, id, "assessment", "read", "not owner or insufficient permissions")
	}

	assessment, err := s.repo.Assessment().GetByIDWithQuestions(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment with questions: %w", err)
	}

	s.refreshActivation(ctx, assessment)

	return s.buildAssessmentResponse(ctx, assessment, userID), nil
}

func (s *assessmentService) Update(ctx context.Context, id uint, req *UpdateAssessmentRequest, userID string) (*AssessmentResponse, error) {
	s.logger.Info("Updating assessment", "assessment_id", id, "user_id", userID)

	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if errors := s.validator.GetBusinessValidator().ValidateAssessmentUpdate(req, assessment); len(errors) > 0 {
		return nil, errors
	}

	canEdit, err := s.CanEdit(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !canEdit {
		return nil, NewPermissionError(userID, id, "assessment", "update", "not owner or insufficient permissions")
	}

	s.applyAssessmentUpdates(assessment, req)

	if err := s.repo.Assessment().Update(ctx, s.db, assessment); err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}

	s.logger.Info("Assessment updated successfully", "assessment_id", id)

	return s.buildAssessmentResponse(ctx, assessment, userID), nil
}

func (s *assessmentService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting assessment", "assessment_id", id, "user_id", userID)

	canDelete, err := s.CanDelete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !canDelete {
		return NewPermissionError(userID, id, "assessment", "delete", "not owner or assessment has attempts")
	}

	if err := s.repo.Assessment().Delete(ctx, s.db, id); err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}

	s.logger.Info("Assessment deleted successfully", "assessment_id", id)
	return nil
}

// ===== LIST OPERATIONS =====

func (s *assessmentService) List(ctx context.Context, filters repositories.AssessmentFilters, userID string) (*AssessmentListResponse, error) {
	userRole, err := s.getUserRole(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Students only ever see active assessments.
	if userRole == models.RoleStudent {
		active := true
		filters.IsActive = &active
	}

	assessments, total, err := s.repo.Assessment().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	return s.buildListResponse(ctx, assessments, total, filters, userID), nil
}

func (s *assessmentService) GetByUnit(ctx context.Context, unitCode string, filters repositories.AssessmentFilters, userID string) (*AssessmentListResponse, error) {
	filters.UnitCode = &unitCode
	return s.List(ctx, filters, userID)
}

// ===== QUESTION COMPOSITION =====

// ComposeQuestion adds a question to an assessment and bumps total_marks in
// the same transaction. The two writes land together or not at all, so
// total_marks always equals the sum of composed question marks.
func (s *assessmentService) ComposeQuestion(ctx context.Context, assessmentID uint, req *ComposeQuestionRequest, userID string) error {
	s.logger.Info("Composing question into assessment",
		"assessment_id", assessmentID, "question_id", req.QuestionID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return err
	}

	canEdit, err := s.CanEdit(ctx, assessmentID, userID)
	if err != nil {
		return err
	}
	if !canEdit {
		return NewPermissionError(userID, assessmentID, "assessment", "compose", "not owner or insufficient permissions")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assessment, err := s.repo.Assessment().GetByID(ctx, tx, assessmentID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAssessmentNotFound
			}
			return fmt.Errorf("failed to get assessment: %w", err)
		}

		question, err := s.repo.Question().GetByID(ctx, tx, req.QuestionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("failed to get question: %w", err)
		}

		if !question.Approved {
			return ErrQuestionNotApproved
		}
		if question.UnitCode != assessment.UnitCode {
			return ErrUnitMismatch
		}

		exists, err := s.repo.AssessmentQuestion().Exists(ctx, tx, assessmentID, req.QuestionID)
		if err != nil {
			return fmt.Errorf("failed to check composition: %w", err)
		}
		if exists {
			return ErrQuestionAlreadyComposed
		}

		order := 0
		if req.Order != nil {
			order = *req.Order
		}
		if order == 0 {
			order, err = s.repo.AssessmentQuestion().NextOrder(ctx, tx, assessmentID)
			if err != nil {
				return fmt.Errorf("failed to determine question order: %w", err)
			}
		}

		mapping := &models.AssessmentQuestion{
			AssessmentID: assessmentID,
			QuestionID:   req.QuestionID,
			Order:        order,
		}
		if err := s.repo.AssessmentQuestion().Compose(ctx, tx, mapping); err != nil {
			return fmt.Errorf("failed to compose question: %w", err)
		}

		if err := s.repo.Assessment().IncrementTotalMarks(ctx, tx, assessmentID, question.Marks); err != nil {
			return fmt.Errorf("failed to increment total marks: %w", err)
		}

		return nil
	})
}

// RemoveQuestion removes a question from an assessment and decrements
// total_marks in the same transaction.
func (s *assessmentService) RemoveQuestion(ctx context.Context, assessmentID, questionID uint, userID string) error {
	s.logger.Info("Removing question from assessment",
		"assessment_id", assessmentID, "question_id", questionID, "user_id", userID)

	canEdit, err := s.CanEdit(ctx, assessmentID, userID)
	if err != nil {
		return err
	}
	if !canEdit {
		return NewPermissionError(userID, assessmentID, "assessment", "compose", "not owner or insufficient permissions")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.repo.AssessmentQuestion().Exists(ctx, tx, assessmentID, questionID)
		if err != nil {
			return fmt.Errorf("failed to check composition: %w", err)
		}
		if !exists {
			return ErrQuestionNotFound
		}

		question, err := s.repo.Question().GetByID(ctx, tx, questionID)
		if err != nil {
			return fmt.Errorf("failed to get question: %w", err)
		}

		if err := s.repo.AssessmentQuestion().Remove(ctx, tx, assessmentID, questionID); err != nil {
			return fmt.Errorf("failed to remove question: %w", err)
		}

		if err := s.repo.Assessment().IncrementTotalMarks(ctx, tx, assessmentID, -question.Marks); err != nil {
			return fmt.Errorf("failed to decrement total marks: %w", err)
		}

		return nil
	})
}

// ===== STATISTICS =====

func (s *assessmentService) GetStats(ctx context.Context, id uint, userID string) (*repositories.AssessmentStats, error) {
	canAccess, err := s.CanAccess(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, id, "assessment", "read", "not owner or insufficient permissions")
	}

	stats, err := s.repo.Assessment().GetStats(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment stats: %w", err)
	}

	return stats, nil
}

func (s *assessmentService) GetUnitStats(ctx context.Context, unitCode string, userID string) (*repositories.UnitStats, error) {
	userRole, err := s.getUserRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	if userRole == models.RoleStudent {
		return nil, NewPermissionError(userID, 0, "unit_stats", "read", "students cannot read unit statistics")
	}

	stats, err := s.repo.Assessment().GetUnitStats(ctx, s.db, unitCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get unit stats: %w", err)
	}

	return stats, nil
}

// ===== PERMISSION CHECKS =====

func (s *assessmentService) CanAccess(ctx context.Context, assessmentID uint, userID string) (bool, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrAssessmentNotFound
		}
		return false, fmt.Errorf("failed to get assessment: %w", err)
	}

	if assessment.CreatedBy == userID {
		return true, nil
	}

	userRole, err := s.getUserRole(ctx, userID)
	if err != nil {
		return false, err
	}

	switch userRole {
	case models.RoleAdmin, models.RoleInstructor:
		return true, nil
	default:
		// Students see active assessments only.
		return assessment.EffectiveActive(time.Now()), nil
	}
}

func (s *assessmentService) CanEdit(ctx context.Context, assessmentID uint, userID string) (bool, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrAssessmentNotFound
		}
		return false, fmt.Errorf("failed to get assessment: %w", err)
	}

	if assessment.CreatedBy == userID {
		return true, nil
	}

	return s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
}

func (s *assessmentService) CanDelete(ctx context.Context, assessmentID uint, userID string) (bool, error) {
	canEdit, err := s.CanEdit(ctx, assessmentID, userID)
	if err != nil || !canEdit {
		return false, err
	}

	attemptCount, err := s.repo.Attempt().CountByAssessment(ctx, s.db, assessmentID)
	if err != nil {
		return false, fmt.Errorf("failed to count attempts: %w", err)
	}

	return attemptCount == 0, nil
}

func (s *assessmentService) CanTake(ctx context.Context, assessmentID uint, userID string) (bool, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrAssessmentNotFound
		}
		return false, fmt.Errorf("failed to get assessment: %w", err)
	}

	if !assessment.EffectiveActive(time.Now()) {
		return false, nil
	}

	return s.repo.User().HasRole(ctx, userID, models.RoleStudent)
}

// ===== HELPERS =====

func (s *assessmentService) canCreateAssessment(ctx context.Context, userID string) (bool, error) {
	isInstructor, err := s.repo.User().HasRole(ctx, userID, models.RoleInstructor)
	if err != nil {
		return false, err
	}
	if isInstructor {
		return true, nil
	}

	return s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
}

func (s *assessmentService) getUserRole(ctx context.Context, userID string) (models.UserRole, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	return user.Role, nil
}

func (s *assessmentService) applyAssessmentUpdates(assessment *models.Assessment, req *UpdateAssessmentRequest) {
	if req.Title != nil {
		assessment.Title = strings.ToUpper(strings.TrimSpace(*req.Title))
	}
	if req.DurationMinutes != nil {
		assessment.DurationMinutes = *req.DurationMinutes
	}
	if req.StartTime != nil {
		assessment.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		assessment.EndTime = req.EndTime
	}
	if req.AllowOffline != nil {
		assessment.AllowOffline = *req.AllowOffline
	}
}

// refreshActivation repairs a stored is_active flag that lags the window,
// using the same conditional write the scheduler issues. The in-memory
// assessment always leaves here carrying the effective state.
func (s *assessmentService) refreshActivation(ctx context.Context, assessment *models.Assessment) {
	desired := assessment.EffectiveActive(time.Now())
	if assessment.IsActive == desired {
		return
	}

	if _, err := s.repo.Assessment().SetActiveFlag(ctx, s.db, assessment.ID, desired); err != nil {
		s.logger.Warn("Failed to persist activation state on read",
			"assessment_id", assessment.ID, "desired", desired, "error", err)
	}
	assessment.IsActive = desired
}

func (s *assessmentService) buildAssessmentResponse(ctx context.Context, assessment *models.Assessment, userID string) *AssessmentResponse {
	assessment.IsActive = assessment.EffectiveActive(time.Now())

	resp := &AssessmentResponse{Assessment: assessment}

	role, err := s.getUserRole(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to resolve role for response capabilities",
			"assessment_id", assessment.ID, "user_id", userID, "error", err)
		return resp
	}

	resp.CanEdit = assessment.CreatedBy == userID || role == models.RoleAdmin
	if resp.CanEdit {
		attemptCount, err := s.repo.Attempt().CountByAssessment(ctx, s.db, assessment.ID)
		if err != nil {
			s.logger.Warn("Failed to count attempts for response capabilities",
				"assessment_id", assessment.ID, "error", err)
		} else {
			resp.CanDelete = attemptCount == 0
		}
	}
	resp.CanTake = assessment.IsActive && role == models.RoleStudent

	return resp
}

func (s *assessmentService) buildListResponse(ctx context.Context, assessments []*models.Assessment, total int64, filters repositories.AssessmentFilters, userID string) *AssessmentListResponse {
	responses := make([]*AssessmentResponse, 0, len(assessments))
	for _, assessment := range assessments {
		responses = append(responses, &AssessmentResponse{Assessment: assessment})
	}

	page := 1
	if filters.Limit > 0 {
		page = (filters.Offset / filters.Limit) + 1
	}

	return &AssessmentListResponse{
		Assessments: responses,
		Total:       total,
		Page:        page,
		Size:        len(responses),
	}
}
