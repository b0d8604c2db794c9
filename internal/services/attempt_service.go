package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusassess/assessment-service/internal/events"
	"github.com/campusassess/assessment-service/internal/models"
	"github.com/campusassess/assessment-service/internal/repositories"
	"github.com/campusassess/assessment-service/internal/validator"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type attemptService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	reconciliation ReconciliationService
	eventPublisher events.EventPublisher
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, reconciliation ReconciliationService, eventPublisher events.EventPublisher) AttemptService {
	return &attemptService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      validator,
		reconciliation: reconciliation,
		eventPublisher: eventPublisher,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, assessmentID uint, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Starting attempt", "assessment_id", assessmentID, "student_id", studentID)

	isStudent, err := s.repo.User().HasRole(ctx, studentID, models.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user role: %w", err)
	}
	if !isStudent {
		return nil, NewPermissionError(studentID, assessmentID, "attempt", "start", "only students take assessments")
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if !assessment.EffectiveActive(time.Now()) {
		return nil, ErrAssessmentNotActive
	}

	if existing, err := s.repo.Attempt().GetActiveAttempt(ctx, s.db, studentID, assessmentID); err == nil && existing != nil {
		return nil, ErrAttemptAlreadyActive
	} else if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active attempt: %w", err)
	}

	now := time.Now()
	attempt := &models.StudentAssessment{
		StudentID:     studentID,
		AssessmentID:  assessmentID,
		StartTime:     &now,
		TotalPossible: assessment.TotalMarks,
		Status:        models.AttemptInProgress,
	}

	if err := s.repo.Attempt().Create(ctx, s.db, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.logger.Info("Attempt started", "attempt_id", attempt.AttemptID, "assessment_id", assessmentID)

	return &AttemptResponse{StudentAssessment: attempt, CanSubmit: true}, nil
}

// Submit records a completed attempt. The attempt row, the full response
// replacement and, for practice assessments, the canonical result upsert
// all commit in one transaction; a failure anywhere rolls back everything.
func (s *attemptService) Submit(ctx context.Context, req *SubmitAttemptRequest, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Submitting attempt",
		"attempt_id", req.AttemptID,
		"assessment_id", req.AssessmentID,
		"student_id", studentID,
		"is_offline", req.IsOffline)

	if errors := s.validator.GetBusinessValidator().ValidateAttemptSubmit(req); len(errors) > 0 {
		return nil, errors
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, s.db, req.AssessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	// The stored attempt must keep score <= total_possible; a submission
	// claiming more than the assessment carries never reaches the store.
	if req.Score > assessment.TotalMarks {
		return nil, NewBusinessRuleError("score_exceeds_total",
			fmt.Sprintf("submitted score %d exceeds the assessment total of %d", req.Score, assessment.TotalMarks))
	}

	var attempt *models.StudentAssessment
	var reconciled *models.PracticeAssessment

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		attempt, err = s.resolveAttempt(ctx, tx, req, studentID)
		if err != nil {
			return err
		}

		endTime := req.EndTime
		if endTime == nil {
			now := time.Now()
			endTime = &now
		}

		attempt.Score = req.Score
		attempt.TotalPossible = assessment.TotalMarks
		attempt.Status = models.AttemptCompleted
		attempt.EndTime = endTime
		attempt.IsOffline = req.IsOffline
		if req.StartTime != nil {
			attempt.StartTime = req.StartTime
		}
		if req.SessionData != nil {
			data, err := json.Marshal(req.SessionData)
			if err != nil {
				return fmt.Errorf("failed to encode session data: %w", err)
			}
			attempt.SessionData = datatypes.JSON(data)
		}

		if err := s.repo.Attempt().Upsert(ctx, tx, attempt); err != nil {
			return fmt.Errorf("failed to save attempt: %w", err)
		}

		responses := make([]*models.StudentResponse, 0, len(req.Responses))
		for _, r := range req.Responses {
			responses = append(responses, &models.StudentResponse{
				AttemptID:    attempt.AttemptID,
				QuestionID:   r.QuestionID,
				ResponseText: r.ResponseText,
				IsCorrect:    r.IsCorrect,
				MarksAwarded: r.MarksAwarded,
			})
		}
		if err := s.repo.Attempt().ReplaceResponses(ctx, tx, attempt.AttemptID, responses); err != nil {
			return fmt.Errorf("failed to store responses: %w", err)
		}

		if assessment.IsPractice {
			reconciled, err = s.reconciliation.ReconcileAttempt(ctx, tx, attempt, assessment)
			if err != nil {
				return fmt.Errorf("failed to reconcile practice result: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCompleted(ctx, attempt, assessment)
	if reconciled != nil {
		s.publishReconciled(ctx, reconciled)
	}

	s.logger.Info("Attempt submitted",
		"attempt_id", attempt.AttemptID,
		"score", attempt.Score,
		"total_possible", attempt.TotalPossible)

	return &AttemptResponse{StudentAssessment: attempt}, nil
}

// ===== GET OPERATIONS =====

func (s *attemptService) GetByID(ctx context.Context, id uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if err := s.checkAttemptAccess(ctx, attempt, userID); err != nil {
		return nil, err
	}

	return s.buildAttemptResponse(attempt), nil
}

func (s *attemptService) GetByIDWithResponses(ctx context.Context, id uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithResponses(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt with responses: %w", err)
	}

	if err := s.checkAttemptAccess(ctx, attempt, userID); err != nil {
		return nil, err
	}

	return s.buildAttemptResponse(attempt), nil
}

func (s *attemptService) GetActiveAttempt(ctx context.Context, assessmentID uint, studentID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetActiveAttempt(ctx, s.db, studentID, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get active attempt: %w", err)
	}

	return s.buildAttemptResponse(attempt), nil
}

// ===== LIST OPERATIONS =====

func (s *attemptService) GetByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters, userID string) ([]*AttemptResponse, int64, error) {
	if studentID != userID {
		isElevated, err := s.isInstructorOrAdmin(ctx, userID)
		if err != nil {
			return nil, 0, err
		}
		if !isElevated {
			return nil, 0, NewPermissionError(userID, 0, "attempt", "list", "cannot read another student's attempts")
		}
	}

	attempts, total, err := s.repo.Attempt().GetByStudent(ctx, s.db, studentID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	return s.buildAttemptResponses(attempts), total, nil
}

func (s *attemptService) GetByAssessment(ctx context.Context, assessmentID uint, filters repositories.AttemptFilters, userID string) ([]*AttemptResponse, int64, error) {
	isElevated, err := s.isInstructorOrAdmin(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if !isElevated {
		return nil, 0, NewPermissionError(userID, assessmentID, "attempt", "list", "insufficient role permissions")
	}

	attempts, total, err := s.repo.Attempt().GetByAssessment(ctx, s.db, assessmentID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	return s.buildAttemptResponses(attempts), total, nil
}

// ===== HELPERS =====

// resolveAttempt finds or creates the attempt row a submission targets. An
// existing attempt ID must belong to the submitting student; offline syncs
// without an ID open a fresh row.
func (s *attemptService) resolveAttempt(ctx context.Context, tx *gorm.DB, req *SubmitAttemptRequest, studentID string) (*models.StudentAssessment, error) {
	if req.AttemptID != 0 {
		attempt, err := s.repo.Attempt().GetByID(ctx, tx, req.AttemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrAttemptNotFound
			}
			return nil, fmt.Errorf("failed to get attempt: %w", err)
		}
		if attempt.StudentID != studentID {
			return nil, NewPermissionError(studentID, req.AttemptID, "attempt", "submit", "attempt belongs to another student")
		}
		if attempt.AssessmentID != req.AssessmentID {
			return nil, NewBusinessRuleError("attempt_mismatch", "attempt does not belong to the submitted assessment")
		}
		return attempt, nil
	}

	return &models.StudentAssessment{
		StudentID:    studentID,
		AssessmentID: req.AssessmentID,
	}, nil
}

func (s *attemptService) checkAttemptAccess(ctx context.Context, attempt *models.StudentAssessment, userID string) error {
	if attempt.StudentID == userID {
		return nil
	}

	isElevated, err := s.isInstructorOrAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !isElevated {
		return NewPermissionError(userID, attempt.AttemptID, "attempt", "read", "not attempt owner")
	}

	return nil
}

func (s *attemptService) isInstructorOrAdmin(ctx context.Context, userID string) (bool, error) {
	isInstructor, err := s.repo.User().HasRole(ctx, userID, models.RoleInstructor)
	if err != nil {
		return false, fmt.Errorf("failed to resolve user role: %w", err)
	}
	if isInstructor {
		return true, nil
	}

	isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("failed to resolve user role: %w", err)
	}
	return isAdmin, nil
}

func (s *attemptService) buildAttemptResponse(attempt *models.StudentAssessment) *AttemptResponse {
	return &AttemptResponse{
		StudentAssessment: attempt,
		CanSubmit:         attempt.Status == models.AttemptInProgress,
	}
}

func (s *attemptService) buildAttemptResponses(attempts []*models.StudentAssessment) []*AttemptResponse {
	responses := make([]*AttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, s.buildAttemptResponse(attempt))
	}
	return responses
}

func (s *attemptService) publishCompleted(ctx context.Context, attempt *models.StudentAssessment, assessment *models.Assessment) {
	if s.eventPublisher == nil {
		return
	}

	err := s.eventPublisher.Publish(ctx, events.EventAttemptCompleted, events.AttemptCompletedEvent{
		AttemptID:    attempt.AttemptID,
		StudentID:    attempt.StudentID,
		AssessmentID: attempt.AssessmentID,
		Score:        attempt.Score,
		TotalMarks:   attempt.TotalPossible,
		IsPractice:   assessment.IsPractice,
		IsOffline:    attempt.IsOffline,
	})
	if err != nil {
		s.logger.Warn("Failed to publish attempt completed event",
			"attempt_id", attempt.AttemptID, "error", err)
	}
}

func (s *attemptService) publishReconciled(ctx context.Context, row *models.PracticeAssessment) {
	if s.eventPublisher == nil {
		return
	}

	err := s.eventPublisher.Publish(ctx, events.EventPracticeResultReconciled, events.PracticeResultReconciledEvent{
		PracticeID:   row.PracticeID,
		StudentID:    row.StudentID,
		AssessmentID: row.AssessmentID,
		Percentage:   row.Percentage,
		Grade:        row.Grade,
		Status:       string(row.Status),
	})
	if err != nil {
		s.logger.Warn("Failed to publish reconciliation event",
			"practice_id", row.PracticeID, "error", err)
	}
}
