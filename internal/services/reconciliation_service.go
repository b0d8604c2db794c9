package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusassess/assessment-service/internal/events"
	"github.com/campusassess/assessment-service/internal/models"
	"github.com/campusassess/assessment-service/internal/repositories"
	"gorm.io/gorm"
)

// reconciliationService owns the canonical practice result table. Everything
// that writes practice_assessments funnels through here: the in-transaction
// path on attempt submission and the batch sweep over legacy data.
type reconciliationService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	eventPublisher events.EventPublisher
}

func NewReconciliationService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, eventPublisher events.EventPublisher) ReconciliationService {
	return &reconciliationService{
		repo:           repo,
		db:             db,
		logger:         logger,
		eventPublisher: eventPublisher,
	}
}

// ReconcileAttempt upserts the canonical row for a completed practice attempt
// inside the caller's transaction. The unique (student_id, assessment_id) key
// makes the upsert idempotent: replays rewrite the same row.
func (s *reconciliationService) ReconcileAttempt(ctx context.Context, tx *gorm.DB, attempt *models.StudentAssessment, assessment *models.Assessment) (*models.PracticeAssessment, error) {
	if !assessment.IsPractice {
		return nil, ErrNotPracticeAssessment
	}
	if attempt.Status != models.AttemptCompleted {
		return nil, ErrAttemptNotCompleted
	}

	totalPossible := attempt.TotalPossible
	if totalPossible == 0 {
		totalPossible = assessment.TotalMarks
	}

	percentage := Percentage(attempt.Score, totalPossible)
	grade := GradeFor(percentage)

	completionDate := attempt.EndTime
	if completionDate == nil {
		now := time.Now()
		completionDate = &now
	}

	existing, err := s.repo.PracticeResult().GetByKey(ctx, tx, attempt.StudentID, attempt.AssessmentID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up practice result: %w", err)
	}

	if existing == nil {
		result := &models.PracticeAssessment{
			StudentID:      attempt.StudentID,
			AssessmentID:   attempt.AssessmentID,
			Title:          assessment.Title,
			UnitCode:       assessment.UnitCode,
			Score:          attempt.Score,
			TotalPossible:  totalPossible,
			Percentage:     percentage,
			Grade:          grade,
			CompletionDate: completionDate,
			Status:         models.PracticeCompleted,
		}
		if err := s.repo.PracticeResult().Create(ctx, tx, result); err != nil {
			return nil, fmt.Errorf("failed to create practice result: %w", err)
		}
		return result, nil
	}

	// A completed attempt always carries fresher data than the stored row;
	// status moves to COMPLETED and never back.
	existing.Title = assessment.Title
	existing.UnitCode = assessment.UnitCode
	existing.Score = attempt.Score
	existing.TotalPossible = totalPossible
	existing.Percentage = percentage
	existing.Grade = grade
	existing.CompletionDate = completionDate
	existing.Status = models.PracticeCompleted

	if err := s.repo.PracticeResult().Update(ctx, tx, existing); err != nil {
		return nil, fmt.Errorf("failed to update practice result: %w", err)
	}

	return existing, nil
}

// Sweep reconciles both legacy sources in one pass. Each row gets its own
// transaction; a bad row is logged and skipped so the rest of the batch
// still lands.
func (s *reconciliationService) Sweep(ctx context.Context) (*SweepResult, error) {
	s.logger.Info("Starting practice result reconciliation sweep")
	result := &SweepResult{}

	attempts, err := s.repo.PracticeResult().FindUnreconciledAttempts(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to find unreconciled attempts: %w", err)
	}

	for _, attempt := range attempts {
		if err := s.reconcileSweptAttempt(ctx, attempt); err != nil {
			result.Failures++
			s.logger.Error("Failed to reconcile attempt",
				"attempt_id", attempt.AttemptID,
				"student_id", attempt.StudentID,
				"assessment_id", attempt.AssessmentID,
				"error", err)
			continue
		}
		result.AttemptRows++
	}

	unattempted, err := s.repo.PracticeResult().FindUnattemptedPractice(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to find unattempted practice assessments: %w", err)
	}

	for _, assessment := range unattempted {
		created, err := s.createPlaceholder(ctx, assessment)
		if err != nil {
			result.Failures++
			s.logger.Error("Failed to create practice placeholder",
				"assessment_id", assessment.ID,
				"student_id", assessment.CreatedBy,
				"error", err)
			continue
		}
		if created {
			result.PlaceholderRows++
		}
	}

	s.logger.Info("Reconciliation sweep completed",
		"attempt_rows", result.AttemptRows,
		"placeholder_rows", result.PlaceholderRows,
		"failures", result.Failures)

	return result, nil
}

func (s *reconciliationService) reconcileSweptAttempt(ctx context.Context, attempt *models.StudentAssessment) error {
	var row *models.PracticeAssessment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = s.ReconcileAttempt(ctx, tx, attempt, &attempt.Assessment)
		return err
	})
	if err != nil {
		return err
	}

	s.publishReconciled(ctx, row)
	return nil
}

// createPlaceholder inserts a CREATED row for generated-but-untaken practice.
// It never touches an existing row: a placeholder must not regress a
// completed result.
func (s *reconciliationService) createPlaceholder(ctx context.Context, assessment *models.Assessment) (bool, error) {
	// Only self-created practice by actual students gets a placeholder;
	// instructor-authored practice assessments have no implied taker.
	isStudent, err := s.repo.User().HasRole(ctx, assessment.CreatedBy, models.RoleStudent)
	if err != nil {
		return false, fmt.Errorf("failed to resolve creator role: %w", err)
	}
	if !isStudent {
		return false, nil
	}

	var row *models.PracticeAssessment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.PracticeResult().GetByKey(ctx, tx, assessment.CreatedBy, assessment.ID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to look up practice result: %w", err)
		}
		if existing != nil {
			return nil
		}

		row = &models.PracticeAssessment{
			StudentID:     assessment.CreatedBy,
			AssessmentID:  assessment.ID,
			Title:         assessment.Title,
			UnitCode:      assessment.UnitCode,
			TotalPossible: assessment.TotalMarks,
			Percentage:    0,
			Grade:         GradeFor(0),
			Status:        models.PracticeCreated,
		}
		return s.repo.PracticeResult().Create(ctx, tx, row)
	})
	if err != nil {
		return false, err
	}
	if row == nil {
		return false, nil
	}

	s.publishReconciled(ctx, row)
	return true, nil
}

func (s *reconciliationService) publishReconciled(ctx context.Context, row *models.PracticeAssessment) {
	if s.eventPublisher == nil || row == nil {
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
