package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/campusassess/assessment-service/internal/events"
	"github.com/campusassess/assessment-service/internal/models"
	"gorm.io/gorm"
)

func TestNewReconciliationService(t *testing.T) {
	type args struct {
		repo   *mockRepository
		db     *gorm.DB
		logger *slog.Logger
	}
	tests := []struct {
		name string
		args args
		want ReconciliationService
	}{
		{name: "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			NewReconciliationService(newMockRepository(), tt.args.db, testLogger(), nil)
		})
	}
}

func TestReconcileAttempt(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	practice := &models.Assessment{
		ID:         10,
		Title:      "CS101 PRACTICE 2026-08-29",
		UnitCode:   "CS101",
		IsPractice: true,
		TotalMarks: 20,
	}

	t.Run("rejects non practice assessment", func(t *testing.T) {
		repo := newMockRepository()
		svc := NewReconciliationService(repo, nil, testLogger(), nil)

		attempt := &models.StudentAssessment{Status: models.AttemptCompleted}
		exam := &models.Assessment{IsPractice: false}

		_, err := svc.ReconcileAttempt(ctx, nil, attempt, exam)
		if !errors.Is(err, ErrNotPracticeAssessment) {
			t.Fatalf("expected ErrNotPracticeAssessment, got %v", err)
		}
	})

	t.Run("rejects incomplete attempt", func(t *testing.T) {
		repo := newMockRepository()
		svc := NewReconciliationService(repo, nil, testLogger(), nil)

		attempt := &models.StudentAssessment{Status: models.AttemptInProgress}

		_, err := svc.ReconcileAttempt(ctx, nil, attempt, practice)
		if !errors.Is(err, ErrAttemptNotCompleted) {
			t.Fatalf("expected ErrAttemptNotCompleted, got %v", err)
		}
	})

	t.Run("creates completed row for first reconciliation", func(t *testing.T) {
		repo := newMockRepository()
		var created *models.PracticeAssessment
		repo.practiceResult.createFn = func(result *models.PracticeAssessment) error {
			created = result
			return nil
		}

		svc := NewReconciliationService(repo, nil, testLogger(), nil)

		attempt := &models.StudentAssessment{
			StudentID:     "student-1",
			AssessmentID:  10,
			Score:         17,
			TotalPossible: 20,
			Status:        models.AttemptCompleted,
			EndTime:       &now,
		}

		row, err := svc.ReconcileAttempt(ctx, nil, attempt, practice)
		if err != nil {
			t.Fatalf("ReconcileAttempt failed: %v", err)
		}
		if created == nil {
			t.Fatal("expected a new practice result row")
		}
		if row.Status != models.PracticeCompleted {
			t.Errorf("expected COMPLETED status, got %s", row.Status)
		}
		if row.Percentage != 85 {
			t.Errorf("expected percentage 85, got %v", row.Percentage)
		}
		if row.Grade != "B" {
			t.Errorf("expected grade B, got %s", row.Grade)
		}
		if row.CompletionDate == nil || !row.CompletionDate.Equal(now) {
			t.Errorf("expected completion date %v, got %v", now, row.CompletionDate)
		}
	})

	t.Run("falls back to assessment total marks when attempt carries none", func(t *testing.T) {
		repo := newMockRepository()
		svc := NewReconciliationService(repo, nil, testLogger(), nil)

		attempt := &models.StudentAssessment{
			StudentID:    "student-1",
			AssessmentID: 10,
			Score:        10,
			Status:       models.AttemptCompleted,
			EndTime:      &now,
		}

		row, err := svc.ReconcileAttempt(ctx, nil, attempt, practice)
		if err != nil {
			t.Fatalf("ReconcileAttempt failed: %v", err)
		}
		if row.TotalPossible != 20 {
			t.Errorf("expected total possible 20, got %d", row.TotalPossible)
		}
		if row.Percentage != 50 {
			t.Errorf("expected percentage 50, got %v", row.Percentage)
		}
	})

	t.Run("rewrites existing row and keeps single canonical record", func(t *testing.T) {
		repo := newMockRepository()
		existing := &models.PracticeAssessment{
			PracticeID:   5,
			StudentID:    "student-1",
			AssessmentID: 10,
			Score:        4,
			Percentage:   20,
			Grade:        "F",
			Status:       models.PracticeCreated,
		}
		repo.practiceResult.getByKeyFn = func(studentID string, assessmentID uint) (*models.PracticeAssessment, error) {
			return existing, nil
		}
		var createCalled bool
		repo.practiceResult.createFn = func(result *models.PracticeAssessment) error {
			createCalled = true
			return nil
		}

		svc := NewReconciliationService(repo, nil, testLogger(), nil)

		attempt := &models.StudentAssessment{
			StudentID:     "student-1",
			AssessmentID:  10,
			Score:         19,
			TotalPossible: 20,
			Status:        models.AttemptCompleted,
			EndTime:       &now,
		}

		row, err := svc.ReconcileAttempt(ctx, nil, attempt, practice)
		if err != nil {
			t.Fatalf("ReconcileAttempt failed: %v", err)
		}
		if createCalled {
			t.Error("expected update of existing row, got a second create")
		}
		if row.PracticeID != 5 {
			t.Errorf("expected rewrite of row 5, got %d", row.PracticeID)
		}
		if row.Status != models.PracticeCompleted {
			t.Errorf("expected status promoted to COMPLETED, got %s", row.Status)
		}
		if row.Grade != "A" {
			t.Errorf("expected grade A, got %s", row.Grade)
		}
	})

	t.Run("replay rewrites same row idempotently", func(t *testing.T) {
		repo := newMockRepository()
		completedAt := now.Add(-time.Hour)
		existing := &models.PracticeAssessment{
			PracticeID:     5,
			StudentID:      "student-1",
			AssessmentID:   10,
			Score:          19,
			TotalPossible:  20,
			Percentage:     95,
			Grade:          "A",
			Status:         models.PracticeCompleted,
			CompletionDate: &completedAt,
		}
		repo.practiceResult.getByKeyFn = func(studentID string, assessmentID uint) (*models.PracticeAssessment, error) {
			return existing, nil
		}

		svc := NewReconciliationService(repo, nil, testLogger(), nil)

		attempt := &models.StudentAssessment{
			StudentID:     "student-1",
			AssessmentID:  10,
			Score:         19,
			TotalPossible: 20,
			Status:        models.AttemptCompleted,
			EndTime:       &completedAt,
		}

		row, err := svc.ReconcileAttempt(ctx, nil, attempt, practice)
		if err != nil {
			t.Fatalf("ReconcileAttempt failed: %v", err)
		}
		if row.Status != models.PracticeCompleted || row.Grade != "A" || row.Score != 19 {
			t.Errorf("replay changed the canonical row: %+v", row)
		}
	})
}

func TestSweepPublishesReconciliationEvents(t *testing.T) {
	ctx := context.Background()

	repo := newMockRepository()
	// No legacy rows to reconcile; the pass should complete cleanly and
	// publish nothing.
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewReconciliationService(repo, nil, testLogger(), publisher)

	result, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.AttemptRows != 0 || result.PlaceholderRows != 0 || result.Failures != 0 {
		t.Errorf("expected empty sweep result, got %+v", result)
	}
	if got := len(publisher.GetPublishedEvents()); got != 0 {
		t.Errorf("expected no events, got %d", got)
	}
}

func TestSweepSkipsPlaceholderForNonStudentCreator(t *testing.T) {
	ctx := context.Background()

	repo := newMockRepository()
	repo.practiceResult.findUnattemptedPracticeFn = func() ([]*models.Assessment, error) {
		return []*models.Assessment{{
			ID:         30,
			Title:      "CS101 PRACTICE 2026-08-29",
			UnitCode:   "CS101",
			CreatedBy:  "instructor-1",
			IsPractice: true,
		}}, nil
	}
	repo.user.hasRoleFn = func(id string, role models.UserRole) (bool, error) {
		return false, nil
	}
	var createCalled bool
	repo.practiceResult.createFn = func(result *models.PracticeAssessment) error {
		createCalled = true
		return nil
	}

	svc := NewReconciliationService(repo, nil, testLogger(), nil)

	result, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if createCalled {
		t.Error("expected no placeholder for instructor-authored practice")
	}
	if result.PlaceholderRows != 0 {
		t.Errorf("expected zero placeholder rows, got %d", result.PlaceholderRows)
	}
}
