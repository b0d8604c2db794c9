package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/campusassess/assessment-service/internal/models"
	"github.com/campusassess/assessment-service/internal/repositories"
	"github.com/campusassess/assessment-service/internal/validator"
	"gorm.io/gorm"
)

func TestNewQuestionService(t *testing.T) {
	type args struct {
		repo      repositories.Repository
		db        *gorm.DB
		logger    *slog.Logger
		validator *validator.Validator
	}
	tests := []struct {
		name string
		args args
		want QuestionService
	}{
		{name: "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			NewQuestionService(newMockRepository(), tt.args.db, testLogger(), testValidator(t))
		})
	}
}

func TestQuestionCreateValidation(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	svc := NewQuestionService(repo, nil, testLogger(), testValidator(t))

	t.Run("rejects multiple choice with one option", func(t *testing.T) {
		req := &CreateQuestionRequest{
			Text:           "Pick one",
			Type:           models.MultipleChoice,
			Options:        []string{"only"},
			CorrectAnswers: []string{"only"},
			Marks:          5,
			UnitCode:       "CS101",
		}

		_, err := svc.Create(ctx, req, "instructor-1")
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("expected validation errors, got %v", err)
		}
	})

	t.Run("rejects correct answer missing from options", func(t *testing.T) {
		req := &CreateQuestionRequest{
			Text:           "Pick one",
			Type:           models.MultipleChoice,
			Options:        []string{"a", "b"},
			CorrectAnswers: []string{"c"},
			Marks:          5,
			UnitCode:       "CS101",
		}

		_, err := svc.Create(ctx, req, "instructor-1")
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("expected validation errors, got %v", err)
		}
	})

	t.Run("rejects bad unit code", func(t *testing.T) {
		req := &CreateQuestionRequest{
			Text:           "Define a monad",
			Type:           models.ShortAnswer,
			CorrectAnswers: []string{"a monoid in the category of endofunctors"},
			Marks:          5,
			UnitCode:       "not-a-unit",
		}

		_, err := svc.Create(ctx, req, "instructor-1")
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("expected validation errors, got %v", err)
		}
	})

	t.Run("rejects students", func(t *testing.T) {
		req := &CreateQuestionRequest{
			Text:           "Define a monad",
			Type:           models.ShortAnswer,
			CorrectAnswers: []string{"an answer"},
			Marks:          5,
			UnitCode:       "CS101",
		}

		_, err := svc.Create(ctx, req, "student-1")
		if !IsPermissionError(err) {
			t.Fatalf("expected permission error, got %v", err)
		}
	})
}

func TestGeneratePracticeSet(t *testing.T) {
	ctx := context.Background()

	studentRole := func(id string, role models.UserRole) (bool, error) {
		return role == models.RoleStudent, nil
	}

	t.Run("empty pool fails generation", func(t *testing.T) {
		repo := newMockRepository()
		repo.user.hasRoleFn = studentRole
		repo.question.getRandomApprovedFn = func(filters repositories.RandomQuestionFilters) ([]*models.Question, error) {
			return nil, nil
		}

		svc := NewQuestionService(repo, nil, testLogger(), testValidator(t))

		req := &GeneratePracticeRequest{UnitCode: "CS101", QuestionCount: 10}
		_, err := svc.GeneratePracticeSet(ctx, req, "student-1")
		if !errors.Is(err, ErrNoQuestionsAvailable) {
			t.Fatalf("expected ErrNoQuestionsAvailable, got %v", err)
		}
	})

	t.Run("non students cannot generate", func(t *testing.T) {
		repo := newMockRepository()
		repo.user.hasRoleFn = func(id string, role models.UserRole) (bool, error) {
			return false, nil
		}

		svc := NewQuestionService(repo, nil, testLogger(), testValidator(t))

		req := &GeneratePracticeRequest{UnitCode: "CS101", QuestionCount: 10}
		_, err := svc.GeneratePracticeSet(ctx, req, "instructor-1")
		if !IsPermissionError(err) {
			t.Fatalf("expected permission error, got %v", err)
		}
	})

	t.Run("rejects out of range question count", func(t *testing.T) {
		repo := newMockRepository()
		repo.user.hasRoleFn = studentRole

		svc := NewQuestionService(repo, nil, testLogger(), testValidator(t))

		req := &GeneratePracticeRequest{UnitCode: "CS101", QuestionCount: 500}
		_, err := svc.GeneratePracticeSet(ctx, req, "student-1")
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("expected validation errors, got %v", err)
		}
	})
}
