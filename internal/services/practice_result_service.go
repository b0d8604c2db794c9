package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campusassess/assessment-service/internal/models"
	"github.com/campusassess/assessment-service/internal/repositories"
	"gorm.io/gorm"
)

// practiceResultService is the read-only reporting surface over canonical
// practice results. All writes happen in the reconciliation engine.
type practiceResultService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewPracticeResultService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) PracticeResultService {
	return &practiceResultService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

func (s *practiceResultService) GetByStudent(ctx context.Context, studentID string, filters repositories.PracticeResultFilters, userID string) (*PracticeResultListResponse, error) {
	if studentID != userID {
		isElevated, err := s.isInstructorOrAdmin(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !isElevated {
			return nil, NewPermissionError(userID, 0, "practice_result", "read", "cannot read another student's practice results")
		}
	}

	results, total, err := s.repo.PracticeResult().GetByStudent(ctx, s.db, studentID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get practice results: %w", err)
	}

	return &PracticeResultListResponse{Results: results, Total: total}, nil
}

func (s *practiceResultService) List(ctx context.Context, filters repositories.PracticeResultFilters, userID string) (*PracticeResultListResponse, error) {
	isElevated, err := s.isInstructorOrAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !isElevated {
		return nil, NewPermissionError(userID, 0, "practice_result", "list", "insufficient role permissions")
	}

	results, total, err := s.repo.PracticeResult().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list practice results: %w", err)
	}

	return &PracticeResultListResponse{Results: results, Total: total}, nil
}

func (s *practiceResultService) isInstructorOrAdmin(ctx context.Context, userID string) (bool, error) {
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
