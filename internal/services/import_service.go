package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/campusassess/assessment-service/internal/models"
	"github.com/campusassess/assessment-service/internal/repositories"
	"github.com/campusassess/assessment-service/internal/validator"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Expected spreadsheet columns, in order. The first row is the header and
// is skipped.
var importColumns = []string{"text", "type", "options", "correct_answers", "marks", "unit_code", "topic", "difficulty"}

type importService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewImportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) ImportService {
	return &importService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ImportQuestionsXLSX reads an XLSX question bank and creates the valid
// rows. Invalid rows are reported in the result and skipped; they never
// abort the file. Imported questions start unapproved.
func (s *importService) ImportQuestionsXLSX(ctx context.Context, r io.Reader, creatorID string) (*ImportResult, error) {
	isElevated, err := s.canImport(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if !isElevated {
		return nil, NewPermissionError(creatorID, 0, "question", "import", "insufficient role permissions")
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) <= 1 {
		return nil, NewBusinessRuleError("empty_import", "spreadsheet contains no data rows")
	}

	result := &ImportResult{}
	questions := make([]*models.Question, 0, len(rows)-1)

	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header

		req, err := s.parseRow(row)
		if err != nil {
			result.RowErrors = append(result.RowErrors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}

		if errs := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); len(errs) > 0 {
			result.RowErrors = append(result.RowErrors, fmt.Sprintf("row %d: %v", rowNum, errs.Error()))
			continue
		}

		question, err := buildQuestion(req, creatorID)
		if err != nil {
			result.RowErrors = append(result.RowErrors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		questions = append(questions, question)
	}

	if len(questions) > 0 {
		if err := s.repo.Question().CreateBatch(ctx, s.db, questions); err != nil {
			return nil, fmt.Errorf("failed to create imported questions: %w", err)
		}
		result.Created = len(questions)
	}

	s.logger.Info("Question import finished",
		"creator_id", creatorID,
		"created", result.Created,
		"rejected", len(result.RowErrors))

	return result, nil
}

// parseRow converts one spreadsheet row into a create request. Options and
// correct answers are semicolon separated within their cells.
func (s *importService) parseRow(row []string) (*CreateQuestionRequest, error) {
	if len(row) < len(importColumns) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(importColumns), len(row))
	}

	marks, err := strconv.Atoi(strings.TrimSpace(row[4]))
	if err != nil {
		return nil, fmt.Errorf("invalid marks %q", row[4])
	}

	req := &CreateQuestionRequest{
		Text:           strings.TrimSpace(row[0]),
		Type:           models.QuestionType(strings.ToLower(strings.TrimSpace(row[1]))),
		Options:        splitCell(row[2]),
		CorrectAnswers: splitCell(row[3]),
		Marks:          marks,
		UnitCode:       strings.ToUpper(strings.TrimSpace(row[5])),
		Topic:          strings.TrimSpace(row[6]),
		Difficulty:     models.DifficultyLevel(strings.ToLower(strings.TrimSpace(row[7]))),
	}

	return req, nil
}

func splitCell(cell string) []string {
	parts := strings.Split(cell, ";")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func (s *importService) canImport(ctx context.Context, userID string) (bool, error) {
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
