package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campusassess/assessment-service/internal/models"
	"github.com/campusassess/assessment-service/internal/repositories"
	"github.com/campusassess/assessment-service/internal/validator"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultPracticeDurationMinutes = 30

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *questionService) Create(ctx context.Context, req *CreateQuestionRequest, creatorID string) (*QuestionResponse, error) {
	s.logger.Info("Creating question", "creator_id", creatorID, "unit_code", req.UnitCode, "type", req.Type)

	if errors := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); len(errors) > 0 {
		return nil, errors
	}

	canCreate, err := s.canManageQuestions(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("permission check failed: %w", err)
	}
	if !canCreate {
		return nil, NewPermissionError(creatorID, 0, "question", "create", "insufficient role permissions")
	}

	question, err := buildQuestion(req, creatorID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Question().Create(ctx, s.db, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.Info("Question created successfully", "question_id", question.ID)

	return &QuestionResponse{Question: question, CanEdit: true, CanDelete: true}, nil
}

func (s *questionService) GetByID(ctx context.Context, id uint, userID string) (*QuestionResponse, error) {
	question, err := s.repo.Question().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	return s.buildQuestionResponse(ctx, question, userID), nil
}

func (s *questionService) Update(ctx context.Context, id uint, req *UpdateQuestionRequest, userID string) (*QuestionResponse, error) {
	s.logger.Info("Updating question", "question_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	question, err := s.repo.Question().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	canEdit, err := s.canEditQuestion(ctx, question, userID)
	if err != nil {
		return nil, err
	}
	if !canEdit {
		return nil, NewPermissionError(userID, id, "question", "update", "not owner or insufficient permissions")
	}

	// Changing marks on a composed question would break the total-marks
	// counter of every assessment holding it.
	if req.Marks != nil && *req.Marks != question.Marks {
		composed, err := s.repo.Question().IsComposed(ctx, s.db, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check composition: %w", err)
		}
		if composed {
			return nil, NewBusinessRuleError("marks_locked", "cannot change marks of a question composed into an assessment")
		}
	}

	if err := s.applyQuestionUpdates(question, req); err != nil {
		return nil, err
	}

	if err := s.repo.Question().Update(ctx, s.db, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	s.logger.Info("Question updated successfully", "question_id", id)

	return s.buildQuestionResponse(ctx, question, userID), nil
}

func (s *questionService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting question", "question_id", id, "user_id", userID)

	question, err := s.repo.Question().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}

	canEdit, err := s.canEditQuestion(ctx, question, userID)
	if err != nil {
		return err
	}
	if !canEdit {
		return NewPermissionError(userID, id, "question", "delete", "not owner or insufficient permissions")
	}

	if err := s.repo.Question().Delete(ctx, s.db, id); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.logger.Info("Question deleted successfully", "question_id", id)
	return nil
}

func (s *questionService) List(ctx context.Context, filters repositories.QuestionFilters, userID string) (*QuestionListResponse, error) {
	// Students only see approved questions.
	isStudent, err := s.repo.User().HasRole(ctx, userID, models.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user role: %w", err)
	}
	if isStudent {
		approved := true
		filters.Approved = &approved
	}

	questions, total, err := s.repo.Question().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	responses := make([]*QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, &QuestionResponse{Question: question})
	}

	page := 1
	if filters.Limit > 0 {
		page = (filters.Offset / filters.Limit) + 1
	}

	return &QuestionListResponse{
		Questions: responses,
		Total:     total,
		Page:      page,
		Size:      len(responses),
	}, nil
}

// Approve marks a question usable in practice pools and compositions.
func (s *questionService) Approve(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Approving question", "question_id", id, "user_id", userID)

	canApprove, err := s.canManageQuestions(ctx, userID)
	if err != nil {
		return fmt.Errorf("permission check failed: %w", err)
	}
	if !canApprove {
		return NewPermissionError(userID, id, "question", "approve", "insufficient role permissions")
	}

	if err := s.repo.Question().SetApproved(ctx, s.db, id, true); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to approve question: %w", err)
	}

	return nil
}

// ===== PRACTICE GENERATION =====

// GeneratePracticeSet builds a practice assessment from randomly selected
// approved questions. A thin pool is a partial success reported through the
// shortfall fields; an empty pool fails the generation.
func (s *questionService) GeneratePracticeSet(ctx context.Context, req *GeneratePracticeRequest, studentID string) (*PracticeSetResponse, error) {
	s.logger.Info("Generating practice set",
		"student_id", studentID, "unit_code", req.UnitCode, "requested", req.QuestionCount)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	isStudent, err := s.repo.User().HasRole(ctx, studentID, models.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user role: %w", err)
	}
	if !isStudent {
		return nil, NewPermissionError(studentID, 0, "practice_set", "generate", "only students generate practice sets")
	}

	questions, err := s.repo.Question().GetRandomApproved(ctx, s.db, repositories.RandomQuestionFilters{
		UnitCode:   req.UnitCode,
		Type:       req.Type,
		Difficulty: req.Difficulty,
		Topics:     req.Topics,
		Count:      req.QuestionCount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select practice questions: %w", err)
	}

	if len(questions) == 0 {
		return nil, ErrNoQuestionsAvailable
	}

	if len(questions) < req.QuestionCount {
		s.logger.Warn("Practice pool shortfall",
			"unit_code", req.UnitCode,
			"requested", req.QuestionCount,
			"selected", len(questions))
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = defaultPracticeDurationMinutes
	}

	totalMarks := 0
	for _, question := range questions {
		totalMarks += question.Marks
	}

	assessment := &models.Assessment{
		Title:           fmt.Sprintf("%s PRACTICE %s", req.UnitCode, time.Now().Format("2006-01-02")),
		UnitCode:        req.UnitCode,
		CreatedBy:       studentID,
		DurationMinutes: duration,
		IsPractice:      true,
		IsActive:        true,
		AllowOffline:    true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Assessment().Create(ctx, tx, assessment); err != nil {
			return fmt.Errorf("failed to create practice assessment: %w", err)
		}

		for i, question := range questions {
			mapping := &models.AssessmentQuestion{
				AssessmentID: assessment.ID,
				QuestionID:   question.ID,
				Order:        i + 1,
			}
			if err := s.repo.AssessmentQuestion().Compose(ctx, tx, mapping); err != nil {
				return fmt.Errorf("failed to compose practice question: %w", err)
			}
		}

		if err := s.repo.Assessment().IncrementTotalMarks(ctx, tx, assessment.ID, totalMarks); err != nil {
			return fmt.Errorf("failed to set practice total marks: %w", err)
		}
		assessment.TotalMarks = totalMarks

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Practice set generated",
		"assessment_id", assessment.ID,
		"student_id", studentID,
		"selected", len(questions),
		"shortfall", req.QuestionCount-len(questions))

	return &PracticeSetResponse{
		Assessment: assessment,
		Questions:  questions,
		Requested:  req.QuestionCount,
		Selected:   len(questions),
		Shortfall:  req.QuestionCount - len(questions),
	}, nil
}

// ===== HELPERS =====

func (s *questionService) canManageQuestions(ctx context.Context, userID string) (bool, error) {
	isInstructor, err := s.repo.User().HasRole(ctx, userID, models.RoleInstructor)
	if err != nil {
		return false, err
	}
	if isInstructor {
		return true, nil
	}

	return s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
}

func (s *questionService) canEditQuestion(ctx context.Context, question *models.Question, userID string) (bool, error) {
	if question.CreatedBy == userID {
		return true, nil
	}
	return s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
}

func buildQuestion(req *CreateQuestionRequest, creatorID string) (*models.Question, error) {
	options, err := json.Marshal(req.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to encode options: %w", err)
	}
	answers, err := json.Marshal(req.CorrectAnswers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode correct answers: %w", err)
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}

	return &models.Question{
		Text:           strings.TrimSpace(req.Text),
		Type:           req.Type,
		Options:        datatypes.JSON(options),
		CorrectAnswers: datatypes.JSON(answers),
		Marks:          req.Marks,
		UnitCode:       req.UnitCode,
		Topic:          strings.TrimSpace(req.Topic),
		Difficulty:     difficulty,
		CreatedBy:      creatorID,
	}, nil
}

func (s *questionService) applyQuestionUpdates(question *models.Question, req *UpdateQuestionRequest) error {
	if req.Text != nil {
		question.Text = strings.TrimSpace(*req.Text)
	}
	if req.Type != nil {
		question.Type = *req.Type
	}
	if req.Options != nil {
		options, err := json.Marshal(req.Options)
		if err != nil {
			return fmt.Errorf("failed to encode options: %w", err)
		}
		question.Options = datatypes.JSON(options)
	}
	if req.CorrectAnswers != nil {
		answers, err := json.Marshal(req.CorrectAnswers)
		if err != nil {
			return fmt.Errorf("failed to encode correct answers: %w", err)
		}
		question.CorrectAnswers = datatypes.JSON(answers)
	}
	if req.Marks != nil {
		question.Marks = *req.Marks
	}
	if req.Topic != nil {
		question.Topic = strings.TrimSpace(*req.Topic)
	}
	if req.Difficulty != nil {
		question.Difficulty = *req.Difficulty
	}

	return nil
}

func (s *questionService) buildQuestionResponse(ctx context.Context, question *models.Question, userID string) *QuestionResponse {
	resp := &QuestionResponse{Question: question}

	if canEdit, err := s.canEditQuestion(ctx, question, userID); err == nil {
		resp.CanEdit = canEdit
		resp.CanDelete = canEdit
	}

	return resp
}
