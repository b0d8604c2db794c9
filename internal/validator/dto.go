package validator

import (
	"time"

	"github.com/campusassess/assessment-service/internal/models"
)

// AssessmentCreateRequest represents the request structure for creating assessments
type AssessmentCreateRequest struct {
	Title           string     `json:"title" validate:"required,min=1,max=200"`
	UnitCode        string     `json:"unit_code" validate:"required,unit_code"`
	DurationMinutes int        `json:"duration_minutes" validate:"required,assessment_duration"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	IsPractice      bool       `json:"is_practice"`
	AllowOffline    bool       `json:"allow_offline"`
}

// AssessmentUpdateRequest represents the request structure for updating assessments
type AssessmentUpdateRequest struct {
	Title           *string    `json:"title" validate:"omitempty,min=1,max=200"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,assessment_duration"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	AllowOffline    *bool      `json:"allow_offline"`
}

// ComposeQuestionRequest represents adding a question to an assessment
type ComposeQuestionRequest struct {
	QuestionID uint `json:"question_id" validate:"required"`
	Order      *int `json:"order" validate:"omitempty,min=1"`
}

// QuestionCreateRequest represents the request structure for creating questions
type QuestionCreateRequest struct {
	Text           string                 `json:"text" validate:"required,min=1,max=2000"`
	Type           models.QuestionType    `json:"type" validate:"required,question_type"`
	Options        []string               `json:"options" validate:"omitempty,max=10,dive,max=500"`
	CorrectAnswers []string               `json:"correct_answers" validate:"required,min=1,dive,max=500"`
	Marks          int                    `json:"marks" validate:"required,marks_range"`
	UnitCode       string                 `json:"unit_code" validate:"required,unit_code"`
	Topic          string                 `json:"topic" validate:"omitempty,max=100"`
	Difficulty     models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
}

// QuestionUpdateRequest represents the request structure for updating questions
type QuestionUpdateRequest struct {
	Text           *string                 `json:"text" validate:"omitempty,min=1,max=2000"`
	Type           *models.QuestionType    `json:"type" validate:"omitempty,question_type"`
	Options        []string                `json:"options" validate:"omitempty,max=10,dive,max=500"`
	CorrectAnswers []string                `json:"correct_answers" validate:"omitempty,min=1,dive,max=500"`
	Marks          *int                    `json:"marks" validate:"omitempty,marks_range"`
	Topic          *string                 `json:"topic" validate:"omitempty,max=100"`
	Difficulty     *models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
}

// ResponseSubmission is one answered question inside an attempt submission
type ResponseSubmission struct {
	QuestionID   uint   `json:"question_id" validate:"required"`
	ResponseText string `json:"response_text" validate:"max=5000"`
	IsCorrect    bool   `json:"is_correct"`
	MarksAwarded int    `json:"marks_awarded" validate:"min=0"`
}

// AttemptSubmitRequest represents a completed or synced attempt submission
type AttemptSubmitRequest struct {
	AttemptID    uint                 `json:"attempt_id"`
	AssessmentID uint                 `json:"assessment_id" validate:"required"`
	Score        int                  `json:"score" validate:"min=0"`
	StartTime    *time.Time           `json:"start_time"`
	EndTime      *time.Time           `json:"end_time"`
	IsOffline    bool                 `json:"is_offline"`
	SessionData  map[string]any       `json:"session_data"`
	Responses    []ResponseSubmission `json:"responses" validate:"required,min=1,dive"`
}

// PracticeGenerateRequest represents a request for a generated practice set
type PracticeGenerateRequest struct {
	UnitCode        string                  `json:"unit_code" validate:"required,unit_code"`
	QuestionCount   int                     `json:"question_count" validate:"required,min=1,max=50"`
	Topics          []string                `json:"topics" validate:"omitempty,max=10,dive,max=100"`
	Difficulty      *models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Type            *models.QuestionType    `json:"type" validate:"omitempty,question_type"`
	DurationMinutes int                     `json:"duration_minutes" validate:"omitempty,assessment_duration"`
}
