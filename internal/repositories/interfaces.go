package repositories

import (
	"time"

	"github.com/campusassess/assessment-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type AssessmentFilters struct {
	UnitCode   *string `json:"unit_code"`
	CreatedBy  *string `json:"created_by"`
	IsActive   *bool   `json:"is_active"`
	IsPractice *bool   `json:"is_practice"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
	SortBy     string  `json:"sort_by"`    // "created_at", "title", "start_time"
	SortOrder  string  `json:"sort_order"` // "asc", "desc"
}

type QuestionFilters struct {
	UnitCode   *string                 `json:"unit_code"`
	Type       *models.QuestionType    `json:"type"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
	Topic      *string                 `json:"topic"`
	Approved   *bool                   `json:"approved"`
	CreatedBy  *string                 `json:"created_by"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
	SortBy     string                  `json:"sort_by"`
	SortOrder  string                  `json:"sort_order"`
}

// RandomQuestionFilters selects a randomized pool for practice generation.
// Only approved questions are ever returned.
type RandomQuestionFilters struct {
	UnitCode   string                  `json:"unit_code"`
	Type       *models.QuestionType    `json:"type"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
	Topics     []string                `json:"topics"`
	ExcludeIDs []uint                  `json:"exclude_ids"`
	Count      int                     `json:"count"`
}

type AttemptFilters struct {
	Status       *models.AttemptStatus `json:"status"`
	StudentID    *string               `json:"student_id"`
	AssessmentID *uint                 `json:"assessment_id"`
	DateFrom     *time.Time            `json:"date_from"`
	DateTo       *time.Time            `json:"date_to"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
	SortBy       string                `json:"sort_by"`
	SortOrder    string                `json:"sort_order"`
}

type PracticeResultFilters struct {
	StudentID *string                      `json:"student_id"`
	UnitCode  *string                      `json:"unit_code"`
	Status    *models.PracticeResultStatus `json:"status"`
	Limit     int                          `json:"limit"`
	Offset    int                          `json:"offset"`
}

type UserFilters struct {
	Query  string
	Limit  int
	Offset int
}

// ===== SHARED STATISTICS STRUCTS =====

type AssessmentStats struct {
	TotalAttempts     int     `json:"total_attempts"`
	CompletedAttempts int     `json:"completed_attempts"`
	AverageScore      float64 `json:"average_score"`
	QuestionCount     int     `json:"question_count"`
	TotalMarks        int     `json:"total_marks"`
}

type UnitStats struct {
	TotalAssessments  int `json:"total_assessments"`
	ActiveAssessments int `json:"active_assessments"`
	PracticeCount     int `json:"practice_count"`
	QuestionCount     int `json:"question_count"`
	ApprovedQuestions int `json:"approved_questions"`
}
