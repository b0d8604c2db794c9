package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	ShortAnswer    QuestionType = "short_answer"
	ListBased      QuestionType = "list_based"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

type Question struct {
	ID   uint         `json:"id" gorm:"primaryKey"`
	Text string       `json:"text" gorm:"type:text;not null" validate:"required"`
	Type QuestionType `json:"type" gorm:"not null;index" validate:"required,question_type"`

	// Options is an ordered []string; CorrectAnswers is the accepted answer
	// set. Both stored as JSONB for flexibility across question types.
	Options        datatypes.JSON `json:"options" gorm:"type:jsonb"`
	CorrectAnswers datatypes.JSON `json:"correct_answers" gorm:"type:jsonb"`

	Marks      int             `json:"marks" gorm:"not null;default:1" validate:"required,min=1,max=100"`
	UnitCode   string          `json:"unit_code" gorm:"not null;size:20;index" validate:"required,unit_code"`
	Topic      string          `json:"topic" gorm:"size:100;index"`
	Difficulty DifficultyLevel `json:"difficulty" gorm:"default:medium;index" validate:"omitempty,difficulty_level"`
	Approved   bool            `json:"approved" gorm:"not null;default:false;index"`

	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// AssessmentQuestion is the ordered composition mapping between assessments
// and questions, unique per (assessment_id, question_id).
type AssessmentQuestion struct {
	ID           uint `json:"id" gorm:"primaryKey"`
	AssessmentID uint `json:"assessment_id" gorm:"not null;index;uniqueIndex:idx_assessment_question"`
	QuestionID   uint `json:"question_id" gorm:"not null;index;uniqueIndex:idx_assessment_question"`
	Order        int  `json:"order" gorm:"column:order;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Assessment Assessment `json:"-" gorm:"foreignKey:AssessmentID"`
	Question   Question   `json:"question" gorm:"foreignKey:QuestionID"`
}

func (AssessmentQuestion) TableName() string {
	return "assessment_questions"
}
