package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptNotStarted AttemptStatus = "NOT_STARTED"
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	AttemptCompleted  AttemptStatus = "COMPLETED"
)

// StudentAssessment is one student's recorded pass through an assessment.
// Multiple attempts over time are distinct rows; at most one is in progress
// per (student, assessment) at a time.
type StudentAssessment struct {
	AttemptID    uint   `json:"attempt_id" gorm:"primaryKey;column:attempt_id"`
	StudentID    string `json:"student_id" gorm:"not null;index;size:255"`
	AssessmentID uint   `json:"assessment_id" gorm:"not null;index"`

	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`

	Score         int           `json:"score" gorm:"not null;default:0"`
	TotalPossible int           `json:"total_possible" gorm:"not null;default:0"`
	Status        AttemptStatus `json:"status" gorm:"default:NOT_STARTED;index"`
	IsOffline     bool          `json:"is_offline" gorm:"not null;default:false"`

	// Client metadata captured at submission (browser, device, sync origin).
	SessionData datatypes.JSON `json:"session_data" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Assessment Assessment        `json:"assessment" gorm:"foreignKey:AssessmentID"`
	Responses  []StudentResponse `json:"responses" gorm:"foreignKey:AttemptID"`
}

func (StudentAssessment) TableName() string {
	return "student_assessments"
}

type StudentResponse struct {
	ResponseID uint `json:"response_id" gorm:"primaryKey;column:response_id"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;index"`
	QuestionID uint `json:"question_id" gorm:"not null;index"`

	ResponseText string  `json:"response_text" gorm:"type:text"`
	IsCorrect    bool    `json:"is_correct"`
	MarksAwarded int     `json:"marks_awarded"`
	Feedback     *string `json:"feedback" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Question Question `json:"question" gorm:"foreignKey:QuestionID"`
}

func (StudentResponse) TableName() string {
	return "student_responses"
}
