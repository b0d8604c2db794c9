package models

import "time"

type PracticeResultStatus string

const (
	PracticeCreated   PracticeResultStatus = "CREATED"
	PracticeCompleted PracticeResultStatus = "COMPLETED"
)

// PracticeAssessment is the canonical, deduplicated per-(student, assessment)
// practice result. It is an engine-owned projection: the only legal write
// path is the reconciliation upsert, which enforces the unique key and never
// regresses a COMPLETED row to CREATED.
type PracticeAssessment struct {
	PracticeID   uint   `json:"practice_id" gorm:"primaryKey;column:practice_id"`
	StudentID    string `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_student_assessment_practice"`
	AssessmentID uint   `json:"assessment_id" gorm:"not null;uniqueIndex:idx_student_assessment_practice"`

	Title    string `json:"title" gorm:"not null;size:200"`
	UnitCode string `json:"unit_code" gorm:"not null;size:20;index"`

	Score         int     `json:"score" gorm:"not null;default:0"`
	TotalPossible int     `json:"total_possible" gorm:"not null;default:0"`
	Percentage    float64 `json:"percentage" gorm:"not null;default:0"`
	Grade         string  `json:"grade" gorm:"size:1;not null;default:F"`

	CompletionDate *time.Time           `json:"completion_date"`
	Status         PracticeResultStatus `json:"status" gorm:"default:CREATED;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PracticeAssessment) TableName() string {
	return "practice_assessments"
}
