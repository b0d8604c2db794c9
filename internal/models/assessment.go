package models

import (
	"time"

	"gorm.io/gorm"
)

type Assessment struct {
	ID              uint   `json:"id" gorm:"primaryKey"`
	Title           string `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	UnitCode        string `json:"unit_code" gorm:"not null;size:20;index" validate:"required,unit_code"`
	CreatedBy       string `json:"created_by" gorm:"not null;index;size:255"`
	DurationMinutes int    `json:"duration_minutes" gorm:"not null" validate:"required,min=5,max=300"`

	// Availability window. An assessment with either bound missing is never
	// auto-activated by the scheduler; is_active then only changes by hand.
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	IsActive  bool       `json:"is_active" gorm:"not null;default:false;index"`

	IsPractice   bool `json:"is_practice" gorm:"not null;default:false;index"`
	AllowOffline bool `json:"allow_offline" gorm:"not null;default:false"`

	// TotalMarks is maintained transactionally by question composition and
	// must always equal the sum of marks over composed questions.
	TotalMarks int `json:"total_marks" gorm:"not null;default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []AssessmentQuestion `json:"questions" gorm:"foreignKey:AssessmentID"`
	Attempts  []StudentAssessment  `json:"attempts" gorm:"foreignKey:AssessmentID"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// ShouldBeActive reports whether the assessment's window contains now.
// The window is half-open: active at start_time, inactive again at end_time.
func (a *Assessment) ShouldBeActive(now time.Time) bool {
	if a.StartTime == nil || a.EndTime == nil {
		return false
	}
	return !now.Before(*a.StartTime) && now.Before(*a.EndTime)
}

// EffectiveActive is the activation state readers act on. Windowed
// assessments follow the window even when the stored flag lags a scheduler
// tick; unscheduled assessments keep the manually set flag.
func (a *Assessment) EffectiveActive(now time.Time) bool {
	if a.StartTime == nil || a.EndTime == nil {
		return a.IsActive
	}
	return a.ShouldBeActive(now)
}
