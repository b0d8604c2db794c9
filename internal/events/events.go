package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published by this service.
const (
	EventAssessmentActivated      = "assessment.activated"
	EventAssessmentDeactivated    = "assessment.deactivated"
	EventAttemptCompleted         = "attempt.completed"
	EventPracticeResultReconciled = "practice_result.reconciled"
)

// Event is the envelope shared by all published events.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent wraps a payload in the standard envelope.
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "assessment-service",
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes domain events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
	Close() error
}

// ===== EVENT PAYLOADS =====

type AssessmentActivationEvent struct {
	AssessmentID uint   `json:"assessment_id"`
	UnitCode     string `json:"unit_code"`
	IsActive     bool   `json:"is_active"`
}

type AttemptCompletedEvent struct {
	AttemptID    uint   `json:"attempt_id"`
	StudentID    string `json:"student_id"`
	AssessmentID uint   `json:"assessment_id"`
	Score        int    `json:"score"`
	TotalMarks   int    `json:"total_marks"`
	IsPractice   bool   `json:"is_practice"`
	IsOffline    bool   `json:"is_offline"`
}

type PracticeResultReconciledEvent struct {
	PracticeID   uint    `json:"practice_id"`
	StudentID    string  `json:"student_id"`
	AssessmentID uint    `json:"assessment_id"`
	Percentage   float64 `json:"percentage"`
	Grade        string  `json:"grade"`
	Status       string  `json:"status"`
}
