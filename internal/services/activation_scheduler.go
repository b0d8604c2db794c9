package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/campusassess/assessment-service/internal/events"
	"github.com/campusassess/assessment-service/internal/repositories"
	"gorm.io/gorm"
)

const defaultActivationInterval = time.Minute

type activationScheduler struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	eventPublisher events.EventPublisher
	interval       time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewActivationScheduler(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, eventPublisher events.EventPublisher, interval time.Duration) ActivationScheduler {
	if interval <= 0 {
		interval = defaultActivationInterval
	}
	return &activationScheduler{
		repo:           repo,
		db:             db,
		logger:         logger,
		eventPublisher: eventPublisher,
		interval:       interval,
	}
}

// Start launches the periodic sweep loop. It returns immediately; sweeps run
// on a background goroutine until Stop is called or ctx is cancelled.
func (s *activationScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("activation scheduler already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.running = true

	go s.loop(runCtx, done)

	s.logger.Info("Activation scheduler started", "interval", s.interval)
	return nil
}

func (s *activationScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("Activation scheduler stopped")
}

// loop closes the done channel it was started with, never the current field
// value, so a restart cannot strand an earlier Stop waiter.
func (s *activationScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error("Activation sweep failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single activation sweep. Each candidate is handled
// independently; a failed row is logged and counted, never aborts the sweep.
func (s *activationScheduler) RunOnce(ctx context.Context) (*ActivationSweepResult, error) {
	candidates, err := s.repo.Assessment().ListActivationCandidates(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to list activation candidates: %w", err)
	}

	now := time.Now()
	result := &ActivationSweepResult{Examined: len(candidates)}

	for _, assessment := range candidates {
		desired := assessment.ShouldBeActive(now)
		if assessment.IsActive == desired {
			continue
		}

		changed, err := s.repo.Assessment().SetActiveFlag(ctx, s.db, assessment.ID, desired)
		if err != nil {
			result.Failures++
			s.logger.Error("Failed to update activation state",
				"assessment_id", assessment.ID, "desired", desired, "error", err)
			continue
		}
		if !changed {
			// Another sweep or writer got there first.
			continue
		}

		if desired {
			result.Activated++
			s.logger.Info("Assessment activated",
				"assessment_id", assessment.ID, "unit_code", assessment.UnitCode)
		} else {
			result.Deactivated++
			s.logger.Info("Assessment deactivated",
				"assessment_id", assessment.ID, "unit_code", assessment.UnitCode)
		}

		s.publishActivation(ctx, assessment.ID, assessment.UnitCode, desired)
	}

	if result.Activated > 0 || result.Deactivated > 0 || result.Failures > 0 {
		s.logger.Info("Activation sweep finished",
			"examined", result.Examined,
			"activated", result.Activated,
			"deactivated", result.Deactivated,
			"failures", result.Failures)
	}

	return result, nil
}

func (s *activationScheduler) publishActivation(ctx context.Context, assessmentID uint, unitCode string, active bool) {
	if s.eventPublisher == nil {
		return
	}

	eventType := events.EventAssessmentDeactivated
	if active {
		eventType = events.EventAssessmentActivated
	}

	err := s.eventPublisher.Publish(ctx, eventType, events.AssessmentActivationEvent{
		AssessmentID: assessmentID,
		UnitCode:     unitCode,
		IsActive:     active,
	})
	if err != nil {
		s.logger.Warn("Failed to publish activation event",
			"assessment_id", assessmentID, "error", err)
	}
}
