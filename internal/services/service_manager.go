package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/campusassess/assessment-service/internal/events"
	"github.com/campusassess/assessment-service/internal/repositories"
	"github.com/campusassess/assessment-service/internal/validator"
	"gorm.io/gorm"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// ActivationInterval is how often the activation scheduler sweeps
	// availability windows.
	ActivationInterval time.Duration

	// StartupSweep runs one reconciliation pass during Initialize so the
	// canonical practice table is caught up before traffic arrives.
	StartupSweep bool

	// SchedulerEnabled controls whether the activation loop starts.
	// RunOnce stays available either way.
	SchedulerEnabled bool

	DefaultTimeout time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db             *gorm.DB
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
	config         ServiceManagerConfig

	// Service instances
	assessmentService     AssessmentService
	questionService       QuestionService
	attemptService        AttemptService
	practiceResultService PracticeResultService
	reconciliationService ReconciliationService
	activationScheduler   ActivationScheduler
	importService         ImportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:             db,
		repo:           repo,
		logger:         logger,
		validator:      validator,
		eventPublisher: eventPublisher,
		config:         config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher) ServiceManager {
	config := ServiceManagerConfig{
		ActivationInterval: time.Minute,
		StartupSweep:       true,
		SchedulerEnabled:   true,
		DefaultTimeout:     30 * time.Second,
	}

	return NewServiceManager(db, repo, logger, validator, eventPublisher, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	sm.initializeServices()

	if sm.config.StartupSweep {
		result, err := sm.reconciliationService.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("startup reconciliation sweep failed: %w", err)
		}
		sm.logger.Info("Startup reconciliation sweep finished",
			"attempt_rows", result.AttemptRows,
			"placeholder_rows", result.PlaceholderRows,
			"failures", result.Failures)
	}

	if sm.config.SchedulerEnabled {
		if err := sm.activationScheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start activation scheduler: %w", err)
		}
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() {
	sm.reconciliationService = NewReconciliationService(sm.repo, sm.db, sm.logger, sm.eventPublisher)
	sm.logger.Info("Reconciliation service initialized")

	sm.assessmentService = NewAssessmentService(sm.repo, sm.db, sm.logger, sm.validator)
	sm.logger.Info("Assessment service initialized")

	sm.questionService = NewQuestionService(sm.repo, sm.db, sm.logger, sm.validator)
	sm.logger.Info("Question service initialized")

	sm.attemptService = NewAttemptService(sm.repo, sm.db, sm.logger, sm.validator, sm.reconciliationService, sm.eventPublisher)
	sm.logger.Info("Attempt service initialized")

	sm.practiceResultService = NewPracticeResultService(sm.repo, sm.db, sm.logger)
	sm.logger.Info("Practice result service initialized")

	sm.importService = NewImportService(sm.repo, sm.db, sm.logger, sm.validator)
	sm.logger.Info("Import service initialized")

	sm.activationScheduler = NewActivationScheduler(sm.repo, sm.db, sm.logger, sm.eventPublisher, sm.config.ActivationInterval)
	sm.logger.Info("Activation scheduler initialized")
}

// ===== SERVICE GETTERS =====

func (sm *serviceManager) Assessment() AssessmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.assessmentService
}

func (sm *serviceManager) Question() QuestionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.questionService
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.attemptService
}

func (sm *serviceManager) PracticeResult() PracticeResultService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.practiceResultService
}

func (sm *serviceManager) Reconciliation() ReconciliationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.reconciliationService
}

func (sm *serviceManager) Scheduler() ActivationScheduler {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.activationScheduler
}

func (sm *serviceManager) Import() ImportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.importService
}

// ===== LIFECYCLE =====

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.activationScheduler != nil {
		sm.activationScheduler.Stop()
	}

	if sm.eventPublisher != nil {
		if err := sm.eventPublisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}
