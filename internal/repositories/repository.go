package repositories

import "context"

// Repository aggregates all repository interfaces behind one entry point.
type Repository interface {
	// Assessment domain
	Assessment() AssessmentRepository
	AssessmentQuestion() AssessmentQuestionRepository

	// Question domain
	Question() QuestionRepository

	// Attempt domain
	Attempt() AttemptRepository

	// Canonical practice results (engine-owned)
	PracticeResult() PracticeResultRepository

	// User domain (read-only for this service)
	User() UserRepository

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager manages repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
