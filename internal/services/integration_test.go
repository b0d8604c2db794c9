package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/campusassess/assessment-service/internal/models"
	"github.com/campusassess/assessment-service/internal/repositories"
	pgrepo "github.com/campusassess/assessment-service/internal/repositories/postgres"
	"github.com/campusassess/assessment-service/internal/validator"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Integration tests run against a real PostgreSQL instance. Set
// TEST_DATABASE_URL to enable them, e.g.
//
//	TEST_DATABASE_URL="host=localhost user=postgres dbname=assessment_test sslmode=disable" go test ./internal/services/
//
// Each test starts from truncated tables.

// fakeUserRepository replaces the identity provider for integration tests.
type fakeUserRepository struct {
	roles map[string]models.UserRole
}

func (f *fakeUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	role, ok := f.roles[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}
	return &models.User{ID: id, FullName: id, Email: id + "@test.local", Role: role}, nil
}

func (f *fakeUserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, err := f.GetByID(ctx, id); err == nil {
			users = append(users, u)
		}
	}
	return users, nil
}

func (f *fakeUserRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, ok := f.roles[id]
	return ok, nil
}

func (f *fakeUserRepository) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	return f.roles[id] == role, nil
}

// integrationRepository is the real PostgreSQL repository with the user
// lookups swapped for a static fixture.
type integrationRepository struct {
	repositories.Repository
	users repositories.UserRepository
}

func (r *integrationRepository) User() repositories.UserRepository { return r.users }

type integrationEnv struct {
	db   *gorm.DB
	repo repositories.Repository
}

func setupIntegration(t *testing.T) *integrationEnv {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Assessment{},
		&models.Question{},
		&models.AssessmentQuestion{},
		&models.StudentAssessment{},
		&models.StudentResponse{},
		&models.PracticeAssessment{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	tables := []string{
		"student_responses",
		"student_assessments",
		"assessment_questions",
		"practice_assessments",
		"questions",
		"assessments",
	}
	for _, table := range tables {
		if err := db.Exec("TRUNCATE TABLE " + table + " RESTART IDENTITY CASCADE").Error; err != nil {
			t.Fatalf("failed to truncate %s: %v", table, err)
		}
	}

	users := &fakeUserRepository{roles: map[string]models.UserRole{
		"instructor-1": models.RoleInstructor,
		"admin-1":      models.RoleAdmin,
		"student-1":    models.RoleStudent,
		"student-2":    models.RoleStudent,
	}}

	base := pgrepo.NewPostgreSQLRepository(pgrepo.RepositoryConfig{DB: db})
	repo := &integrationRepository{Repository: base, users: users}

	return &integrationEnv{db: db, repo: repo}
}

func (e *integrationEnv) seedQuestion(t *testing.T, unitCode string, marks int, approved bool) *models.Question {
	t.Helper()

	question := &models.Question{
		Text:           fmt.Sprintf("What is %d?", marks),
		Type:           models.ShortAnswer,
		CorrectAnswers: datatypes.JSON(`["42"]`),
		Marks:          marks,
		UnitCode:       unitCode,
		Difficulty:     models.DifficultyMedium,
		Approved:       approved,
		CreatedBy:      "instructor-1",
	}
	if err := e.repo.Question().Create(context.Background(), e.db, question); err != nil {
		t.Fatalf("failed to seed question: %v", err)
	}
	return question
}

func TestIntegrationComposeMaintainsTotalMarks(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()

	v := validator.New()
	assessments := NewAssessmentService(env.repo, env.db, testLogger(), v)

	resp, err := assessments.Create(ctx, &CreateAssessmentRequest{
		Title:           "Week 5 Quiz",
		UnitCode:        "CS101",
		DurationMinutes: 30,
	}, "instructor-1")
	if err != nil {
		t.Fatalf("failed to create assessment: %v", err)
	}
	assessmentID := resp.ID

	q1 := env.seedQuestion(t, "CS101", 5, true)
	q2 := env.seedQuestion(t, "CS101", 7, true)

	if err := assessments.ComposeQuestion(ctx, assessmentID, &ComposeQuestionRequest{QuestionID: q1.ID}, "instructor-1"); err != nil {
		t.Fatalf("failed to compose first question: %v", err)
	}
	if err := assessments.ComposeQuestion(ctx, assessmentID, &ComposeQuestionRequest{QuestionID: q2.ID}, "instructor-1"); err != nil {
		t.Fatalf("failed to compose second question: %v", err)
	}

	got, err := env.repo.Assessment().GetByID(ctx, env.db, assessmentID)
	if err != nil {
		t.Fatalf("failed to reload assessment: %v", err)
	}
	if got.TotalMarks != 12 {
		t.Errorf("expected total marks 12 after composing, got %d", got.TotalMarks)
	}

	sum, err := env.repo.AssessmentQuestion().SumMarks(ctx, env.db, assessmentID)
	if err != nil {
		t.Fatalf("failed to sum composed marks: %v", err)
	}
	if got.TotalMarks != sum {
		t.Errorf("total marks %d diverged from composed sum %d", got.TotalMarks, sum)
	}

	// Composing the same question twice must not double count.
	err = assessments.ComposeQuestion(ctx, assessmentID, &ComposeQuestionRequest{QuestionID: q1.ID}, "instructor-1")
	if err == nil {
		t.Fatal("expected duplicate composition to fail")
	}
	got, _ = env.repo.Assessment().GetByID(ctx, env.db, assessmentID)
	if got.TotalMarks != 12 {
		t.Errorf("duplicate composition changed total marks to %d", got.TotalMarks)
	}

	if err := assessments.RemoveQuestion(ctx, assessmentID, q1.ID, "instructor-1"); err != nil {
		t.Fatalf("failed to remove question: %v", err)
	}
	got, _ = env.repo.Assessment().GetByID(ctx, env.db, assessmentID)
	if got.TotalMarks != 7 {
		t.Errorf("expected total marks 7 after removal, got %d", got.TotalMarks)
	}
}

func TestIntegrationPracticeSubmitReconciles(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()

	v := validator.New()
	reconciliation := NewReconciliationService(env.repo, env.db, testLogger(), nil)
	questions := NewQuestionService(env.repo, env.db, testLogger(), v)
	attempts := NewAttemptService(env.repo, env.db, testLogger(), v, reconciliation, nil)

	for i := 0; i < 5; i++ {
		env.seedQuestion(t, "CS101", 4, true)
	}

	set, err := questions.GeneratePracticeSet(ctx, &GeneratePracticeRequest{
		UnitCode:      "CS101",
		QuestionCount: 5,
	}, "student-1")
	if err != nil {
		t.Fatalf("failed to generate practice set: %v", err)
	}
	if set.Selected != 5 || set.Shortfall != 0 {
		t.Fatalf("expected full selection, got %+v", set)
	}
	if set.Assessment.TotalMarks != 20 {
		t.Fatalf("expected practice total marks 20, got %d", set.Assessment.TotalMarks)
	}

	start := time.Now().Add(-20 * time.Minute)
	end := time.Now()
	submission := &SubmitAttemptRequest{
		AssessmentID: set.Assessment.ID,
		Score:        16,
		StartTime:    &start,
		EndTime:      &end,
		Responses:    make([]validator.ResponseSubmission, 0, len(set.Questions)),
	}
	for i, q := range set.Questions {
		marks := q.Marks
		correct := true
		if i == 0 {
			marks = 0
			correct = false
		}
		submission.Responses = append(submission.Responses, validator.ResponseSubmission{
			QuestionID:   q.ID,
			ResponseText: "42",
			IsCorrect:    correct,
			MarksAwarded: marks,
		})
	}

	attempt, err := attempts.Submit(ctx, submission, "student-1")
	if err != nil {
		t.Fatalf("failed to submit practice attempt: %v", err)
	}
	if attempt.Status != models.AttemptCompleted {
		t.Errorf("expected completed attempt, got %s", attempt.Status)
	}

	row, err := env.repo.PracticeResult().GetByKey(ctx, env.db, "student-1", set.Assessment.ID)
	if err != nil {
		t.Fatalf("expected canonical practice row, got %v", err)
	}
	if row.Status != models.PracticeCompleted {
		t.Errorf("expected COMPLETED canonical row, got %s", row.Status)
	}
	if row.Percentage != 80 || row.Grade != "B" {
		t.Errorf("expected 80%% grade B, got %v%% %s", row.Percentage, row.Grade)
	}

	// A resubmission replaces responses and rewrites the same canonical row.
	submission.AttemptID = attempt.AttemptID
	submission.Score = 20
	for i := range submission.Responses {
		submission.Responses[i].IsCorrect = true
		submission.Responses[i].MarksAwarded = 4
	}

	if _, err := attempts.Submit(ctx, submission, "student-1"); err != nil {
		t.Fatalf("failed to resubmit attempt: %v", err)
	}

	count, err := env.repo.PracticeResult().CountByKey(ctx, env.db, "student-1", set.Assessment.ID)
	if err != nil {
		t.Fatalf("failed to count canonical rows: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly one canonical row, got %d", count)
	}

	row, _ = env.repo.PracticeResult().GetByKey(ctx, env.db, "student-1", set.Assessment.ID)
	if row.Percentage != 100 || row.Grade != "A" {
		t.Errorf("expected rewritten row at 100%% grade A, got %v%% %s", row.Percentage, row.Grade)
	}

	reloaded, err := attempts.GetByIDWithResponses(ctx, attempt.AttemptID, "student-1")
	if err != nil {
		t.Fatalf("failed to reload attempt: %v", err)
	}
	if len(reloaded.Responses) != 5 {
		t.Errorf("expected 5 responses after replacement, got %d", len(reloaded.Responses))
	}
}

func TestIntegrationPracticePoolShortfall(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()

	questions := NewQuestionService(env.repo, env.db, testLogger(), validator.New())

	for i := 0; i < 4; i++ {
		env.seedQuestion(t, "CS101", 4, true)
	}
	// Unapproved questions never enter the pool.
	env.seedQuestion(t, "CS101", 4, false)

	set, err := questions.GeneratePracticeSet(ctx, &GeneratePracticeRequest{
		UnitCode:      "CS101",
		QuestionCount: 10,
	}, "student-1")
	if err != nil {
		t.Fatalf("a short pool must still produce a set: %v", err)
	}
	if set.Requested != 10 || set.Selected != 4 || set.Shortfall != 6 {
		t.Errorf("expected requested 10, selected 4, shortfall 6, got %+v", set)
	}
	if len(set.Questions) != 4 {
		t.Errorf("expected 4 questions in the set, got %d", len(set.Questions))
	}
	if set.Assessment.TotalMarks != 16 {
		t.Errorf("expected total marks 16 over the selected pool, got %d", set.Assessment.TotalMarks)
	}
}

func TestIntegrationSweepBackfillsLegacyRows(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()

	reconciliation := NewReconciliationService(env.repo, env.db, testLogger(), nil)

	// Legacy case 1: a completed attempt on self-created practice with no
	// canonical row.
	taken := &models.Assessment{
		Title:           "CS101 PRACTICE 2026-08-01",
		UnitCode:        "CS101",
		CreatedBy:       "student-1",
		DurationMinutes: 30,
		IsPractice:      true,
		TotalMarks:      10,
	}
	if err := env.repo.Assessment().Create(ctx, env.db, taken); err != nil {
		t.Fatalf("failed to seed practice assessment: %v", err)
	}

	end := time.Now().Add(-time.Hour)
	attempt := &models.StudentAssessment{
		StudentID:     "student-1",
		AssessmentID:  taken.ID,
		Score:         9,
		TotalPossible: 10,
		Status:        models.AttemptCompleted,
		EndTime:       &end,
	}
	if err := env.repo.Attempt().Create(ctx, env.db, attempt); err != nil {
		t.Fatalf("failed to seed attempt: %v", err)
	}

	// Legacy case 2: generated but never taken practice.
	untaken := &models.Assessment{
		Title:           "CS102 PRACTICE 2026-08-02",
		UnitCode:        "CS102",
		CreatedBy:       "student-2",
		DurationMinutes: 30,
		IsPractice:      true,
		TotalMarks:      15,
	}
	if err := env.repo.Assessment().Create(ctx, env.db, untaken); err != nil {
		t.Fatalf("failed to seed untaken practice: %v", err)
	}

	result, err := reconciliation.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.AttemptRows != 1 {
		t.Errorf("expected 1 attempt row reconciled, got %d", result.AttemptRows)
	}
	if result.PlaceholderRows != 1 {
		t.Errorf("expected 1 placeholder row, got %d", result.PlaceholderRows)
	}
	if result.Failures != 0 {
		t.Errorf("expected no failures, got %d", result.Failures)
	}

	completed, err := env.repo.PracticeResult().GetByKey(ctx, env.db, "student-1", taken.ID)
	if err != nil {
		t.Fatalf("expected reconciled row for taken practice: %v", err)
	}
	if completed.Status != models.PracticeCompleted || completed.Grade != "A" {
		t.Errorf("expected COMPLETED grade A, got %s %s", completed.Status, completed.Grade)
	}

	placeholder, err := env.repo.PracticeResult().GetByKey(ctx, env.db, "student-2", untaken.ID)
	if err != nil {
		t.Fatalf("expected placeholder row for untaken practice: %v", err)
	}
	if placeholder.Status != models.PracticeCreated {
		t.Errorf("expected CREATED placeholder, got %s", placeholder.Status)
	}
	if placeholder.CompletionDate != nil {
		t.Error("placeholder must not carry a completion date")
	}

	// The sweep is idempotent: a second pass finds nothing to do.
	again, err := reconciliation.Sweep(ctx)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if again.AttemptRows != 0 || again.PlaceholderRows != 0 {
		t.Errorf("expected idle second sweep, got %+v", again)
	}
}

func TestIntegrationActivationSweep(t *testing.T) {
	env := setupIntegration(t)
	ctx := context.Background()

	now := time.Now()
	open := &models.Assessment{
		Title:           "Open Window",
		UnitCode:        "CS101",
		CreatedBy:       "instructor-1",
		DurationMinutes: 30,
		StartTime:       timePtr(now.Add(-time.Hour)),
		EndTime:         timePtr(now.Add(time.Hour)),
	}
	closed := &models.Assessment{
		Title:           "Closed Window",
		UnitCode:        "CS101",
		CreatedBy:       "instructor-1",
		DurationMinutes: 30,
		StartTime:       timePtr(now.Add(-3 * time.Hour)),
		EndTime:         timePtr(now.Add(-time.Hour)),
		IsActive:        true,
	}
	unscheduled := &models.Assessment{
		Title:           "No Window",
		UnitCode:        "CS101",
		CreatedBy:       "instructor-1",
		DurationMinutes: 30,
		IsActive:        true,
	}
	for _, a := range []*models.Assessment{open, closed, unscheduled} {
		if err := env.repo.Assessment().Create(ctx, env.db, a); err != nil {
			t.Fatalf("failed to seed assessment: %v", err)
		}
	}

	scheduler := NewActivationScheduler(env.repo, env.db, testLogger(), nil, time.Minute)

	result, err := scheduler.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if result.Activated != 1 || result.Deactivated != 1 {
		t.Errorf("expected one activation and one deactivation, got %+v", result)
	}

	reloaded, _ := env.repo.Assessment().GetByID(ctx, env.db, open.ID)
	if !reloaded.IsActive {
		t.Error("expected in-window assessment to be active")
	}
	reloaded, _ = env.repo.Assessment().GetByID(ctx, env.db, closed.ID)
	if reloaded.IsActive {
		t.Error("expected expired assessment to be inactive")
	}

	// Assessments without a full window stay untouched.
	reloaded, _ = env.repo.Assessment().GetByID(ctx, env.db, unscheduled.ID)
	if !reloaded.IsActive {
		t.Error("expected manually activated assessment to keep its flag")
	}

	again, err := scheduler.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second RunOnce failed: %v", err)
	}
	if again.Activated != 0 || again.Deactivated != 0 {
		t.Errorf("expected idle second sweep, got %+v", again)
	}
}
