package services

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/campusassess/assessment-service/internal/models"
	"github.com/campusassess/assessment-service/internal/repositories"
	"github.com/campusassess/assessment-service/internal/validator"
	"gorm.io/gorm"
)

// Function-field mocks. A nil field falls through to an empty or not-found
// result so each test only wires the calls it cares about.

type mockRepository struct {
	assessment         *mockAssessmentRepository
	assessmentQuestion *mockAssessmentQuestionRepository
	question           *mockQuestionRepository
	attempt            *mockAttemptRepository
	practiceResult     *mockPracticeResultRepository
	user               *mockUserRepository
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		assessment:         &mockAssessmentRepository{},
		assessmentQuestion: &mockAssessmentQuestionRepository{},
		question:           &mockQuestionRepository{},
		attempt:            &mockAttemptRepository{},
		practiceResult:     &mockPracticeResultRepository{},
		user:               &mockUserRepository{},
	}
}

func (m *mockRepository) Assessment() repositories.AssessmentRepository { return m.assessment }
func (m *mockRepository) AssessmentQuestion() repositories.AssessmentQuestionRepository {
	return m.assessmentQuestion
}
func (m *mockRepository) Question() repositories.QuestionRepository { return m.question }
func (m *mockRepository) Attempt() repositories.AttemptRepository   { return m.attempt }
func (m *mockRepository) PracticeResult() repositories.PracticeResultRepository {
	return m.practiceResult
}
func (m *mockRepository) User() repositories.UserRepository { return m.user }
func (m *mockRepository) Ping(ctx context.Context) error    { return nil }
func (m *mockRepository) Close() error                      { return nil }

// ===== ASSESSMENT =====

type mockAssessmentRepository struct {
	createFn                   func(assessment *models.Assessment) error
	getByIDFn                  func(id uint) (*models.Assessment, error)
	incrementTotalMarksFn      func(id uint, delta int) error
	setActiveFlagFn            func(id uint, active bool) (bool, error)
	listActivationCandidatesFn func() ([]*models.Assessment, error)
}

func (m *mockAssessmentRepository) Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	if m.createFn != nil {
		return m.createFn(assessment)
	}
	return nil
}

func (m *mockAssessmentRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(id)
	}
	return nil, repositories.ErrNotFound
}

func (m *mockAssessmentRepository) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	return m.GetByID(ctx, tx, id)
}

func (m *mockAssessmentRepository) Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	return nil
}

func (m *mockAssessmentRepository) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	return nil
}

func (m *mockAssessmentRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	return nil, 0, nil
}

func (m *mockAssessmentRepository) GetByUnit(ctx context.Context, tx *gorm.DB, unitCode string, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	return nil, 0, nil
}

func (m *mockAssessmentRepository) IncrementTotalMarks(ctx context.Context, tx *gorm.DB, id uint, delta int) error {
	if m.incrementTotalMarksFn != nil {
		return m.incrementTotalMarksFn(id, delta)
	}
	return nil
}

func (m *mockAssessmentRepository) SetActiveFlag(ctx context.Context, tx *gorm.DB, id uint, active bool) (bool, error) {
	if m.setActiveFlagFn != nil {
		return m.setActiveFlagFn(id, active)
	}
	return true, nil
}

func (m *mockAssessmentRepository) ListActivationCandidates(ctx context.Context, tx *gorm.DB) ([]*models.Assessment, error) {
	if m.listActivationCandidatesFn != nil {
		return m.listActivationCandidatesFn()
	}
	return nil, nil
}

func (m *mockAssessmentRepository) GetStats(ctx context.Context, tx *gorm.DB, id uint) (*repositories.AssessmentStats, error) {
	return &repositories.AssessmentStats{}, nil
}

func (m *mockAssessmentRepository) GetUnitStats(ctx context.Context, tx *gorm.DB, unitCode string) (*repositories.UnitStats, error) {
	return &repositories.UnitStats{}, nil
}

// ===== ASSESSMENT QUESTION =====

type mockAssessmentQuestionRepository struct {
	composeFn  func(mapping *models.AssessmentQuestion) error
	existsFn   func(assessmentID, questionID uint) (bool, error)
	sumMarksFn func(assessmentID uint) (int, error)
}

func (m *mockAssessmentQuestionRepository) Compose(ctx context.Context, tx *gorm.DB, mapping *models.AssessmentQuestion) error {
	if m.composeFn != nil {
		return m.composeFn(mapping)
	}
	return nil
}

func (m *mockAssessmentQuestionRepository) Remove(ctx context.Context, tx *gorm.DB, assessmentID, questionID uint) error {
	return nil
}

func (m *mockAssessmentQuestionRepository) Exists(ctx context.Context, tx *gorm.DB, assessmentID, questionID uint) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(assessmentID, questionID)
	}
	return false, nil
}

func (m *mockAssessmentQuestionRepository) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.AssessmentQuestion, error) {
	return nil, nil
}

func (m *mockAssessmentQuestionRepository) NextOrder(ctx context.Context, tx *gorm.DB, assessmentID uint) (int, error) {
	return 1, nil
}

func (m *mockAssessmentQuestionRepository) SumMarks(ctx context.Context, tx *gorm.DB, assessmentID uint) (int, error) {
	if m.sumMarksFn != nil {
		return m.sumMarksFn(assessmentID)
	}
	return 0, nil
}

// ===== QUESTION =====

type mockQuestionRepository struct {
	createFn            func(question *models.Question) error
	createBatchFn       func(questions []*models.Question) error
	getByIDFn           func(id uint) (*models.Question, error)
	getRandomApprovedFn func(filters repositories.RandomQuestionFilters) ([]*models.Question, error)
	isComposedFn        func(id uint) (bool, error)
}

func (m *mockQuestionRepository) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if m.createFn != nil {
		return m.createFn(question)
	}
	return nil
}

func (m *mockQuestionRepository) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	if m.createBatchFn != nil {
		return m.createBatchFn(questions)
	}
	return nil
}

func (m *mockQuestionRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(id)
	}
	return nil, repositories.ErrNotFound
}

func (m *mockQuestionRepository) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error) {
	return nil, nil
}

func (m *mockQuestionRepository) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	return nil
}

func (m *mockQuestionRepository) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	return nil
}

func (m *mockQuestionRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	return nil, 0, nil
}

func (m *mockQuestionRepository) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error) {
	return nil, nil
}

func (m *mockQuestionRepository) GetRandomApproved(ctx context.Context, tx *gorm.DB, filters repositories.RandomQuestionFilters) ([]*models.Question, error) {
	if m.getRandomApprovedFn != nil {
		return m.getRandomApprovedFn(filters)
	}
	return nil, nil
}

func (m *mockQuestionRepository) IsComposed(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	if m.isComposedFn != nil {
		return m.isComposedFn(id)
	}
	return false, nil
}

func (m *mockQuestionRepository) SetApproved(ctx context.Context, tx *gorm.DB, id uint, approved bool) error {
	return nil
}

// ===== ATTEMPT =====

type mockAttemptRepository struct {
	createFn           func(attempt *models.StudentAssessment) error
	getByIDFn          func(attemptID uint) (*models.StudentAssessment, error)
	upsertFn           func(attempt *models.StudentAssessment) error
	replaceResponsesFn func(attemptID uint, responses []*models.StudentResponse) error
	getActiveAttemptFn func(studentID string, assessmentID uint) (*models.StudentAssessment, error)
}

func (m *mockAttemptRepository) Create(ctx context.Context, tx *gorm.DB, attempt *models.StudentAssessment) error {
	if m.createFn != nil {
		return m.createFn(attempt)
	}
	return nil
}

func (m *mockAttemptRepository) GetByID(ctx context.Context, tx *gorm.DB, attemptID uint) (*models.StudentAssessment, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(attemptID)
	}
	return nil, repositories.ErrNotFound
}

func (m *mockAttemptRepository) GetByIDWithResponses(ctx context.Context, tx *gorm.DB, attemptID uint) (*models.StudentAssessment, error) {
	return m.GetByID(ctx, tx, attemptID)
}

func (m *mockAttemptRepository) Update(ctx context.Context, tx *gorm.DB, attempt *models.StudentAssessment) error {
	return nil
}

func (m *mockAttemptRepository) Delete(ctx context.Context, tx *gorm.DB, attemptID uint) error {
	return nil
}

func (m *mockAttemptRepository) Upsert(ctx context.Context, tx *gorm.DB, attempt *models.StudentAssessment) error {
	if m.upsertFn != nil {
		return m.upsertFn(attempt)
	}
	return nil
}

func (m *mockAttemptRepository) ReplaceResponses(ctx context.Context, tx *gorm.DB, attemptID uint, responses []*models.StudentResponse) error {
	if m.replaceResponsesFn != nil {
		return m.replaceResponsesFn(attemptID, responses)
	}
	return nil
}

func (m *mockAttemptRepository) GetActiveAttempt(ctx context.Context, tx *gorm.DB, studentID string, assessmentID uint) (*models.StudentAssessment, error) {
	if m.getActiveAttemptFn != nil {
		return m.getActiveAttemptFn(studentID, assessmentID)
	}
	return nil, repositories.ErrNotFound
}

func (m *mockAttemptRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.StudentAssessment, int64, error) {
	return nil, 0, nil
}

func (m *mockAttemptRepository) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AttemptFilters) ([]*models.StudentAssessment, int64, error) {
	return nil, 0, nil
}

func (m *mockAttemptRepository) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint, filters repositories.AttemptFilters) ([]*models.StudentAssessment, int64, error) {
	return nil, 0, nil
}

func (m *mockAttemptRepository) CountByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) (int64, error) {
	return 0, nil
}

// ===== PRACTICE RESULT =====

type mockPracticeResultRepository struct {
	getByKeyFn                func(studentID string, assessmentID uint) (*models.PracticeAssessment, error)
	createFn                  func(result *models.PracticeAssessment) error
	updateFn                  func(result *models.PracticeAssessment) error
	findUnreconciledFn        func() ([]*models.StudentAssessment, error)
	findUnattemptedPracticeFn func() ([]*models.Assessment, error)
}

func (m *mockPracticeResultRepository) GetByKey(ctx context.Context, tx *gorm.DB, studentID string, assessmentID uint) (*models.PracticeAssessment, error) {
	if m.getByKeyFn != nil {
		return m.getByKeyFn(studentID, assessmentID)
	}
	return nil, repositories.ErrNotFound
}

func (m *mockPracticeResultRepository) Create(ctx context.Context, tx *gorm.DB, result *models.PracticeAssessment) error {
	if m.createFn != nil {
		return m.createFn(result)
	}
	return nil
}

func (m *mockPracticeResultRepository) Update(ctx context.Context, tx *gorm.DB, result *models.PracticeAssessment) error {
	if m.updateFn != nil {
		return m.updateFn(result)
	}
	return nil
}

func (m *mockPracticeResultRepository) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.PracticeResultFilters) ([]*models.PracticeAssessment, int64, error) {
	return nil, 0, nil
}

func (m *mockPracticeResultRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.PracticeResultFilters) ([]*models.PracticeAssessment, int64, error) {
	return nil, 0, nil
}

func (m *mockPracticeResultRepository) CountByKey(ctx context.Context, tx *gorm.DB, studentID string, assessmentID uint) (int64, error) {
	return 0, nil
}

func (m *mockPracticeResultRepository) FindUnreconciledAttempts(ctx context.Context, tx *gorm.DB) ([]*models.StudentAssessment, error) {
	if m.findUnreconciledFn != nil {
		return m.findUnreconciledFn()
	}
	return nil, nil
}

func (m *mockPracticeResultRepository) FindUnattemptedPractice(ctx context.Context, tx *gorm.DB) ([]*models.Assessment, error) {
	if m.findUnattemptedPracticeFn != nil {
		return m.findUnattemptedPracticeFn()
	}
	return nil, nil
}

// ===== USER =====

type mockUserRepository struct {
	getByIDFn func(id string) (*models.User, error)
	hasRoleFn func(id string, role models.UserRole) (bool, error)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(id)
	}
	return nil, repositories.ErrNotFound
}

func (m *mockUserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	return nil, nil
}

func (m *mockUserRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := m.GetByID(ctx, id)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (m *mockUserRepository) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	if m.hasRoleFn != nil {
		return m.hasRoleFn(id, role)
	}
	return false, nil
}

// ===== HELPERS =====

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testValidator(t *testing.T) *validator.Validator {
	t.Helper()
	return validator.New()
}
