package validator

import (
	"testing"
	"time"

	"github.com/campusassess/assessment-service/internal/models"
)

func hasRule(errs ValidationErrors, rule string) bool {
	for _, e := range errs {
		if e.Rule == rule {
			return true
		}
	}
	return false
}

func TestValidateAssessmentCreate(t *testing.T) {
	bv := NewBusinessValidator()
	now := time.Now()
	later := now.Add(2 * time.Hour)

	tests := []struct {
		name     string
		req      AssessmentCreateRequest
		wantRule string
	}{
		{
			name: "valid without window",
			req: AssessmentCreateRequest{
				Title:           "Week 1 Quiz",
				UnitCode:        "CS101",
				DurationMinutes: 30,
			},
		},
		{
			name: "valid with window",
			req: AssessmentCreateRequest{
				Title:           "Week 1 Quiz",
				UnitCode:        "CS101",
				DurationMinutes: 30,
				StartTime:       &now,
				EndTime:         &later,
			},
		},
		{
			name: "bad unit code",
			req: AssessmentCreateRequest{
				Title:           "Week 1 Quiz",
				UnitCode:        "cs-101",
				DurationMinutes: 30,
			},
			wantRule: "unit_code",
		},
		{
			name: "duration too short",
			req: AssessmentCreateRequest{
				Title:           "Week 1 Quiz",
				UnitCode:        "CS101",
				DurationMinutes: 2,
			},
			wantRule: "assessment_duration",
		},
		{
			name: "start without end",
			req: AssessmentCreateRequest{
				Title:           "Week 1 Quiz",
				UnitCode:        "CS101",
				DurationMinutes: 30,
				StartTime:       &now,
			},
			wantRule: "availability_window",
		},
		{
			name: "end before start",
			req: AssessmentCreateRequest{
				Title:           "Week 1 Quiz",
				UnitCode:        "CS101",
				DurationMinutes: 30,
				StartTime:       &later,
				EndTime:         &now,
			},
			wantRule: "availability_window",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.ValidateAssessmentCreate(&tt.req)
			if tt.wantRule == "" {
				if errs.HasErrors() {
					t.Errorf("expected no errors, got %v", errs)
				}
				return
			}
			if !hasRule(errs, tt.wantRule) {
				t.Errorf("expected rule %q to fail, got %v", tt.wantRule, errs)
			}
		})
	}
}

func TestValidateQuestionCreate(t *testing.T) {
	bv := NewBusinessValidator()

	tests := []struct {
		name     string
		req      QuestionCreateRequest
		wantRule string
	}{
		{
			name: "valid multiple choice",
			req: QuestionCreateRequest{
				Text:           "Pick the prime",
				Type:           models.MultipleChoice,
				Options:        []string{"4", "7", "9"},
				CorrectAnswers: []string{"7"},
				Marks:          5,
				UnitCode:       "CS101",
			},
		},
		{
			name: "valid short answer without options",
			req: QuestionCreateRequest{
				Text:           "Name the scheduler",
				Type:           models.ShortAnswer,
				CorrectAnswers: []string{"round robin"},
				Marks:          3,
				UnitCode:       "CS101",
			},
		},
		{
			name: "multiple choice needs two options",
			req: QuestionCreateRequest{
				Text:           "Pick one",
				Type:           models.MultipleChoice,
				Options:        []string{"only"},
				CorrectAnswers: []string{"only"},
				Marks:          5,
				UnitCode:       "CS101",
			},
			wantRule: "question_content",
		},
		{
			name: "correct answer not among options",
			req: QuestionCreateRequest{
				Text:           "Pick one",
				Type:           models.MultipleChoice,
				Options:        []string{"a", "b"},
				CorrectAnswers: []string{"c"},
				Marks:          5,
				UnitCode:       "CS101",
			},
			wantRule: "question_content",
		},
		{
			name: "blank correct answer",
			req: QuestionCreateRequest{
				Text:           "Say something",
				Type:           models.ShortAnswer,
				CorrectAnswers: []string{"  "},
				Marks:          5,
				UnitCode:       "CS101",
			},
			wantRule: "question_content",
		},
		{
			name: "marks out of range",
			req: QuestionCreateRequest{
				Text:           "Pick the prime",
				Type:           models.ShortAnswer,
				CorrectAnswers: []string{"7"},
				Marks:          500,
				UnitCode:       "CS101",
			},
			wantRule: "marks_range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.ValidateQuestionCreate(&tt.req)
			if tt.wantRule == "" {
				if errs.HasErrors() {
					t.Errorf("expected no errors, got %v", errs)
				}
				return
			}
			if !hasRule(errs, tt.wantRule) {
				t.Errorf("expected rule %q to fail, got %v", tt.wantRule, errs)
			}
		})
	}
}

func TestValidateAttemptSubmit(t *testing.T) {
	bv := NewBusinessValidator()
	now := time.Now()
	earlier := now.Add(-time.Hour)

	t.Run("accepts consistent submission", func(t *testing.T) {
		req := AttemptSubmitRequest{
			AssessmentID: 1,
			Score:        7,
			StartTime:    &earlier,
			EndTime:      &now,
			Responses: []ResponseSubmission{
				{QuestionID: 1, ResponseText: "a", IsCorrect: true, MarksAwarded: 4},
				{QuestionID: 2, ResponseText: "b", IsCorrect: true, MarksAwarded: 3},
			},
		}
		if errs := bv.ValidateAttemptSubmit(&req); errs.HasErrors() {
			t.Errorf("expected no errors, got %v", errs)
		}
	})

	t.Run("rejects inconsistent score", func(t *testing.T) {
		req := AttemptSubmitRequest{
			AssessmentID: 1,
			Score:        99,
			Responses: []ResponseSubmission{
				{QuestionID: 1, ResponseText: "a", IsCorrect: true, MarksAwarded: 4},
			},
		}
		errs := bv.ValidateAttemptSubmit(&req)
		if !hasRule(errs, "score_consistency") {
			t.Errorf("expected score_consistency failure, got %v", errs)
		}
	})

	t.Run("rejects end before start", func(t *testing.T) {
		req := AttemptSubmitRequest{
			AssessmentID: 1,
			Score:        4,
			StartTime:    &now,
			EndTime:      &earlier,
			Responses: []ResponseSubmission{
				{QuestionID: 1, ResponseText: "a", IsCorrect: true, MarksAwarded: 4},
			},
		}
		errs := bv.ValidateAttemptSubmit(&req)
		if !hasRule(errs, "attempt_window") {
			t.Errorf("expected attempt_window failure, got %v", errs)
		}
	})
}

func TestUnitCodePattern(t *testing.T) {
	tests := []struct {
		code string
		ok   bool
	}{
		{"CS101", true},
		{"COMP1010", true},
		{"FIT3171", true},
		{"cs101", false},
		{"C1", false},
		{"CS10100", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := unitCodePattern.MatchString(tt.code); got != tt.ok {
				t.Errorf("unitCodePattern.MatchString(%q) = %v, want %v", tt.code, got, tt.ok)
			}
		})
	}
}
