package validator

import (
	"regexp"
	"strings"
	"time"

	"github.com/campusassess/assessment-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Unit codes look like CS101 or COMP1010.
var unitCodePattern = regexp.MustCompile(`^[A-Z]{2,4}[0-9]{3,4}$`)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateAssessmentCreate validates assessment creation business rules
func (bv *BusinessValidator) ValidateAssessmentCreate(req *AssessmentCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, bv.validateWindow(req.StartTime, req.EndTime)...)

	return errors
}

// ValidateAssessmentUpdate validates assessment update business rules
func (bv *BusinessValidator) ValidateAssessmentUpdate(req *AssessmentUpdateRequest, existing *models.Assessment) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	// Validate the window that would result from the update
	start := existing.StartTime
	end := existing.EndTime
	if req.StartTime != nil {
		start = req.StartTime
	}
	if req.EndTime != nil {
		end = req.EndTime
	}
	errors = append(errors, bv.validateWindow(start, end)...)

	return errors
}

// ValidateQuestionCreate validates question creation business rules
func (bv *BusinessValidator) ValidateQuestionCreate(req *QuestionCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, bv.validateQuestionContent(req.Type, req.Options, req.CorrectAnswers)...)

	return errors
}

// ValidateAttemptSubmit checks the scoring shape of a submission before the
// transactional write. Awarded marks cannot exceed the claimed score total.
func (bv *BusinessValidator) ValidateAttemptSubmit(req *AttemptSubmitRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	awarded := 0
	for _, r := range req.Responses {
		awarded += r.MarksAwarded
	}
	if awarded != req.Score {
		errors = append(errors, ValidationError{
			Field:   "score",
			Message: "must equal the sum of marks awarded across responses",
			Value:   req.Score,
			Rule:    "score_consistency",
		})
	}

	if req.StartTime != nil && req.EndTime != nil && req.EndTime.Before(*req.StartTime) {
		errors = append(errors, ValidationError{
			Field:   "end_time",
			Message: "cannot be before start time",
			Value:   req.EndTime,
			Rule:    "attempt_window",
		})
	}

	return errors
}

func (bv *BusinessValidator) validateWindow(start, end *time.Time) ValidationErrors {
	var errors ValidationErrors

	// Both bounds or neither; a half-specified window is never scheduled and
	// usually means a client bug.
	if (start == nil) != (end == nil) {
		errors = append(errors, ValidationError{
			Field:   "start_time",
			Message: "start and end time must be set together",
			Rule:    "availability_window",
		})
		return errors
	}

	if start != nil && end != nil && !end.After(*start) {
		errors = append(errors, ValidationError{
			Field:   "end_time",
			Message: "must be after start time",
			Value:   end,
			Rule:    "availability_window",
		})
	}

	return errors
}

func (bv *BusinessValidator) validateQuestionContent(qType models.QuestionType, options, correctAnswers []string) ValidationErrors {
	var errors ValidationErrors

	if qType == models.MultipleChoice {
		if len(options) < 2 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "multiple choice questions need at least 2 options",
				Value:   len(options),
				Rule:    "question_content",
			})
		}

		optionSet := make(map[string]bool, len(options))
		for _, opt := range options {
			optionSet[opt] = true
		}
		for _, answer := range correctAnswers {
			if !optionSet[answer] {
				errors = append(errors, ValidationError{
					Field:   "correct_answers",
					Message: "correct answers must appear in the options list",
					Value:   answer,
					Rule:    "question_content",
				})
			}
		}
	}

	for i, answer := range correctAnswers {
		if strings.TrimSpace(answer) == "" {
			errors = append(errors, ValidationError{
				Field:   "correct_answers",
				Message: "answer cannot be blank",
				Value:   i,
				Rule:    "question_content",
			})
		}
	}

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Unit code format validation
	bv.validate.RegisterValidation("unit_code", func(fl validator.FieldLevel) bool {
		return unitCodePattern.MatchString(fl.Field().String())
	})

	// Assessment duration validation (5-300 minutes)
	bv.validate.RegisterValidation("assessment_duration", func(fl validator.FieldLevel) bool {
		duration := fl.Field().Int()
		return duration >= 5 && duration <= 300
	})

	// Marks range validation
	bv.validate.RegisterValidation("marks_range", func(fl validator.FieldLevel) bool {
		marks := fl.Field().Int()
		return marks >= 1 && marks <= 100
	})

	// question type validation
	bv.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		qType := fl.Field().String()
		validTypes := []models.QuestionType{models.MultipleChoice, models.ShortAnswer, models.ListBased}
		for _, vt := range validTypes {
			if models.QuestionType(qType) == vt {
				return true
			}
		}
		return false
	})

	// difficulty level validation
	bv.validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		level := fl.Field().String()
		validLevels := []models.DifficultyLevel{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}
		for _, vl := range validLevels {
			if models.DifficultyLevel(level) == vl {
				return true
			}
		}
		return false
	})
}
