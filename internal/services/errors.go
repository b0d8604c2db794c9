package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for the service layer. Handlers map these onto HTTP codes.
var (
	ErrAssessmentNotFound     = errors.New("assessment not found")
	ErrQuestionNotFound       = errors.New("question not found")
	ErrAttemptNotFound        = errors.New("attempt not found")
	ErrPracticeResultNotFound = errors.New("practice result not found")
	ErrUserNotFound           = errors.New("user not found")

	ErrAssessmentNotActive     = errors.New("assessment is not active")
	ErrAttemptAlreadyActive    = errors.New("an attempt is already in progress")
	ErrAttemptNotCompleted     = errors.New("attempt is not completed")
	ErrQuestionAlreadyComposed = errors.New("question is already composed into this assessment")
	ErrQuestionNotApproved     = errors.New("question is not approved for use")
	ErrUnitMismatch            = errors.New("question unit does not match assessment unit")
	ErrNoQuestionsAvailable    = errors.New("no approved questions match the requested criteria")
	ErrNotPracticeAssessment   = errors.New("assessment is not a practice assessment")
)

// PermissionError describes a denied operation on a resource.
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d: %s",
		e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsPermissionError checks if an error is a permission error
func IsPermissionError(err error) bool {
	var permErr *PermissionError
	return errors.As(err, &permErr)
}

// BusinessRuleError describes a violated domain rule that is not a simple
// validation failure, such as submitting to a closed assessment.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}

// IsBusinessRuleError checks if an error is a business rule error
func IsBusinessRuleError(err error) bool {
	var ruleErr *BusinessRuleError
	return errors.As(err, &ruleErr)
}
