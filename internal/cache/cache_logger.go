package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a cache pattern and logs failures without
// surfacing them. Data consistency is maintained by the database; stale cache
// entries expire via TTL.
func (c *CacheHelper) SafeInvalidatePattern(ctx context.Context, pattern string, operation string) {
	if err := c.InvalidatePattern(ctx, pattern); err != nil {
		slog.Warn("Failed to invalidate cache pattern",
			"operation", operation,
			"pattern", pattern,
			"prefix", c.prefix,
			"error", err,
		)
	}
}

// SafeDelete deletes cache keys and logs failures without surfacing them.
func (c *CacheHelper) SafeDelete(ctx context.Context, operation string, keys ...string) {
	if err := c.Delete(ctx, keys...); err != nil {
		slog.Warn("Failed to delete cache keys",
			"operation", operation,
			"keys", keys,
			"prefix", c.prefix,
			"error", err,
		)
	}
}

// InvalidateAssessmentCache invalidates all cache entries related to an
// assessment, including the unit listings that embed it.
func (cm *CacheManager) InvalidateAssessmentCache(ctx context.Context, assessmentID uint, unitCode string) {
	cm.Assessment.SafeDelete(ctx, "invalidate_assessment", fmt.Sprintf("id:%d", assessmentID))
	cm.Assessment.SafeInvalidatePattern(ctx, fmt.Sprintf("id:%d:*", assessmentID), "invalidate_assessment")
	cm.Assessment.SafeInvalidatePattern(ctx, "list:*", "invalidate_assessment")
	if unitCode != "" {
		cm.Assessment.SafeInvalidatePattern(ctx, fmt.Sprintf("unit:%s:*", unitCode), "invalidate_assessment")
	}
}

// InvalidateQuestionCache invalidates all cache entries related to a question.
func (cm *CacheManager) InvalidateQuestionCache(ctx context.Context, questionID uint) {
	cm.Question.SafeDelete(ctx, "invalidate_question", fmt.Sprintf("id:%d", questionID))
	cm.Question.SafeInvalidatePattern(ctx, "list:*", "invalidate_question")
}

// InvalidatePracticeResultCache invalidates a student's practice result
// entries after reconciliation rewrites them.
func (cm *CacheManager) InvalidatePracticeResultCache(ctx context.Context, studentID string) {
	cm.Practice.SafeInvalidatePattern(ctx, fmt.Sprintf("student:%s:*", studentID), "invalidate_practice_result")
	cm.Practice.SafeDelete(ctx, "invalidate_practice_result", fmt.Sprintf("student:%s", studentID))
}
