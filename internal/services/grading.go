package services

// Percentage converts a raw score into a percentage of the total possible
// marks. A zero total yields 0, not a division error; empty practice sets
// grade as F.
func Percentage(score, totalPossible int) float64 {
	if totalPossible == 0 {
		return 0
	}
	return 100 * float64(score) / float64(totalPossible)
}

// GradeFor maps a percentage onto the letter scale. Boundaries are
// inclusive at the lower bound of each band.
func GradeFor(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	case percentage >= 50:
		return "E"
	default:
		return "F"
	}
}
