package services

import (
	"math"
	"testing"
)

func TestGradeFor(t *testing.T) {
	tests := []struct {
		name       string
		percentage float64
		want       string
	}{
		{name: "exactly 90 is A", percentage: 90, want: "A"},
		{name: "just below 90 is B", percentage: 89.99, want: "B"},
		{name: "exactly 80 is B", percentage: 80, want: "B"},
		{name: "exactly 70 is C", percentage: 70, want: "C"},
		{name: "exactly 60 is D", percentage: 60, want: "D"},
		{name: "exactly 50 is E", percentage: 50, want: "E"},
		{name: "just below 50 is F", percentage: 49.9, want: "F"},
		{name: "zero is F", percentage: 0, want: "F"},
		{name: "full marks is A", percentage: 100, want: "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GradeFor(tt.percentage); got != tt.want {
				t.Errorf("GradeFor(%v) = %q, want %q", tt.percentage, got, tt.want)
			}
		})
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name          string
		score         int
		totalPossible int
		want          float64
	}{
		{name: "half marks", score: 5, totalPossible: 10, want: 50},
		{name: "full marks", score: 20, totalPossible: 20, want: 100},
		{name: "zero score", score: 0, totalPossible: 10, want: 0},
		{name: "zero total yields zero not NaN", score: 7, totalPossible: 0, want: 0},
		{name: "fractional result", score: 1, totalPossible: 3, want: 100.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentage(tt.score, tt.totalPossible)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Percentage(%d, %d) = %v, want %v", tt.score, tt.totalPossible, got, tt.want)
			}
		})
	}
}
