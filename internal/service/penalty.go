package service

import "math"

// PenaltyCalculator maps (raw score, violation count) to final marks using
// discrete tiers. It is a pure function of its inputs: identical inputs
// always produce identical output.
type PenaltyCalculator struct {
	// multipliers[n] is the score multiplier for n violations; counts at or
	// beyond the termination threshold score zero.
	multipliers          []float64
	terminationThreshold int
}

func NewPenaltyCalculator(multipliers []float64, terminationThreshold int) PenaltyCalculator {
	if len(multipliers) == 0 {
		multipliers = []float64{1.0, 0.7, 0.3}
	}
	if terminationThreshold <= 0 {
		terminationThreshold = 3
	}
	return PenaltyCalculator{
		multipliers:          multipliers,
		terminationThreshold: terminationThreshold,
	}
}

func (p PenaltyCalculator) Multiplier(totalViolations int) float64 {
	if totalViolations >= p.terminationThreshold || totalViolations >= len(p.multipliers) {
		return 0.0
	}
	if totalViolations < 0 {
		totalViolations = 0
	}
	return p.multipliers[totalViolations]
}

// Apply returns the final marks, unrounded.
func (p PenaltyCalculator) Apply(rawScore float64, totalViolations int) float64 {
	return rawScore * p.Multiplier(totalViolations)
}

func (p PenaltyCalculator) TerminationThreshold() int {
	return p.terminationThreshold
}

// DisplayMarks rounds final marks to two decimals for result pages. The
// stored value stays unrounded; rounding is a presentation concern only.
func DisplayMarks(marks float64) float64 {
	return math.Round(marks*100) / 100
}
