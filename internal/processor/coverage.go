package processor

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Fraction returns selected/baseline clamped to [0, 1]. A zero baseline
// yields zero coverage.
func Fraction(selected, baseline int) float64 {
	if baseline <= 0 || selected <= 0 {
		return 0
	}
	return math.Min(1, float64(selected)/float64(baseline))
}

// Percent converts a fraction to a percentage rounded to one decimal.
func Percent(fraction float64) float64 {
	return math.Round(fraction*1000) / 10
}

// BaselineTotal sums per-region baselines.
func BaselineTotal(counts []int) int {
	return int(floats.Sum(toFloats(counts)))
}

// SummaryCoverage returns the mean of per-region coverage fractions as a
// display percentage.
func SummaryCoverage(fractions []float64) float64 {
	if len(fractions) == 0 {
		return 0
	}
	return Percent(stat.Mean(fractions, nil))
}

// BodyCoverage returns the whole-body coverage percentage: region fractions
// weighted by the region's baseline, so large regions count for more.
func BodyCoverage(selected, baselines []int) float64 {
	if len(selected) != len(baselines) || BaselineTotal(baselines) <= 0 {
		return 0
	}
	fractions := make([]float64, len(selected))
	for i := range selected {
		fractions[i] = Fraction(selected[i], baselines[i])
	}
	return Percent(stat.Mean(fractions, toFloats(baselines)))
}

// RecordBodyCoverage records BodyCoverage of selected against baselines as a
// decimal answer under id and returns it.
func (p *Processor) RecordBodyCoverage(id string, selected, baselines []int) float64 {
	pct := BodyCoverage(selected, baselines)
	p.record(AnswerResult{Identifier: id, Type: AnswerDecimal, Value: pct})
	return pct
}

func toFloats(v []int) []float64 {
	out := make([]float64, len(v))
	for i, n := range v {
		out[i] = float64(n)
	}
	return out
}
