package services

import (
	"math"

	"github.com/hudsonargollo/isotec-screening/internal/models"
)

// PeriodDrift summarizes per-period score aggregates: the count-weighted
// overall mean percentage, the largest absolute deviation of any period
// mean from that overall mean, and the total sample size. Empty periods
// are ignored.
func PeriodDrift(periods []models.PeriodStat) (mean, maxDeviation float64, sampleSize int) {
	var weightedSum float64
	for _, p := range periods {
		if p.Count <= 0 {
			continue
		}
		weightedSum += p.MeanPercentage * float64(p.Count)
		sampleSize += p.Count
	}
	if sampleSize == 0 {
		return 0, 0, 0
	}
	mean = weightedSum / float64(sampleSize)
	for _, p := range periods {
		if p.Count <= 0 {
			continue
		}
		if d := math.Abs(p.MeanPercentage - mean); d > maxDeviation {
			maxDeviation = d
		}
	}
	return mean, maxDeviation, sampleSize
}
