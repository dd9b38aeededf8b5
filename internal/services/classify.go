package services

import "github.com/hudsonargollo/isotec-screening/internal/models"

// Default classification cutoffs, applied per-level when a tenant's
// scoring config leaves a level unset. Feasibility and qualification
// cutoffs are percentage scores; risk cutoffs are risk-factor counts.
var (
	defaultFeasibilityThresholds = map[string]float64{
		"high":   80,
		"medium": 60,
		"low":    40,
	}
	defaultQualificationThresholds = map[string]float64{
		"qualified":           70,
		"partially_qualified": 40,
	}
	defaultRiskThresholds = map[string]float64{
		"critical": 5,
		"high":     3,
		"medium":   1,
	}
)

func thresholdOrDefault(thresholds map[string]float64, defaults map[string]float64, level string) float64 {
	if v, ok := thresholds[level]; ok {
		return v
	}
	return defaults[level]
}

// ClassifyFeasibility maps a percentage score to a feasibility rating.
// Bands are evaluated top-down; the first matching band wins.
func ClassifyFeasibility(pct float64, thresholds map[string]float64) models.FeasibilityRating {
	switch {
	case pct >= thresholdOrDefault(thresholds, defaultFeasibilityThresholds, "high"):
		return models.FeasibilityHigh
	case pct >= thresholdOrDefault(thresholds, defaultFeasibilityThresholds, "medium"):
		return models.FeasibilityMedium
	case pct >= thresholdOrDefault(thresholds, defaultFeasibilityThresholds, "low"):
		return models.FeasibilityLow
	default:
		return models.FeasibilityNotFeasible
	}
}

// ClassifyQualification maps a percentage score to a qualification level.
func ClassifyQualification(pct float64, thresholds map[string]float64) models.QualificationLevel {
	switch {
	case pct >= thresholdOrDefault(thresholds, defaultQualificationThresholds, "qualified"):
		return models.QualificationQualified
	case pct >= thresholdOrDefault(thresholds, defaultQualificationThresholds, "partially_qualified"):
		return models.QualificationPartiallyQualified
	default:
		return models.QualificationNotQualified
	}
}

// ClassifyRisk derives the risk level from failures of critical rules
// (priority <= 2) and the total risk-factor count.
func ClassifyRisk(criticalFailures, riskFactorCount int, thresholds map[string]float64) models.RiskLevel {
	count := float64(riskFactorCount)
	switch {
	case criticalFailures >= 2 || count >= thresholdOrDefault(thresholds, defaultRiskThresholds, "critical"):
		return models.RiskCritical
	case criticalFailures >= 1 || count >= thresholdOrDefault(thresholds, defaultRiskThresholds, "high"):
		return models.RiskHigh
	case count >= thresholdOrDefault(thresholds, defaultRiskThresholds, "medium"):
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// FollowUpPriority ranks how urgently a lead should be worked.
func FollowUpPriority(qualification models.QualificationLevel, feasibility models.FeasibilityRating) models.Priority {
	qualified := qualification == models.QualificationQualified
	feasible := feasibility == models.FeasibilityHigh
	switch {
	case qualified && feasible:
		return models.PriorityHigh
	case qualified || feasible:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}
