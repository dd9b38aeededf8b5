package services

import "github.com/hudsonargollo/isotec-screening/internal/models"

// RuleOutcome pairs a rule with its evaluation result for the duration of
// one screening run. Only the RuleApplication part is persisted.
type RuleOutcome struct {
	Rule *models.ScreeningRule
	App  models.RuleApplication
}

// rulePriority maps a rule's numeric priority (lower = more critical) to
// the coarse priority used on recommendations and risk factors.
func rulePriority(priority int) models.Priority {
	switch {
	case priority <= 2:
		return models.PriorityHigh
	case priority <= 4:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// BuildRecommendations selects one guidance message per rule, keyed by the
// rule's outcome: a met rule contributes its qualified message, a failed
// rule contributes the partially/not qualified message depending on the
// overall qualification level. Rules without a configured message for the
// selected outcome are skipped.
func BuildRecommendations(outcomes []RuleOutcome, level models.QualificationLevel) []models.Recommendation {
	out := []models.Recommendation{}
	for _, oc := range outcomes {
		var msg string
		switch {
		case oc.App.ConditionsMet:
			msg = oc.Rule.Recommendations.Qualified
		case level == models.QualificationPartiallyQualified:
			msg = oc.Rule.Recommendations.PartiallyQualified
		default:
			msg = oc.Rule.Recommendations.NotQualified
		}
		if msg == "" {
			continue
		}
		out = append(out, models.Recommendation{
			RuleID:         oc.Rule.ID,
			Category:       oc.Rule.Category,
			Message:        msg,
			Priority:       rulePriority(oc.Rule.Priority),
			ActionRequired: !oc.App.ConditionsMet && oc.Rule.Priority <= 3,
		})
	}
	return out
}

// BuildRiskFactors emits one risk factor per configured factor string for
// every failed rule.
func BuildRiskFactors(outcomes []RuleOutcome) []models.RiskFactor {
	out := []models.RiskFactor{}
	for _, oc := range outcomes {
		if oc.App.ConditionsMet {
			continue
		}
		for _, factor := range oc.Rule.RiskFactors {
			out = append(out, models.RiskFactor{
				RuleID:     oc.Rule.ID,
				Category:   oc.Rule.Category,
				Factor:     factor,
				Severity:   rulePriority(oc.Rule.Priority),
				Mitigation: "Define a mitigation plan for: " + factor,
			})
		}
	}
	return out
}

// NextSteps returns the fixed follow-up checklist for a qualification
// level. The checklist is not rule-driven.
func NextSteps(level models.QualificationLevel) []models.NextStep {
	var actions []string
	switch level {
	case models.QualificationQualified:
		actions = []string{
			"Schedule a technical site visit",
			"Prepare a commercial proposal with financing options",
			"Collect recent utility bills for final system sizing",
		}
	case models.QualificationPartiallyQualified:
		actions = []string{
			"Request the missing documentation from the lead",
			"Re-run the screening once open questions are resolved",
		}
	default:
		actions = []string{
			"Notify the lead about the screening outcome",
			"Archive the lead for future re-evaluation",
		}
	}
	steps := make([]models.NextStep, 0, len(actions))
	for i, action := range actions {
		steps = append(steps, models.NextStep{Order: i + 1, Action: action})
	}
	return steps
}
