package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hudsonargollo/isotec-screening/internal/models"
)

// DefaultOptionScores is the fallback option-to-score table used by
// weighted_sum answer coercion when a template does not configure its own
// mapping. Orientation scores assume southern-hemisphere installations.
var DefaultOptionScores = map[string]float64{
	"excellent":  3,
	"good":       2,
	"fair":       1,
	"poor":       0,
	"yes":        1,
	"no":         0,
	"north":      3,
	"northeast":  2,
	"northwest":  2,
	"east":       1,
	"west":       1,
	"south":      0,
	"house":      2,
	"commercial": 3,
	"apartment":  0,
}

// ApplyRule evaluates one screening rule against a set of questionnaire
// answers. Evaluation is total: any panic raised while inspecting answer
// values is recovered and recorded under details["error"], so a single bad
// rule never aborts the screening run.
func ApplyRule(rule *models.ScreeningRule, answers map[string]any, optionScores map[string]float64) (app models.RuleApplication) {
	app = models.RuleApplication{
		RuleID:    rule.ID,
		Category:  rule.Category,
		RuleType:  rule.RuleType,
		Priority:  rule.Priority,
		MaxPoints: rule.Scoring.Points,
		Weight:    rule.Scoring.Weight,
		Details:   map[string]any{},
	}
	defer func() {
		if r := recover(); r != nil {
			app.ConditionsMet = false
			app.ScoreAwarded = 0
			app.Details["error"] = fmt.Sprintf("rule evaluation panic: %v", r)
		}
	}()

	met := false
	switch rule.RuleType {
	case models.RuleThreshold:
		met = evalThreshold(rule, answers, app.Details)
	case models.RuleRange:
		met = evalRange(rule, answers, app.Details)
	case models.RuleWeightedSum:
		met = evalWeightedSum(rule, answers, optionScores, app.Details)
	case models.RuleConditional:
		met = evalConditional(rule, answers, app.Details)
	case models.RuleFormula:
		// Formula rules never fired in the legacy engine either; they are
		// treated as permanently not met rather than as a fatal error.
		app.Details["error"] = "formula rules are not implemented"
	default:
		app.Details["error"] = fmt.Sprintf("unknown rule type %q", rule.RuleType)
	}

	app.ConditionsMet = met
	if met {
		app.ScoreAwarded = rule.Scoring.Points
	}
	return app
}

func evalThreshold(rule *models.ScreeningRule, answers map[string]any, details map[string]any) bool {
	if len(rule.Conditions) == 0 {
		details["error"] = "threshold rule has no conditions"
		return false
	}
	cond := rule.Conditions[0]
	ans, ok := answers[cond.QuestionID]
	if !ok || ans == nil {
		details["missing_response"] = cond.QuestionID
		return false
	}
	return compareValues(ans, cond.Operator, cond.Value, details)
}

func evalRange(rule *models.ScreeningRule, answers map[string]any, details map[string]any) bool {
	if len(rule.Conditions) == 0 {
		details["error"] = "range rule has no conditions"
		return false
	}
	cond := rule.Conditions[0]
	ans, ok := answers[cond.QuestionID]
	if !ok || ans == nil {
		details["missing_response"] = cond.QuestionID
		return false
	}
	min, max, ok := valueAsRange(cond.Value)
	if !ok {
		details["error"] = "range rule value must be a [min, max] pair"
		return false
	}
	v, ok := toFloat(ans)
	if !ok {
		details["error"] = fmt.Sprintf("answer for %s is not numeric", cond.QuestionID)
		return false
	}
	// Bounds are inclusive.
	return v >= min && v <= max
}

func evalWeightedSum(rule *models.ScreeningRule, answers map[string]any, optionScores map[string]float64, details map[string]any) bool {
	var sum, totalWeight float64
	for _, cond := range rule.Conditions {
		weight := cond.Weight
		if weight == 0 {
			weight = 1
		}
		score := answerScore(answers[cond.QuestionID], optionScores)
		sum += score * weight
		totalWeight += weight
	}
	threshold, ok := rule.Thresholds["medium"]
	if !ok {
		threshold = rule.Scoring.Points * 0.6
	}
	details["weighted_sum"] = sum
	details["total_weight"] = totalWeight
	details["threshold"] = threshold
	return sum >= threshold
}

func evalConditional(rule *models.ScreeningRule, answers map[string]any, details map[string]any) bool {
	if len(rule.Conditions) == 0 {
		details["error"] = "conditional rule has no conditions"
		return false
	}
	// AND semantics: every condition must hold independently.
	for _, cond := range rule.Conditions {
		ans, ok := answers[cond.QuestionID]
		if !ok || ans == nil {
			details["missing_response"] = cond.QuestionID
			return false
		}
		if !checkCondition(ans, cond.Operator, cond.Value, details) {
			details["failed_condition"] = cond.QuestionID
			return false
		}
	}
	return true
}

func checkCondition(ans any, op models.Operator, want any, details map[string]any) bool {
	switch op {
	case models.OpEquals, models.OpNotEquals, models.OpGreaterThan, models.OpLessThan:
		return compareValues(ans, op, want, details)
	case models.OpContains:
		return containsValue(ans, want)
	case models.OpNotContains:
		return !containsValue(ans, want)
	default:
		details["error"] = fmt.Sprintf("operator %q is not supported", op)
		return false
	}
}

func compareValues(ans any, op models.Operator, want any, details map[string]any) bool {
	av, aNum := toFloat(ans)
	wv, wNum := toFloat(want)
	numeric := aNum && wNum
	switch op {
	case models.OpGreaterThan:
		if !numeric {
			details["error"] = "greater_than requires numeric values"
			return false
		}
		return av > wv
	case models.OpLessThan:
		if !numeric {
			details["error"] = "less_than requires numeric values"
			return false
		}
		return av < wv
	case models.OpEquals:
		if numeric {
			return av == wv
		}
		return valueString(ans) == valueString(want)
	case models.OpNotEquals:
		if numeric {
			return av != wv
		}
		return valueString(ans) != valueString(want)
	default:
		details["error"] = fmt.Sprintf("operator %q is not supported", op)
		return false
	}
}

// containsValue does case-insensitive substring matching. List answers
// match when any element contains the wanted substring.
func containsValue(ans, want any) bool {
	needle := strings.ToLower(valueString(want))
	if list, ok := ans.([]any); ok {
		for _, item := range list {
			if strings.Contains(strings.ToLower(valueString(item)), needle) {
				return true
			}
		}
		return false
	}
	return strings.Contains(strings.ToLower(valueString(ans)), needle)
}

// answerScore coerces an answer into a numeric score for weighted_sum
// rules: numbers pass through, booleans map to 1/0, strings parse as
// floats or fall back to the option-score table; anything else scores 0.
func answerScore(ans any, optionScores map[string]float64) float64 {
	switch v := ans.(type) {
	case nil:
		return 0
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		trimmed := strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
		if score, ok := optionScores[strings.ToLower(trimmed)]; ok {
			return score
		}
		return 0
	default:
		if f, ok := toFloat(v); ok {
			return f
		}
		return 0
	}
}

func valueAsRange(v any) (min, max float64, ok bool) {
	list, isList := v.([]any)
	if !isList || len(list) != 2 {
		if fl, isFloats := v.([]float64); isFloats && len(fl) == 2 {
			return fl[0], fl[1], true
		}
		return 0, 0, false
	}
	min, okMin := toFloat(list[0])
	max, okMax := toFloat(list[1])
	return min, max, okMin && okMax
}

// toFloat coerces JSON-decoded answer values into float64. Numeric
// strings are accepted because questionnaire answers frequently arrive as
// text input.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func valueString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
