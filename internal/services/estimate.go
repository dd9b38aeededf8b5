package services

import (
	"fmt"
	"math"
	"sort"

	"github.com/hudsonargollo/isotec-screening/internal/models"
)

// Estimator constants for the Brazilian residential market.
const (
	billFloorBRL     = 50
	billCeilingBRL   = 10000
	tariffBRLPerKWh  = 0.65
	yieldKWhPerKWp   = 1200
	costBRLPerKWp    = 4500
	paybackMonthsMin = 60
	paybackMonthsMax = 84
	paybackMonthsEst = 72
	savingsRateMin   = 0.80
	savingsRateMax   = 0.95
	savingsRateEst   = 0.90
)

// BuildProjectEstimates derives system-size, investment and payback
// figures from the monthly electricity bill. The bill is read from the
// question named in the template's output config; when that reference is
// missing the legacy heuristic scans the answers (in sorted question-ID
// order) for the first numeric value strictly between 50 and 10000 and a
// warning is recorded. Without a plausible bill answer no estimates are
// produced.
func BuildProjectEstimates(answers map[string]any, cfg models.OutputConfig, percentageScore float64) (*models.ProjectEstimates, []string) {
	var warnings []string

	bill, found := 0.0, false
	if cfg.MonthlyBillQuestionID != "" {
		v, ok := toFloat(answers[cfg.MonthlyBillQuestionID])
		if ok && v > 0 {
			bill, found = v, true
		} else {
			warnings = append(warnings, fmt.Sprintf("monthly bill answer %q is missing or not numeric; estimates omitted", cfg.MonthlyBillQuestionID))
			return nil, warnings
		}
	} else {
		warnings = append(warnings, "monthly bill question not configured; falling back to heuristic answer scan")
		questionIDs := make([]string, 0, len(answers))
		for id := range answers {
			questionIDs = append(questionIDs, id)
		}
		sort.Strings(questionIDs)
		for _, id := range questionIDs {
			if v, ok := toFloat(answers[id]); ok && v > billFloorBRL && v < billCeilingBRL {
				bill, found = v, true
				break
			}
		}
		if !found {
			return nil, warnings
		}
	}

	annualSpend := bill * 12
	consumption := annualSpend / tariffBRLPerKWh
	systemSize := consumption / yieldKWhPerKWp
	investment := systemSize * costBRLPerKWp

	return &models.ProjectEstimates{
		MonthlyBill:          bill,
		AnnualConsumptionKWh: round2(consumption),
		SystemSizeKWp:        round2(systemSize),
		EstimatedInvestment:  round2(investment),
		PaybackMonthsMin:     paybackMonthsMin,
		PaybackMonthsMax:     paybackMonthsMax,
		PaybackMonthsEst:     paybackMonthsEst,
		AnnualSavingsMin:     round2(annualSpend * savingsRateMin),
		AnnualSavingsMax:     round2(annualSpend * savingsRateMax),
		AnnualSavingsEst:     round2(annualSpend * savingsRateEst),
		Confidence:           math.Min(95, percentageScore),
	}, warnings
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
