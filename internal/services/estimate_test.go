package services

import (
	"math"
	"testing"

	"github.com/hudsonargollo/isotec-screening/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func TestBuildProjectEstimatesExplicitQuestion(t *testing.T) {
	cfg := models.OutputConfig{MonthlyBillQuestionID: "monthly_bill"}
	est, warnings := BuildProjectEstimates(map[string]any{"monthly_bill": 300.0}, cfg, 75)
	if est == nil {
		t.Fatalf("expected estimates, warnings=%v", warnings)
	}
	if len(warnings) != 0 {
		t.Fatalf("explicit question must not warn: %v", warnings)
	}
	// 300 * 12 / 0.65 = 5538.46 kWh/yr; / 1200 = 4.62 kWp; * 4500 = 20769.23.
	if !almostEqual(est.AnnualConsumptionKWh, 5538.46) {
		t.Fatalf("consumption = %v", est.AnnualConsumptionKWh)
	}
	if !almostEqual(est.SystemSizeKWp, 4.62) {
		t.Fatalf("system size = %v", est.SystemSizeKWp)
	}
	if !almostEqual(est.EstimatedInvestment, 20769.23) {
		t.Fatalf("investment = %v", est.EstimatedInvestment)
	}
	if est.PaybackMonthsEst != 72 {
		t.Fatalf("payback = %v", est.PaybackMonthsEst)
	}
	if !almostEqual(est.AnnualSavingsEst, 3240) {
		t.Fatalf("savings = %v", est.AnnualSavingsEst)
	}
	if est.Confidence != 75 {
		t.Fatalf("confidence = %v, want percentage score", est.Confidence)
	}
}

func TestBuildProjectEstimatesConfidenceCap(t *testing.T) {
	cfg := models.OutputConfig{MonthlyBillQuestionID: "bill"}
	est, _ := BuildProjectEstimates(map[string]any{"bill": 200.0}, cfg, 100)
	if est.Confidence != 95 {
		t.Fatalf("confidence = %v, want capped at 95", est.Confidence)
	}
}

func TestBuildProjectEstimatesExplicitQuestionMissing(t *testing.T) {
	cfg := models.OutputConfig{MonthlyBillQuestionID: "monthly_bill"}
	est, warnings := BuildProjectEstimates(map[string]any{"other": 300.0}, cfg, 75)
	if est != nil {
		t.Fatalf("missing configured answer must omit estimates")
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want one", warnings)
	}
}

func TestBuildProjectEstimatesHeuristicFallback(t *testing.T) {
	// No configured question: sorted scan picks the first plausible bill.
	answers := map[string]any{
		"a_roof_area": 30.0,  // below the 50 floor
		"b_bill":      250.0, // first plausible value in sorted order
		"c_income":    9000.0,
	}
	est, warnings := BuildProjectEstimates(answers, models.OutputConfig{}, 60)
	if est == nil {
		t.Fatalf("expected estimates from fallback scan")
	}
	if est.MonthlyBill != 250 {
		t.Fatalf("bill = %v, want 250 (first in sorted question order)", est.MonthlyBill)
	}
	if len(warnings) != 1 {
		t.Fatalf("fallback must warn, got %v", warnings)
	}
}

func TestBuildProjectEstimatesHeuristicBounds(t *testing.T) {
	// 50 and 10000 are exclusive bounds for the scan.
	answers := map[string]any{"q1": 50.0, "q2": 10000.0}
	est, _ := BuildProjectEstimates(answers, models.OutputConfig{}, 60)
	if est != nil {
		t.Fatalf("boundary values must not be treated as bills")
	}
}
