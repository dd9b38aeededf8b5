package services

import (
	"testing"

	"github.com/hudsonargollo/isotec-screening/internal/models"
)

func TestClassifyFeasibilityDefaults(t *testing.T) {
	cases := []struct {
		pct  float64
		want models.FeasibilityRating
	}{
		{95, models.FeasibilityHigh},
		{80, models.FeasibilityHigh},
		{79.9, models.FeasibilityMedium},
		{60, models.FeasibilityMedium},
		{45, models.FeasibilityLow},
		{40, models.FeasibilityLow},
		{39.9, models.FeasibilityNotFeasible},
	}
	for _, tc := range cases {
		if got := ClassifyFeasibility(tc.pct, nil); got != tc.want {
			t.Fatalf("pct %v = %v, want %v", tc.pct, got, tc.want)
		}
	}
}

func TestClassifyQualification(t *testing.T) {
	if got := ClassifyQualification(55, nil); got != models.QualificationPartiallyQualified {
		t.Fatalf("55%% default = %v, want partially_qualified", got)
	}
	if got := ClassifyQualification(70, nil); got != models.QualificationQualified {
		t.Fatalf("70%% default = %v, want qualified", got)
	}
	if got := ClassifyQualification(10, nil); got != models.QualificationNotQualified {
		t.Fatalf("10%% default = %v, want not_qualified", got)
	}
	// Tenant override moves the cutoff.
	custom := map[string]float64{"qualified": 50}
	if got := ClassifyQualification(55, custom); got != models.QualificationQualified {
		t.Fatalf("55%% with qualified=50 = %v, want qualified", got)
	}
}

func TestClassifyRiskCriticalFailures(t *testing.T) {
	if got := ClassifyRisk(2, 0, nil); got != models.RiskCritical {
		t.Fatalf("two critical failures = %v, want critical", got)
	}
	if got := ClassifyRisk(1, 0, nil); got != models.RiskHigh {
		t.Fatalf("one critical failure = %v, want high", got)
	}
	if got := ClassifyRisk(0, 0, nil); got != models.RiskLow {
		t.Fatalf("clean run = %v, want low", got)
	}
}

func TestClassifyRiskFactorCounts(t *testing.T) {
	if got := ClassifyRisk(0, 5, nil); got != models.RiskCritical {
		t.Fatalf("5 factors = %v, want critical", got)
	}
	if got := ClassifyRisk(0, 3, nil); got != models.RiskHigh {
		t.Fatalf("3 factors = %v, want high", got)
	}
	if got := ClassifyRisk(0, 1, nil); got != models.RiskMedium {
		t.Fatalf("1 factor = %v, want medium", got)
	}
}

func TestFollowUpPriorityMatrix(t *testing.T) {
	cases := []struct {
		q    models.QualificationLevel
		f    models.FeasibilityRating
		want models.Priority
	}{
		{models.QualificationQualified, models.FeasibilityHigh, models.PriorityHigh},
		{models.QualificationQualified, models.FeasibilityMedium, models.PriorityMedium},
		{models.QualificationPartiallyQualified, models.FeasibilityHigh, models.PriorityMedium},
		{models.QualificationNotQualified, models.FeasibilityLow, models.PriorityLow},
	}
	for _, tc := range cases {
		if got := FollowUpPriority(tc.q, tc.f); got != tc.want {
			t.Fatalf("(%s,%s) = %v, want %v", tc.q, tc.f, got, tc.want)
		}
	}
}
