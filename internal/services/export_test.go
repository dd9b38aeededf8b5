package services

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/hudsonargollo/isotec-screening/internal/models"
)

func readCSV(t *testing.T, b []byte) [][]string {
	t.Helper()
	recs, err := csv.NewReader(strings.NewReader(string(b))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return recs
}

func TestExportResultsCSV(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	results := []*models.EnhancedScreeningResult{
		{
			ID: "res1", ResponseID: "resp1", TemplateID: "st1",
			TotalScore: 80, MaxPossibleScore: 100, PercentageScore: 80,
			FeasibilityRating:  models.FeasibilityHigh,
			QualificationLevel: models.QualificationQualified,
			RiskLevel:          models.RiskLow,
			FollowUpPriority:   models.PriorityHigh,
			ProjectEstimates:   &models.ProjectEstimates{MonthlyBill: 300, SystemSizeKWp: 4.62},
			Metadata:           models.CalculationMetadata{RulesProcessed: 5},
			CreatedAt:          created,
		},
		{
			ID: "res2", TemplateID: "st1",
			QualificationLevel: models.QualificationNotQualified,
			CreatedAt:          created,
		},
	}

	b, err := ExportResultsCSV(results)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	recs := readCSV(t, b)
	if len(recs) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(recs))
	}
	if recs[0][0] != "result_id" {
		t.Fatalf("header = %v", recs[0])
	}
	row := recs[1]
	if row[0] != "res1" || row[5] != "80.00" || row[6] != "high" {
		t.Fatalf("row = %v", row)
	}
	if row[11] != "300.00" {
		t.Fatalf("monthly bill column = %q", row[11])
	}
	if row[13] != "2025-03-01T12:00:00Z" {
		t.Fatalf("created_at column = %q", row[13])
	}
	// Results without estimates leave the estimate columns empty.
	if recs[2][11] != "" || recs[2][12] != "" {
		t.Fatalf("estimate columns = %v", recs[2])
	}
}

func TestExportResultsCSVEmpty(t *testing.T) {
	b, err := ExportResultsCSV(nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	recs := readCSV(t, b)
	if len(recs) != 1 {
		t.Fatalf("empty export must still emit the header, got %d rows", len(recs))
	}
}
