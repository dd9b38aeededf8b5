package services

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/hudsonargollo/isotec-screening/internal/models"
)

// ExportResultsCSV renders stored assessments as a flat CSV, one row per
// screening result. Nested structures (category scores, applied rules)
// are summarized, not exploded.
func ExportResultsCSV(results []*models.EnhancedScreeningResult) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{
		"result_id", "response_id", "template_id",
		"total_score", "max_possible_score", "percentage_score",
		"feasibility", "qualification", "risk", "follow_up",
		"rules_processed", "monthly_bill", "system_size_kwp",
		"created_at",
	})
	for _, r := range results {
		bill, size := "", ""
		if r.ProjectEstimates != nil {
			bill = ftoa(r.ProjectEstimates.MonthlyBill)
			size = ftoa(r.ProjectEstimates.SystemSizeKWp)
		}
		rec := []string{
			r.ID,
			r.ResponseID,
			r.TemplateID,
			ftoa(r.TotalScore),
			ftoa(r.MaxPossibleScore),
			ftoa(r.PercentageScore),
			string(r.FeasibilityRating),
			string(r.QualificationLevel),
			string(r.RiskLevel),
			string(r.FollowUpPriority),
			strconv.Itoa(r.Metadata.RulesProcessed),
			bill,
			size,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
