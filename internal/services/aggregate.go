package services

import "github.com/hudsonargollo/isotec-screening/internal/models"

// ScoreTotals carries the overall score sums across all applied rules.
type ScoreTotals struct {
	Total      float64
	Max        float64
	Percentage float64
}

// AggregateCategories buckets rule applications by category and sums
// scores, maximum points and weights per bucket. Totals are computed the
// same way across all rules regardless of category, so category sums
// always reconcile with the overall totals.
func AggregateCategories(apps []models.RuleApplication) (map[string]models.CategoryScore, ScoreTotals) {
	categories := map[string]models.CategoryScore{}
	var totals ScoreTotals
	for _, app := range apps {
		cat := categories[app.Category]
		cat.Score += app.ScoreAwarded
		cat.MaxScore += app.MaxPoints
		cat.Weight += app.Weight
		categories[app.Category] = cat

		totals.Total += app.ScoreAwarded
		totals.Max += app.MaxPoints
	}
	for name, cat := range categories {
		if cat.MaxScore > 0 {
			cat.Percentage = cat.Score / cat.MaxScore * 100
		}
		categories[name] = cat
	}
	if totals.Max > 0 {
		totals.Percentage = totals.Total / totals.Max * 100
	}
	return categories, totals
}
