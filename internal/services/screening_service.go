package services

import (
	"time"

	"github.com/hudsonargollo/isotec-screening/internal/models"
)

// EngineVersion is stamped into the calculation metadata of every result.
const EngineVersion = "2.0.0"

// ScreeningStore abstracts the persistence operations the screening run
// needs. All reads are tenant-scoped; a missing single row is returned as
// nil, not as an error.
type ScreeningStore interface {
	GetTemplate(tenantID, id string) (*models.ScreeningTemplate, error)
	FindActiveTemplate(tenantID, questionnaireTemplateID string) (*models.ScreeningTemplate, error)
	ListRulesByIDs(tenantID string, ids []string) ([]*models.ScreeningRule, error)
	GetResponse(tenantID, id string) (*models.QuestionnaireResponse, error)
	AddScreeningResult(r *models.EnhancedScreeningResult) error
	GetScreeningResult(tenantID, id string) (*models.EnhancedScreeningResult, error)
	ListScreeningResults(tenantID, templateID string) ([]*models.EnhancedScreeningResult, error)
}

// ScreeningService runs the full evaluation pipeline: rule evaluation,
// category aggregation, rating classification, recommendation generation
// and project estimation.
type ScreeningService struct {
	store ScreeningStore
	now   func() time.Time
	idGen func() string
}

func NewScreeningService(store ScreeningStore) *ScreeningService {
	return &ScreeningService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return shortID(12) },
	}
}

// EvaluateRequest carries the sanitized handler input. Either ResponseID
// or inline Answers must be provided; TemplateID is optional and resolved
// from the response's questionnaire template when absent.
type EvaluateRequest struct {
	TenantID                string
	ResponseID              string
	TemplateID              string
	QuestionnaireTemplateID string
	Answers                 map[string]any
}

// Evaluate runs one screening and persists the resulting assessment.
// Rule-evaluation errors are downgraded to warnings; template resolution
// and store failures abort the run.
func (s *ScreeningService) Evaluate(req EvaluateRequest) (*models.EnhancedScreeningResult, error) {
	if req.TenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}

	answers := req.Answers
	questionnaireTemplateID := req.QuestionnaireTemplateID
	if req.ResponseID != "" {
		resp, err := s.store.GetResponse(req.TenantID, req.ResponseID)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			return nil, NewNotFoundError("questionnaire response not found")
		}
		answers = resp.Answers
		questionnaireTemplateID = resp.QuestionnaireTemplateID
	}
	if len(answers) == 0 {
		return nil, NewInvalidError("answers required")
	}

	tpl, err := s.resolveTemplate(req.TenantID, req.TemplateID, questionnaireTemplateID)
	if err != nil {
		return nil, err
	}

	rules, err := s.store.ListRulesByIDs(req.TenantID, tpl.RuleIDs)
	if err != nil {
		return nil, err
	}

	optionScores := tpl.ScoringConfig.OptionScores
	if len(optionScores) == 0 {
		optionScores = DefaultOptionScores
	}

	var warnings []string
	outcomes := make([]RuleOutcome, 0, len(rules))
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		app := ApplyRule(rule, answers, optionScores)
		if msg, ok := app.Details["error"].(string); ok {
			warnings = append(warnings, rule.ID+": "+msg)
		}
		outcomes = append(outcomes, RuleOutcome{Rule: rule, App: app})
	}

	apps := make([]models.RuleApplication, 0, len(outcomes))
	criticalFailures := 0
	for _, oc := range outcomes {
		apps = append(apps, oc.App)
		if !oc.App.ConditionsMet && oc.Rule.Priority <= 2 {
			criticalFailures++
		}
	}

	categories, totals := AggregateCategories(apps)
	feasibility := ClassifyFeasibility(totals.Percentage, tpl.ScoringConfig.FeasibilityThresholds)
	qualification := ClassifyQualification(totals.Percentage, tpl.ScoringConfig.QualificationThresholds)
	riskFactors := BuildRiskFactors(outcomes)
	risk := ClassifyRisk(criticalFailures, len(riskFactors), tpl.ScoringConfig.RiskThresholds)

	estimates, estimateWarnings := BuildProjectEstimates(answers, tpl.OutputConfig, totals.Percentage)
	warnings = append(warnings, estimateWarnings...)

	now := s.now()
	result := &models.EnhancedScreeningResult{
		ID:                 s.idGen(),
		TenantID:           req.TenantID,
		ResponseID:         req.ResponseID,
		TemplateID:         tpl.ID,
		TotalScore:         totals.Total,
		MaxPossibleScore:   totals.Max,
		PercentageScore:    totals.Percentage,
		CategoryScores:     categories,
		FeasibilityRating:  feasibility,
		QualificationLevel: qualification,
		RiskLevel:          risk,
		FollowUpPriority:   FollowUpPriority(qualification, feasibility),
		Recommendations:    BuildRecommendations(outcomes, qualification),
		RiskFactors:        riskFactors,
		NextSteps:          NextSteps(qualification),
		ProjectEstimates:   estimates,
		AppliedRules:       apps,
		Metadata: models.CalculationMetadata{
			EngineVersion:   EngineVersion,
			TemplateVersion: tpl.VersionNumber,
			CalculatedAt:    now,
			RulesProcessed:  len(apps),
			Warnings:        warnings,
		},
		CreatedAt: now,
	}

	if err := s.store.AddScreeningResult(result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ScreeningService) resolveTemplate(tenantID, templateID, questionnaireTemplateID string) (*models.ScreeningTemplate, error) {
	if templateID != "" {
		tpl, err := s.store.GetTemplate(tenantID, templateID)
		if err != nil {
			return nil, err
		}
		if tpl == nil {
			return nil, NewNotFoundError("screening template not found")
		}
		return tpl, nil
	}
	tpl, err := s.store.FindActiveTemplate(tenantID, questionnaireTemplateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, NewNotFoundError("no screening template found")
	}
	return tpl, nil
}

// GetResult returns a stored assessment, or nil when it does not exist.
func (s *ScreeningService) GetResult(tenantID, id string) (*models.EnhancedScreeningResult, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	return s.store.GetScreeningResult(tenantID, id)
}

// ListResults returns stored assessments, optionally filtered by template.
func (s *ScreeningService) ListResults(tenantID, templateID string) ([]*models.EnhancedScreeningResult, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	return s.store.ListScreeningResults(tenantID, templateID)
}

// ExportResults renders stored assessments as CSV.
func (s *ScreeningService) ExportResults(tenantID, templateID string) ([]byte, error) {
	results, err := s.ListResults(tenantID, templateID)
	if err != nil {
		return nil, err
	}
	return ExportResultsCSV(results)
}
