package models

import "time"

// RuleType enumerates the evaluation strategies a screening rule can use.
// The set is closed; the evaluator switches exhaustively over it.
type RuleType string

const (
	RuleThreshold   RuleType = "threshold"
	RuleRange       RuleType = "range"
	RuleWeightedSum RuleType = "weighted_sum"
	RuleConditional RuleType = "conditional"
	RuleFormula     RuleType = "formula"
)

// Operator enumerates condition comparison operators. Substring operators
// (contains/not_contains) are only meaningful for conditional rules.
type Operator string

const (
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
)

// RuleCondition references one questionnaire answer. Value carries the
// comparison operand; for range rules it is a two-element [min, max] list.
type RuleCondition struct {
	QuestionID string   `json:"question_id"`
	Operator   Operator `json:"operator,omitempty"`
	Value      any      `json:"value,omitempty"`
	Weight     float64  `json:"weight,omitempty"`
}

type RuleScoring struct {
	Points float64 `json:"points"`
	Weight float64 `json:"weight,omitempty"`
}

// RuleRecommendations holds the per-outcome guidance messages for a rule.
type RuleRecommendations struct {
	Qualified          string `json:"qualified,omitempty"`
	PartiallyQualified string `json:"partially_qualified,omitempty"`
	NotQualified       string `json:"not_qualified,omitempty"`
}

// ScreeningRule is a tenant-defined, typed predicate over questionnaire
// answers that awards points when satisfied. Lower priority means more
// critical; priority <= 2 failures drive the risk classification.
type ScreeningRule struct {
	ID              string              `json:"id"`
	TenantID        string              `json:"tenant_id,omitempty"`
	Category        string              `json:"category"`
	RuleType        RuleType            `json:"rule_type"`
	Conditions      []RuleCondition     `json:"conditions"`
	Scoring         RuleScoring         `json:"scoring"`
	Thresholds      map[string]float64  `json:"thresholds,omitempty"`
	RiskFactors     []string            `json:"risk_factors,omitempty"`
	Recommendations RuleRecommendations `json:"recommendations,omitempty"`
	Priority        int                 `json:"priority"`
	IsActive        bool                `json:"is_active"`
	Version         int                 `json:"version,omitempty"`
	CreatedAt       time.Time           `json:"created_at,omitempty"`
	UpdatedAt       time.Time           `json:"updated_at,omitempty"`
}

// ScoringConfig carries the tenant-configurable classification cutoffs and
// the option-to-score map used by weighted_sum answer coercion.
type ScoringConfig struct {
	FeasibilityThresholds   map[string]float64 `json:"feasibility_thresholds,omitempty"`
	QualificationThresholds map[string]float64 `json:"qualification_thresholds,omitempty"`
	RiskThresholds          map[string]float64 `json:"risk_thresholds,omitempty"`
	OptionScores            map[string]float64 `json:"option_scores,omitempty"`
}

// OutputConfig shapes the human-facing portion of a screening result.
// MonthlyBillQuestionID names the answer the project estimator should read;
// when empty the estimator falls back to a legacy magnitude scan.
type OutputConfig struct {
	MonthlyBillQuestionID string `json:"monthly_bill_question_id,omitempty"`
}

// ScreeningTemplate pairs a rule set and scoring configuration with a
// questionnaire template. Edits are snapshotted as TemplateVersions.
type ScreeningTemplate struct {
	ID                      string        `json:"id"`
	TenantID                string        `json:"tenant_id,omitempty"`
	Name                    string        `json:"name"`
	Description             string        `json:"description,omitempty"`
	Version                 string        `json:"version,omitempty"`
	VersionNumber           int           `json:"version_number"`
	RuleIDs                 []string      `json:"rule_ids"`
	ScoringConfig           ScoringConfig `json:"scoring_config"`
	OutputConfig            OutputConfig  `json:"output_config"`
	QuestionnaireTemplateID string        `json:"questionnaire_template_id,omitempty"`
	IsActive                bool          `json:"is_active"`
	CreatedAt               time.Time     `json:"created_at,omitempty"`
	UpdatedAt               time.Time     `json:"updated_at,omitempty"`
}

// TemplateVersion is an immutable snapshot of a template at a point in
// time. Rows are only ever created or read, never mutated.
type TemplateVersion struct {
	ID            string        `json:"id"`
	TenantID      string        `json:"tenant_id,omitempty"`
	TemplateID    string        `json:"template_id"`
	VersionNumber int           `json:"version_number"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	RuleIDs       []string      `json:"rule_ids"`
	ScoringConfig ScoringConfig `json:"scoring_config"`
	OutputConfig  OutputConfig  `json:"output_config"`
	Notes         string        `json:"notes,omitempty"`
	CreatedBy     string        `json:"created_by,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ChangeEntry is one line of a structural diff between two versions.
type ChangeEntry struct {
	Field  string `json:"field"`
	Kind   string `json:"kind"` // modified | rule_added | rule_removed
	Detail string `json:"detail,omitempty"`
}

// TemplateChange records the diff produced by comparing two versions.
type TemplateChange struct {
	ID           string        `json:"id"`
	TenantID     string        `json:"tenant_id,omitempty"`
	TemplateID   string        `json:"template_id"`
	FromVersion  int           `json:"from_version"`
	ToVersion    int           `json:"to_version"`
	Changes      []ChangeEntry `json:"changes"`
	AddedRules   int           `json:"added_rules"`
	RemovedRules int           `json:"removed_rules"`
	Modified     int           `json:"modified_fields"`
	CreatedAt    time.Time     `json:"created_at"`
}

// QuestionnaireResponse maps question IDs to answers. Answers may be
// numeric, string, boolean, or list valued.
type QuestionnaireResponse struct {
	ID                      string         `json:"id"`
	TenantID                string         `json:"tenant_id,omitempty"`
	QuestionnaireTemplateID string         `json:"questionnaire_template_id,omitempty"`
	Answers                 map[string]any `json:"answers"`
	SubmittedAt             time.Time      `json:"submitted_at"`
}

// RuleApplication is the audit-trail record of one rule's contribution to
// a screening result.
type RuleApplication struct {
	RuleID        string         `json:"rule_id"`
	Category      string         `json:"category"`
	RuleType      RuleType       `json:"rule_type"`
	Priority      int            `json:"priority"`
	ConditionsMet bool           `json:"conditions_met"`
	ScoreAwarded  float64        `json:"score_awarded"`
	MaxPoints     float64        `json:"max_points"`
	Weight        float64        `json:"weight,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

type CategoryScore struct {
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Percentage float64 `json:"percentage"`
	Weight     float64 `json:"weight"`
}

type FeasibilityRating string

const (
	FeasibilityHigh        FeasibilityRating = "high"
	FeasibilityMedium      FeasibilityRating = "medium"
	FeasibilityLow         FeasibilityRating = "low"
	FeasibilityNotFeasible FeasibilityRating = "not_feasible"
)

type QualificationLevel string

const (
	QualificationQualified          QualificationLevel = "qualified"
	QualificationPartiallyQualified QualificationLevel = "partially_qualified"
	QualificationNotQualified       QualificationLevel = "not_qualified"
)

type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Recommendation struct {
	RuleID         string   `json:"rule_id"`
	Category       string   `json:"category,omitempty"`
	Message        string   `json:"message"`
	Priority       Priority `json:"priority"`
	ActionRequired bool     `json:"action_required"`
}

type RiskFactor struct {
	RuleID     string   `json:"rule_id"`
	Category   string   `json:"category,omitempty"`
	Factor     string   `json:"factor"`
	Severity   Priority `json:"severity"`
	Mitigation string   `json:"mitigation,omitempty"`
}

type NextStep struct {
	Order  int    `json:"order"`
	Action string `json:"action"`
}

// ProjectEstimates derives sizing and investment figures from the detected
// monthly electricity bill. Monetary values are BRL.
type ProjectEstimates struct {
	MonthlyBill          float64 `json:"monthly_bill"`
	AnnualConsumptionKWh float64 `json:"annual_consumption_kwh"`
	SystemSizeKWp        float64 `json:"system_size_kwp"`
	EstimatedInvestment  float64 `json:"estimated_investment"`
	PaybackMonthsMin     int     `json:"payback_months_min"`
	PaybackMonthsMax     int     `json:"payback_months_max"`
	PaybackMonthsEst     int     `json:"payback_months_estimated"`
	AnnualSavingsMin     float64 `json:"annual_savings_min"`
	AnnualSavingsMax     float64 `json:"annual_savings_max"`
	AnnualSavingsEst     float64 `json:"annual_savings_estimated"`
	Confidence           float64 `json:"confidence"`
}

type CalculationMetadata struct {
	EngineVersion   string    `json:"engine_version"`
	TemplateVersion int       `json:"template_version"`
	CalculatedAt    time.Time `json:"calculated_at"`
	RulesProcessed  int       `json:"rules_processed"`
	Warnings        []string  `json:"warnings,omitempty"`
}

// EnhancedScreeningResult is the immutable point-in-time assessment
// produced by one screening run.
type EnhancedScreeningResult struct {
	ID                 string                   `json:"id"`
	TenantID           string                   `json:"tenant_id,omitempty"`
	ResponseID         string                   `json:"response_id,omitempty"`
	TemplateID         string                   `json:"template_id"`
	TotalScore         float64                  `json:"total_score"`
	MaxPossibleScore   float64                  `json:"max_possible_score"`
	PercentageScore    float64                  `json:"percentage_score"`
	CategoryScores     map[string]CategoryScore `json:"category_scores"`
	FeasibilityRating  FeasibilityRating        `json:"feasibility_rating"`
	QualificationLevel QualificationLevel       `json:"qualification_level"`
	RiskLevel          RiskLevel                `json:"risk_level"`
	FollowUpPriority   Priority                 `json:"follow_up_priority"`
	Recommendations    []Recommendation         `json:"recommendations"`
	RiskFactors        []RiskFactor             `json:"risk_factors"`
	NextSteps          []NextStep               `json:"next_steps"`
	ProjectEstimates   *ProjectEstimates        `json:"project_estimates,omitempty"`
	AppliedRules       []RuleApplication        `json:"applied_rules"`
	Metadata           CalculationMetadata      `json:"calculation_metadata"`
	CreatedAt          time.Time                `json:"created_at"`
}

// PeriodStat is one bucket of the per-period result aggregation used by
// the consistency check.
type PeriodStat struct {
	Period         string  `json:"period"`
	Count          int     `json:"count"`
	MeanPercentage float64 `json:"mean_percentage"`
}

// ConsistencyCheck summarizes whether assessments across a date range
// scored consistently, flagging drift after rule edits.
type ConsistencyCheck struct {
	TemplateID   string       `json:"template_id"`
	TenantID     string       `json:"tenant_id,omitempty"`
	From         time.Time    `json:"from"`
	To           time.Time    `json:"to"`
	Periods      []PeriodStat `json:"periods"`
	SampleSize   int          `json:"sample_size"`
	OverallMean  float64      `json:"overall_mean"`
	MaxDeviation float64      `json:"max_deviation"`
	Consistent   bool         `json:"consistent"`
	Note         string       `json:"note,omitempty"`
	CheckedAt    time.Time    `json:"checked_at"`
}

type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}

// Tenant and User back the admin auth bootstrap.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	TenantID  string    `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
