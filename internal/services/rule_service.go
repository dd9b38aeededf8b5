package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/hudsonargollo/isotec-screening/internal/models"
)

// RuleStore abstracts persistence for screening-rule administration.
type RuleStore interface {
	AddRule(r *models.ScreeningRule) error
	GetRule(tenantID, id string) (*models.ScreeningRule, error)
	UpdateRule(r *models.ScreeningRule) error
	DeleteRule(tenantID, id string) error
	ListRules(tenantID string) ([]*models.ScreeningRule, error)
	AddAudit(e models.AuditEntry)
}

// RuleService manages the tenant's screening-rule catalog.
type RuleService struct {
	store RuleStore
	now   func() time.Time
	idGen func(prefix string, n int) string
}

func NewRuleService(store RuleStore) *RuleService {
	return &RuleService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: prefixedID,
	}
}

func (s *RuleService) CreateRule(tenantID string, rule *models.ScreeningRule, actor string) (*models.ScreeningRule, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	now := s.now()
	if rule.ID == "" {
		rule.ID = s.idGen("rl", 8)
	}
	rule.TenantID = tenantID
	rule.IsActive = true
	rule.Version = 1
	rule.CreatedAt = now
	rule.UpdatedAt = now
	if err := s.store.AddRule(rule); err != nil {
		return nil, err
	}
	s.store.AddAudit(models.AuditEntry{Time: now, Actor: actor, Action: "create_rule", Target: rule.ID})
	return rule, nil
}

func (s *RuleService) GetRule(tenantID, id string) (*models.ScreeningRule, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	return s.store.GetRule(tenantID, id)
}

func (s *RuleService) ListRules(tenantID string) ([]*models.ScreeningRule, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	return s.store.ListRules(tenantID)
}

// RuleUpdate carries the editable rule fields. Nil members leave the
// current value untouched.
type RuleUpdate struct {
	Category        *string
	RuleType        *models.RuleType
	Conditions      []models.RuleCondition
	Scoring         *models.RuleScoring
	Thresholds      map[string]float64
	RiskFactors     []string
	Recommendations *models.RuleRecommendations
	Priority        *int
	IsActive        *bool
}

// UpdateRule applies an edit and bumps the rule's version counter.
func (s *RuleService) UpdateRule(tenantID, id string, update RuleUpdate, actor string) (*models.ScreeningRule, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	rule, err := s.store.GetRule(tenantID, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, NewNotFoundError("rule not found")
	}
	if update.Category != nil {
		rule.Category = *update.Category
	}
	if update.RuleType != nil {
		rule.RuleType = *update.RuleType
	}
	if update.Conditions != nil {
		rule.Conditions = update.Conditions
	}
	if update.Scoring != nil {
		rule.Scoring = *update.Scoring
	}
	if update.Thresholds != nil {
		rule.Thresholds = update.Thresholds
	}
	if update.RiskFactors != nil {
		rule.RiskFactors = update.RiskFactors
	}
	if update.Recommendations != nil {
		rule.Recommendations = *update.Recommendations
	}
	if update.Priority != nil {
		rule.Priority = *update.Priority
	}
	if update.IsActive != nil {
		rule.IsActive = *update.IsActive
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	now := s.now()
	rule.Version++
	rule.UpdatedAt = now
	if err := s.store.UpdateRule(rule); err != nil {
		return nil, err
	}
	s.store.AddAudit(models.AuditEntry{Time: now, Actor: actor, Action: "update_rule", Target: id})
	return rule, nil
}

func (s *RuleService) DeleteRule(tenantID, id, actor string) error {
	if tenantID == "" {
		return NewForbiddenError("unauthorized")
	}
	rule, err := s.store.GetRule(tenantID, id)
	if err != nil {
		return err
	}
	if rule == nil {
		return NewNotFoundError("rule not found")
	}
	if err := s.store.DeleteRule(tenantID, id); err != nil {
		return err
	}
	s.store.AddAudit(models.AuditEntry{Time: s.now(), Actor: actor, Action: "delete_rule", Target: id})
	return nil
}

// validateRule enforces the per-type shape invariants before a rule is
// stored. The type switch is closed; unknown types are rejected here so
// the evaluator never sees them.
func validateRule(rule *models.ScreeningRule) error {
	if rule == nil {
		return NewInvalidError("rule required")
	}
	if strings.TrimSpace(rule.Category) == "" {
		return NewInvalidError("rule category required")
	}
	if rule.Scoring.Points < 0 {
		return NewInvalidError("scoring points must not be negative")
	}
	if rule.Priority < 1 {
		return NewInvalidError("priority must be >= 1")
	}
	switch rule.RuleType {
	case models.RuleThreshold:
		if len(rule.Conditions) == 0 {
			return NewInvalidError("threshold rule requires a condition")
		}
		switch rule.Conditions[0].Operator {
		case models.OpGreaterThan, models.OpLessThan, models.OpEquals, models.OpNotEquals:
		default:
			return NewInvalidError(fmt.Sprintf("operator %q not valid for threshold rules", rule.Conditions[0].Operator))
		}
	case models.RuleRange:
		if len(rule.Conditions) == 0 {
			return NewInvalidError("range rule requires a condition")
		}
		if _, _, ok := valueAsRange(rule.Conditions[0].Value); !ok {
			return NewInvalidError("range rule value must be a [min, max] pair")
		}
	case models.RuleWeightedSum:
		if len(rule.Conditions) == 0 {
			return NewInvalidError("weighted_sum rule requires at least one condition")
		}
	case models.RuleConditional:
		if len(rule.Conditions) == 0 {
			return NewInvalidError("conditional rule requires at least one condition")
		}
	case models.RuleFormula:
		// Accepted but never satisfied at evaluation time.
	default:
		return NewInvalidError(fmt.Sprintf("unknown rule type %q", rule.RuleType))
	}
	for _, c := range rule.Conditions {
		if strings.TrimSpace(c.QuestionID) == "" {
			return NewInvalidError("condition question_id required")
		}
	}
	return nil
}
