package services

import (
	"testing"
	"time"

	"github.com/hudsonargollo/isotec-screening/internal/models"
)

type stubRuleStore struct {
	rules map[string]*models.ScreeningRule
	audit []models.AuditEntry
}

func newStubRuleStore() *stubRuleStore {
	return &stubRuleStore{rules: map[string]*models.ScreeningRule{}}
}

func (s *stubRuleStore) AddRule(r *models.ScreeningRule) error {
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}

func (s *stubRuleStore) GetRule(tenantID, id string) (*models.ScreeningRule, error) {
	r := s.rules[id]
	if r == nil || r.TenantID != tenantID {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *stubRuleStore) UpdateRule(r *models.ScreeningRule) error {
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}

func (s *stubRuleStore) DeleteRule(tenantID, id string) error {
	delete(s.rules, id)
	return nil
}

func (s *stubRuleStore) ListRules(tenantID string) ([]*models.ScreeningRule, error) {
	out := []*models.ScreeningRule{}
	for _, r := range s.rules {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRuleStore) AddAudit(e models.AuditEntry) {
	s.audit = append(s.audit, e)
}

func newTestRuleService(store *stubRuleStore) *RuleService {
	svc := NewRuleService(store)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func validThresholdRule() *models.ScreeningRule {
	return &models.ScreeningRule{
		Category: "technical",
		RuleType: models.RuleThreshold,
		Conditions: []models.RuleCondition{
			{QuestionID: "roof_area", Operator: models.OpGreaterThan, Value: 20.0},
		},
		Scoring:  models.RuleScoring{Points: 25},
		Priority: 1,
	}
}

func TestCreateRule(t *testing.T) {
	store := newStubRuleStore()
	svc := newTestRuleService(store)

	rule, err := svc.CreateRule("t1", validThresholdRule(), "admin")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rule.ID == "" || !rule.IsActive || rule.Version != 1 {
		t.Fatalf("rule = %+v", rule)
	}
	if len(store.audit) != 1 || store.audit[0].Action != "create_rule" {
		t.Fatalf("audit = %+v", store.audit)
	}
}

func TestCreateRuleValidation(t *testing.T) {
	svc := newTestRuleService(newStubRuleStore())

	cases := []struct {
		name string
		mut  func(*models.ScreeningRule)
	}{
		{"missing category", func(r *models.ScreeningRule) { r.Category = "" }},
		{"negative points", func(r *models.ScreeningRule) { r.Scoring.Points = -1 }},
		{"zero priority", func(r *models.ScreeningRule) { r.Priority = 0 }},
		{"unknown type", func(r *models.ScreeningRule) { r.RuleType = "mystery" }},
		{"no conditions", func(r *models.ScreeningRule) { r.Conditions = nil }},
		{"bad operator", func(r *models.ScreeningRule) { r.Conditions[0].Operator = models.OpContains }},
		{"empty question id", func(r *models.ScreeningRule) { r.Conditions[0].QuestionID = " " }},
	}
	for _, tc := range cases {
		rule := validThresholdRule()
		tc.mut(rule)
		_, err := svc.CreateRule("t1", rule, "admin")
		se, ok := AsServiceError(err)
		if !ok || se.Code != ErrorInvalid {
			t.Fatalf("%s: err = %v, want invalid", tc.name, err)
		}
	}
}

func TestCreateRangeRuleValidatesPair(t *testing.T) {
	svc := newTestRuleService(newStubRuleStore())
	rule := &models.ScreeningRule{
		Category: "technical",
		RuleType: models.RuleRange,
		Conditions: []models.RuleCondition{
			{QuestionID: "panel_count", Value: 15.0}, // not a pair
		},
		Scoring:  models.RuleScoring{Points: 10},
		Priority: 3,
	}
	_, err := svc.CreateRule("t1", rule, "admin")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("err = %v, want invalid", err)
	}

	rule.Conditions[0].Value = []any{10.0, 20.0}
	if _, err := svc.CreateRule("t1", rule, "admin"); err != nil {
		t.Fatalf("valid range rule rejected: %v", err)
	}
}

func TestUpdateRuleBumpsVersion(t *testing.T) {
	store := newStubRuleStore()
	svc := newTestRuleService(store)
	rule, err := svc.CreateRule("t1", validThresholdRule(), "admin")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	priority := 4
	updated, err := svc.UpdateRule("t1", rule.ID, RuleUpdate{Priority: &priority}, "admin")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 || updated.Priority != 4 {
		t.Fatalf("updated = %+v", updated)
	}
}

func TestUpdateRuleRejectsInvalidEdit(t *testing.T) {
	store := newStubRuleStore()
	svc := newTestRuleService(store)
	rule, err := svc.CreateRule("t1", validThresholdRule(), "admin")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	bad := 0
	_, err = svc.UpdateRule("t1", rule.ID, RuleUpdate{Priority: &bad}, "admin")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("err = %v, want invalid", err)
	}
	// The stored rule is untouched.
	stored, _ := svc.GetRule("t1", rule.ID)
	if stored.Priority != 1 || stored.Version != 1 {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestDeleteRule(t *testing.T) {
	store := newStubRuleStore()
	svc := newTestRuleService(store)
	rule, err := svc.CreateRule("t1", validThresholdRule(), "admin")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.DeleteRule("t1", rule.ID, "admin"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := svc.GetRule("t1", rule.ID); got != nil {
		t.Fatalf("rule still present after delete")
	}

	err = svc.DeleteRule("t1", rule.ID, "admin")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorNotFound {
		t.Fatalf("err = %v, want not_found", err)
	}
}

func TestRuleTenantIsolation(t *testing.T) {
	store := newStubRuleStore()
	svc := newTestRuleService(store)
	rule, err := svc.CreateRule("t1", validThresholdRule(), "admin")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got, _ := svc.GetRule("t2", rule.ID); got != nil {
		t.Fatalf("foreign tenant can read rule")
	}
}
