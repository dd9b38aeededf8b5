package services

import (
	"reflect"
	"testing"
	"time"

	"github.com/hudsonargollo/isotec-screening/internal/models"
)

type stubTemplateStore struct {
	templates map[string]*models.ScreeningTemplate
	versions  []*models.TemplateVersion
	changes   []*models.TemplateChange
	stats     []models.PeriodStat
	audit     []models.AuditEntry
}

func newStubTemplateStore() *stubTemplateStore {
	return &stubTemplateStore{templates: map[string]*models.ScreeningTemplate{}}
}

func (s *stubTemplateStore) AddTemplate(t *models.ScreeningTemplate) error {
	cp := *t
	s.templates[t.ID] = &cp
	return nil
}

func (s *stubTemplateStore) GetTemplate(tenantID, id string) (*models.ScreeningTemplate, error) {
	t := s.templates[id]
	if t == nil || t.TenantID != tenantID {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *stubTemplateStore) UpdateTemplate(t *models.ScreeningTemplate) error {
	cp := *t
	s.templates[t.ID] = &cp
	return nil
}

func (s *stubTemplateStore) ListTemplates(tenantID string) ([]*models.ScreeningTemplate, error) {
	out := []*models.ScreeningTemplate{}
	for _, t := range s.templates {
		if t.TenantID == tenantID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubTemplateStore) AddTemplateVersion(v *models.TemplateVersion) error {
	s.versions = append(s.versions, v)
	return nil
}

func (s *stubTemplateStore) GetTemplateVersion(tenantID, templateID string, versionNumber int) (*models.TemplateVersion, error) {
	for _, v := range s.versions {
		if v.TenantID == tenantID && v.TemplateID == templateID && v.VersionNumber == versionNumber {
			return v, nil
		}
	}
	return nil, nil
}

func (s *stubTemplateStore) ListTemplateVersions(tenantID, templateID string) ([]*models.TemplateVersion, error) {
	out := []*models.TemplateVersion{}
	for _, v := range s.versions {
		if v.TenantID == tenantID && v.TemplateID == templateID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *stubTemplateStore) MaxVersionNumber(templateID string) (int, error) {
	max := 0
	for _, v := range s.versions {
		if v.TemplateID == templateID && v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max, nil
}

func (s *stubTemplateStore) AddTemplateChange(c *models.TemplateChange) error {
	s.changes = append(s.changes, c)
	return nil
}

func (s *stubTemplateStore) AggregateResultStats(tenantID, templateID string, from, to time.Time) ([]models.PeriodStat, error) {
	return s.stats, nil
}

func (s *stubTemplateStore) AddAudit(e models.AuditEntry) {
	s.audit = append(s.audit, e)
}

func newTestTemplateService(store *stubTemplateStore) *TemplateService {
	svc := NewTemplateService(store)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func seedTemplate(t *testing.T, svc *TemplateService) *models.ScreeningTemplate {
	t.Helper()
	tpl, err := svc.CreateTemplate("t1", &models.ScreeningTemplate{
		Name:    "Residential",
		RuleIDs: []string{"rl1", "rl2"},
		ScoringConfig: models.ScoringConfig{
			QualificationThresholds: map[string]float64{"qualified": 70},
		},
	}, "admin")
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tpl
}

func TestCreateTemplateSnapshotsVersionOne(t *testing.T) {
	store := newStubTemplateStore()
	svc := newTestTemplateService(store)
	tpl := seedTemplate(t, svc)

	if tpl.VersionNumber != 1 || !tpl.IsActive {
		t.Fatalf("template = %+v", tpl)
	}
	if len(store.versions) != 1 || store.versions[0].VersionNumber != 1 {
		t.Fatalf("versions = %+v", store.versions)
	}
	if store.versions[0].Notes != "Initial version" {
		t.Fatalf("notes = %q", store.versions[0].Notes)
	}
}

func TestUpdateTemplateCreatesVersionAndDiff(t *testing.T) {
	store := newStubTemplateStore()
	svc := newTestTemplateService(store)
	tpl := seedTemplate(t, svc)

	name := "Residential v2"
	updated, err := svc.UpdateTemplate("t1", tpl.ID, TemplateUpdate{
		Name:    &name,
		RuleIDs: []string{"rl1", "rl3"},
	}, "admin")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.VersionNumber != 2 {
		t.Fatalf("version = %d, want 2", updated.VersionNumber)
	}
	if len(store.versions) != 2 {
		t.Fatalf("versions = %d, want 2", len(store.versions))
	}
	if len(store.changes) != 1 {
		t.Fatalf("changes = %d, want 1", len(store.changes))
	}
	change := store.changes[0]
	if change.AddedRules != 1 || change.RemovedRules != 1 {
		t.Fatalf("change = %+v", change)
	}
}

func TestCompareVersions(t *testing.T) {
	store := newStubTemplateStore()
	svc := newTestTemplateService(store)
	tpl := seedTemplate(t, svc)

	cfg := models.ScoringConfig{QualificationThresholds: map[string]float64{"qualified": 60}}
	if _, err := svc.UpdateTemplate("t1", tpl.ID, TemplateUpdate{
		RuleIDs:       []string{"rl1", "rl2", "rl4"},
		ScoringConfig: &cfg,
	}, "admin"); err != nil {
		t.Fatalf("update: %v", err)
	}

	change, err := svc.CompareVersions("t1", tpl.ID, 1, 2)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if change.FromVersion != 1 || change.ToVersion != 2 {
		t.Fatalf("change = %+v", change)
	}
	if change.AddedRules != 1 || change.RemovedRules != 0 {
		t.Fatalf("rule diff = %+v", change)
	}
	foundScoring := false
	for _, e := range change.Changes {
		if e.Field == "scoring_config" && e.Kind == "modified" {
			foundScoring = true
		}
	}
	if !foundScoring {
		t.Fatalf("scoring_config modification not detected: %+v", change.Changes)
	}
}

func TestRevertCreatesNewVersionAndKeepsHistory(t *testing.T) {
	store := newStubTemplateStore()
	svc := newTestTemplateService(store)
	tpl := seedTemplate(t, svc)

	if _, err := svc.UpdateTemplate("t1", tpl.ID, TemplateUpdate{
		RuleIDs: []string{"rl9"},
	}, "admin"); err != nil {
		t.Fatalf("update: %v", err)
	}

	v, err := svc.Revert("t1", tpl.ID, 1, "admin")
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if v.VersionNumber != 3 {
		t.Fatalf("revert version = %d, want 3", v.VersionNumber)
	}
	if v.Notes != "Reverted to version 1" {
		t.Fatalf("notes = %q", v.Notes)
	}

	live, err := svc.GetTemplate("t1", tpl.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(live.RuleIDs, []string{"rl1", "rl2"}) {
		t.Fatalf("rule ids = %v, want restored set", live.RuleIDs)
	}
	if live.VersionNumber != 3 {
		t.Fatalf("live version = %d, want 3", live.VersionNumber)
	}

	// History is append-only: all three versions remain.
	versions, _ := svc.ListVersions("t1", tpl.ID)
	if len(versions) != 3 {
		t.Fatalf("versions = %d, want 3", len(versions))
	}
}

func TestRevertUnknownVersion(t *testing.T) {
	store := newStubTemplateStore()
	svc := newTestTemplateService(store)
	tpl := seedTemplate(t, svc)

	_, err := svc.Revert("t1", tpl.ID, 9, "admin")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorNotFound {
		t.Fatalf("err = %v, want not_found", err)
	}
}

func TestCheckConsistency(t *testing.T) {
	store := newStubTemplateStore()
	svc := newTestTemplateService(store)
	tpl := seedTemplate(t, svc)
	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	// Small sample: consistent by definition.
	store.stats = []models.PeriodStat{{Period: "2025-02-01", Count: 2, MeanPercentage: 80}}
	check, err := svc.CheckConsistency("t1", tpl.ID, from, to)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !check.Consistent || check.Note == "" {
		t.Fatalf("small sample: %+v", check)
	}

	// Stable means: consistent.
	store.stats = []models.PeriodStat{
		{Period: "2025-02-01", Count: 4, MeanPercentage: 70},
		{Period: "2025-02-02", Count: 4, MeanPercentage: 74},
	}
	check, _ = svc.CheckConsistency("t1", tpl.ID, from, to)
	if !check.Consistent {
		t.Fatalf("stable means flagged: %+v", check)
	}

	// Drift beyond tolerance: inconsistent.
	store.stats = []models.PeriodStat{
		{Period: "2025-02-01", Count: 4, MeanPercentage: 40},
		{Period: "2025-02-02", Count: 4, MeanPercentage: 80},
	}
	check, _ = svc.CheckConsistency("t1", tpl.ID, from, to)
	if check.Consistent {
		t.Fatalf("drift not flagged: %+v", check)
	}
	if check.MaxDeviation != 20 {
		t.Fatalf("max deviation = %v, want 20", check.MaxDeviation)
	}
}

func TestTemplateTenantIsolation(t *testing.T) {
	store := newStubTemplateStore()
	svc := newTestTemplateService(store)
	tpl := seedTemplate(t, svc)

	_, err := svc.UpdateTemplate("other-tenant", tpl.ID, TemplateUpdate{}, "admin")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorNotFound {
		t.Fatalf("err = %v, want not_found for foreign tenant", err)
	}
}
