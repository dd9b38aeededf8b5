package api

import (
	"sort"
	"sync"
	"time"

	"github.com/hudsonargollo/isotec-screening/internal/models"
)

// memoryStore is the in-memory Store used by tests and local development.
// Production deployments use the sqlite store.
type memoryStore struct {
	mu           sync.RWMutex
	tenants      map[string]*models.Tenant
	usersByEmail map[string]*models.User
	rules        map[string]*models.ScreeningRule
	templates    map[string]*models.ScreeningTemplate
	versions     []*models.TemplateVersion
	changes      []*models.TemplateChange
	responses    map[string]*models.QuestionnaireResponse
	results      map[string]*models.EnhancedScreeningResult
	resultOrder  []string
	audit        []models.AuditEntry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		tenants:      map[string]*models.Tenant{},
		usersByEmail: map[string]*models.User{},
		rules:        map[string]*models.ScreeningRule{},
		templates:    map[string]*models.ScreeningTemplate{},
		responses:    map[string]*models.QuestionnaireResponse{},
		results:      map[string]*models.EnhancedScreeningResult{},
	}
}

func (s *memoryStore) FindUserByEmail(email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.usersByEmail[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *memoryStore) AddUser(u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.usersByEmail[u.Email] = &cp
	return nil
}

func (s *memoryStore) AddTenant(t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}

func (s *memoryStore) AddRule(r *models.ScreeningRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}

func (s *memoryStore) GetRule(tenantID, id string) (*models.ScreeningRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.rules[id]
	if r == nil || r.TenantID != tenantID {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *memoryStore) UpdateRule(r *models.ScreeningRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}

func (s *memoryStore) DeleteRule(tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.rules[id]; r != nil && r.TenantID == tenantID {
		delete(s.rules, id)
	}
	return nil
}

func (s *memoryStore) ListRules(tenantID string) ([]*models.ScreeningRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.ScreeningRule{}
	for _, r := range s.rules {
		if r.TenantID == tenantID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) ListRulesByIDs(tenantID string, ids []string) ([]*models.ScreeningRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.ScreeningRule{}
	for _, id := range ids {
		if r := s.rules[id]; r != nil && r.TenantID == tenantID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memoryStore) AddTemplate(t *models.ScreeningTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.templates[t.ID] = &cp
	return nil
}

func (s *memoryStore) GetTemplate(tenantID, id string) (*models.ScreeningTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.templates[id]
	if t == nil || t.TenantID != tenantID {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *memoryStore) UpdateTemplate(t *models.ScreeningTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.templates[t.ID] = &cp
	return nil
}

func (s *memoryStore) ListTemplates(tenantID string) ([]*models.ScreeningTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.ScreeningTemplate{}
	for _, t := range s.templates {
		if t.TenantID == tenantID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) FindActiveTemplate(tenantID, questionnaireTemplateID string) (*models.ScreeningTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var fallback *models.ScreeningTemplate
	for _, t := range s.templates {
		if t.TenantID != tenantID || !t.IsActive {
			continue
		}
		if questionnaireTemplateID != "" && t.QuestionnaireTemplateID == questionnaireTemplateID {
			cp := *t
			return &cp, nil
		}
		if fallback == nil || t.ID < fallback.ID {
			fallback = t
		}
	}
	if fallback == nil {
		return nil, nil
	}
	cp := *fallback
	return &cp, nil
}

func (s *memoryStore) AddTemplateVersion(v *models.TemplateVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.versions = append(s.versions, &cp)
	return nil
}

func (s *memoryStore) GetTemplateVersion(tenantID, templateID string, versionNumber int) (*models.TemplateVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.versions {
		if v.TenantID == tenantID && v.TemplateID == templateID && v.VersionNumber == versionNumber {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) ListTemplateVersions(tenantID, templateID string) ([]*models.TemplateVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.TemplateVersion{}
	for _, v := range s.versions {
		if v.TenantID == tenantID && v.TemplateID == templateID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber < out[j].VersionNumber })
	return out, nil
}

func (s *memoryStore) MaxVersionNumber(templateID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	max := 0
	for _, v := range s.versions {
		if v.TemplateID == templateID && v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max, nil
}

func (s *memoryStore) AddTemplateChange(c *models.TemplateChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.changes = append(s.changes, &cp)
	return nil
}

func (s *memoryStore) AddResponse(r *models.QuestionnaireResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.responses[r.ID] = &cp
	return nil
}

func (s *memoryStore) GetResponse(tenantID, id string) (*models.QuestionnaireResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.responses[id]
	if r == nil || r.TenantID != tenantID {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *memoryStore) ListResponses(tenantID, questionnaireTemplateID string) ([]*models.QuestionnaireResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.QuestionnaireResponse{}
	for _, r := range s.responses {
		if r.TenantID != tenantID {
			continue
		}
		if questionnaireTemplateID != "" && r.QuestionnaireTemplateID != questionnaireTemplateID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) AddScreeningResult(r *models.EnhancedScreeningResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.results[r.ID] = &cp
	s.resultOrder = append(s.resultOrder, r.ID)
	return nil
}

func (s *memoryStore) GetScreeningResult(tenantID, id string) (*models.EnhancedScreeningResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.results[id]
	if r == nil || r.TenantID != tenantID {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *memoryStore) ListScreeningResults(tenantID, templateID string) ([]*models.EnhancedScreeningResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.EnhancedScreeningResult{}
	for _, id := range s.resultOrder {
		r := s.results[id]
		if r == nil || r.TenantID != tenantID {
			continue
		}
		if templateID != "" && r.TemplateID != templateID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memoryStore) AggregateResultStats(tenantID, templateID string, from, to time.Time) ([]models.PeriodStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type bucket struct {
		count int
		sum   float64
	}
	buckets := map[string]*bucket{}
	for _, r := range s.results {
		if r.TenantID != tenantID || r.TemplateID != templateID {
			continue
		}
		if r.CreatedAt.Before(from) || r.CreatedAt.After(to) {
			continue
		}
		day := r.CreatedAt.UTC().Format("2006-01-02")
		b := buckets[day]
		if b == nil {
			b = &bucket{}
			buckets[day] = b
		}
		b.count++
		b.sum += r.PercentageScore
	}
	days := make([]string, 0, len(buckets))
	for d := range buckets {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]models.PeriodStat, 0, len(days))
	for _, d := range days {
		b := buckets[d]
		out = append(out, models.PeriodStat{Period: d, Count: b.count, MeanPercentage: b.sum / float64(b.count)})
	}
	return out, nil
}

func (s *memoryStore) AddAudit(e models.AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
}
