package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hudsonargollo/isotec-screening/internal/models"
)

// Consistency-check tuning. Drift below the tolerance, or ranges with too
// few assessments, are reported as consistent.
const (
	minConsistencySample   = 5
	driftTolerancePercent  = 15.0
	consistencyPeriodLabel = "day"
)

// TemplateStore abstracts persistence for template administration and
// version management. Version rows are append-only: the store exposes no
// way to mutate or delete them.
type TemplateStore interface {
	AddTemplate(t *models.ScreeningTemplate) error
	GetTemplate(tenantID, id string) (*models.ScreeningTemplate, error)
	UpdateTemplate(t *models.ScreeningTemplate) error
	ListTemplates(tenantID string) ([]*models.ScreeningTemplate, error)
	AddTemplateVersion(v *models.TemplateVersion) error
	GetTemplateVersion(tenantID, templateID string, versionNumber int) (*models.TemplateVersion, error)
	ListTemplateVersions(tenantID, templateID string) ([]*models.TemplateVersion, error)
	MaxVersionNumber(templateID string) (int, error)
	AddTemplateChange(c *models.TemplateChange) error
	AggregateResultStats(tenantID, templateID string, from, to time.Time) ([]models.PeriodStat, error)
	AddAudit(e models.AuditEntry)
}

// TemplateService manages screening templates and their append-only
// version history.
type TemplateService struct {
	store TemplateStore
	now   func() time.Time
	idGen func(prefix string, n int) string
}

func NewTemplateService(store TemplateStore) *TemplateService {
	return &TemplateService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: prefixedID,
	}
}

// CreateTemplate registers a new screening template and snapshots it as
// version 1.
func (s *TemplateService) CreateTemplate(tenantID string, tpl *models.ScreeningTemplate, actor string) (*models.ScreeningTemplate, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	if tpl == nil || strings.TrimSpace(tpl.Name) == "" {
		return nil, NewInvalidError("template name required")
	}
	now := s.now()
	if tpl.ID == "" {
		tpl.ID = s.idGen("st", 8)
	}
	if tpl.Version == "" {
		tpl.Version = "1.0"
	}
	tpl.TenantID = tenantID
	tpl.VersionNumber = 1
	tpl.IsActive = true
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	if err := s.store.AddTemplate(tpl); err != nil {
		return nil, err
	}
	version := s.snapshot(tpl, 1, "Initial version", actor, now)
	if err := s.store.AddTemplateVersion(version); err != nil {
		return nil, err
	}
	s.store.AddAudit(models.AuditEntry{Time: now, Actor: actor, Action: "create_template", Target: tpl.ID})
	return tpl, nil
}

func (s *TemplateService) GetTemplate(tenantID, id string) (*models.ScreeningTemplate, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	return s.store.GetTemplate(tenantID, id)
}

func (s *TemplateService) ListTemplates(tenantID string) ([]*models.ScreeningTemplate, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	return s.store.ListTemplates(tenantID)
}

// TemplateUpdate carries the editable template fields. Nil members leave
// the current value untouched.
type TemplateUpdate struct {
	Name          *string
	Description   *string
	Version       *string
	RuleIDs       []string
	ScoringConfig *models.ScoringConfig
	OutputConfig  *models.OutputConfig
	IsActive      *bool
	Notes         string
}

// UpdateTemplate applies an edit and snapshots the edited state as a new
// version, recording a diff against the previous version.
func (s *TemplateService) UpdateTemplate(tenantID, templateID string, update TemplateUpdate, actor string) (*models.ScreeningTemplate, error) {
	tpl, err := s.requireTemplate(tenantID, templateID)
	if err != nil {
		return nil, err
	}
	before := s.snapshot(tpl, tpl.VersionNumber, "", "", tpl.UpdatedAt)

	if update.Name != nil {
		tpl.Name = *update.Name
	}
	if update.Description != nil {
		tpl.Description = *update.Description
	}
	if update.Version != nil {
		tpl.Version = *update.Version
	}
	if update.RuleIDs != nil {
		tpl.RuleIDs = append([]string(nil), update.RuleIDs...)
	}
	if update.ScoringConfig != nil {
		tpl.ScoringConfig = *update.ScoringConfig
	}
	if update.OutputConfig != nil {
		tpl.OutputConfig = *update.OutputConfig
	}
	if update.IsActive != nil {
		tpl.IsActive = *update.IsActive
	}

	next, err := s.nextVersionNumber(templateID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	tpl.VersionNumber = next
	tpl.UpdatedAt = now
	if err := s.store.UpdateTemplate(tpl); err != nil {
		return nil, err
	}

	notes := update.Notes
	if notes == "" {
		notes = "Template updated"
	}
	version := s.snapshot(tpl, next, notes, actor, now)
	if err := s.store.AddTemplateVersion(version); err != nil {
		return nil, err
	}

	change := s.buildChange(tenantID, templateID, before, version, now)
	if len(change.Changes) > 0 {
		if err := s.store.AddTemplateChange(change); err != nil {
			return nil, err
		}
	}
	s.store.AddAudit(models.AuditEntry{Time: now, Actor: actor, Action: "update_template", Target: templateID, Note: strconv.Itoa(next)})
	return tpl, nil
}

// CreateVersion snapshots the template's current state without editing it.
func (s *TemplateService) CreateVersion(tenantID, templateID, notes, actor string) (*models.TemplateVersion, error) {
	tpl, err := s.requireTemplate(tenantID, templateID)
	if err != nil {
		return nil, err
	}
	next, err := s.nextVersionNumber(templateID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	version := s.snapshot(tpl, next, notes, actor, now)
	if err := s.store.AddTemplateVersion(version); err != nil {
		return nil, err
	}
	tpl.VersionNumber = next
	tpl.UpdatedAt = now
	if err := s.store.UpdateTemplate(tpl); err != nil {
		return nil, err
	}
	s.store.AddAudit(models.AuditEntry{Time: now, Actor: actor, Action: "create_version", Target: templateID, Note: strconv.Itoa(next)})
	return version, nil
}

func (s *TemplateService) ListVersions(tenantID, templateID string) ([]*models.TemplateVersion, error) {
	if _, err := s.requireTemplate(tenantID, templateID); err != nil {
		return nil, err
	}
	return s.store.ListTemplateVersions(tenantID, templateID)
}

// CompareVersions produces a structural diff between two named versions
// and records it as a TemplateChange.
func (s *TemplateService) CompareVersions(tenantID, templateID string, from, to int) (*models.TemplateChange, error) {
	if _, err := s.requireTemplate(tenantID, templateID); err != nil {
		return nil, err
	}
	a, err := s.requireVersion(tenantID, templateID, from)
	if err != nil {
		return nil, err
	}
	b, err := s.requireVersion(tenantID, templateID, to)
	if err != nil {
		return nil, err
	}
	change := s.buildChange(tenantID, templateID, a, b, s.now())
	if err := s.store.AddTemplateChange(change); err != nil {
		return nil, err
	}
	return change, nil
}

// Revert copies a target version's rule and scoring snapshot back onto
// the live template. The revert is recorded as a new version; history is
// never deleted or mutated.
func (s *TemplateService) Revert(tenantID, templateID string, targetVersion int, actor string) (*models.TemplateVersion, error) {
	tpl, err := s.requireTemplate(tenantID, templateID)
	if err != nil {
		return nil, err
	}
	target, err := s.requireVersion(tenantID, templateID, targetVersion)
	if err != nil {
		return nil, err
	}
	next, err := s.nextVersionNumber(templateID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	tpl.RuleIDs = append([]string(nil), target.RuleIDs...)
	tpl.ScoringConfig = target.ScoringConfig
	tpl.OutputConfig = target.OutputConfig
	tpl.VersionNumber = next
	tpl.UpdatedAt = now
	if err := s.store.UpdateTemplate(tpl); err != nil {
		return nil, err
	}

	version := s.snapshot(tpl, next, fmt.Sprintf("Reverted to version %d", targetVersion), actor, now)
	if err := s.store.AddTemplateVersion(version); err != nil {
		return nil, err
	}
	s.store.AddAudit(models.AuditEntry{Time: now, Actor: actor, Action: "revert_template", Target: templateID, Note: strconv.Itoa(targetVersion)})
	return version, nil
}

// CheckConsistency aggregates assessment scores per day over a date range
// and flags drift when any period mean deviates from the overall mean
// beyond the tolerance. Small samples are reported as consistent.
func (s *TemplateService) CheckConsistency(tenantID, templateID string, from, to time.Time) (*models.ConsistencyCheck, error) {
	if _, err := s.requireTemplate(tenantID, templateID); err != nil {
		return nil, err
	}
	periods, err := s.store.AggregateResultStats(tenantID, templateID, from, to)
	if err != nil {
		return nil, err
	}
	mean, maxDev, sample := PeriodDrift(periods)
	check := &models.ConsistencyCheck{
		TemplateID:   templateID,
		TenantID:     tenantID,
		From:         from,
		To:           to,
		Periods:      periods,
		SampleSize:   sample,
		OverallMean:  mean,
		MaxDeviation: maxDev,
		CheckedAt:    s.now(),
	}
	switch {
	case sample < minConsistencySample:
		check.Consistent = true
		check.Note = "insufficient sample for drift detection"
	case maxDev > driftTolerancePercent:
		check.Consistent = false
		check.Note = fmt.Sprintf("per-%s mean deviates %.1f points from the range mean", consistencyPeriodLabel, maxDev)
	default:
		check.Consistent = true
	}
	return check, nil
}

func (s *TemplateService) requireTemplate(tenantID, templateID string) (*models.ScreeningTemplate, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	tpl, err := s.store.GetTemplate(tenantID, templateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, NewNotFoundError("template not found")
	}
	return tpl, nil
}

func (s *TemplateService) requireVersion(tenantID, templateID string, versionNumber int) (*models.TemplateVersion, error) {
	v, err := s.store.GetTemplateVersion(tenantID, templateID, versionNumber)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, NewNotFoundError(fmt.Sprintf("template version %d not found", versionNumber))
	}
	return v, nil
}

func (s *TemplateService) nextVersionNumber(templateID string) (int, error) {
	max, err := s.store.MaxVersionNumber(templateID)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (s *TemplateService) snapshot(tpl *models.ScreeningTemplate, versionNumber int, notes, actor string, at time.Time) *models.TemplateVersion {
	return &models.TemplateVersion{
		ID:            s.idGen("tv", 8),
		TenantID:      tpl.TenantID,
		TemplateID:    tpl.ID,
		VersionNumber: versionNumber,
		Name:          tpl.Name,
		Description:   tpl.Description,
		RuleIDs:       append([]string(nil), tpl.RuleIDs...),
		ScoringConfig: tpl.ScoringConfig,
		OutputConfig:  tpl.OutputConfig,
		Notes:         notes,
		CreatedBy:     actor,
		CreatedAt:     at,
	}
}

func (s *TemplateService) buildChange(tenantID, templateID string, from, to *models.TemplateVersion, at time.Time) *models.TemplateChange {
	change := &models.TemplateChange{
		ID:          s.idGen("tc", 8),
		TenantID:    tenantID,
		TemplateID:  templateID,
		FromVersion: from.VersionNumber,
		ToVersion:   to.VersionNumber,
		CreatedAt:   at,
	}
	if from.Name != to.Name {
		change.Changes = append(change.Changes, models.ChangeEntry{Field: "name", Kind: "modified", Detail: from.Name + " -> " + to.Name})
		change.Modified++
	}
	if from.Description != to.Description {
		change.Changes = append(change.Changes, models.ChangeEntry{Field: "description", Kind: "modified"})
		change.Modified++
	}
	added, removed := diffRuleSets(from.RuleIDs, to.RuleIDs)
	for _, id := range added {
		change.Changes = append(change.Changes, models.ChangeEntry{Field: "rules", Kind: "rule_added", Detail: id})
	}
	for _, id := range removed {
		change.Changes = append(change.Changes, models.ChangeEntry{Field: "rules", Kind: "rule_removed", Detail: id})
	}
	change.AddedRules = len(added)
	change.RemovedRules = len(removed)
	if !deepEqualJSON(from.ScoringConfig, to.ScoringConfig) {
		change.Changes = append(change.Changes, models.ChangeEntry{Field: "scoring_config", Kind: "modified"})
		change.Modified++
	}
	if !deepEqualJSON(from.OutputConfig, to.OutputConfig) {
		change.Changes = append(change.Changes, models.ChangeEntry{Field: "output_config", Kind: "modified"})
		change.Modified++
	}
	return change
}

func diffRuleSets(from, to []string) (added, removed []string) {
	fromSet := make(map[string]bool, len(from))
	for _, id := range from {
		fromSet[id] = true
	}
	toSet := make(map[string]bool, len(to))
	for _, id := range to {
		toSet[id] = true
		if !fromSet[id] {
			added = append(added, id)
		}
	}
	for _, id := range from {
		if !toSet[id] {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// deepEqualJSON compares nested config structures via serialization,
// sidestepping map ordering concerns.
func deepEqualJSON(a, b any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aj) == string(bj)
}
