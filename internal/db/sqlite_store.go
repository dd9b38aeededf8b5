package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hudsonargollo/isotec-screening/internal/api"
	"github.com/hudsonargollo/isotec-screening/internal/models"
)

// SQLiteStore persists all screening data in a single sqlite database.
// Nested configuration and result structures are stored as JSON in TEXT
// columns; the columns queried for filtering and aggregation (tenant,
// template, scores, timestamps) are kept scalar.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJSON(s string, v any) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

// Second precision keeps lexicographic ordering of the TEXT column
// aligned with chronological ordering.
func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// --- auth ---

func (s *SQLiteStore) FindUserByEmail(email string) (*models.User, error) {
	row := s.db.QueryRow(`SELECT id, email, pass_hash, tenant_id, created_at FROM users WHERE email = ?`, email)
	var u models.User
	var created string
	if err := row.Scan(&u.ID, &u.Email, &u.PassHash, &u.TenantID, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.CreatedAt = decodeTime(created)
	return &u, nil
}

func (s *SQLiteStore) AddUser(u *models.User) error {
	_, err := s.db.Exec(`INSERT INTO users (id, email, pass_hash, tenant_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PassHash, u.TenantID, encodeTime(u.CreatedAt))
	return err
}

func (s *SQLiteStore) AddTenant(t *models.Tenant) error {
	_, err := s.db.Exec(`INSERT INTO tenants (id, name, created_at) VALUES (?, ?, ?)`,
		t.ID, t.Name, encodeTime(t.CreatedAt))
	return err
}

// --- rules ---

func (s *SQLiteStore) AddRule(r *models.ScreeningRule) error {
	conditions, err := encodeJSON(r.Conditions)
	if err != nil {
		return err
	}
	scoring, err := encodeJSON(r.Scoring)
	if err != nil {
		return err
	}
	thresholds, err := encodeJSON(r.Thresholds)
	if err != nil {
		return err
	}
	riskFactors, err := encodeJSON(r.RiskFactors)
	if err != nil {
		return err
	}
	recommendations, err := encodeJSON(r.Recommendations)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO screening_rules
		(id, tenant_id, category, rule_type, conditions, scoring, thresholds, risk_factors, recommendations, priority, is_active, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TenantID, r.Category, string(r.RuleType), conditions, scoring, thresholds, riskFactors, recommendations,
		r.Priority, boolToInt(r.IsActive), r.Version, encodeTime(r.CreatedAt), encodeTime(r.UpdatedAt))
	return err
}

func scanRule(row interface{ Scan(...any) error }) (*models.ScreeningRule, error) {
	var r models.ScreeningRule
	var ruleType, conditions, scoring, thresholds, riskFactors, recommendations string
	var isActive int
	var created, updated string
	err := row.Scan(&r.ID, &r.TenantID, &r.Category, &ruleType, &conditions, &scoring, &thresholds,
		&riskFactors, &recommendations, &r.Priority, &isActive, &r.Version, &created, &updated)
	if err != nil {
		return nil, err
	}
	r.RuleType = models.RuleType(ruleType)
	if err := decodeJSON(conditions, &r.Conditions); err != nil {
		return nil, err
	}
	if err := decodeJSON(scoring, &r.Scoring); err != nil {
		return nil, err
	}
	if err := decodeJSON(thresholds, &r.Thresholds); err != nil {
		return nil, err
	}
	if err := decodeJSON(riskFactors, &r.RiskFactors); err != nil {
		return nil, err
	}
	if err := decodeJSON(recommendations, &r.Recommendations); err != nil {
		return nil, err
	}
	r.IsActive = isActive != 0
	r.CreatedAt = decodeTime(created)
	r.UpdatedAt = decodeTime(updated)
	return &r, nil
}

const ruleColumns = `id, tenant_id, category, rule_type, conditions, scoring, thresholds, risk_factors, recommendations, priority, is_active, version, created_at, updated_at`

func (s *SQLiteStore) GetRule(tenantID, id string) (*models.ScreeningRule, error) {
	row := s.db.QueryRow(`SELECT `+ruleColumns+` FROM screening_rules WHERE id = ? AND tenant_id = ?`, id, tenantID)
	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *SQLiteStore) UpdateRule(r *models.ScreeningRule) error {
	conditions, err := encodeJSON(r.Conditions)
	if err != nil {
		return err
	}
	scoring, err := encodeJSON(r.Scoring)
	if err != nil {
		return err
	}
	thresholds, err := encodeJSON(r.Thresholds)
	if err != nil {
		return err
	}
	riskFactors, err := encodeJSON(r.RiskFactors)
	if err != nil {
		return err
	}
	recommendations, err := encodeJSON(r.Recommendations)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE screening_rules SET
		category = ?, rule_type = ?, conditions = ?, scoring = ?, thresholds = ?, risk_factors = ?, recommendations = ?,
		priority = ?, is_active = ?, version = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?`,
		r.Category, string(r.RuleType), conditions, scoring, thresholds, riskFactors, recommendations,
		r.Priority, boolToInt(r.IsActive), r.Version, encodeTime(r.UpdatedAt), r.ID, r.TenantID)
	return err
}

func (s *SQLiteStore) DeleteRule(tenantID, id string) error {
	_, err := s.db.Exec(`DELETE FROM screening_rules WHERE id = ? AND tenant_id = ?`, id, tenantID)
	return err
}

func (s *SQLiteStore) ListRules(tenantID string) ([]*models.ScreeningRule, error) {
	rows, err := s.db.Query(`SELECT `+ruleColumns+` FROM screening_rules WHERE tenant_id = ? ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.ScreeningRule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListRulesByIDs(tenantID string, ids []string) ([]*models.ScreeningRule, error) {
	if len(ids) == 0 {
		return []*models.ScreeningRule{}, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	args = append(args, tenantID)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := s.db.Query(`SELECT `+ruleColumns+` FROM screening_rules WHERE tenant_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := map[string]*models.ScreeningRule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		byID[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Preserve the template's rule order.
	out := make([]*models.ScreeningRule, 0, len(byID))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- templates ---

const templateColumns = `id, tenant_id, name, description, version, version_number, rule_ids, scoring_config, output_config, questionnaire_template_id, is_active, created_at, updated_at`

func (s *SQLiteStore) AddTemplate(t *models.ScreeningTemplate) error {
	ruleIDs, err := encodeJSON(t.RuleIDs)
	if err != nil {
		return err
	}
	scoring, err := encodeJSON(t.ScoringConfig)
	if err != nil {
		return err
	}
	output, err := encodeJSON(t.OutputConfig)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO screening_templates
		(`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TenantID, t.Name, t.Description, t.Version, t.VersionNumber, ruleIDs, scoring, output,
		t.QuestionnaireTemplateID, boolToInt(t.IsActive), encodeTime(t.CreatedAt), encodeTime(t.UpdatedAt))
	return err
}

func scanTemplate(row interface{ Scan(...any) error }) (*models.ScreeningTemplate, error) {
	var t models.ScreeningTemplate
	var ruleIDs, scoring, output string
	var isActive int
	var created, updated string
	err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Description, &t.Version, &t.VersionNumber,
		&ruleIDs, &scoring, &output, &t.QuestionnaireTemplateID, &isActive, &created, &updated)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(ruleIDs, &t.RuleIDs); err != nil {
		return nil, err
	}
	if err := decodeJSON(scoring, &t.ScoringConfig); err != nil {
		return nil, err
	}
	if err := decodeJSON(output, &t.OutputConfig); err != nil {
		return nil, err
	}
	t.IsActive = isActive != 0
	t.CreatedAt = decodeTime(created)
	t.UpdatedAt = decodeTime(updated)
	return &t, nil
}

func (s *SQLiteStore) GetTemplate(tenantID, id string) (*models.ScreeningTemplate, error) {
	row := s.db.QueryRow(`SELECT `+templateColumns+` FROM screening_templates WHERE id = ? AND tenant_id = ?`, id, tenantID)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (s *SQLiteStore) UpdateTemplate(t *models.ScreeningTemplate) error {
	ruleIDs, err := encodeJSON(t.RuleIDs)
	if err != nil {
		return err
	}
	scoring, err := encodeJSON(t.ScoringConfig)
	if err != nil {
		return err
	}
	output, err := encodeJSON(t.OutputConfig)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE screening_templates SET
		name = ?, description = ?, version = ?, version_number = ?, rule_ids = ?, scoring_config = ?, output_config = ?,
		questionnaire_template_id = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?`,
		t.Name, t.Description, t.Version, t.VersionNumber, ruleIDs, scoring, output,
		t.QuestionnaireTemplateID, boolToInt(t.IsActive), encodeTime(t.UpdatedAt), t.ID, t.TenantID)
	return err
}

func (s *SQLiteStore) ListTemplates(tenantID string) ([]*models.ScreeningTemplate, error) {
	rows, err := s.db.Query(`SELECT `+templateColumns+` FROM screening_templates WHERE tenant_id = ? ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.ScreeningTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) FindActiveTemplate(tenantID, questionnaireTemplateID string) (*models.ScreeningTemplate, error) {
	if questionnaireTemplateID != "" {
		row := s.db.QueryRow(`SELECT `+templateColumns+` FROM screening_templates
			WHERE tenant_id = ? AND questionnaire_template_id = ? AND is_active = 1 ORDER BY id LIMIT 1`,
			tenantID, questionnaireTemplateID)
		t, err := scanTemplate(row)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}
	row := s.db.QueryRow(`SELECT `+templateColumns+` FROM screening_templates
		WHERE tenant_id = ? AND is_active = 1 ORDER BY id LIMIT 1`, tenantID)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// --- template versions ---

func (s *SQLiteStore) AddTemplateVersion(v *models.TemplateVersion) error {
	ruleIDs, err := encodeJSON(v.RuleIDs)
	if err != nil {
		return err
	}
	scoring, err := encodeJSON(v.ScoringConfig)
	if err != nil {
		return err
	}
	output, err := encodeJSON(v.OutputConfig)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO template_versions
		(id, tenant_id, template_id, version_number, name, description, rule_ids, scoring_config, output_config, notes, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.TenantID, v.TemplateID, v.VersionNumber, v.Name, v.Description, ruleIDs, scoring, output,
		v.Notes, v.CreatedBy, encodeTime(v.CreatedAt))
	return err
}

const versionColumns = `id, tenant_id, template_id, version_number, name, description, rule_ids, scoring_config, output_config, notes, created_by, created_at`

func scanVersion(row interface{ Scan(...any) error }) (*models.TemplateVersion, error) {
	var v models.TemplateVersion
	var ruleIDs, scoring, output, created string
	err := row.Scan(&v.ID, &v.TenantID, &v.TemplateID, &v.VersionNumber, &v.Name, &v.Description,
		&ruleIDs, &scoring, &output, &v.Notes, &v.CreatedBy, &created)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(ruleIDs, &v.RuleIDs); err != nil {
		return nil, err
	}
	if err := decodeJSON(scoring, &v.ScoringConfig); err != nil {
		return nil, err
	}
	if err := decodeJSON(output, &v.OutputConfig); err != nil {
		return nil, err
	}
	v.CreatedAt = decodeTime(created)
	return &v, nil
}

func (s *SQLiteStore) GetTemplateVersion(tenantID, templateID string, versionNumber int) (*models.TemplateVersion, error) {
	row := s.db.QueryRow(`SELECT `+versionColumns+` FROM template_versions
		WHERE tenant_id = ? AND template_id = ? AND version_number = ?`, tenantID, templateID, versionNumber)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func (s *SQLiteStore) ListTemplateVersions(tenantID, templateID string) ([]*models.TemplateVersion, error) {
	rows, err := s.db.Query(`SELECT `+versionColumns+` FROM template_versions
		WHERE tenant_id = ? AND template_id = ? ORDER BY version_number`, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.TemplateVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MaxVersionNumber(templateID string) (int, error) {
	var max sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(version_number) FROM template_versions WHERE template_id = ?`, templateID).Scan(&max)
	if err != nil {
		return 0, err
	}
	return int(max.Int64), nil
}

func (s *SQLiteStore) AddTemplateChange(c *models.TemplateChange) error {
	changes, err := encodeJSON(c.Changes)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO template_changes
		(id, tenant_id, template_id, from_version, to_version, changes, added_rules, removed_rules, modified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TenantID, c.TemplateID, c.FromVersion, c.ToVersion, changes,
		c.AddedRules, c.RemovedRules, c.Modified, encodeTime(c.CreatedAt))
	return err
}

// --- responses ---

func (s *SQLiteStore) AddResponse(r *models.QuestionnaireResponse) error {
	answers, err := encodeJSON(r.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO questionnaire_responses
		(id, tenant_id, questionnaire_template_id, answers, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.TenantID, r.QuestionnaireTemplateID, answers, encodeTime(r.SubmittedAt))
	return err
}

func (s *SQLiteStore) GetResponse(tenantID, id string) (*models.QuestionnaireResponse, error) {
	row := s.db.QueryRow(`SELECT id, tenant_id, questionnaire_template_id, answers, submitted_at
		FROM questionnaire_responses WHERE id = ? AND tenant_id = ?`, id, tenantID)
	var r models.QuestionnaireResponse
	var answers, submitted string
	if err := row.Scan(&r.ID, &r.TenantID, &r.QuestionnaireTemplateID, &answers, &submitted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := decodeJSON(answers, &r.Answers); err != nil {
		return nil, err
	}
	r.SubmittedAt = decodeTime(submitted)
	return &r, nil
}

func (s *SQLiteStore) ListResponses(tenantID, questionnaireTemplateID string) ([]*models.QuestionnaireResponse, error) {
	query := `SELECT id, tenant_id, questionnaire_template_id, answers, submitted_at
		FROM questionnaire_responses WHERE tenant_id = ?`
	args := []any{tenantID}
	if questionnaireTemplateID != "" {
		query += ` AND questionnaire_template_id = ?`
		args = append(args, questionnaireTemplateID)
	}
	query += ` ORDER BY submitted_at`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.QuestionnaireResponse{}
	for rows.Next() {
		var r models.QuestionnaireResponse
		var answers, submitted string
		if err := rows.Scan(&r.ID, &r.TenantID, &r.QuestionnaireTemplateID, &answers, &submitted); err != nil {
			return nil, err
		}
		if err := decodeJSON(answers, &r.Answers); err != nil {
			return nil, err
		}
		r.SubmittedAt = decodeTime(submitted)
		out = append(out, &r)
	}
	return out, rows.Err()
}

// --- screening results ---

func (s *SQLiteStore) AddScreeningResult(r *models.EnhancedScreeningResult) error {
	payload, err := encodeJSON(r)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO screening_results
		(id, tenant_id, response_id, template_id, total_score, max_score, percentage_score, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TenantID, r.ResponseID, r.TemplateID, r.TotalScore, r.MaxPossibleScore, r.PercentageScore,
		payload, encodeTime(r.CreatedAt))
	return err
}

func (s *SQLiteStore) GetScreeningResult(tenantID, id string) (*models.EnhancedScreeningResult, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM screening_results WHERE id = ? AND tenant_id = ?`, id, tenantID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r models.EnhancedScreeningResult
	if err := decodeJSON(payload, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) ListScreeningResults(tenantID, templateID string) ([]*models.EnhancedScreeningResult, error) {
	query := `SELECT payload FROM screening_results WHERE tenant_id = ?`
	args := []any{tenantID}
	if templateID != "" {
		query += ` AND template_id = ?`
		args = append(args, templateID)
	}
	query += ` ORDER BY created_at`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.EnhancedScreeningResult{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r models.EnhancedScreeningResult
		if err := decodeJSON(payload, &r); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// AggregateResultStats buckets percentage scores per calendar day for the
// template consistency check. Timestamps are RFC3339, so the first ten
// characters are the UTC date.
func (s *SQLiteStore) AggregateResultStats(tenantID, templateID string, from, to time.Time) ([]models.PeriodStat, error) {
	rows, err := s.db.Query(`SELECT substr(created_at, 1, 10) AS day, COUNT(*), AVG(percentage_score)
		FROM screening_results
		WHERE tenant_id = ? AND template_id = ? AND created_at >= ? AND created_at <= ?
		GROUP BY day ORDER BY day`,
		tenantID, templateID, encodeTime(from), encodeTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.PeriodStat{}
	for rows.Next() {
		var p models.PeriodStat
		if err := rows.Scan(&p.Period, &p.Count, &p.MeanPercentage); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- audit ---

func (s *SQLiteStore) AddAudit(e models.AuditEntry) {
	_, err := s.db.Exec(`INSERT INTO audit_log (ts, actor, action, target, note) VALUES (?, ?, ?, ?, ?)`,
		encodeTime(e.Time), e.Actor, e.Action, e.Target, e.Note)
	if err != nil {
		log.Printf("sqlite store: add audit: %v", err)
	}
}
