package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hudsonargollo/isotec-screening/internal/models"
	"github.com/hudsonargollo/isotec-screening/internal/services"
)

func (rt *Router) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl models.ScreeningTemplate
	if err := decodeJSON(r, &tpl); err != nil {
		writeError(w, err)
		return
	}
	created, err := rt.templates.CreateTemplate(tenantID(r), &tpl, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (rt *Router) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := rt.templates.ListTemplates(tenantID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (rt *Router) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := rt.templates.GetTemplate(tenantID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if tpl == nil {
		writeError(w, services.NewNotFoundError("template not found"))
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (rt *Router) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          *string               `json:"name"`
		Description   *string               `json:"description"`
		Version       *string               `json:"version"`
		RuleIDs       []string              `json:"rule_ids"`
		ScoringConfig *models.ScoringConfig `json:"scoring_config"`
		OutputConfig  *models.OutputConfig  `json:"output_config"`
		IsActive      *bool                 `json:"is_active"`
		Notes         string                `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	update := services.TemplateUpdate{
		Name:          req.Name,
		Description:   req.Description,
		Version:       req.Version,
		RuleIDs:       req.RuleIDs,
		ScoringConfig: req.ScoringConfig,
		OutputConfig:  req.OutputConfig,
		IsActive:      req.IsActive,
		Notes:         req.Notes,
	}
	tpl, err := rt.templates.UpdateTemplate(tenantID(r), chi.URLParam(r, "id"), update, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (rt *Router) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	version, err := rt.templates.CreateVersion(tenantID(r), chi.URLParam(r, "id"), req.Notes, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, version)
}

func (rt *Router) handleListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := rt.templates.ListVersions(tenantID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (rt *Router) handleCompareVersions(w http.ResponseWriter, r *http.Request) {
	from, errFrom := strconv.Atoi(r.URL.Query().Get("from"))
	to, errTo := strconv.Atoi(r.URL.Query().Get("to"))
	if errFrom != nil || errTo != nil {
		writeError(w, services.NewInvalidError("from and to version numbers required"))
		return
	}
	change, err := rt.templates.CompareVersions(tenantID(r), chi.URLParam(r, "id"), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

func (rt *Router) handleRevert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Version int `json:"version"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	version, err := rt.templates.Revert(tenantID(r), chi.URLParam(r, "id"), req.Version, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, version)
}

func (rt *Router) handleConsistency(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, err)
		return
	}
	check, err := rt.templates.CheckConsistency(tenantID(r), chi.URLParam(r, "id"), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// parseDateRange reads from/to query params as YYYY-MM-DD, defaulting to
// the last 30 days.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, time.Time{}, services.NewInvalidError("from must be YYYY-MM-DD")
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, time.Time{}, services.NewInvalidError("to must be YYYY-MM-DD")
		}
		// Inclusive end of day.
		to = t.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}
