package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hudsonargollo/isotec-screening/internal/models"
	"github.com/hudsonargollo/isotec-screening/internal/services"
)

func (rt *Router) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var rule models.ScreeningRule
	if err := decodeJSON(r, &rule); err != nil {
		writeError(w, err)
		return
	}
	created, err := rt.rules.CreateRule(tenantID(r), &rule, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (rt *Router) handleListRules(w http.ResponseWriter, r *http.Request) {
	tid := tenantID(r)
	// Optional filter: only the rules referenced by one template.
	if templateID := r.URL.Query().Get("template_id"); templateID != "" {
		tpl, err := rt.templates.GetTemplate(tid, templateID)
		if err != nil {
			writeError(w, err)
			return
		}
		if tpl == nil {
			writeError(w, services.NewNotFoundError("template not found"))
			return
		}
		rules, err := rt.store.ListRulesByIDs(tid, tpl.RuleIDs)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
		return
	}
	rules, err := rt.rules.ListRules(tid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (rt *Router) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := rt.rules.GetRule(tenantID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if rule == nil {
		writeError(w, services.NewNotFoundError("rule not found"))
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (rt *Router) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category        *string                     `json:"category"`
		RuleType        *models.RuleType            `json:"rule_type"`
		Conditions      []models.RuleCondition      `json:"conditions"`
		Scoring         *models.RuleScoring         `json:"scoring"`
		Thresholds      map[string]float64          `json:"thresholds"`
		RiskFactors     []string                    `json:"risk_factors"`
		Recommendations *models.RuleRecommendations `json:"recommendations"`
		Priority        *int                        `json:"priority"`
		IsActive        *bool                       `json:"is_active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	update := services.RuleUpdate{
		Category:        req.Category,
		RuleType:        req.RuleType,
		Conditions:      req.Conditions,
		Scoring:         req.Scoring,
		Thresholds:      req.Thresholds,
		RiskFactors:     req.RiskFactors,
		Recommendations: req.Recommendations,
		Priority:        req.Priority,
		IsActive:        req.IsActive,
	}
	rule, err := rt.rules.UpdateRule(tenantID(r), chi.URLParam(r, "id"), update, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (rt *Router) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := rt.rules.DeleteRule(tenantID(r), chi.URLParam(r, "id"), actor(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
