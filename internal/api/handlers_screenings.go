package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hudsonargollo/isotec-screening/internal/services"
)

func (rt *Router) handleRecordResponse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionnaireTemplateID string         `json:"questionnaire_template_id"`
		Answers                 map[string]any `json:"answers"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := rt.responses.Record(tenantID(r), req.QuestionnaireTemplateID, req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (rt *Router) handleListResponses(w http.ResponseWriter, r *http.Request) {
	responses, err := rt.responses.List(tenantID(r), r.URL.Query().Get("questionnaire_template_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"responses": responses})
}

func (rt *Router) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	resp, err := rt.responses.Get(tenantID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if resp == nil {
		writeError(w, services.NewNotFoundError("response not found"))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ResponseID              string         `json:"response_id"`
		TemplateID              string         `json:"template_id"`
		QuestionnaireTemplateID string         `json:"questionnaire_template_id"`
		Answers                 map[string]any `json:"answers"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := rt.screenings.Evaluate(services.EvaluateRequest{
		TenantID:                tenantID(r),
		ResponseID:              req.ResponseID,
		TemplateID:              req.TemplateID,
		QuestionnaireTemplateID: req.QuestionnaireTemplateID,
		Answers:                 req.Answers,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (rt *Router) handleGetScreening(w http.ResponseWriter, r *http.Request) {
	result, err := rt.screenings.GetResult(tenantID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if result == nil {
		writeError(w, services.NewNotFoundError("screening result not found"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) handleListScreenings(w http.ResponseWriter, r *http.Request) {
	results, err := rt.screenings.ListResults(tenantID(r), r.URL.Query().Get("template_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (rt *Router) handleExportScreenings(w http.ResponseWriter, r *http.Request) {
	b, err := rt.screenings.ExportResults(tenantID(r), r.URL.Query().Get("template_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="screenings.csv"`)
	_, _ = w.Write(b)
}
