package services

import (
	"testing"

	"github.com/hudsonargollo/isotec-screening/internal/models"
)

type stubResponseStore struct {
	responses map[string]*models.QuestionnaireResponse
}

func newStubResponseStore() *stubResponseStore {
	return &stubResponseStore{responses: map[string]*models.QuestionnaireResponse{}}
}

func (s *stubResponseStore) AddResponse(r *models.QuestionnaireResponse) error {
	s.responses[r.ID] = r
	return nil
}

func (s *stubResponseStore) GetResponse(tenantID, id string) (*models.QuestionnaireResponse, error) {
	r := s.responses[id]
	if r == nil || r.TenantID != tenantID {
		return nil, nil
	}
	return r, nil
}

func (s *stubResponseStore) ListResponses(tenantID, qtID string) ([]*models.QuestionnaireResponse, error) {
	out := []*models.QuestionnaireResponse{}
	for _, r := range s.responses {
		if r.TenantID != tenantID {
			continue
		}
		if qtID != "" && r.QuestionnaireTemplateID != qtID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func TestRecordResponse(t *testing.T) {
	store := newStubResponseStore()
	svc := NewResponseService(store)

	resp, err := svc.Record("t1", "qt1", map[string]any{"roof_area": 35.0})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if resp.ID == "" || resp.SubmittedAt.IsZero() {
		t.Fatalf("response = %+v", resp)
	}

	got, err := svc.Get("t1", resp.ID)
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if got.Answers["roof_area"] != 35.0 {
		t.Fatalf("answers = %v", got.Answers)
	}
}

func TestRecordResponseRequiresAnswers(t *testing.T) {
	svc := NewResponseService(newStubResponseStore())
	_, err := svc.Record("t1", "qt1", nil)
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("err = %v, want invalid", err)
	}
}

func TestResponseTenantIsolation(t *testing.T) {
	store := newStubResponseStore()
	svc := NewResponseService(store)
	resp, err := svc.Record("t1", "qt1", map[string]any{"q": 1.0})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if got, _ := svc.Get("t2", resp.ID); got != nil {
		t.Fatalf("foreign tenant can read response")
	}
}
