package services

import (
	"time"

	"github.com/hudsonargollo/isotec-screening/internal/models"
)

// ResponseStore abstracts persistence for questionnaire responses.
type ResponseStore interface {
	AddResponse(r *models.QuestionnaireResponse) error
	GetResponse(tenantID, id string) (*models.QuestionnaireResponse, error)
	ListResponses(tenantID, questionnaireTemplateID string) ([]*models.QuestionnaireResponse, error)
}

// ResponseService records incoming questionnaire responses so screenings
// can be run against them later, or re-run after template edits.
type ResponseService struct {
	store ResponseStore
	now   func() time.Time
	idGen func() string
}

func NewResponseService(store ResponseStore) *ResponseService {
	return &ResponseService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return prefixedID("rs", 10) },
	}
}

func (s *ResponseService) Record(tenantID, questionnaireTemplateID string, answers map[string]any) (*models.QuestionnaireResponse, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	if len(answers) == 0 {
		return nil, NewInvalidError("answers required")
	}
	resp := &models.QuestionnaireResponse{
		ID:                      s.idGen(),
		TenantID:                tenantID,
		QuestionnaireTemplateID: questionnaireTemplateID,
		Answers:                 answers,
		SubmittedAt:             s.now(),
	}
	if err := s.store.AddResponse(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *ResponseService) Get(tenantID, id string) (*models.QuestionnaireResponse, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	return s.store.GetResponse(tenantID, id)
}

func (s *ResponseService) List(tenantID, questionnaireTemplateID string) ([]*models.QuestionnaireResponse, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	return s.store.ListResponses(tenantID, questionnaireTemplateID)
}
