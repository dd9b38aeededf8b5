package api

import "github.com/hudsonargollo/isotec-screening/internal/services"

// Store is the union of the per-service persistence interfaces. Any
// backend implementing it (sqlite, in-memory) can drive the full API.
// Overlapping methods (GetTemplate, GetResponse, AddAudit) share one
// signature across the embedded interfaces.
type Store interface {
	services.AuthStore
	services.RuleStore
	services.TemplateStore
	services.ResponseStore
	services.ScreeningStore
}
