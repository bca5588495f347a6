package api

import (
	"bytes"
	"net/http"

	"github.com/garnizeh/clipmarket/internal/analytics"
	"github.com/garnizeh/clipmarket/internal/identity"
)

type AnalyticsHandler struct {
	analytics *analytics.Service
}

func NewAnalyticsHandler(s *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: s}
}

// Brand returns the dashboard figures; data is null for non-brand callers.
func (h *AnalyticsHandler) Brand(w http.ResponseWriter, r *http.Request) {
	a, err := h.analytics.BrandAnalytics(r.Context(), identity.FromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, a, http.StatusOK)
}

func (h *AnalyticsHandler) Discover(w http.ResponseWriter, r *http.Request) {
	d, err := h.analytics.Directory(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	d.Creators = nonNil(d.Creators)
	d.Brands = nonNil(d.Brands)
	writeJSON(w, d, http.StatusOK)
}

// FinanceExport buffers the CSV so a failure can still be reported as JSON.
func (h *AnalyticsHandler) FinanceExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.analytics.FinanceExport(r.Context(), identity.FromContext(r.Context()), &buf); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="finance-export.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
