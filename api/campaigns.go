package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/garnizeh/clipmarket/internal/campaigns"
	"github.com/garnizeh/clipmarket/internal/common"
	"github.com/garnizeh/clipmarket/internal/identity"
	"github.com/garnizeh/clipmarket/internal/scoring"
	"github.com/garnizeh/clipmarket/internal/submissions"
)

type CampaignsHandler struct {
	campaigns   *campaigns.Service
	submissions *submissions.Service
}

func NewCampaignsHandler(c *campaigns.Service, s *submissions.Service) *CampaignsHandler {
	return &CampaignsHandler{campaigns: c, submissions: s}
}

type deleteCampaignRequest struct {
	ID int64 `json:"id"`
}

// pathID reads a numeric path variable. Anything else cannot name a row.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, common.ErrNotFound
	}
	return id, nil
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (h *CampaignsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in campaigns.CreateInput
	if err := decodeBody(r, "campaign_create", &in); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.campaigns.Create(r.Context(), identity.FromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, c, http.StatusCreated)
}

// Mine lists the calling brand's campaigns.
func (h *CampaignsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	views, err := h.campaigns.ListForBrand(r.Context(), identity.FromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, nonNil(views), http.StatusOK)
}

func (h *CampaignsHandler) RecommendCPM(w http.ResponseWriter, r *http.Request) {
	var in scoring.CPMInput
	if err := decodeBody(r, "cpm_recommendation", &in); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.campaigns.RecommendCPM(in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, rec, http.StatusOK)
}

func (h *CampaignsHandler) Posts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	posts, err := h.submissions.ListForCampaign(r.Context(), identity.FromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, nonNil(posts), http.StatusOK)
}

// List serves GET /api/campaigns: public active campaigns, or everything
// the calling brand owns.
func (h *CampaignsHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.campaigns.ListVisible(r.Context(), identity.FromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, nonNil(views), http.StatusOK)
}

func (h *CampaignsHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.campaigns.GetBySlug(r.Context(), identity.FromContext(r.Context()), mux.Vars(r)["slug"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, v, http.StatusOK)
}

func (h *CampaignsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteCampaignRequest
	if err := decodeBody(r, "campaign_delete", &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.campaigns.Delete(r.Context(), identity.FromContext(r.Context()), req.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true}, http.StatusOK)
}
