package api

import (
	"net/http"

	"github.com/garnizeh/clipmarket/internal/contracts"
	"github.com/garnizeh/clipmarket/internal/identity"
)

type ContractsHandler struct {
	contracts *contracts.Service
}

func NewContractsHandler(s *contracts.Service) *ContractsHandler {
	return &ContractsHandler{contracts: s}
}

func (h *ContractsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in contracts.CreateInput
	if err := decodeBody(r, "contract_create", &in); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.contracts.Create(r.Context(), identity.FromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, c, http.StatusCreated)
}

func (h *ContractsHandler) List(w http.ResponseWriter, r *http.Request) {
	cs, err := h.contracts.List(r.Context(), identity.FromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, nonNil(cs), http.StatusOK)
}

func (h *ContractsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.contracts.Accept(r.Context(), identity.FromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, c, http.StatusOK)
}

func (h *ContractsHandler) Decline(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.contracts.Decline(r.Context(), identity.FromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, c, http.StatusOK)
}
