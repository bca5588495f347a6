package api

import (
	"net/http"

	"github.com/garnizeh/clipmarket/internal/identity"
	"github.com/garnizeh/clipmarket/internal/submissions"
)

type PostsHandler struct {
	submissions *submissions.Service
}

func NewPostsHandler(s *submissions.Service) *PostsHandler {
	return &PostsHandler{submissions: s}
}

func (h *PostsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in submissions.SubmitInput
	if err := decodeBody(r, "post_submit", &in); err != nil {
		writeError(w, r, err)
		return
	}

	detail, err := h.submissions.Submit(r.Context(), identity.FromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, detail, http.StatusCreated)
}
