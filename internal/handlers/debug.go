package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/republik/appshell/internal/models"
)

func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.State(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, st)
}

func (h *Handler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.Queue(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if q == nil {
		q = []models.QueuedMessage{}
	}
	h.writeJSON(w, q)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.History(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if entries == nil {
		entries = []string{}
	}
	h.writeJSON(w, entries)
}

func (h *Handler) HandlePendingURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
		http.Error(w, "expected {\"url\": ...}", http.StatusBadRequest)
		return
	}
	if err := h.svc.RequestURL(r.Context(), body.URL); err != nil {
		h.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
