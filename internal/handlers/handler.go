package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/republik/appshell/internal/controller"
	"github.com/republik/appshell/internal/models"
)

// Inspector is the part of the shell the debug API reads and drives.
type Inspector interface {
	State(ctx context.Context) (models.ShellState, error)
	Queue(ctx context.Context) ([]models.QueuedMessage, error)
	History(ctx context.Context) ([]string, error)
	RequestURL(ctx context.Context, u string) error
}

type Handler struct {
	svc    Inspector
	logger *slog.Logger
}

func New(svc Inspector, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to write response", "err", err)
	}
}

func (h *Handler) serverError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
) {
	if errors.Is(err, controller.ErrForeignURL) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if errors.Is(err, r.Context().Err()) {
		return
	}
	h.logger.Error("handler error", "path", r.URL.Path, "err", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
