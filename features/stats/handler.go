// Package stats exposes operational counters for dashboards.
package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"visamate/backend/internal/middleware"
)

type ProfileRepo interface {
	Count(ctx context.Context) (int, error)
}

type VectorStore interface {
	CountCases(ctx context.Context) (int, error)
}

type Handler struct {
	profileRepo ProfileRepo
	vectorStore VectorStore
}

func NewHandler(p ProfileRepo, v VectorStore) *Handler {
	return &Handler{profileRepo: p, vectorStore: v}
}

type StatsResponse struct {
	Profiles     int `json:"profiles"`
	IndexedCases int `json:"indexed_cases"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pCount, err := h.profileRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count profiles", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count profiles", http.StatusInternalServerError)
		return
	}

	cCount, err := h.vectorStore.CountCases(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count indexed cases", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count indexed cases", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Profiles:     pCount,
		IndexedCases: cCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
