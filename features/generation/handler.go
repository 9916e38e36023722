package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"visamate/backend/internal/middleware"
	"visamate/backend/internal/scraper"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GenerateChecklist(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, KindChecklist)
}

func (h *Handler) GenerateCoverLetter(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, KindCoverLetter)
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request, kind Kind) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFailure(r.Context(), w, &Response{ErrorMessage: "invalid request body"}, "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}

	resp, err := h.svc.Generate(r.Context(), kind, req)
	if err != nil {
		if resp == nil {
			resp = &Response{ErrorMessage: err.Error()}
		}
		switch {
		case errors.Is(err, ErrValidation):
			h.writeFailure(r.Context(), w, resp, "VALIDATION_ERROR", http.StatusBadRequest)
		case errors.Is(err, scraper.ErrAllSourcesFailed):
			h.writeFailure(r.Context(), w, resp, "SOURCES_UNAVAILABLE", http.StatusBadGateway)
		case errors.Is(err, ErrGeneration):
			h.writeFailure(r.Context(), w, resp, "GENERATION_FAILED", http.StatusBadGateway)
		default:
			h.writeFailure(r.Context(), w, resp, "INTERNAL_ERROR", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeFailure encodes a failed run through the pipeline's own response
// envelope (success=false, error_message, warnings), with the error code
// alongside for clients that key off it.
func (h *Handler) writeFailure(ctx context.Context, w http.ResponseWriter, resp *Response, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := struct {
		*Response
		Error         map[string]string `json:"error"`
		CorrelationID string            `json:"correlationId"`
	}{
		Response:      resp,
		Error:         map[string]string{"code": code, "message": resp.ErrorMessage},
		CorrelationID: middleware.GetCorrelationID(ctx),
	}

	json.NewEncoder(w).Encode(body)
}
