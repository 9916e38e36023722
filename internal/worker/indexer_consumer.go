package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"visamate/backend/internal/adapter/weaviate"
	"visamate/backend/internal/middleware"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type CaseStore interface {
	UpsertCase(ctx context.Context, c weaviate.Case) error
}

// IndexerConsumer consumes case.index messages: it embeds the generated case
// and upserts it into the vector store. Failures return an error so NSQ
// requeues the message; malformed payloads are acked and dropped.
type IndexerConsumer struct {
	embedder     Embedder
	store        CaseStore
	embedTimeout time.Duration
}

func NewIndexerConsumer(e Embedder, s CaseStore, embedTimeout time.Duration) *IndexerConsumer {
	if embedTimeout <= 0 {
		embedTimeout = 30 * time.Second
	}
	return &IndexerConsumer{embedder: e, store: s, embedTimeout: embedTimeout}
}

func (h *IndexerConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload CaseIndexPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison pill: invalid JSON never becomes valid, don't retry.
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}
	if payload.CaseID == "" || payload.Content == "" {
		slog.Error("poison pill: missing case_id or content")
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}

	// The embedded text carries the applicant profile alongside the content
	// so similarity queries match on circumstances, not just wording.
	contextualString := fmt.Sprintf("Nationality: %s\nDestination: %s\nVisa type: %s",
		payload.Nationality, payload.Destination, payload.VisaType)
	if payload.TravelPurpose != "" {
		contextualString += fmt.Sprintf("\nPurpose: %s", payload.TravelPurpose)
	}
	contextualString += fmt.Sprintf("\n---\n%s", payload.Content)

	embedCtx, cancel := context.WithTimeout(ctx, h.embedTimeout)
	defer cancel()

	vector, err := h.embedder.Embed(embedCtx, contextualString)
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err, "case_id", payload.CaseID)
		return err // Retry
	}

	c := weaviate.Case{
		CaseID:         payload.CaseID,
		Content:        payload.Content,
		Vector:         vector,
		Nationality:    payload.Nationality,
		Destination:    payload.Destination,
		VisaType:       payload.VisaType,
		TravelPurpose:  payload.TravelPurpose,
		FieldsIncluded: payload.FieldsIncluded,
	}
	if err := h.store.UpsertCase(ctx, c); err != nil {
		slog.ErrorContext(ctx, "failed to store case", "error", err, "case_id", payload.CaseID)
		return err // Retry
	}

	slog.InfoContext(ctx, "case indexed", "case_id", payload.CaseID)
	return nil
}
