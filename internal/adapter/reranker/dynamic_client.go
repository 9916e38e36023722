package reranker

import (
	"context"
	"fmt"
	"sync"

	"visamate/backend/internal/settings"
)

type settingsProvider interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

// DynamicClient resolves the rerank provider and API key from runtime
// settings on every call, so operators can switch providers without a
// restart. The underlying HTTP client is rebuilt only when the provider
// or key changes.
type DynamicClient struct {
	settingsSvc settingsProvider

	mu              sync.Mutex
	current         *Client
	currentProvider string
	currentKey      string
}

func NewDynamicClient(settingsSvc settingsProvider) *DynamicClient {
	return &DynamicClient{settingsSvc: settingsSvc}
}

func (d *DynamicClient) Rerank(ctx context.Context, query string, docs []string) ([]int, error) {
	cfg, err := d.settingsSvc.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	if cfg.RerankProvider == "" || cfg.RerankProvider == "none" {
		indices := make([]int, len(docs))
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	return d.getClient(cfg.RerankProvider, cfg.RerankAPIKey).Rerank(ctx, query, docs)
}

func (d *DynamicClient) getClient(provider, apiKey string) *Client {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current == nil || d.currentProvider != provider || d.currentKey != apiKey {
		d.current = NewClient(provider, apiKey)
		d.currentProvider = provider
		d.currentKey = apiKey
	}
	return d.current
}
