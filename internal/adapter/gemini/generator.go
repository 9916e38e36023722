package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"visamate/backend/internal/llm"
	"visamate/backend/internal/settings"
)

// Generator implements llm.Client on top of Gemini. Each call gets its own
// timeout; failures are mapped onto the llm error taxonomy so the
// orchestrator can decide what is worth retrying.
type Generator struct {
	settingsSvc *settings.Service
	model       string
	timeout     time.Duration
	client      *genai.Client
	currentKey  string
	mu          sync.RWMutex
	clientOpts  []option.ClientOption
}

func NewGenerator(svc *settings.Service, model string, timeout time.Duration, opts ...option.ClientOption) *Generator {
	return &Generator{
		settingsSvc: svc,
		model:       model,
		timeout:     timeout,
		clientOpts:  opts,
	}
}

func (g *Generator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	s, err := g.settingsSvc.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get settings: %w", err)
	}
	if s.GeminiAPIKey == "" {
		return "", fmt.Errorf("%w: gemini api key not configured", llm.ErrConnection)
	}

	client, err := g.getClient(ctx, s.GeminiAPIKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrConnection, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	model := client.GenerativeModel(g.model)
	model.SetTemperature(temperature)

	slog.DebugContext(ctx, "generating content", "model", g.model, "prompt_length", len(prompt), "temperature", temperature)

	resp, err := model.GenerateContent(callCtx, genai.Text(prompt))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: after %s", llm.ErrTimeout, g.timeout)
		}
		return "", fmt.Errorf("%w: %v", llm.ErrConnection, err)
	}

	text, err := flattenResponse(resp)
	if err != nil {
		return "", err
	}
	return text, nil
}

// flattenResponse concatenates the text parts of the first candidate.
func flattenResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", llm.ErrResponse)
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: candidate has no content", llm.ErrResponse)
	}

	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("%w: candidate contained no text parts", llm.ErrResponse)
	}
	return b.String(), nil
}

func (g *Generator) getClient(ctx context.Context, key string) (*genai.Client, error) {
	g.mu.RLock()
	if g.client != nil && g.currentKey == key {
		defer g.mu.RUnlock()
		return g.client, nil
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil && g.currentKey == key {
		return g.client, nil
	}

	if g.client != nil {
		if err := g.client.Close(); err != nil {
			slog.Warn("failed to close previous genai client", "error", err)
		}
	}

	opts := append(g.clientOpts, option.WithAPIKey(key))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	g.client = client
	g.currentKey = key
	return client, nil
}
