package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"visamate/backend/internal/cache"
	"visamate/backend/internal/config"
	"visamate/backend/internal/countries"
	"visamate/backend/internal/llm"
	"visamate/backend/internal/middleware"
	"visamate/backend/internal/prompt"
	"visamate/backend/internal/retrieval"
	"visamate/backend/internal/scraper"
	"visamate/backend/internal/settings"
	"visamate/backend/internal/worker"
)

type Fetcher interface {
	Fetch(ctx context.Context, urls []string, params map[string]string, force bool) ([]scraper.Document, []string, error)
}

type Retriever interface {
	Similar(ctx context.Context, query string) ([]retrieval.SimilarCase, error)
}

type Publisher interface {
	Publish(topic string, body []byte) error
}

type SettingsProvider interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

type Service struct {
	fetcher     Fetcher
	retriever   Retriever
	llm         llm.Client
	composer    *prompt.Composer
	results     *cache.Store
	resultTTL   time.Duration
	publisher   Publisher
	settings    SettingsProvider
	defaultTemp float32
}

func NewService(
	fetcher Fetcher,
	retriever Retriever,
	llmClient llm.Client,
	composer *prompt.Composer,
	results *cache.Store,
	resultTTL time.Duration,
	publisher Publisher,
	settingsSvc SettingsProvider,
	defaultTemp float32,
) *Service {
	return &Service{
		fetcher:     fetcher,
		retriever:   retriever,
		llm:         llmClient,
		composer:    composer,
		results:     results,
		resultTTL:   resultTTL,
		publisher:   publisher,
		settings:    settingsSvc,
		defaultTemp: defaultTemp,
	}
}

// cachedResult is what the result cache stores per request fingerprint.
type cachedResult struct {
	Artifact         *Artifact
	SourcesUsed      []string
	SimilarCasesUsed int
	Warnings         []string
}

// pipelineFailure carries the warnings gathered before the pipeline gave up,
// so failure responses keep them.
type pipelineFailure struct {
	err      error
	warnings []string
}

func (f *pipelineFailure) Error() string { return f.err.Error() }
func (f *pipelineFailure) Unwrap() error { return f.err }

// failureResponse describes a failed run through the same envelope a
// successful run uses: success=false, error_message set, artifact absent.
func failureResponse(err error) *Response {
	resp := &Response{ErrorMessage: err.Error()}
	var pf *pipelineFailure
	if errors.As(err, &pf) {
		resp.Warnings = pf.warnings
	}
	return resp
}

// Generate runs the full pipeline for one request. Identical requests within
// the result TTL are served from cache; concurrent identical requests share a
// single pipeline run. On failure the returned response still describes the
// outcome (success=false, error_message, warnings so far) and err carries the
// sentinel for status mapping.
func (s *Service) Generate(ctx context.Context, kind Kind, req Request) (*Response, error) {
	if err := validate(req); err != nil {
		return failureResponse(err), err
	}

	urls := req.TargetURLs
	if len(urls) == 0 {
		urls = countries.Resolve(req.DestinationCountry)
		if len(urls) == 0 {
			err := fmt.Errorf("%w: no known official sources for destination %q; provide target_urls", ErrValidation, req.DestinationCountry)
			return failureResponse(err), err
		}
	}

	key := resultFingerprint(kind, req, urls)
	v, hit, err := s.results.Do(ctx, key, s.resultTTL, req.ForceRefresh, func(runCtx context.Context) (any, error) {
		return s.run(runCtx, kind, req, urls)
	})
	if err != nil {
		return failureResponse(err), err
	}

	res := v.(cachedResult)
	return &Response{
		Success:  true,
		Artifact: res.Artifact,
		Metadata: Metadata{
			SourcesUsed:      res.SourcesUsed,
			CacheHit:         hit,
			SimilarCasesUsed: res.SimilarCasesUsed,
		},
		Warnings: res.Warnings,
	}, nil
}

func validate(req Request) error {
	if strings.TrimSpace(req.Nationality) == "" {
		return fmt.Errorf("%w: nationality is required", ErrValidation)
	}
	if strings.TrimSpace(req.DestinationCountry) == "" {
		return fmt.Errorf("%w: destination_country is required", ErrValidation)
	}
	if strings.TrimSpace(req.VisaType) == "" {
		return fmt.Errorf("%w: visa_type is required", ErrValidation)
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 1) {
		return fmt.Errorf("%w: temperature must be within [0,1]", ErrValidation)
	}
	return nil
}

func resultFingerprint(kind Kind, req Request, urls []string) string {
	params := map[string]string{
		"nationality": req.Nationality,
		"destination": req.DestinationCountry,
		"visa_type":   req.VisaType,
		"occupation":  req.Occupation,
		"purpose":     req.TravelPurpose,
		"urls":        strings.Join(urls, ","),
		"rag":         fmt.Sprintf("%t", req.useRAG()),
	}
	if req.Temperature != nil {
		params["temperature"] = fmt.Sprintf("%.3f", *req.Temperature)
	}
	return scraper.Fingerprint("generate:"+string(kind), params)
}

func (s *Service) run(ctx context.Context, kind Kind, req Request, urls []string) (cachedResult, error) {
	docs, warnings, err := s.fetcher.Fetch(ctx, urls, map[string]string{"visa_type": req.VisaType}, req.ForceRefresh)
	if err != nil {
		return cachedResult{}, &pipelineFailure{err: err, warnings: warnings}
	}

	var examples []prompt.Example
	if req.useRAG() && s.retriever != nil {
		cases, rerr := s.retriever.Similar(ctx, retrievalQuery(req))
		if rerr != nil {
			// Retrieval is an enhancement; generation proceeds without it.
			slog.WarnContext(ctx, "similar case retrieval failed", "error", rerr)
			warnings = append(warnings, "similar case retrieval unavailable")
		}
		for _, c := range cases {
			examples = append(examples, prompt.Example{
				Score:          c.Score,
				Content:        c.Content,
				FieldsIncluded: c.FieldsIncluded,
			})
		}
	}

	applicant := prompt.Applicant{
		Nationality: req.Nationality,
		Destination: req.DestinationCountry,
		VisaType:    req.VisaType,
		Occupation:  req.Occupation,
		Purpose:     req.TravelPurpose,
	}
	sources := make([]prompt.Source, len(docs))
	sourcesUsed := make([]string, len(docs))
	for i, d := range docs {
		sources[i] = prompt.Source{URL: d.URL, Text: d.Text}
		sourcesUsed[i] = d.URL
	}

	var promptText string
	if kind == KindCoverLetter {
		promptText = s.composer.ComposeCoverLetter(applicant, sources, examples)
	} else {
		promptText = s.composer.ComposeChecklist(applicant, sources, examples)
	}

	raw, err := s.generateWithRetry(ctx, promptText, s.temperature(ctx, req))
	if err != nil {
		return cachedResult{}, &pipelineFailure{err: fmt.Errorf("%w: %v", ErrGeneration, err), warnings: warnings}
	}

	artifact, err := buildArtifact(kind, raw)
	if err != nil {
		return cachedResult{}, &pipelineFailure{err: err, warnings: warnings}
	}

	s.publishCase(ctx, req, artifact)

	return cachedResult{
		Artifact:         artifact,
		SourcesUsed:      sourcesUsed,
		SimilarCasesUsed: len(examples),
		Warnings:         warnings,
	}, nil
}

func retrievalQuery(req Request) string {
	parts := []string{req.Nationality, req.DestinationCountry, req.VisaType}
	if req.TravelPurpose != "" {
		parts = append(parts, req.TravelPurpose)
	}
	if req.Occupation != "" {
		parts = append(parts, req.Occupation)
	}
	return strings.Join(parts, " ")
}

func (s *Service) temperature(ctx context.Context, req Request) float32 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	if s.settings != nil {
		if cfg, err := s.settings.Get(ctx); err == nil && cfg != nil && cfg.DefaultTemperature > 0 {
			return cfg.DefaultTemperature
		}
	}
	return s.defaultTemp
}

// generateWithRetry calls the model, retrying exactly once when the failure
// is transient (timeout or connection). Unusable responses are not retried.
func (s *Service) generateWithRetry(ctx context.Context, promptText string, temperature float32) (string, error) {
	raw, err := s.llm.Generate(ctx, promptText, temperature)
	if err == nil {
		return raw, nil
	}
	if !llm.Retryable(err) {
		return "", err
	}
	slog.WarnContext(ctx, "generation failed, retrying once", "error", err)
	return s.llm.Generate(ctx, promptText, temperature)
}

func buildArtifact(kind Kind, raw string) (*Artifact, error) {
	switch kind {
	case KindCoverLetter:
		payload := llm.Extract(raw, []string{"title", "sections"})
		if payload == nil {
			return nil, fmt.Errorf("%w: model returned unusable output", ErrGeneration)
		}
		var letter CoverLetter
		if err := json.Unmarshal(payload, &letter); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
		}
		if letter.Title == "" || len(letter.Sections) == 0 {
			return nil, fmt.Errorf("%w: cover letter missing title or sections", ErrGeneration)
		}
		return &Artifact{Kind: KindCoverLetter, CoverLetter: &letter}, nil
	default:
		payload := llm.Extract(raw, []string{"title", "items"})
		if payload == nil {
			return nil, fmt.Errorf("%w: model returned unusable output", ErrGeneration)
		}
		var checklist Checklist
		if err := json.Unmarshal(payload, &checklist); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
		}
		if checklist.Title == "" || len(checklist.Items) == 0 {
			return nil, fmt.Errorf("%w: checklist missing title or items", ErrGeneration)
		}
		return &Artifact{Kind: KindChecklist, Checklist: &checklist}, nil
	}
}

// publishCase queues the generated case for vector indexing. Indexing is
// best effort: a publish failure is logged but never fails the request.
func (s *Service) publishCase(ctx context.Context, req Request, artifact *Artifact) {
	if s.publisher == nil {
		return
	}

	content, fields := artifactContent(artifact)
	payload := worker.CaseIndexPayload{
		CaseID:         uuid.NewString(),
		Nationality:    req.Nationality,
		Destination:    req.DestinationCountry,
		VisaType:       req.VisaType,
		TravelPurpose:  req.TravelPurpose,
		Content:        content,
		FieldsIncluded: fields,
		CorrelationID:  middleware.GetCorrelationID(ctx),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal index payload", "error", err)
		return
	}
	if err := s.publisher.Publish(config.TopicCaseIndex, body); err != nil {
		slog.WarnContext(ctx, "failed to publish case for indexing", "error", err)
	}
}

// artifactContent flattens an artifact into plain text for embedding, with
// the item categories or section headings as the indexed field list.
func artifactContent(a *Artifact) (string, []string) {
	var b strings.Builder
	var fields []string
	seen := make(map[string]bool)

	switch {
	case a.Checklist != nil:
		b.WriteString(a.Checklist.Title)
		for _, item := range a.Checklist.Items {
			fmt.Fprintf(&b, "\n%s: %s", item.Category, item.Description)
			if item.Category != "" && !seen[item.Category] {
				seen[item.Category] = true
				fields = append(fields, item.Category)
			}
		}
	case a.CoverLetter != nil:
		b.WriteString(a.CoverLetter.Title)
		for _, sec := range a.CoverLetter.Sections {
			fmt.Fprintf(&b, "\n%s\n%s", sec.Heading, sec.Body)
			if sec.Heading != "" && !seen[sec.Heading] {
				seen[sec.Heading] = true
				fields = append(fields, sec.Heading)
			}
		}
	}
	return b.String(), fields
}
