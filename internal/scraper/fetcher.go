// Package scraper fetches and caches the source pages the generation
// pipeline grounds its output on.
package scraper

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"visamate/backend/internal/cache"
	"visamate/backend/internal/text"
)

// ErrAllSourcesFailed is returned when every requested URL failed; partial
// failures surface as warnings instead.
var ErrAllSourcesFailed = errors.New("all source fetches failed")

const maxBodyBytes = 2 << 20 // 2MB per page

// Document is one fetched and cleaned source page.
type Document struct {
	URL         string    `json:"url"`
	Fingerprint string    `json:"fingerprint"`
	FetchedAt   time.Time `json:"fetched_at"`
	Text        string    `json:"text"`
}

type Fetcher struct {
	client      *http.Client
	cache       *cache.Store
	ttl         time.Duration
	timeout     time.Duration
	concurrency int
}

func NewFetcher(store *cache.Store, timeout, ttl time.Duration, concurrency int) *Fetcher {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		cache:       store,
		ttl:         ttl,
		timeout:     timeout,
		concurrency: concurrency,
	}
}

// Fingerprint derives the cache key for a URL and the fetch parameters that
// affect its interpretation (visa type etc).
func Fingerprint(url string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(url)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(b.String())))
}

// Fetch retrieves every URL concurrently (bounded), serving unexpired cache
// entries unless force is set. Per-URL failures are isolated: they are
// reported in warnings and the failing URL is dropped from the result. The
// call errors only when all URLs fail.
//
// Concurrent fetches for the same fingerprint collapse to a single upstream
// request; the second caller waits for the first caller's outcome.
func (f *Fetcher) Fetch(ctx context.Context, urls []string, params map[string]string, force bool) ([]Document, []string, error) {
	if len(urls) == 0 {
		return nil, nil, fmt.Errorf("%w: no urls given", ErrAllSourcesFailed)
	}

	docs := make([]*Document, len(urls))
	errs := make([]error, len(urls))

	var g errgroup.Group
	g.SetLimit(f.concurrency)

	for i, u := range urls {
		g.Go(func() error {
			fp := Fingerprint(u, params)
			v, _, err := f.cache.Do(ctx, fp, f.ttl, force, func(fetchCtx context.Context) (any, error) {
				return f.fetchOne(fetchCtx, u, fp)
			})
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", u, err)
				return nil
			}
			doc := v.(Document)
			docs[i] = &doc
			return nil
		})
	}
	_ = g.Wait()

	var out []Document
	var warnings []string
	for i := range urls {
		if docs[i] != nil {
			out = append(out, *docs[i])
			continue
		}
		slog.WarnContext(ctx, "source fetch failed", "url", urls[i], "error", errs[i])
		warnings = append(warnings, fmt.Sprintf("source unavailable: %v", errs[i]))
	}

	if len(out) == 0 {
		return nil, warnings, fmt.Errorf("%w: %d urls", ErrAllSourcesFailed, len(urls))
	}
	return out, warnings, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, url, fingerprint string) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Document{}, err
	}
	req.Header.Set("User-Agent", "visamate-bot/1.0 (+https://visamate.example)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Document{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Document{}, err
	}

	cleaned := text.CleanHTML(string(body))
	if cleaned == "" {
		return Document{}, fmt.Errorf("page yielded no text content")
	}

	return Document{
		URL:         url,
		Fingerprint: fingerprint,
		FetchedAt:   time.Now(),
		Text:        cleaned,
	}, nil
}
