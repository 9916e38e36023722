package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"visamate/backend/features/generation"
	"visamate/backend/features/profile"
	"visamate/backend/features/stats"
	"visamate/backend/internal/adapter/gemini"
	"visamate/backend/internal/adapter/reranker"
	wstore "visamate/backend/internal/adapter/weaviate"
	"visamate/backend/internal/auth"
	"visamate/backend/internal/blob"
	"visamate/backend/internal/cache"
	"visamate/backend/internal/config"
	"visamate/backend/internal/middleware"
	"visamate/backend/internal/prompt"
	"visamate/backend/internal/retrieval"
	"visamate/backend/internal/scraper"
	"visamate/backend/internal/settings"
	"visamate/backend/internal/worker"
)

// VectorStore is what the app needs from Weaviate: similarity queries for
// retrieval and upserts for the indexing consumer.
type VectorStore interface {
	QuerySimilar(ctx context.Context, vector []float32, topK int, minScore float32) ([]retrieval.SimilarCase, error)
	UpsertCase(ctx context.Context, c wstore.Case) error
	CountCases(ctx context.Context) (int, error)
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

type App struct {
	Handler         http.Handler
	IndexerConsumer *worker.IndexerConsumer

	port int
}

func New(
	cfg *config.Config,
	db *sql.DB,
	vecStore VectorStore,
	taskPub TaskPublisher,
	logger *slog.Logger,
) (*App, error) {
	settingsRepo := settings.NewPostgresRepo(db)
	settingsService := settings.NewService(settingsRepo)

	seedAPIKey(cfg, settingsService)

	settingsHandler := settings.NewHandler(settingsService)

	// Feature: Profile
	blobStore, err := blob.NewDiskStore(cfg.UploadDir, cfg.BlobBaseURL)
	if err != nil {
		return nil, err
	}
	profileRepo := profile.NewPostgresRepo(db)
	profileService := profile.NewService(profileRepo)
	profileHandler := profile.NewHandler(profileService, blobStore)

	// Adapters: settings-driven, so key rotation needs no restart.
	embedder := gemini.NewDynamicEmbedder(settingsService, cfg.EmbeddingModel, cfg.EmbeddingDim)
	generator := gemini.NewGenerator(settingsService, cfg.GenerationModel, time.Duration(cfg.GenerateTimeoutSeconds)*time.Second)
	rerankerClient := reranker.NewDynamicClient(settingsService)

	// Feature: Retrieval
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	embedTimeout := time.Duration(cfg.EmbedTimeoutSeconds) * time.Second
	retrievalService := retrieval.NewService(
		embedder, vecStore, rerankerClient, settingsService, queryLogger,
		cfg.RetrievalTopK, cfg.RetrievalMinScore,
		embedTimeout, time.Duration(cfg.VectorQueryTimeoutSeconds)*time.Second,
	)

	// Feature: Generation
	fetcher := scraper.NewFetcher(
		cache.New(nil),
		time.Duration(cfg.FetchTimeoutSeconds)*time.Second,
		time.Duration(cfg.SourceCacheTTLHours)*time.Hour,
		cfg.FetchConcurrency,
	)
	generationService := generation.NewService(
		fetcher,
		retrievalService,
		generator,
		prompt.NewComposer(cfg.MaxSourceExcerptChars),
		cache.New(nil),
		time.Duration(cfg.ResultCacheTTLHours)*time.Hour,
		taskPub,
		settingsService,
		cfg.DefaultTemperature,
	)
	generationHandler := generation.NewHandler(generationService)

	requireAuth := auth.RequireAuth(auth.NewPostgresVerifier(db))

	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()

	mux.Handle("POST /generate/checklist", middleware.CorrelationID(enableCORS(generationHandler.GenerateChecklist)))
	mux.Handle("POST /generate/cover-letter", middleware.CorrelationID(enableCORS(generationHandler.GenerateCoverLetter)))

	mux.Handle("GET /profile", middleware.CorrelationID(enableCORS(profileHandler.GetProfile)))
	mux.Handle("PUT /profile", middleware.CorrelationID(requireAuth(enableCORS(profileHandler.PutProfile))))
	mux.Handle("POST /documents", middleware.CorrelationID(requireAuth(enableCORS(profileHandler.UploadDocument))))

	statsHandler := stats.NewHandler(profileRepo, vecStore)
	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.Handle("GET /settings", middleware.CorrelationID(enableCORS(settingsHandler.GetSettings)))
	mux.Handle("PUT /settings", middleware.CorrelationID(requireAuth(enableCORS(settingsHandler.UpdateSettings))))

	mux.Handle("GET /files/", http.StripPrefix("/files/", http.FileServer(http.Dir(cfg.UploadDir))))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	indexerConsumer := worker.NewIndexerConsumer(embedder, vecStore, embedTimeout)

	return &App{
		Handler:         mux,
		IndexerConsumer: indexerConsumer,
		port:            cfg.ServerPort,
	}, nil
}

// seedAPIKey copies the Gemini key from the environment into settings when no
// key has been configured yet, so a fresh deployment works out of the box.
func seedAPIKey(cfg *config.Config, svc *settings.Service) {
	if cfg.GeminiAPIKey == "" {
		return
	}

	ctx := context.Background()
	set, err := svc.Get(ctx)
	if err != nil {
		slog.Warn("failed to fetch settings for seeding", "error", err)
		return
	}
	if set.GeminiAPIKey != "" {
		return
	}

	set.GeminiAPIKey = cfg.GeminiAPIKey
	if err := svc.Update(ctx, set); err != nil {
		slog.Warn("failed to seed gemini api key", "error", err)
		return
	}
	slog.Info("seeded gemini api key from environment")
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
