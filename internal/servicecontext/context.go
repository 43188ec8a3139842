// Package servicecontext builds the process-wide ServiceContext: every
// shared component constructed once and threaded through request handlers,
// replacing the module-level globals and singletons the source keeps for
// its LLM response cache, embedding cache, and configuration (§9 DESIGN
// NOTES, "Ambient globals and singletons in the source").
package servicecontext

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	qdrantclient "github.com/qdrant/go-client/qdrant"

	"github.com/wedosoft/ticketrag/internal/cache"
	"github.com/wedosoft/ticketrag/internal/config"
	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/embed"
	"github.com/wedosoft/ticketrag/internal/ingest"
	"github.com/wedosoft/ticketrag/internal/initctx"
	"github.com/wedosoft/ticketrag/internal/jobstore"
	"github.com/wedosoft/ticketrag/internal/llmrouter"
	"github.com/wedosoft/ticketrag/internal/llmrouter/providers/anthropic"
	"github.com/wedosoft/ticketrag/internal/llmrouter/providers/openai"
	"github.com/wedosoft/ticketrag/internal/platform"
	"github.com/wedosoft/ticketrag/internal/query"
	"github.com/wedosoft/ticketrag/internal/ragquery"
	"github.com/wedosoft/ticketrag/internal/search"
	"github.com/wedosoft/ticketrag/internal/summarize"
	"github.com/wedosoft/ticketrag/internal/telemetry"
	"github.com/wedosoft/ticketrag/internal/vectorstore/qdrant"

	_ "github.com/wedosoft/ticketrag/internal/platform/freshdesk" // registers domain.PlatformFreshdesk's factory
)

// DenseEmbeddingSize is the dimensionality of the configured embedding
// model; text-embedding-3-small and most multilingual-e5 variants agree on
// 1536, so this is the one value every component needs in common (the
// collection's vector config, and the gateway's own validation).
const DenseEmbeddingSize = 1536

// ServiceContext holds every shared, tenant-agnostic component plus the
// per-tenant adapter cache. Construct one with New at process start.
type ServiceContext struct {
	Config     *config.Config
	Logger     *slog.Logger
	Tenants    *TenantRegistry
	Router     *llmrouter.Router
	Gateway    *qdrant.Gateway
	Embedder   *embed.Embedder
	Summarizer *summarize.Summarizer
	Analyzer   *query.Analyzer
	Search     *search.Engine
	Answerer   *ragquery.Answerer
	JobStore   *jobstore.Store
	Metrics    *prometheus.Registry

	generate search.GenerateFunc
	reranker search.Reranker

	mu           sync.Mutex
	adapters     map[domain.TenantID]platform.Adapter
	orchestrator map[domain.TenantID]*ingest.Orchestrator
	assemblers   map[domain.TenantID]*initctx.Assembler
}

// New wires every shared component from cfg: the LLM router with both
// configured providers registered, the Redis-backed response/embedding
// caches, the embedder, the Qdrant gateway, the summarizer, the query
// analyzer, the hybrid search engine, and the Postgres-backed job store.
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)

	tenants, err := NewTenantRegistry(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("servicecontext: redis: %w", err)
	}
	responseCache := cache.NewLLMResponses(redisClient)
	embeddingCache := cache.NewEmbeddings(redisClient)

	router := llmrouter.New(
		func() map[domain.UseCase]domain.LLMUseCaseConfig { return cfg.LLMUseCaseConfigs() },
		llmrouter.WithCache(responseCache),
		llmrouter.WithLogger(logger),
	)

	if p, err := newOpenAIProvider(); err == nil {
		router.RegisterProvider(p)
		router.RegisterEmbeddingProvider(p)
	} else {
		logger.Warn("openai provider unavailable", "error", err)
	}
	if p, err := newAnthropicProvider(); err == nil {
		router.RegisterProvider(p)
	} else {
		logger.Warn("anthropic provider unavailable", "error", err)
	}

	generate := adaptGenerate(router)

	embedFn := func(ctx context.Context, model string, texts []string) ([][]float32, error) {
		return router.EmbedBatch(ctx, "openai", model, texts)
	}
	embedder := embed.New(embed.Config{
		Model:  cfg.EmbeddingModel,
		Sparse: true,
	}, embedFn, embeddingCache, logger)

	qdrantClient, err := newQdrantClient(cfg)
	if err != nil {
		return nil, err
	}
	gateway, err := qdrant.New(qdrant.Config{
		Client:        qdrantClient,
		EmbeddingSize: DenseEmbeddingSize,
		UseSparse:     true,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("servicecontext: qdrant gateway: %w", err)
	}
	if err := gateway.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("servicecontext: ensure collection: %w", err)
	}

	templates, err := summarize.LoadDir(cfg.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("servicecontext: loading summary templates: %w", err)
	}
	summarizer := summarize.New(templates, generate, 0, logger)

	analyzer := query.New(generate, query.WithLogger(logger))

	var reranker search.Reranker
	if cfg.RerankServiceURL != "" {
		reranker = search.NewHTTPReranker(cfg.RerankServiceURL, &http.Client{})
	}
	searchOpts := []search.Option{search.WithQualityThreshold(cfg.HybridSearchQualityThreshold)}
	if cfg.FusionDenseWeight != 0 || cfg.FusionSparseWeight != 0 {
		searchOpts = append(searchOpts, search.WithWeights(func(intent domain.Intent) search.FusionWeights {
			w := search.DefaultFusionWeights(intent)
			w.Dense, w.Sparse = cfg.FusionDenseWeight, cfg.FusionSparseWeight
			return w
		}))
	}
	searchEngine := search.New(gateway, embedder, generate, reranker, searchOpts...)

	answerer := ragquery.New(analyzer, searchEngine, ragquery.GenerateFunc(generate))

	jobs, err := jobstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("servicecontext: jobstore: %w", err)
	}

	return &ServiceContext{
		Config:       cfg,
		Logger:       logger,
		Tenants:      tenants,
		Router:       router,
		Gateway:      gateway,
		Embedder:     embedder,
		Summarizer:   summarizer,
		Analyzer:     analyzer,
		Search:       searchEngine,
		Answerer:     answerer,
		JobStore:     jobs,
		generate:     generate,
		reranker:     reranker,
		Metrics:      telemetry.NewRegistry(),
		adapters:     map[domain.TenantID]platform.Adapter{},
		orchestrator: map[domain.TenantID]*ingest.Orchestrator{},
		assemblers:   map[domain.TenantID]*initctx.Assembler{},
	}, nil
}

// AdapterFor returns (constructing and caching on first use) the
// platform.Adapter for tenant, built from its registered credentials.
func (sc *ServiceContext) AdapterFor(tenantID domain.TenantID) (platform.Adapter, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if a, ok := sc.adapters[tenantID]; ok {
		return a, nil
	}
	rec, ok := sc.Tenants.Lookup(tenantID)
	if !ok {
		return nil, domain.NewError(domain.KindValidationFailure, "unknown tenant %q", tenantID)
	}
	adapter, err := platform.CreateAdapter(rec.Platform, rec.Credentials())
	if err != nil {
		return nil, err
	}
	sc.adapters[tenantID] = adapter
	return adapter, nil
}

// OrchestratorFor returns (constructing and caching on first use) the
// ingest.Orchestrator for tenant, sharing this ServiceContext's summarizer,
// embedder, gateway and job store across every tenant (§5 "Shared
// resources") while keeping the tenant's platform.Adapter exclusive to it.
func (sc *ServiceContext) OrchestratorFor(tenantID domain.TenantID) (*ingest.Orchestrator, error) {
	sc.mu.Lock()
	if o, ok := sc.orchestrator[tenantID]; ok {
		sc.mu.Unlock()
		return o, nil
	}
	sc.mu.Unlock()

	adapter, err := sc.AdapterFor(tenantID)
	if err != nil {
		return nil, err
	}
	o := ingest.New(adapter, sc.Summarizer, sc.Embedder, sc.Gateway, sc.JobStore, domain.DefaultWorkerPoolSize, sc.Logger)

	sc.mu.Lock()
	sc.orchestrator[tenantID] = o
	sc.mu.Unlock()
	return o, nil
}

// AssemblerFor returns (constructing and caching on first use) the
// initctx.Assembler for tenant.
func (sc *ServiceContext) AssemblerFor(tenantID domain.TenantID) (*initctx.Assembler, error) {
	sc.mu.Lock()
	if a, ok := sc.assemblers[tenantID]; ok {
		sc.mu.Unlock()
		return a, nil
	}
	sc.mu.Unlock()

	adapter, err := sc.AdapterFor(tenantID)
	if err != nil {
		return nil, err
	}
	a := initctx.New(adapter, sc.Summarizer, sc.Search)

	sc.mu.Lock()
	sc.assemblers[tenantID] = a
	sc.mu.Unlock()
	return a, nil
}

// SearchEngineWithWeights builds a one-off search.Engine sharing this
// ServiceContext's gateway, embedder, generate func and reranker, but
// using dense/sparse as its fixed fusion weights instead of Search's
// intent-based defaults. This backs /hybrid-search's per-request
// dense_weight/sparse_weight override (§6): Engine carries no mutable
// per-call state, so building a throwaway instance per request is cheap
// and avoids adding request-scoped knobs to the shared Engine's API.
func (sc *ServiceContext) SearchEngineWithWeights(dense, sparse float64) *search.Engine {
	return search.New(sc.Gateway, sc.Embedder, sc.generate, sc.reranker,
		search.WithQualityThreshold(sc.Config.HybridSearchQualityThreshold),
		search.WithWeights(func(domain.Intent) search.FusionWeights {
			return search.FusionWeights{Dense: dense, Sparse: sparse, RecencyWeight: 0.15}
		}),
	)
}

// OrchestratorResolver adapts OrchestratorFor to ingest.OrchestratorResolver
// for the scheduler's per-tick sweep.
func (sc *ServiceContext) OrchestratorResolver(tenant domain.TenantContext) (*ingest.Orchestrator, error) {
	return sc.OrchestratorFor(tenant.TenantID)
}

// TenantLister adapts Tenants.List to ingest.TenantLister for the
// scheduler's per-tick sweep.
func (sc *ServiceContext) TenantLister(ctx context.Context) ([]domain.TenantContext, error) {
	return sc.Tenants.List(), nil
}

// LastCompletedLookup adapts JobStore.ListByTenant to
// ingest.LastCompletedLookup, resolving the most recent completed job's
// UpdatedAt for a tenant, or the zero time if none exists.
func (sc *ServiceContext) LastCompletedLookup(ctx context.Context, tenant domain.TenantContext) (time.Time, error) {
	jobs, err := sc.JobStore.ListByTenant(ctx, tenant.TenantID)
	if err != nil {
		return time.Time{}, err
	}
	var latest time.Time
	for _, j := range jobs {
		if j.Status != domain.JobStatusCompleted {
			continue
		}
		if j.UpdatedAt.After(latest) {
			latest = j.UpdatedAt
		}
	}
	return latest, nil
}

func adaptGenerate(router *llmrouter.Router) func(ctx context.Context, tenantID domain.TenantID, useCase domain.UseCase, systemPrompt, userContent string, temperature float64) (string, int, int, error) {
	return func(ctx context.Context, tenantID domain.TenantID, useCase domain.UseCase, systemPrompt, userContent string, temperature float64) (string, int, int, error) {
		messages := []llmrouter.Message{
			{Role: llmrouter.RoleSystem, Content: systemPrompt},
			{Role: llmrouter.RoleUser, Content: userContent},
		}
		text, meta, err := router.Generate(ctx, tenantID, useCase, messages, llmrouter.Options{Temperature: temperature})
		if err != nil {
			return "", 0, 0, err
		}
		return text, meta.PromptTokens, meta.CompletionTokens, nil
	}
}

func newOpenAIProvider() (*openai.Provider, error) {
	return openai.New(&openai.Config{APIKey: os.Getenv("OPENAI_API_KEY")})
}

func newAnthropicProvider() (*anthropic.Provider, error) {
	return anthropic.New(&anthropic.Config{APIKey: os.Getenv("ANTHROPIC_API_KEY")})
}

// newQdrantClient parses cfg.QdrantURL ("http(s)://host:port") into the
// go-client's Host/Port/UseTLS fields.
func newQdrantClient(cfg *config.Config) (*qdrantclient.Client, error) {
	u, err := url.Parse(cfg.QdrantURL)
	if err != nil {
		return nil, fmt.Errorf("servicecontext: parsing QDRANT_URL: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("servicecontext: QDRANT_URL %q has no host", cfg.QdrantURL)
	}
	port := 6334
	if portStr := u.Port(); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}
	return qdrantclient.NewClient(&qdrantclient.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.QdrantAPIKey,
		UseTLS: u.Scheme == "https",
	})
}
