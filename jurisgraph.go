package jurisgraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jurisgraph/jurisgraph/pkg/alert"
	"github.com/jurisgraph/jurisgraph/pkg/community"
	"github.com/jurisgraph/jurisgraph/pkg/compose"
	"github.com/jurisgraph/jurisgraph/pkg/config"
	"github.com/jurisgraph/jurisgraph/pkg/embedder"
	"github.com/jurisgraph/jurisgraph/pkg/graph"
	"github.com/jurisgraph/jurisgraph/pkg/orchestrator"
	"github.com/jurisgraph/jurisgraph/pkg/retrieval"
	"github.com/jurisgraph/jurisgraph/pkg/telemetry"
	"github.com/jurisgraph/jurisgraph/pkg/types"
)

// JurisGraph is the main interface for querying the legal knowledge graph.
// It fronts the full pipeline: retrieval agents, rank fusion, and answer
// composition, streamed as events.
type JurisGraph interface {
	// Ask runs one retrieval request and returns its event stream. The
	// stream carries exactly one terminal event and is then closed.
	Ask(ctx context.Context, req types.Request) <-chan types.StreamEvent

	// RebuildCommunities recomputes the derived community layer and swaps
	// it atomically. Meant to be run out of band, not per request.
	RebuildCommunities(ctx context.Context) (*community.Result, error)

	// Store exposes the underlying graph store for inspection endpoints.
	Store() graph.Store

	// Close closes all connections and cleans up resources.
	Close() error
}

// Client is the main implementation of the JurisGraph interface.
type Client struct {
	store        graph.Store
	embedder     embedder.Client
	composer     compose.Client
	centroids    retrieval.CentroidCache
	orchestrator *orchestrator.Orchestrator
	builder      *community.Builder
	recorder     telemetry.Recorder
	config       *config.Config
	logger       *slog.Logger
}

// NewClient wires the full pipeline from configuration: graph store,
// embedder (behind a circuit breaker), composer, centroid cache, the three
// agents, the orchestrator, and the community builder.
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", types.ErrConfiguration)
	}
	if logger == nil {
		logger = slog.Default()
	}

	embedClient, err := buildEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(cfg, embedClient)
	if err != nil {
		embedClient.Close()
		return nil, err
	}

	composer, err := buildComposer(cfg)
	if err != nil {
		store.Close()
		embedClient.Close()
		return nil, err
	}

	centroidCache, err := buildCentroidCache(cfg)
	if err != nil {
		store.Close()
		embedClient.Close()
		return nil, err
	}
	centroids := retrieval.NewCentroids(store, centroidCache)

	var recorder telemetry.Recorder = telemetry.NopRecorder{}
	if cfg.Telemetry.ParquetPath != "" {
		pr, err := telemetry.NewParquetRecorder(cfg.Telemetry.ParquetPath)
		if err != nil {
			logger.Warn("telemetry disabled", "error", err)
		} else {
			recorder = pr
		}
	}

	agents := []retrieval.Agent{
		retrieval.NewLocalAgent(store, embedClient, cfg.Retrieval, logger),
		retrieval.NewGlobalAgent(store, embedClient, centroids, cfg.Retrieval, logger),
		retrieval.NewDriftAgent(store, embedClient, centroids, cfg.Retrieval, logger),
	}
	orch := orchestrator.New(store, agents, composer, recorder, cfg.Retrieval, logger)

	var builder *community.Builder
	if mutator, ok := store.(graph.Mutator); ok {
		builder = community.NewBuilder(store, mutator, composer, embedClient, logger)
	}

	return &Client{
		store:        store,
		embedder:     embedClient,
		composer:     composer,
		centroids:    centroidCache,
		orchestrator: orch,
		builder:      builder,
		recorder:     recorder,
		config:       cfg,
		logger:       logger,
	}, nil
}

// Ask implements JurisGraph.
func (c *Client) Ask(ctx context.Context, req types.Request) <-chan types.StreamEvent {
	return c.orchestrator.Handle(ctx, req)
}

// RebuildCommunities implements JurisGraph.
func (c *Client) RebuildCommunities(ctx context.Context) (*community.Result, error) {
	if c.builder == nil {
		return nil, fmt.Errorf("%w: graph store does not support community rebuilds", types.ErrConfiguration)
	}
	return c.builder.Rebuild(ctx)
}

// Store implements JurisGraph.
func (c *Client) Store() graph.Store { return c.store }

// Orchestrator exposes the request pipeline for the HTTP server.
func (c *Client) Orchestrator() *orchestrator.Orchestrator { return c.orchestrator }

// Close implements JurisGraph.
func (c *Client) Close() error {
	var firstErr error
	for _, closer := range []func() error{
		c.recorder.Close,
		c.centroids.Close,
		c.composer.Close,
		c.embedder.Close,
		c.store.Close,
	} {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func buildEmbedder(cfg *config.Config, logger *slog.Logger) (embedder.Client, error) {
	var client embedder.Client
	switch cfg.Embedding.Provider {
	case "fixture":
		client = embedder.NewFixture()
	case "openai":
		c, err := embedder.NewOpenAIClient(&embedder.Config{
			Model:      cfg.Embedding.Model,
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimensions: cfg.Embedding.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		client = c
	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", types.ErrConfiguration, cfg.Embedding.Provider)
	}

	if cfg.CircuitBreaker.Enabled {
		var alerter alert.Alerter = alert.Nop{}
		if cfg.Alert.Enabled {
			alerter = alert.NewSMTP(cfg.Alert)
		}
		client = embedder.NewCircuitBreakerClient(client, cfg.CircuitBreaker, alerter, logger, "embedder")
	}
	return client, nil
}

func buildStore(cfg *config.Config, embedClient embedder.Client) (graph.Store, error) {
	switch cfg.Graph.Driver {
	case "fixture":
		fixture, err := graph.DefaultFixture()
		if err != nil {
			return nil, err
		}
		if err := fixture.EmbedAll(context.Background(), embedClient.EmbedSingle); err != nil {
			return nil, fmt.Errorf("embed fixture corpus: %w", err)
		}
		return fixture, nil
	case "neo4j":
		return graph.NewNeo4jStore(graph.Neo4jConfig{
			URI:         cfg.Graph.URI,
			Username:    cfg.Graph.Username,
			Password:    cfg.Graph.Password,
			Database:    cfg.Graph.Database,
			VectorIndex: cfg.Graph.VectorIndex,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported graph driver %q", types.ErrConfiguration, cfg.Graph.Driver)
	}
}

func buildComposer(cfg *config.Config) (compose.Client, error) {
	switch cfg.Compose.Provider {
	case "fixture":
		return compose.NewFixture(), nil
	case "openai":
		return compose.NewOpenAIClient(compose.Config{
			Model:       cfg.Compose.Model,
			APIKey:      cfg.Compose.APIKey,
			BaseURL:     cfg.Compose.BaseURL,
			Temperature: cfg.Compose.Temperature,
			MaxTokens:   cfg.Compose.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported compose provider %q", types.ErrConfiguration, cfg.Compose.Provider)
	}
}

func buildCentroidCache(cfg *config.Config) (retrieval.CentroidCache, error) {
	if cfg.Retrieval.CentroidCachePath != "" {
		return retrieval.NewBadgerCentroidCache(cfg.Retrieval.CentroidCachePath, cfg.Community.RefreshInterval)
	}
	return retrieval.NewMemoryCentroidCache(cfg.Community.RefreshInterval), nil
}

var _ JurisGraph = (*Client)(nil)
