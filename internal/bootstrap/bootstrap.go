package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/code-context-engine/internal/config"
	"github.com/kirillkom/code-context-engine/internal/core/ports"
	"github.com/kirillkom/code-context-engine/internal/core/usecase"
	"github.com/kirillkom/code-context-engine/internal/infrastructure/cleaning"
	"github.com/kirillkom/code-context-engine/internal/infrastructure/llm"
	"github.com/kirillkom/code-context-engine/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/code-context-engine/internal/infrastructure/llm/openai"
	"github.com/kirillkom/code-context-engine/internal/infrastructure/queue/nats"
	"github.com/kirillkom/code-context-engine/internal/infrastructure/repository/memory"
	"github.com/kirillkom/code-context-engine/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/code-context-engine/internal/infrastructure/resilience"
	"github.com/kirillkom/code-context-engine/internal/infrastructure/tokens"
	"github.com/kirillkom/code-context-engine/internal/infrastructure/vector/qdrant"
)

type Options struct {
	Logger *slog.Logger
	// Observer receives every built packet. The API passes its metrics here.
	Observer ports.PipelineObserver
	// OnBreakerStateChange is forwarded to every resilience executor.
	OnBreakerStateChange resilience.StateObserver
}

type App struct {
	Config config.Config

	ContextUC ports.ContextBuilder
	Packets   ports.PacketReader
	ArchiveUC ports.PacketArchiver
	// Queue is nil when NATS_URL is empty; packets are then archived in-process.
	Queue *nats.Queue

	vectorDB *qdrant.Client
	closeFn  func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resilienceCfg := resilienceConfig(cfg)
	executorOpts := resilience.Options{Logger: logger, OnStateChange: opts.OnBreakerStateChange}
	callExecutor := resilience.NewExecutorWithOptions(resilienceCfg, executorOpts)
	scoreExecutor := resilience.NewExecutorWithOptions(resilienceCfg.SingleAttempt(), executorOpts)

	embedder, scorer, err := newLLM(cfg, callExecutor, scoreExecutor)
	if err != nil {
		return nil, err
	}
	cachedEmbedder := llm.NewCachedEmbedder(embedder, cfg.EmbedCacheSize)

	vectorDB := qdrant.NewWithOptions(cfg.QdrantURL, cfg.QdrantCollection, qdrant.Options{
		VectorName: cfg.QdrantVectorName,
		APIKey:     cfg.QdrantAPIKey,
		Executor:   callExecutor,
	})

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var archive ports.PacketArchive
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		repo := postgres.NewPacketRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		archive = repo
	} else {
		archive = memory.NewPacketStore(cfg.PacketCacheSize)
	}
	archiveUC := usecase.NewPacketArchiveUseCase(archive)

	var publisher ports.PacketPublisher = archiveUC
	var queue *nats.Queue
	if cfg.NATSURL != "" {
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: callExecutor,
			Logger:             logger,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		closers = append(closers, queue.Close)
		publisher = queue
	}

	reranker := usecase.NewReranker(scorer, usecase.RerankConfig{
		PoolSize:       cfg.ScoringPoolSize,
		ScoringTimeout: cfg.ScoringTimeout,
		HighThreshold:  cfg.ExpandHighThreshold,
		MidThreshold:   cfg.ExpandMidThreshold,
		MidK:           cfg.ExpandMidK,
		LowK:           cfg.ExpandLowK,
		Weights: usecase.FusionWeights{
			Similarity: cfg.FusionWeightSimilarity,
			Relevance:  cfg.FusionWeightRelevance,
		},
	}, logger)
	assembler := usecase.NewAssembler(tokens.NewHeuristicEstimator(4), cleaning.New(), usecase.AssemblerConfig{
		MaxTokens:       cfg.ContextMaxTokens,
		SafetyMargin:    cfg.ContextSafetyMargin,
		MergeMaxLineGap: cfg.MergeMaxLineGap,
		MinBlockChars:   cfg.ContextMinBlockChars,
		MaxBlockChars:   cfg.ContextMaxBlockChars,
	})
	pipeline := usecase.NewContextPipelineWithOptions(
		cachedEmbedder,
		vectorDB,
		reranker,
		assembler,
		usecase.PipelineConfig{RetrieveK: cfg.RetrieveK, BaseK: cfg.BaseK},
		usecase.PipelineOptions{
			Publisher: publisher,
			Observer:  opts.Observer,
			Logger:    logger,
		},
	)

	return &App{
		Config: cfg,

		ContextUC: pipeline,
		Packets:   archiveUC,
		ArchiveUC: archiveUC,
		Queue:     queue,

		vectorDB: vectorDB,
		closeFn:  closeAll,
	}, nil
}

// Health pings the vector store.
func (a *App) Health(ctx context.Context) error {
	return a.vectorDB.Ping(ctx)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newLLM(cfg config.Config, callExecutor, scoreExecutor *resilience.Executor) (ports.QueryEmbedder, ports.RelevanceScorer, error) {
	switch cfg.LLMProvider {
	case "openai":
		client := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIChatModel, cfg.OpenAIEmbedModel, openai.Options{
			EmbedExecutor: callExecutor,
			ScoreExecutor: scoreExecutor,
		})
		return openai.NewEmbedder(client), openai.NewRelevanceScorer(client), nil
	case "ollama", "":
		client := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
			EmbedExecutor: callExecutor,
			ScoreExecutor: scoreExecutor,
		})
		return ollama.NewEmbedder(client), ollama.NewRelevanceScorer(client), nil
	default:
		return nil, nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	if cfg.ResilienceRetryMaxAttempts > 0 {
		out.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	}
	if cfg.ResilienceRetryBackoff > 0 {
		out.RetryInitialBackoff = cfg.ResilienceRetryBackoff
		out.RetryMaxBackoff = 4 * cfg.ResilienceRetryBackoff
	}
	out.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerTimeout > 0 {
		out.BreakerOpenTimeout = cfg.ResilienceBreakerTimeout
	}
	return out
}
