package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/aihub/campus-companion/internal/audit"
	"github.com/aihub/campus-companion/internal/campus"
	"github.com/aihub/campus-companion/internal/config"
	"github.com/aihub/campus-companion/internal/database"
	"github.com/aihub/campus-companion/internal/intent"
	"github.com/aihub/campus-companion/internal/knowledge"
	"github.com/aihub/campus-companion/internal/llm"
	"github.com/aihub/campus-companion/internal/metrics"
	"github.com/aihub/campus-companion/internal/routing"
	"github.com/aihub/campus-companion/internal/storage"
)

const startupTimeout = 30 * time.Second

// RegisterProviders 注册所有依赖提供者
func RegisterProviders(container *dig.Container) error {
	providers := []interface{}{
		metrics.NewCollector,
		provideArtifactStore,
		provideGenerator,
		provideClassifier,
		provideDirectory,
		provideRetrieval,
		providePublisher,
		provideFallback,
		provideOrchestrator,
	}
	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}

func provideArtifactStore(cfg *config.Config) (*storage.ArtifactStore, error) {
	return storage.NewArtifactStore(cfg.Storage)
}

// provideGenerator provider=none 时返回 nil，语义仲裁和生成式兜底随之关闭
func provideGenerator(cfg *config.Config, log *zap.Logger) (llm.Generator, error) {
	gen, err := llm.New(cfg.LLM.Provider, llm.Config{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if errors.Is(err, llm.ErrUnavailable) {
		log.Info("llm provider disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	log.Info("llm provider ready", zap.String("provider", gen.Name()))
	return gen, nil
}

func provideClassifier(cfg *config.Config, store *storage.ArtifactStore, gen llm.Generator, log *zap.Logger, m *metrics.Collector) (*intent.Engine, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	rules := intent.DefaultKeywordRules()
	if src := cfg.Classifier.KeywordRulesFile; src != "" {
		data, err := readArtifact(ctx, store, src)
		if err != nil {
			return nil, fmt.Errorf("failed to read keyword rules: %w", err)
		}
		if rules, err = intent.ParseKeywordRules(data); err != nil {
			return nil, err
		}
	}
	keywords, err := intent.NewKeywordMatcher(rules)
	if err != nil {
		return nil, err
	}
	matchers := []intent.Matcher{keywords}

	// 统计模型缺失不影响启动，匹配器降级为空信号
	var model intent.Model
	if src := cfg.Classifier.ModelSource; src != "" {
		if lm, err := loadModel(ctx, store, src); err != nil {
			log.Warn("statistical model unavailable, continuing without it", zap.String("source", src), zap.Error(err))
		} else {
			model = lm
			log.Info("statistical model loaded", zap.String("source", src), zap.Strings("labels", lm.Labels()))
		}
	}
	matchers = append(matchers, intent.NewStatisticalMatcher(model, log))

	sem := cfg.Classifier.Semantic
	if sem.Enabled && gen != nil {
		guarded := llm.WithBreaker(gen, sem.BreakerThreshold, sem.BreakerCooldown)
		matchers = append(matchers, intent.NewSemanticMatcher(guarded, intent.SemanticOptions{
			Timeout:           sem.Timeout,
			DefaultConfidence: sem.DefaultConfidence,
		}, log, m))
	}

	policy := intent.Policy{
		AmbiguityThreshold:   cfg.Classifier.Policy.AmbiguityThreshold,
		MultiIntentThreshold: cfg.Classifier.Policy.MultiIntentThreshold,
		TrustThreshold:       cfg.Classifier.Policy.TrustThreshold,
	}
	return intent.NewEngine(policy, matchers, log, m)
}

func loadModel(ctx context.Context, store *storage.ArtifactStore, src string) (*intent.LinearModel, error) {
	rc, err := store.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return intent.LoadLinearModel(rc)
}

func readArtifact(ctx context.Context, store *storage.ArtifactStore, src string) ([]byte, error) {
	rc, err := store.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Directory 校园目录依赖，数据库未启用时字段为 nil
type Directory struct {
	Repository *campus.Repository
	Health     *database.HealthChecker
}

func provideDirectory(cfg *config.Config, log *zap.Logger, cleanup *Cleanup) (Directory, error) {
	if !cfg.Database.Enabled {
		return Directory{}, nil
	}
	db, err := database.OpenPostgres(cfg.Database, log)
	if err != nil {
		return Directory{}, err
	}
	cleanup.Add(func() error { return database.Close(db) })

	sqlDB, err := db.DB()
	if err != nil {
		return Directory{}, err
	}
	return Directory{
		Repository: campus.NewRepository(db),
		Health:     database.NewHealthChecker(sqlDB, log),
	}, nil
}

// provideRetrieval knowledge.enabled=false 时返回 nil，rag 意图改走兜底
func provideRetrieval(cfg *config.Config, log *zap.Logger, m *metrics.Collector, cleanup *Cleanup) (*knowledge.RetrievalEngine, error) {
	kc := cfg.Knowledge
	if !kc.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	// provider=none 时 NoopEmbedder 未就绪，NewRetrievalEngine 会返回配置错误
	var embedder knowledge.Embedder = &knowledge.NoopEmbedder{}
	if kc.Embedding.Provider != "none" {
		embedder = knowledge.WithLRUCache(knowledge.NewOpenAIEmbedder(knowledge.OpenAIEmbedderOptions{
			APIKey:     kc.Embedding.APIKey,
			BaseURL:    kc.Embedding.BaseURL,
			Model:      kc.Embedding.Model,
			Dimensions: kc.Embedding.Dimensions,
		}), kc.Embedding.CacheSize, kc.Embedding.CacheTTL)
	}

	var snapshot *knowledge.Snapshot
	loadSnapshot := func() (*knowledge.Snapshot, error) {
		if snapshot != nil {
			return snapshot, nil
		}
		snap, err := knowledge.LoadSnapshotFile(kc.VectorStore.SnapshotPath)
		if err != nil {
			return nil, err
		}
		snapshot = snap
		return snap, nil
	}

	var index knowledge.VectorIndex
	switch kc.VectorStore.Provider {
	case "milvus":
		mc := kc.VectorStore.Milvus
		idx, err := knowledge.NewMilvusIndex(ctx, knowledge.MilvusOptions{
			Address:    mc.Address,
			Username:   mc.Username,
			Password:   mc.Password,
			Database:   mc.DBName,
			Collection: mc.Collection,
			Distance:   mc.Metric,
			UseTLS:     mc.EnableTLS,
			Model:      kc.Embedding.Model,
			Dimensions: embedder.Dimensions(),
		})
		if err != nil {
			return nil, err
		}
		cleanup.Add(idx.Close)
		index = idx
	case "elasticsearch":
		ec := kc.VectorStore.Elasticsearch
		idx, err := knowledge.NewElasticIndex(ctx, knowledge.ElasticOptions{
			Addresses:  ec.Addresses,
			Username:   ec.Username,
			Password:   ec.Password,
			APIKey:     ec.APIKey,
			Index:      ec.Index,
			Field:      ec.Field,
			Model:      kc.Embedding.Model,
			Dimensions: embedder.Dimensions(),
		})
		if err != nil {
			return nil, err
		}
		index = idx
	default:
		snap, err := loadSnapshot()
		if err != nil {
			return nil, err
		}
		idx, err := knowledge.NewMemoryIndexFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		log.Info("memory index loaded", zap.Int("chunks", idx.Len()), zap.String("model", snap.Model))
		index = idx
	}

	var chunks knowledge.ChunkStore
	switch kc.ChunkStore.Provider {
	case "redis":
		rdb, err := database.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		cleanup.Add(rdb.Close)
		chunks = knowledge.NewRedisChunkStore(rdb, kc.ChunkStore.KeyPrefix)
	default:
		snap, err := loadSnapshot()
		if err != nil {
			return nil, err
		}
		chunks = knowledge.NewMemoryChunkStore(snap.Chunks)
	}

	return knowledge.NewRetrievalEngine(embedder, index, chunks, knowledge.RetrievalOptions{
		TopK:                kc.Retrieval.TopK,
		MinScore:            kc.Retrieval.MinScore,
		CandidateMultiplier: kc.Retrieval.CandidateMultiplier,
	}, log, m)
}

func providePublisher(cfg *config.Config, log *zap.Logger, cleanup *Cleanup) (audit.Publisher, error) {
	if !cfg.Audit.Enabled {
		return audit.NoopPublisher{}, nil
	}
	p, err := audit.NewKafkaPublisher(cfg.Audit.Brokers, cfg.Audit.Topic, log)
	if err != nil {
		return nil, err
	}
	cleanup.Add(p.Close)
	return p, nil
}

func provideFallback(cfg *config.Config, gen llm.Generator, log *zap.Logger) *campus.FallbackResponder {
	return campus.NewFallbackResponder(gen, cfg.LLM.FallbackTimeout, cfg.LLM.MaxTokens, log)
}

type orchestratorParams struct {
	dig.In

	Config    *config.Config
	Engine    *intent.Engine
	Directory Directory
	Retrieval *knowledge.RetrievalEngine
	Fallback  *campus.FallbackResponder
	Publisher audit.Publisher
	Logger    *zap.Logger
	Metrics   *metrics.Collector
}

func provideOrchestrator(p orchestratorParams) (*routing.Orchestrator, error) {
	handlers := map[intent.Intent]routing.DataHandler{
		intent.SmallTalk: campus.NewSmallTalkHandler(),
	}
	if repo := p.Directory.Repository; repo != nil {
		handlers[intent.ContactLookup] = campus.NewContactHandler(repo, p.Logger)
		handlers[intent.LocationLookup] = campus.NewLocationHandler(repo, p.Logger)
		handlers[intent.FacultyLookup] = campus.NewFacultyHandler(repo)
	}
	if p.Retrieval != nil {
		r := p.Config.Knowledge.Retrieval
		handlers[intent.DocumentKnowledge] = campus.NewKnowledgeHandler(p.Retrieval, campus.KnowledgeOptions{
			TopK:            r.TopK,
			MinScore:        r.MinScore,
			MaxPassageChars: r.MaxPassageChars,
		})
	}

	return routing.NewOrchestrator(p.Engine, handlers, p.Fallback, routing.OrchestratorOptions{
		Publisher:   p.Publisher,
		MaxInFlight: p.Config.Concurrency.MaxInFlight,
		Logger:      p.Logger,
		Metrics:     p.Metrics,
	})
}
