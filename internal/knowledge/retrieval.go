package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/aihub/campus-companion/internal/errors"
	"github.com/aihub/campus-companion/internal/logger"
	"github.com/aihub/campus-companion/internal/metrics"
)

// RetrievalOptions 检索默认参数
type RetrievalOptions struct {
	TopK                int
	MinScore            float64
	CandidateMultiplier int
}

// DefaultRetrievalOptions top_k=3, min_score=0.3
func DefaultRetrievalOptions() RetrievalOptions {
	return RetrievalOptions{TopK: 3, MinScore: 0.3, CandidateMultiplier: 4}
}

// SimilarityFunc 距离到相似度的换算
type SimilarityFunc func(distance float64) float64

// CosineSimilarity 1 - distance，裁剪到 [0,1]
func CosineSimilarity(distance float64) float64 {
	s := 1 - distance
	switch {
	case math.IsNaN(s), s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}

// RetrievalEngine 语义检索：嵌入查询、近邻检索、阈值过滤、排序截断
type RetrievalEngine struct {
	embedder   Embedder
	index      VectorIndex
	chunks     ChunkStore
	defaults   RetrievalOptions
	similarity SimilarityFunc
	logger     *zap.Logger
	metrics    *metrics.Collector
}

// NewRetrievalEngine 启动时校验索引可用、嵌入模型与维度一致，不一致直接返回配置错误
func NewRetrievalEngine(embedder Embedder, index VectorIndex, chunks ChunkStore, opts RetrievalOptions, log *zap.Logger, m *metrics.Collector) (*RetrievalEngine, error) {
	if index == nil || !index.Ready() {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeIndexMissing, "vector index is missing or not ready")
	}
	if chunks == nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeIndexMissing, "chunk store is not configured")
	}
	if embedder == nil || !embedder.Ready() {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeConfiguration, "embedding provider is not configured")
	}

	info := index.Info()
	if info.Dimensions != embedder.Dimensions() {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeEmbeddingMismatch,
			fmt.Sprintf("index holds %d-dim vectors but embedder %s produces %d", info.Dimensions, embedder.ModelName(), embedder.Dimensions()))
	}
	if info.Model != "" && embedder.ModelName() != "" && !strings.EqualFold(info.Model, embedder.ModelName()) {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeEmbeddingMismatch,
			fmt.Sprintf("index built with %s but queries use %s", info.Model, embedder.ModelName()))
	}

	defaults := DefaultRetrievalOptions()
	if opts.TopK > 0 {
		defaults.TopK = opts.TopK
	}
	if opts.MinScore > 0 {
		defaults.MinScore = opts.MinScore
	}
	if opts.CandidateMultiplier > 0 {
		defaults.CandidateMultiplier = opts.CandidateMultiplier
	}

	return &RetrievalEngine{
		embedder:   embedder,
		index:      index,
		chunks:     chunks,
		defaults:   defaults,
		similarity: CosineSimilarity,
		logger:     logger.OrNop(log),
		metrics:    m,
	}, nil
}

// Defaults 默认检索参数
func (e *RetrievalEngine) Defaults() RetrievalOptions { return e.defaults }

// Search 返回按相关度降序的段落。无结果返回空切片；索引不可用返回错误。
// topK<=0 或 minScore<0 时使用默认值。
func (e *RetrievalEngine) Search(ctx context.Context, query string, topK int, minScore float64) (passages []RetrievedPassage, err error) {
	start := time.Now()
	defer func() {
		e.metrics.ObserveRetrieval(time.Since(start), len(passages), err)
	}()

	if topK <= 0 {
		topK = e.defaults.TopK
	}
	if minScore < 0 {
		minScore = e.defaults.MinScore
	}
	if strings.TrimSpace(query) == "" {
		return []RetrievedPassage{}, nil
	}

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperrors.NewExternalError(apperrors.ErrCodeEmbeddingFailed, "failed to embed query").WithCause(err)
	}
	if len(vector) != e.index.Info().Dimensions {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeEmbeddingMismatch,
			fmt.Sprintf("query embedding has %d dimensions, index expects %d", len(vector), e.index.Info().Dimensions))
	}

	hits, err := e.index.Query(ctx, vector, topK*e.defaults.CandidateMultiplier)
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.NewExternalError(apperrors.ErrCodeIndexUnavailable, "vector index query failed").WithCause(err)
	}
	if len(hits) == 0 {
		return []RetrievedPassage{}, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	chunks, err := e.chunks.Get(ctx, ids)
	if err != nil {
		return nil, apperrors.NewExternalError(apperrors.ErrCodeIndexUnavailable, "chunk store lookup failed").WithCause(err)
	}

	passages = make([]RetrievedPassage, 0, len(hits))
	for _, h := range hits {
		chunk, ok := chunks[h.ChunkID]
		if !ok {
			e.logger.Warn("indexed chunk missing from chunk store", zap.String("chunk_id", h.ChunkID))
			continue
		}
		score := e.similarity(h.Distance)
		if score < minScore {
			continue
		}
		passages = append(passages, RetrievedPassage{Chunk: chunk, Score: score})
	}

	sort.SliceStable(passages, func(i, j int) bool {
		if passages[i].Score != passages[j].Score {
			return passages[i].Score > passages[j].Score
		}
		return passages[i].Chunk.Sequence < passages[j].Chunk.Sequence
	})
	if len(passages) > topK {
		passages = passages[:topK]
	}

	e.logger.Debug("retrieval finished",
		zap.Int("candidates", len(hits)),
		zap.Int("passages", len(passages)),
		zap.Duration("elapsed", time.Since(start)))
	return passages, nil
}
