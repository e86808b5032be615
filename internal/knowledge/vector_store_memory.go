package knowledge

import (
	"context"
	"fmt"
	"sort"

	apperrors "github.com/aihub/campus-companion/internal/errors"
)

// MemoryIndex 进程内暴力检索，适合校园规模的文档集。构造后只读。
type MemoryIndex struct {
	info    IndexInfo
	ids     []string
	vectors [][]float32
	norms   []float64
}

// NewMemoryIndex chunks 按写入顺序传入，维度不一致视为配置错误
func NewMemoryIndex(info IndexInfo, chunks []DocumentChunk) (*MemoryIndex, error) {
	if info.Dimensions <= 0 {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeIndexMissing, "memory index requires a positive dimension")
	}

	idx := &MemoryIndex{
		info:    info,
		ids:     make([]string, 0, len(chunks)),
		vectors: make([][]float32, 0, len(chunks)),
		norms:   make([]float64, 0, len(chunks)),
	}
	for _, c := range chunks {
		if len(c.Embedding) != info.Dimensions {
			return nil, apperrors.NewConfigurationError(apperrors.ErrCodeEmbeddingMismatch,
				fmt.Sprintf("chunk %s has %d dimensions, index expects %d", c.ID, len(c.Embedding), info.Dimensions))
		}
		idx.ids = append(idx.ids, c.ID)
		idx.vectors = append(idx.vectors, c.Embedding)
		idx.norms = append(idx.norms, vectorNorm(c.Embedding))
	}
	return idx, nil
}

// NewMemoryIndexFromSnapshot 由快照构建
func NewMemoryIndexFromSnapshot(snap *Snapshot) (*MemoryIndex, error) {
	return NewMemoryIndex(snap.Info(), snap.Chunks)
}

// Query 计算与全部文本块的余弦距离，距离相同时保持写入顺序
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, k int) ([]IndexHit, error) {
	if len(vector) != m.info.Dimensions {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeEmbeddingMismatch,
			fmt.Sprintf("query vector has %d dimensions, index expects %d", len(vector), m.info.Dimensions))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qNorm := vectorNorm(vector)
	hits := make([]IndexHit, len(m.ids))
	for i := range m.ids {
		hits[i] = IndexHit{
			ChunkID:  m.ids[i],
			Distance: cosineDistance(vector, qNorm, m.vectors[i], m.norms[i]),
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Info 实现 VectorIndex
func (m *MemoryIndex) Info() IndexInfo { return m.info }

// Ready 实现 VectorIndex
func (m *MemoryIndex) Ready() bool { return true }

// Len 文本块数量
func (m *MemoryIndex) Len() int { return len(m.ids) }
