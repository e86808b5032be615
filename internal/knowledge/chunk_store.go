package knowledge

import (
	"context"
)

// ChunkStore 按 ID 取回文本块内容
type ChunkStore interface {
	// Get 返回找到的文本块，缺失的 ID 不出现在结果中
	Get(ctx context.Context, ids []string) (map[string]*DocumentChunk, error)
}

// MemoryChunkStore 进程内只读存储
type MemoryChunkStore struct {
	chunks map[string]*DocumentChunk
}

// NewMemoryChunkStore 保存副本，调用方后续修改不影响存储
func NewMemoryChunkStore(chunks []DocumentChunk) *MemoryChunkStore {
	store := &MemoryChunkStore{chunks: make(map[string]*DocumentChunk, len(chunks))}
	for i := range chunks {
		c := chunks[i]
		c.Embedding = nil
		store.chunks[c.ID] = &c
	}
	return store
}

// Get 实现 ChunkStore
func (s *MemoryChunkStore) Get(_ context.Context, ids []string) (map[string]*DocumentChunk, error) {
	out := make(map[string]*DocumentChunk, len(ids))
	for _, id := range ids {
		if c, ok := s.chunks[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}
