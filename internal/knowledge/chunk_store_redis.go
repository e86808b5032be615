package knowledge

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisChunkStore Redis分块数据存储，每个文本块一个 Hash
type RedisChunkStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisChunkStore 创建Redis分块存储
func NewRedisChunkStore(client redis.UniversalClient, keyPrefix string) *RedisChunkStore {
	if keyPrefix == "" {
		keyPrefix = "campus:chunk:"
	}
	return &RedisChunkStore{client: client, keyPrefix: keyPrefix}
}

func (r *RedisChunkStore) chunkKey(id string) string {
	return r.keyPrefix + id
}

// Get 使用 pipeline 一次取回全部文本块
func (r *RedisChunkStore) Get(ctx context.Context, ids []string) (map[string]*DocumentChunk, error) {
	if len(ids) == 0 {
		return map[string]*DocumentChunk{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, r.chunkKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks from redis: %w", err)
	}

	out := make(map[string]*DocumentChunk, len(ids))
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			return nil, fmt.Errorf("failed to get chunk %s from redis: %w", ids[i], err)
		}
		if len(data) == 0 {
			continue
		}
		seq, _ := strconv.ParseInt(data["sequence"], 10, 64)
		out[ids[i]] = &DocumentChunk{
			ID:         ids[i],
			DocumentID: data["document_id"],
			Content:    data["content"],
			Sequence:   seq,
		}
	}
	return out, nil
}
