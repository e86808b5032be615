package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "github.com/aihub/campus-companion/internal/errors"
)

// ElasticOptions Elasticsearch dense_vector 索引配置
type ElasticOptions struct {
	Addresses  []string
	Username   string
	Password   string
	APIKey     string
	Index      string
	Field      string
	Model      string
	Dimensions int
}

// ElasticIndex 使用 kNN 查询的只读索引
type ElasticIndex struct {
	client     *elasticsearch.Client
	index      string
	field      string
	similarity string
	model      string
	info       IndexInfo
}

type esFieldMapping struct {
	Type       string `json:"type"`
	Dims       int    `json:"dims"`
	Similarity string `json:"similarity"`
}

type esIndexMapping struct {
	Mappings struct {
		Meta       map[string]interface{}    `json:"_meta"`
		Properties map[string]esFieldMapping `json:"properties"`
	} `json:"mappings"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Source struct {
				ChunkID string `json:"chunk_id"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// NewElasticIndex 创建客户端并读取映射校验向量维度
func NewElasticIndex(ctx context.Context, opts ElasticOptions) (*ElasticIndex, error) {
	if opts.Field == "" {
		opts.Field = "embedding"
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    opts.Addresses,
		Username:     opts.Username,
		Password:     opts.Password,
		APIKey:       opts.APIKey,
		DisableRetry: true,
	})
	if err != nil {
		return nil, apperrors.NewExternalError(apperrors.ErrCodeIndexUnavailable, "failed to create elasticsearch client").WithCause(err)
	}

	idx := &ElasticIndex{
		client: client,
		index:  opts.Index,
		field:  opts.Field,
		model:  opts.Model,
		info:   IndexInfo{Dimensions: opts.Dimensions},
	}
	if err := idx.verify(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (e *ElasticIndex) verify(ctx context.Context) error {
	req := esapi.IndicesGetMappingRequest{Index: []string{e.index}}
	resp, err := req.Do(ctx, e.client)
	if err != nil {
		return apperrors.NewExternalError(apperrors.ErrCodeIndexUnavailable, "failed to read elasticsearch mapping").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NewConfigurationError(apperrors.ErrCodeIndexMissing,
			fmt.Sprintf("elasticsearch index %s does not exist", e.index))
	}
	if resp.IsError() {
		body, _ := io.ReadAll(resp.Body)
		return apperrors.NewExternalError(apperrors.ErrCodeIndexUnavailable,
			fmt.Sprintf("elasticsearch mapping error: %s", string(body)))
	}

	var mappings map[string]esIndexMapping
	if err := json.NewDecoder(resp.Body).Decode(&mappings); err != nil {
		return apperrors.NewExternalError(apperrors.ErrCodeIndexUnavailable, "failed to decode elasticsearch mapping").WithCause(err)
	}

	// 别名可能指向单个物理索引，取第一个即可
	for _, m := range mappings {
		field, ok := m.Mappings.Properties[e.field]
		if !ok || field.Type != "dense_vector" {
			return apperrors.NewConfigurationError(apperrors.ErrCodeIndexMissing,
				fmt.Sprintf("elasticsearch index %s has no dense_vector field %s", e.index, e.field))
		}
		if e.info.Dimensions != 0 && field.Dims != e.info.Dimensions {
			return apperrors.NewConfigurationError(apperrors.ErrCodeEmbeddingMismatch,
				fmt.Sprintf("elasticsearch field %s has %d dims, configured %d", e.field, field.Dims, e.info.Dimensions))
		}
		if model, ok := m.Mappings.Meta["embedding_model"].(string); ok && model != "" {
			if e.model != "" && !strings.EqualFold(e.model, model) {
				return apperrors.NewConfigurationError(apperrors.ErrCodeEmbeddingMismatch,
					fmt.Sprintf("elasticsearch index built with %s, configured %s", model, e.model))
			}
			e.info.Model = model
		}
		e.info.Dimensions = field.Dims
		e.similarity = field.Similarity
		return nil
	}
	return apperrors.NewConfigurationError(apperrors.ErrCodeIndexMissing,
		fmt.Sprintf("elasticsearch index %s returned no mapping", e.index))
}

// Query kNN 检索，_score 按映射中的 similarity 还原为距离
func (e *ElasticIndex) Query(ctx context.Context, vector []float32, k int) ([]IndexHit, error) {
	if len(vector) != e.info.Dimensions {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeEmbeddingMismatch,
			fmt.Sprintf("query vector has %d dimensions, index expects %d", len(vector), e.info.Dimensions))
	}
	if k <= 0 {
		k = 10
	}

	query := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          e.field,
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * 10,
		},
		"_source": []string{"chunk_id"},
		"size":    k,
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  bytes.NewReader(body),
	}
	resp, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("elasticsearch search error: %s", string(errBody))
	}

	var result esSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode elasticsearch response: %w", err)
	}

	hits := make([]IndexHit, 0, len(result.Hits.Hits))
	for _, h := range result.Hits.Hits {
		id := h.Source.ChunkID
		if id == "" {
			id = h.ID
		}
		hits = append(hits, IndexHit{ChunkID: id, Distance: elasticDistance(e.similarity, h.Score)})
	}
	return hits, nil
}

// elasticDistance cosine/dot_product 的 _score 为 (1+sim)/2，l2_norm 为 1/(1+d²)
func elasticDistance(similarity string, score float64) float64 {
	switch similarity {
	case "l2_norm":
		if score <= 0 {
			return 1
		}
		return 1/score - 1
	default:
		return 2 - 2*score
	}
}

// Info 实现 VectorIndex
func (e *ElasticIndex) Info() IndexInfo { return e.info }

// Ready 通过 ping 检查集群可达
func (e *ElasticIndex) Ready() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := esapi.PingRequest{}.Do(ctx, e.client)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return !resp.IsError()
}
