package knowledge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	apperrors "github.com/aihub/campus-companion/internal/errors"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address     string
	Username    string
	Password    string
	Database    string
	Collection  string
	Distance    string
	UseTLS      bool
	VectorField string
	Model       string
	Dimensions  int
	SearchEf    int
}

// MilvusIndex 基于已有集合的只读检索，集合由离线建库流程创建
type MilvusIndex struct {
	milvusClient client.Client
	collection   string
	vectorField  string
	distance     string
	searchEf     int
	model        string
	info         IndexInfo
}

// NewMilvusIndex 连接并校验集合：集合不存在或维度不一致都是配置错误
func NewMilvusIndex(ctx context.Context, opts MilvusOptions) (*MilvusIndex, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.VectorField == "" {
		opts.VectorField = "vector"
	}
	if opts.SearchEf == 0 {
		opts.SearchEf = 64
	}

	milvusClient, err := client.NewClient(ctx, client.Config{
		Address:       opts.Address,
		DBName:        opts.Database,
		Username:      opts.Username,
		Password:      opts.Password,
		EnableTLSAuth: opts.UseTLS,
	})
	if err != nil {
		return nil, apperrors.NewExternalError(apperrors.ErrCodeIndexUnavailable, "failed to create milvus client").WithCause(err)
	}

	idx := &MilvusIndex{
		milvusClient: milvusClient,
		collection:   opts.Collection,
		vectorField:  opts.VectorField,
		distance:     formatMilvusDistance(opts.Distance),
		searchEf:     opts.SearchEf,
		model:        opts.Model,
		info:         IndexInfo{Dimensions: opts.Dimensions},
	}
	if err := idx.verify(ctx); err != nil {
		_ = milvusClient.Close()
		return nil, err
	}
	return idx, nil
}

func formatMilvusDistance(value string) string {
	switch strings.ToUpper(value) {
	case "DOT", "IP", "INNER_PRODUCT":
		return "IP"
	case "L2", "EUCLIDEAN":
		return "L2"
	default:
		return "COSINE"
	}
}

// modelFromDescription 建库时在集合描述里写入 embedding_model=<name>，
// 可与其他 key=value 项以空白、逗号或分号分隔
func modelFromDescription(desc string) string {
	fields := strings.FieldsFunc(desc, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
	for _, f := range fields {
		if key, value, ok := strings.Cut(f, "="); ok && strings.TrimSpace(key) == "embedding_model" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// verify 检查集合存在、向量维度匹配，并加载到内存
func (s *MilvusIndex) verify(ctx context.Context) error {
	has, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return apperrors.NewExternalError(apperrors.ErrCodeIndexUnavailable, "failed to check milvus collection").WithCause(err)
	}
	if !has {
		return apperrors.NewConfigurationError(apperrors.ErrCodeIndexMissing,
			fmt.Sprintf("milvus collection %s does not exist", s.collection))
	}

	coll, err := s.milvusClient.DescribeCollection(ctx, s.collection)
	if err != nil {
		return apperrors.NewExternalError(apperrors.ErrCodeIndexUnavailable, "failed to describe milvus collection").WithCause(err)
	}

	dim := 0
	if coll.Schema != nil {
		for _, field := range coll.Schema.Fields {
			if field.Name == s.vectorField {
				dim, _ = strconv.Atoi(field.TypeParams["dim"])
			}
		}
	}
	if dim == 0 {
		return apperrors.NewConfigurationError(apperrors.ErrCodeIndexMissing,
			fmt.Sprintf("milvus collection %s has no vector field %s", s.collection, s.vectorField))
	}
	if s.info.Dimensions != 0 && s.info.Dimensions != dim {
		return apperrors.NewConfigurationError(apperrors.ErrCodeEmbeddingMismatch,
			fmt.Sprintf("milvus collection %s stores %d-dim vectors, configured %d", s.collection, dim, s.info.Dimensions))
	}
	s.info.Dimensions = dim

	if coll.Schema != nil {
		if model := modelFromDescription(coll.Schema.Description); model != "" {
			if s.model != "" && !strings.EqualFold(s.model, model) {
				return apperrors.NewConfigurationError(apperrors.ErrCodeEmbeddingMismatch,
					fmt.Sprintf("milvus collection %s built with %s, configured %s", s.collection, model, s.model))
			}
			s.info.Model = model
		}
	}

	if err := s.milvusClient.LoadCollection(ctx, s.collection, false); err != nil {
		return apperrors.NewExternalError(apperrors.ErrCodeIndexUnavailable, "failed to load milvus collection").WithCause(err)
	}
	return nil
}

// Query HNSW 检索；COSINE/IP 返回的是相似度，需要换算为距离
func (s *MilvusIndex) Query(ctx context.Context, vector []float32, k int) ([]IndexHit, error) {
	if len(vector) != s.info.Dimensions {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeEmbeddingMismatch,
			fmt.Sprintf("query vector has %d dimensions, collection expects %d", len(vector), s.info.Dimensions))
	}
	if k <= 0 {
		k = 10
	}

	sp, err := entity.NewIndexHNSWSearchParam(s.searchEf)
	if err != nil {
		return nil, fmt.Errorf("milvus search param: %w", err)
	}
	searchResults, err := s.milvusClient.Search(
		ctx,
		s.collection,
		[]string{},
		"",
		[]string{"chunk_id"},
		[]entity.Vector{entity.FloatVector(vector)},
		s.vectorField,
		entity.MetricType(s.distance),
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}
	if len(searchResults) == 0 {
		return []IndexHit{}, nil
	}

	// 只有一个查询向量
	result := searchResults[0]
	if result.Err != nil {
		return nil, fmt.Errorf("milvus search error: %w", result.Err)
	}

	var chunkIDs []string
	for _, field := range result.Fields {
		if field.Name() == "chunk_id" {
			if col, ok := field.(*entity.ColumnVarChar); ok {
				chunkIDs = col.Data()
			}
		}
	}
	if chunkIDs == nil {
		if col, ok := result.IDs.(*entity.ColumnVarChar); ok {
			chunkIDs = col.Data()
		}
	}

	hits := make([]IndexHit, 0, result.ResultCount)
	for i := 0; i < result.ResultCount && i < len(chunkIDs) && i < len(result.Scores); i++ {
		hits = append(hits, IndexHit{
			ChunkID:  chunkIDs[i],
			Distance: milvusDistance(s.distance, float64(result.Scores[i])),
		})
	}
	return hits, nil
}

func milvusDistance(metric string, score float64) float64 {
	if metric == "L2" {
		return score
	}
	return 1 - score
}

// Info 实现 VectorIndex
func (s *MilvusIndex) Info() IndexInfo { return s.info }

// Ready 通过 ListCollections 检查连接
func (s *MilvusIndex) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}

// Close 关闭连接
func (s *MilvusIndex) Close() error {
	return s.milvusClient.Close()
}
