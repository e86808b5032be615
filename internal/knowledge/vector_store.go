package knowledge

import (
	"context"
	"math"
)

// IndexHit 索引返回的原始命中，Distance 越小越相似
type IndexHit struct {
	ChunkID  string
	Distance float64
}

// IndexInfo 建库时使用的嵌入模型与维度，Model 为空表示未记录
type IndexInfo struct {
	Model      string
	Dimensions int
}

// VectorIndex 只读向量索引抽象
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, k int) ([]IndexHit, error)
	Info() IndexInfo
	Ready() bool
}

// cosineDistance 1 - 余弦相似度；任一向量为零向量时距离为 1
func cosineDistance(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 1
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return 1 - dot/(aNorm*bNorm)
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
