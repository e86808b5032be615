package intent

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"
)

// Model 预训练的统计分类模型，只读，可并发调用
type Model interface {
	PredictProbabilities(text string) (map[string]float64, error)
}

// LinearModel TF-IDF 向量化加多分类逻辑回归。
// 参数从离线训练导出的 JSON 读取，运行时不做训练。
type LinearModel struct {
	labels      []string
	vocab       map[string]int
	idf         []float64
	coef        [][]float64
	intercept   []float64
	ngramMax    int
	sublinearTF bool
}

type linearModelArtifact struct {
	Labels      []string       `json:"labels"`
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	Coef        [][]float64    `json:"coef"`
	Intercept   []float64      `json:"intercept"`
	NgramMax    int            `json:"ngram_max"`
	SublinearTF bool           `json:"sublinear_tf"`
}

// LoadLinearModel 从 JSON 读取并校验模型参数
func LoadLinearModel(r io.Reader) (*LinearModel, error) {
	var a linearModelArtifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}

	features := len(a.IDF)
	if len(a.Labels) == 0 || features == 0 {
		return nil, fmt.Errorf("model artifact has no labels or features")
	}
	if len(a.Coef) != len(a.Labels) || len(a.Intercept) != len(a.Labels) {
		return nil, fmt.Errorf("model artifact: %d labels, %d coef rows, %d intercepts",
			len(a.Labels), len(a.Coef), len(a.Intercept))
	}
	for i, row := range a.Coef {
		if len(row) != features {
			return nil, fmt.Errorf("model artifact: coef row %d has %d features, want %d", i, len(row), features)
		}
	}
	seen := make(map[string]bool, len(a.Labels))
	for _, label := range a.Labels {
		key := strings.ToLower(strings.TrimSpace(label))
		if seen[key] {
			return nil, fmt.Errorf("model artifact: duplicate label %q", label)
		}
		seen[key] = true
	}
	for term, idx := range a.Vocabulary {
		if idx < 0 || idx >= features {
			return nil, fmt.Errorf("model artifact: term %q index %d out of range", term, idx)
		}
	}
	if a.NgramMax < 1 {
		a.NgramMax = 1
	}

	return &LinearModel{
		labels:      a.Labels,
		vocab:       a.Vocabulary,
		idf:         a.IDF,
		coef:        a.Coef,
		intercept:   a.Intercept,
		ngramMax:    a.NgramMax,
		sublinearTF: a.SublinearTF,
	}, nil
}

// Labels 模型输出的类别标签
func (m *LinearModel) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

// PredictProbabilities 返回 softmax 概率；未登录词被忽略，全部未登录时退化为截距分布
func (m *LinearModel) PredictProbabilities(text string) (map[string]float64, error) {
	vec := m.vectorize(text)

	logits := make([]float64, len(m.labels))
	maxLogit := math.Inf(-1)
	for c := range m.labels {
		z := m.intercept[c]
		for i, v := range vec {
			z += m.coef[c][i] * v
		}
		logits[c] = z
		if z > maxLogit {
			maxLogit = z
		}
	}

	var sum float64
	for c, z := range logits {
		logits[c] = math.Exp(z - maxLogit)
		sum += logits[c]
	}

	out := make(map[string]float64, len(m.labels))
	for c, label := range m.labels {
		out[label] = logits[c] / sum
	}
	return out, nil
}

// vectorize 词频乘 idf 后做 L2 归一化
func (m *LinearModel) vectorize(text string) map[int]float64 {
	tokens := modelTokens(text)
	tf := make(map[int]float64)
	for n := 1; n <= m.ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			term := strings.Join(tokens[i:i+n], " ")
			if idx, ok := m.vocab[term]; ok {
				tf[idx]++
			}
		}
	}

	var norm float64
	for idx, count := range tf {
		if m.sublinearTF {
			count = 1 + math.Log(count)
		}
		v := count * m.idf[idx]
		tf[idx] = v
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range tf {
			tf[idx] /= norm
		}
	}
	return tf
}

// modelTokens 与训练时一致：丢弃单字符词
func modelTokens(text string) []string {
	fields := Tokenize(text)
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}
