package campus

import (
	"context"
	"fmt"
	"strings"

	"github.com/aihub/campus-companion/internal/knowledge"
)

// Searcher 文档检索接口，由 knowledge.RetrievalEngine 实现
type Searcher interface {
	Search(ctx context.Context, query string, topK int, minScore float64) ([]knowledge.RetrievedPassage, error)
}

// KnowledgeOptions 文档问答参数
type KnowledgeOptions struct {
	TopK            int
	MinScore        float64
	MaxPassageChars int
}

// KnowledgeHandler 规章制度类问题，返回相关文档片段
type KnowledgeHandler struct {
	searcher Searcher
	opts     KnowledgeOptions
}

// NewKnowledgeHandler 零值参数使用 top_k=3、min_score=0.3、500 字截断
func NewKnowledgeHandler(searcher Searcher, opts KnowledgeOptions) *KnowledgeHandler {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.MinScore <= 0 {
		opts.MinScore = 0.3
	}
	if opts.MaxPassageChars <= 0 {
		opts.MaxPassageChars = 500
	}
	return &KnowledgeHandler{searcher: searcher, opts: opts}
}

// Lookup 无相关片段时返回 nil
func (h *KnowledgeHandler) Lookup(ctx context.Context, query string) (*Record, error) {
	passages, err := h.searcher.Search(ctx, query, h.opts.TopK, h.opts.MinScore)
	if err != nil {
		return nil, err
	}
	if len(passages) == 0 {
		return nil, nil
	}

	rec := &Record{Kind: "document", Title: "From campus documents"}
	lines := []string{rec.Title}
	for i, p := range passages {
		content := clip(p.Chunk.Content, h.opts.MaxPassageChars)
		rec.Passages = append(rec.Passages, Passage{
			DocumentID: p.Chunk.DocumentID,
			Content:    content,
			Score:      p.Score,
		})
		lines = append(lines, fmt.Sprintf("[%d] %s", i+1, content))
	}
	rec.Text = strings.Join(lines, "\n")
	return rec, nil
}

// clip 按字符截断，保留多字节字符完整
func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
