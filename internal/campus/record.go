package campus

import (
	"fmt"
	"strings"
)

// Detail 记录中的一项展示字段
type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Passage 文档检索片段
type Passage struct {
	DocumentID string  `json:"document_id"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// Record 数据处理器返回的结构化结果，Text 为可直接展示的文本
type Record struct {
	Kind     string    `json:"kind"`
	Title    string    `json:"title"`
	Details  []Detail  `json:"details,omitempty"`
	Passages []Passage `json:"passages,omitempty"`
	Text     string    `json:"text"`
}

// newRecord 跳过空值字段并渲染文本
func newRecord(kind, title string, details ...Detail) *Record {
	rec := &Record{Kind: kind, Title: title}
	lines := []string{title}
	for _, d := range details {
		if strings.TrimSpace(d.Value) == "" {
			continue
		}
		rec.Details = append(rec.Details, d)
		lines = append(lines, fmt.Sprintf("%s: %s", d.Label, d.Value))
	}
	rec.Text = strings.Join(lines, "\n")
	return rec
}
