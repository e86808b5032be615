package knowledge

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/aihub/campus-companion/internal/errors"
)

// DocumentChunk 建库阶段写入的文本块，Sequence 为写入顺序
type DocumentChunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Sequence   int64     `json:"sequence"`
}

// RetrievedPassage 检索结果，Score 位于 [0,1]
type RetrievedPassage struct {
	Chunk *DocumentChunk `json:"chunk"`
	Score float64        `json:"score"`
}

// Snapshot 离线建库导出的快照，记录嵌入模型和维度
type Snapshot struct {
	Model      string          `json:"model"`
	Dimensions int             `json:"dimensions"`
	Chunks     []DocumentChunk `json:"chunks"`
}

// Info 快照对应的索引描述
func (s *Snapshot) Info() IndexInfo {
	return IndexInfo{Model: s.Model, Dimensions: s.Dimensions}
}

// ReadSnapshot 解析快照，按数组顺序重新编号 Sequence
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeIndexMissing, "invalid chunk snapshot").WithCause(err)
	}

	seen := make(map[string]struct{}, len(snap.Chunks))
	for i := range snap.Chunks {
		c := &snap.Chunks[i]
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			return nil, apperrors.NewConfigurationError(apperrors.ErrCodeIndexMissing,
				fmt.Sprintf("snapshot chunk %d has no id", i))
		}
		if _, dup := seen[c.ID]; dup {
			return nil, apperrors.NewConfigurationError(apperrors.ErrCodeIndexMissing,
				fmt.Sprintf("snapshot chunk id %q is duplicated", c.ID))
		}
		seen[c.ID] = struct{}{}
		c.Sequence = int64(i)
	}

	if snap.Dimensions == 0 && len(snap.Chunks) > 0 {
		snap.Dimensions = len(snap.Chunks[0].Embedding)
	}
	return &snap, nil
}

// LoadSnapshotFile 从本地文件读取快照；文件不存在是配置错误
func LoadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeIndexMissing,
			fmt.Sprintf("chunk snapshot %s not found", path)).WithCause(err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}
