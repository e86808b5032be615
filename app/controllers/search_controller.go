package controllers

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/aihub/campus-companion/internal/errors"
	"github.com/aihub/campus-companion/internal/knowledge"
)

const maxTopK = 50

// SearchController 知识库语义检索
type SearchController struct {
	BaseController
	// Retrieval 为 nil 表示知识库未启用
	Retrieval *knowledge.RetrievalEngine
}

// Search GET /api/knowledge/search?q=&top_k=&min_score=
func (c *SearchController) Search() {
	if c.Retrieval == nil {
		c.JSONError(http.StatusServiceUnavailable, "knowledge search is disabled")
		return
	}

	query := strings.TrimSpace(c.GetString("q"))
	if query == "" {
		c.JSONAppError(apperrors.NewInvalidInputError("q", "must not be empty"))
		return
	}

	defaults := c.Retrieval.Defaults()
	topK, err := c.GetInt("top_k", defaults.TopK)
	if err != nil || topK <= 0 || topK > maxTopK {
		c.JSONAppError(apperrors.NewInvalidInputError("top_k", "must be between 1 and "+strconv.Itoa(maxTopK)))
		return
	}
	minScore, err := c.GetFloat("min_score", defaults.MinScore)
	if err != nil || minScore < 0 || minScore > 1 {
		c.JSONAppError(apperrors.NewInvalidInputError("min_score", "must be between 0 and 1"))
		return
	}

	passages, err := c.Retrieval.Search(c.Ctx.Request.Context(), query, topK, minScore)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"query":     query,
		"top_k":     topK,
		"min_score": minScore,
		"passages":  passages,
	})
}
