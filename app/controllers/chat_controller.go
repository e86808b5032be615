package controllers

import (
	"net/http"

	"github.com/aihub/campus-companion/internal/intent"
	"github.com/aihub/campus-companion/internal/routing"
)

// ChatRequest 聊天请求
type ChatRequest struct {
	Query       string `json:"query"`
	UseSemantic bool   `json:"use_semantic"`
	Diagnostics bool   `json:"diagnostics"`
}

// ClassifyRequest 仅分类请求
type ClassifyRequest struct {
	Query       string `json:"query"`
	UseSemantic bool   `json:"use_semantic"`
}

// ChatController 校园问答入口。
// beego 为每个请求创建新实例并复制导出字段，依赖必须是导出字段。
type ChatController struct {
	BaseController
	Orchestrator *routing.Orchestrator
	Classifier   *intent.Engine
}

// Chat POST /api/chat
// 空查询不是错误，返回引导提示。
func (c *ChatController) Chat() {
	if c.Orchestrator == nil {
		c.JSONError(http.StatusServiceUnavailable, "chat service not available")
		return
	}

	var req ChatRequest
	if err := c.bindJSON(&req); err != nil {
		c.JSONAppError(err)
		return
	}

	answer, err := c.Orchestrator.ClassifyAndRoute(c.Ctx.Request.Context(), req.Query, routing.Options{
		UseSemantic: req.UseSemantic,
		Diagnostics: req.Diagnostics,
	})
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.JSONSuccess(answer)
}

// Classify POST /api/classify，返回融合后的分类结果，不调用数据处理器
func (c *ChatController) Classify() {
	if c.Classifier == nil {
		c.JSONError(http.StatusServiceUnavailable, "classifier not available")
		return
	}

	var req ClassifyRequest
	if err := c.bindJSON(&req); err != nil {
		c.JSONAppError(err)
		return
	}

	result := c.Classifier.Classify(c.Ctx.Request.Context(), req.Query, intent.Options{UseSemantic: req.UseSemantic})
	c.JSONSuccess(result)
}
