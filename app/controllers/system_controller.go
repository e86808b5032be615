package controllers

import (
	"net/http"

	"github.com/aihub/campus-companion/internal/database"
)

// RootController 根控制器
type RootController struct {
	BaseController
	Name    string
	Version string
}

func (c *RootController) Index() {
	c.JSONSuccess(map[string]string{
		"message": "Campus Companion API",
		"name":    c.Name,
		"version": c.Version,
	})
}

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
	// Database 未启用数据库时为 nil
	Database *database.HealthChecker
	// KnowledgeEnabled 知识库检索是否装配
	KnowledgeEnabled bool
}

// Health 数据库不可达时返回 503，知识库未启用只做标记
func (c *HealthController) Health() {
	body := map[string]interface{}{
		"status":    "healthy",
		"knowledge": c.KnowledgeEnabled,
	}
	if c.Database == nil {
		c.JSONSuccess(body)
		return
	}

	result := c.Database.Check(c.Ctx.Request.Context())
	body["database"] = result
	if !result.Healthy {
		body["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"data":    body,
		})
		return
	}
	c.JSONSuccess(body)
}
