package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	apperrors "github.com/aihub/campus-companion/internal/errors"
	"github.com/aihub/campus-companion/internal/logger"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 1 << 20

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	_ = c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// JSONAppError 按 AppError 的状态码输出，非 AppError 一律视为 500
func (c *BaseController) JSONAppError(err error) {
	appErr := apperrors.GetAppError(err)
	if appErr.HTTPCode >= http.StatusInternalServerError {
		logger.GetLogger().Error("request failed",
			zap.String("path", c.Ctx.Request.URL.Path),
			zap.String("code", string(appErr.Code)),
			zap.Error(err))
	}
	c.JSON(appErr.HTTPCode, map[string]interface{}{
		"success": false,
		"error":   appErr.Message,
		"code":    appErr.Code,
	})
}

// bindJSON 解析请求体。CopyRequestBody 开启时 beego 已读取到 RequestBody。
func (c *BaseController) bindJSON(v interface{}) error {
	body := c.Ctx.Input.RequestBody
	if len(body) == 0 && c.Ctx.Request.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(c.Ctx.Request.Body, maxBodyBytes))
		if err != nil {
			return apperrors.NewValidationError("failed to read request body")
		}
	}
	if len(body) == 0 {
		return apperrors.NewValidationError("request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.NewValidationError("invalid JSON body: " + err.Error())
	}
	return nil
}
