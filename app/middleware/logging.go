package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/beego/beego/v2/server/web"
	"github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"

	"github.com/aihub/campus-companion/internal/logger"
)

const requestStartKey = "request_start"

// RequestStart 记录请求开始时间，配合 RequestLogger 使用
func RequestStart() web.FilterFunc {
	return func(ctx *context.Context) {
		ctx.Input.SetData(requestStartKey, time.Now())
	}
}

// RequestLogger 请求日志过滤器，需要以 FinishRouter 位置注册且不在输出后中断
func RequestLogger(log *zap.Logger) web.FilterFunc {
	log = logger.OrNop(log)
	return func(ctx *context.Context) {
		status := ctx.ResponseWriter.Status
		if status == 0 {
			status = http.StatusOK
		}

		fields := []zap.Field{
			zap.String("method", ctx.Input.Method()),
			zap.String("path", ctx.Input.URL()),
			zap.Int("status", status),
			zap.String("remote_addr", clientIP(ctx)),
		}
		if start, ok := ctx.Input.GetData(requestStartKey).(time.Time); ok {
			fields = append(fields, zap.Duration("duration", time.Since(start)))
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

// clientIP 获取客户端真实IP地址
func clientIP(ctx *context.Context) string {
	if xff := ctx.Input.Header("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For可能包含多个IP，取第一个
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if realIP := ctx.Input.Header("X-Real-IP"); realIP != "" {
		return realIP
	}
	return ctx.Input.IP()
}
