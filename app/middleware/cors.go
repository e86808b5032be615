package middleware

import (
	"net/http"

	"github.com/beego/beego/v2/server/web"
	"github.com/beego/beego/v2/server/web/context"
)

// CORS 跨域过滤器。allowedOrigins 为空时接受任意来源但不允许携带凭证。
func CORS(allowedOrigins []string) web.FilterFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return func(ctx *context.Context) {
		origin := ctx.Input.Header("Origin")
		if origin == "" {
			// 同源请求
			return
		}

		if len(allowed) == 0 {
			ctx.Output.Header("Access-Control-Allow-Origin", "*")
		} else if _, ok := allowed[origin]; ok {
			ctx.Output.Header("Access-Control-Allow-Origin", origin)
			ctx.Output.Header("Access-Control-Allow-Credentials", "true")
			ctx.Output.Header("Vary", "Origin")
		} else if ctx.Input.Method() == http.MethodOptions {
			ctx.Output.SetStatus(http.StatusForbidden)
			_ = ctx.Output.Body([]byte(""))
			return
		} else {
			return
		}

		ctx.Output.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		ctx.Output.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Origin")
		ctx.Output.Header("Access-Control-Max-Age", "3600")

		// 处理OPTIONS预检请求
		if ctx.Input.Method() == http.MethodOptions {
			ctx.Output.SetStatus(http.StatusNoContent)
			_ = ctx.Output.Body([]byte(""))
		}
	}
}
