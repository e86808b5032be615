package router

import (
	"github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aihub/campus-companion/app/bootstrap"
	"github.com/aihub/campus-companion/app/controllers"
	"github.com/aihub/campus-companion/app/middleware"
	"github.com/aihub/campus-companion/internal/database"
	"github.com/aihub/campus-companion/internal/intent"
	"github.com/aihub/campus-companion/internal/knowledge"
	"github.com/aihub/campus-companion/internal/routing"
)

// Dependencies 路由需要的组件
type Dependencies struct {
	Name           string
	Version        string
	AllowedOrigins []string
	Logger         *zap.Logger
	Gatherer       prometheus.Gatherer
	Orchestrator   *routing.Orchestrator
	Classifier     *intent.Engine
	Retrieval      *knowledge.RetrievalEngine
	Health         *database.HealthChecker
}

// FromApp 从启动结果组装路由依赖
func FromApp(app *bootstrap.App) Dependencies {
	return Dependencies{
		Name:           app.Config.App.Name,
		Version:        app.Config.App.Version,
		AllowedOrigins: app.Config.Server.AllowedOrigins,
		Logger:         app.Logger,
		Gatherer:       app.Registry,
		Orchestrator:   app.Orchestrator,
		Classifier:     app.Classifier,
		Retrieval:      app.Retrieval,
		Health:         app.Health,
	}
}

// Init registers all routes on the global beego server.
func Init(app *bootstrap.App) {
	Register(web.BeeApp, FromApp(app))
}

// Register 在指定 server 上注册过滤器和路由
func Register(server *web.HttpServer, deps Dependencies) {
	server.InsertFilter("/*", web.BeforeRouter, middleware.RequestStart())
	server.InsertFilter("/*", web.BeforeRouter, middleware.CORS(deps.AllowedOrigins))
	server.InsertFilter("/*", web.FinishRouter, middleware.RequestLogger(deps.Logger), web.WithReturnOnOutput(false))

	server.Router("/", &controllers.RootController{Name: deps.Name, Version: deps.Version}, "get:Index")
	server.Router("/health", &controllers.HealthController{
		Database:         deps.Health,
		KnowledgeEnabled: deps.Retrieval != nil,
	}, "get:Health")

	chat := &controllers.ChatController{Orchestrator: deps.Orchestrator, Classifier: deps.Classifier}
	server.Router("/api/chat", chat, "post:Chat")
	server.Router("/api/classify", chat, "post:Classify")
	server.Router("/api/knowledge/search", &controllers.SearchController{Retrieval: deps.Retrieval}, "get:Search")

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	server.Handler("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
