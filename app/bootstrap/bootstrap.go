package bootstrap

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/aihub/campus-companion/internal/config"
	"github.com/aihub/campus-companion/internal/database"
	"github.com/aihub/campus-companion/internal/di"
	"github.com/aihub/campus-companion/internal/intent"
	"github.com/aihub/campus-companion/internal/knowledge"
	"github.com/aihub/campus-companion/internal/logger"
	"github.com/aihub/campus-companion/internal/routing"
)

// Options 启动参数
type Options struct {
	// ConfigFile 为空时只读取默认值和环境变量
	ConfigFile string
	// LogLevel 覆盖配置文件中的日志级别
	LogLevel string
}

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Registry     *prometheus.Registry
	Orchestrator *routing.Orchestrator
	Classifier   *intent.Engine
	// Retrieval 未启用知识库时为 nil
	Retrieval *knowledge.RetrievalEngine
	// Health 未启用数据库时为 nil
	Health *database.HealthChecker

	cleanup *di.Cleanup
}

type components struct {
	dig.In

	Orchestrator *routing.Orchestrator
	Classifier   *intent.Engine
	Retrieval    *knowledge.RetrievalEngine `optional:"true"`
	Directory    di.Directory
}

// Init loads .env, configuration and logger, then builds the dependency graph.
// 配置错误（嵌入维度不一致、索引缺失、规则表非法）会直接返回，调用方应退出进程。
func Init(opts Options) (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	loader := config.NewConfigLoader()
	if opts.ConfigFile != "" {
		loader.WithFile(opts.ConfigFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}

	if err := logger.InitLogger(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		return nil, err
	}
	zlog := logger.GetLogger()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	container, cleanup, err := di.NewContainer(cfg, zlog, registry)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Logger:   zlog,
		Registry: registry,
		cleanup:  cleanup,
	}
	err = container.Invoke(func(c components) {
		app.Orchestrator = c.Orchestrator
		app.Classifier = c.Classifier
		app.Retrieval = c.Retrieval
		app.Health = c.Directory.Health
	})
	if err != nil {
		app.Shutdown()
		return nil, dig.RootCause(err)
	}

	if app.Health != nil {
		app.Health.Check(context.Background())
	}

	zlog.Info("application bootstrapped",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
		zap.Bool("knowledge", app.Retrieval != nil),
		zap.Bool("database", app.Health != nil))
	return app, nil
}

// Shutdown runs registered cleanup tasks in reverse order and flushes logs.
func (a *App) Shutdown() {
	if a == nil {
		return
	}
	if a.cleanup != nil {
		if err := a.cleanup.Run(); err != nil {
			logger.GetLogger().Warn("cleanup finished with errors", zap.Error(err))
		}
	}
	logger.Sync()
}
