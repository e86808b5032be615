package di

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/aihub/campus-companion/internal/config"
	"github.com/aihub/campus-companion/internal/logger"
)

// Cleanup 收集需要在退出时释放的资源，按注册的逆序执行
type Cleanup struct {
	mu    sync.Mutex
	tasks []func() error
}

// Add 注册释放函数
func (c *Cleanup) Add(task func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, task)
}

// Run 执行全部释放函数，返回合并后的错误
func (c *Cleanup) Run() error {
	c.mu.Lock()
	tasks := c.tasks
	c.tasks = nil
	c.mu.Unlock()

	var errs []error
	for i := len(tasks) - 1; i >= 0; i-- {
		if err := tasks[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewContainer 创建容器，注入配置、日志和指标注册表，并注册全部提供者
func NewContainer(cfg *config.Config, log *zap.Logger, reg prometheus.Registerer) (*dig.Container, *Cleanup, error) {
	container := dig.New()
	cleanup := &Cleanup{}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	base := []interface{}{
		func() *config.Config { return cfg },
		func() *zap.Logger { return logger.OrNop(log) },
		func() prometheus.Registerer { return reg },
		func() *Cleanup { return cleanup },
	}
	for _, constructor := range base {
		if err := container.Provide(constructor); err != nil {
			return nil, nil, err
		}
	}

	if err := RegisterProviders(container); err != nil {
		return nil, nil, err
	}
	return container, cleanup, nil
}
