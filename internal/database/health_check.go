package database

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aihub/campus-companion/internal/logger"
)

// HealthChecker 数据库健康检查器，由 /health 按需触发
type HealthChecker struct {
	db        *sql.DB
	logger    *zap.Logger
	timeout   time.Duration
	isHealthy bool
	lastCheck time.Time
	lastError error
	mu        sync.RWMutex
}

// HealthCheckResult 健康检查结果
type HealthCheckResult struct {
	Healthy      bool      `json:"healthy"`
	LastCheck    time.Time `json:"last_check"`
	LastError    string    `json:"last_error,omitempty"`
	ResponseTime string    `json:"response_time,omitempty"`
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(db *sql.DB, log *zap.Logger) *HealthChecker {
	return &HealthChecker{
		db:      db,
		logger:  logger.OrNop(log),
		timeout: 5 * time.Second,
	}
}

// Check 执行单次 ping
func (hc *HealthChecker) Check(ctx context.Context) HealthCheckResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()
	err := hc.db.PingContext(ctx)
	responseTime := time.Since(start)

	hc.mu.Lock()
	wasHealthy := hc.isHealthy
	hc.lastCheck = time.Now()
	hc.lastError = err
	hc.isHealthy = err == nil
	hc.mu.Unlock()

	switch {
	case err != nil:
		hc.logger.Warn("database health check failed", zap.Error(err), zap.Duration("response_time", responseTime))
	case !wasHealthy:
		hc.logger.Info("database connection healthy", zap.Duration("response_time", responseTime))
	}

	result := hc.Result()
	result.ResponseTime = responseTime.String()
	return result
}

// IsHealthy 最近一次检查的状态
func (hc *HealthChecker) IsHealthy() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.isHealthy
}

// Result 最近一次检查结果
func (hc *HealthChecker) Result() HealthCheckResult {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	result := HealthCheckResult{
		Healthy:   hc.isHealthy,
		LastCheck: hc.lastCheck,
	}
	if hc.lastError != nil {
		result.LastError = hc.lastError.Error()
	}
	return result
}
