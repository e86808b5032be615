package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// CircuitBreakerState 熔断器状态
type CircuitBreakerState int32

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

// String 返回状态字符串
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen 熔断期间直接拒绝调用
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker 连续失败达到阈值后熔断，冷却结束后放行一次探测请求。
// 被拒绝的调用不会排队或重试。
type CircuitBreaker struct {
	failureThreshold int
	cooldown         time.Duration

	state           int32
	failureCount    int32
	probing         int32
	lastFailureTime time.Time
	mutex           sync.RWMutex
	now             func() time.Time
}

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		state:            int32(StateClosed),
		now:              time.Now,
	}
}

// Allow 检查是否可以执行请求
func (cb *CircuitBreaker) Allow() bool {
	switch cb.State() {
	case StateClosed:
		return true
	case StateOpen:
		cb.mutex.RLock()
		canProbe := cb.now().Sub(cb.lastFailureTime) >= cb.cooldown
		cb.mutex.RUnlock()

		if canProbe && atomic.CompareAndSwapInt32(&cb.state, int32(StateOpen), int32(StateHalfOpen)) {
			atomic.StoreInt32(&cb.probing, 1)
			return true
		}
		return false
	default:
		// 半开状态只允许一个探测请求
		return false
	}
}

// Record 记录执行结果
func (cb *CircuitBreaker) Record(err error) {
	if err == nil {
		atomic.StoreInt32(&cb.failureCount, 0)
		atomic.StoreInt32(&cb.probing, 0)
		atomic.StoreInt32(&cb.state, int32(StateClosed))
		return
	}

	cb.mutex.Lock()
	cb.lastFailureTime = cb.now()
	cb.mutex.Unlock()

	if cb.State() == StateHalfOpen {
		atomic.StoreInt32(&cb.probing, 0)
		atomic.StoreInt32(&cb.state, int32(StateOpen))
		return
	}

	count := atomic.AddInt32(&cb.failureCount, 1)
	if int(count) >= cb.failureThreshold {
		atomic.StoreInt32(&cb.state, int32(StateOpen))
	}
}

// State 获取当前状态
func (cb *CircuitBreaker) State() CircuitBreakerState {
	return CircuitBreakerState(atomic.LoadInt32(&cb.state))
}

// guardedGenerator 带熔断保护的 Generator
type guardedGenerator struct {
	inner   Generator
	breaker *CircuitBreaker
}

// WithBreaker 为 Generator 加上熔断保护，threshold<=0 时原样返回
func WithBreaker(g Generator, threshold int, cooldown time.Duration) Generator {
	if g == nil || threshold <= 0 {
		return g
	}
	return &guardedGenerator{inner: g, breaker: NewCircuitBreaker(threshold, cooldown)}
}

func (g *guardedGenerator) Name() string { return g.inner.Name() }

func (g *guardedGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if !g.breaker.Allow() {
		return "", ErrCircuitOpen
	}
	out, err := g.inner.Generate(ctx, req)
	// 调用方主动取消不计入失败
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		if g.breaker.State() == StateHalfOpen {
			g.breaker.Record(err)
		}
		return "", err
	}
	g.breaker.Record(err)
	return out, err
}
