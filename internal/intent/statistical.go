package intent

import (
	"context"

	"go.uber.org/zap"

	"github.com/aihub/campus-companion/internal/logger"
)

// StatisticalMatcher 包装预训练模型。模型缺失或预测失败时返回空信号。
type StatisticalMatcher struct {
	model  Model
	logger *zap.Logger
}

// NewStatisticalMatcher model 可以为 nil，此时匹配器始终让位给其他层级
func NewStatisticalMatcher(model Model, log *zap.Logger) *StatisticalMatcher {
	return &StatisticalMatcher{model: model, logger: logger.OrNop(log)}
}

// Available 模型是否已加载
func (m *StatisticalMatcher) Available() bool { return m.model != nil }

// Level 实现 Matcher
func (m *StatisticalMatcher) Level() Level { return LevelStatistical }

// Match 输出覆盖全部已声明意图，缺省 0，结果裁剪到 [0,1]
func (m *StatisticalMatcher) Match(_ context.Context, text string) (out Signal) {
	if m.model == nil {
		return Signal{}
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("statistical model panicked", zap.Any("panic", r))
			out = Signal{}
		}
	}()

	probs, err := m.model.PredictProbabilities(text)
	if err != nil {
		m.logger.Warn("statistical model prediction failed", zap.Error(err))
		return Signal{}
	}

	out = make(Signal, len(declared))
	for _, in := range declared {
		out[in] = 0
	}
	for label, p := range probs {
		in, err := Parse(label)
		if err != nil {
			m.logger.Debug("ignoring label outside intent set", zap.String("label", label))
			continue
		}
		// 大小写不同的标签落到同一意图时取最大值
		if p = clamp01(p); p > out[in] {
			out[in] = p
		}
	}
	return out
}
