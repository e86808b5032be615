package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/aihub/campus-companion/internal/intent"
	"github.com/aihub/campus-companion/internal/logger"
)

// Event 单次分类的审计事件
type Event struct {
	Query           string         `json:"query"`
	Primary         intent.Intent  `json:"primary"`
	Confidence      float64        `json:"confidence"`
	Scores          []intent.Score `json:"scores"`
	MultiIntent     bool           `json:"multi_intent"`
	CoActive        []intent.Score `json:"co_active,omitempty"`
	NeedsFallback   bool           `json:"needs_fallback"`
	UsedFallback    bool           `json:"used_fallback"`
	SemanticInvoked bool           `json:"semantic_invoked"`
	Timestamp       time.Time      `json:"timestamp"`
}

// NewEvent 由分类结果构造事件
func NewEvent(query string, result intent.Result, usedFallback bool) Event {
	return Event{
		Query:           query,
		Primary:         result.Primary.Intent,
		Confidence:      result.Primary.Confidence,
		Scores:          result.Scores,
		MultiIntent:     result.MultiIntent,
		CoActive:        result.CoActive,
		NeedsFallback:   result.NeedsFallback,
		UsedFallback:    usedFallback,
		SemanticInvoked: result.SemanticInvoked,
		Timestamp:       time.Now().UTC(),
	}
}

// Publisher 审计事件出口
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopPublisher 未启用审计时使用
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }

// KafkaPublisher 同步写入 Kafka
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewKafkaPublisher 连接 broker 并创建同步生产者
func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Retry.Max = 0
	config.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	p := NewKafkaPublisherWithProducer(producer, topic, log)
	p.logger.Info("kafka audit publisher ready", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return p, nil
}

// NewKafkaPublisherWithProducer 使用已有生产者，测试时传入 mocks.SyncProducer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger.OrNop(log)}
}

// Publish 以主意图为 key 写入，同一意图落到同一分区
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.Primary.String()),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("intent"), Value: []byte(event.Primary.String())},
			{Key: []byte("needs_fallback"), Value: []byte(fmt.Sprintf("%t", event.NeedsFallback))},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send audit event: %w", err)
	}

	p.logger.Debug("audit event sent",
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("intent", event.Primary.String()))
	return nil
}

// Close 关闭生产者
func (p *KafkaPublisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
