package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aihub/campus-companion/internal/intent"
)

func sampleResult() intent.Result {
	contact := intent.Score{Intent: intent.ContactLookup, Confidence: 0.85}
	location := intent.Score{Intent: intent.LocationLookup, Confidence: 0.8}
	return intent.Result{
		Primary:     contact,
		Scores:      []intent.Score{contact, location},
		MultiIntent: true,
		CoActive:    []intent.Score{contact, location},
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Primary != intent.ContactLookup || !ev.MultiIntent || len(ev.CoActive) != 2 {
			return fmt.Errorf("unexpected event %+v", ev)
		}
		return nil
	})

	p := NewKafkaPublisherWithProducer(producer, "campus-classifications", nil)
	err := p.Publish(context.Background(), NewEvent("canteen phone and where is it", sampleResult(), false))
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestKafkaPublisher_SendFailure(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisherWithProducer(producer, "campus-classifications", nil)
	err := p.Publish(context.Background(), NewEvent("q", sampleResult(), false))
	require.Error(t, err)
	assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers))
	require.NoError(t, p.Close())
}

func TestKafkaPublisher_CanceledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	p := NewKafkaPublisherWithProducer(producer, "t", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, Event{}), context.Canceled)
	require.NoError(t, p.Close())
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
