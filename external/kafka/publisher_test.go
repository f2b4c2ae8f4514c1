package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"StoreProAPI/internal/events"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLog struct {
	lines []string
}

func (l *captureLog) Errorf(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestPublishWritesEventJSON(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev events.Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Type != events.PaymentSucceeded || ev.OrderID != 42 {
			return fmt.Errorf("unexpected event %+v", ev)
		}
		return nil
	})

	log := &captureLog{}
	p := NewPublisherWithProducer(producer, "storepro-events", log)
	p.Publish(context.Background(), events.Event{Type: events.PaymentSucceeded, OrderID: 42, Amount: 99.5, At: time.Now()})

	assert.Empty(t, log.lines)
	require.NoError(t, p.Close())
}

func TestPublishLogsSendFailure(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageAndFail(errors.New("broker unavailable"))

	log := &captureLog{}
	p := NewPublisherWithProducer(producer, "storepro-events", log)
	p.Publish(context.Background(), events.Event{Type: events.OrderCreated, OrderID: 7})

	require.Len(t, log.lines, 1)
	assert.Contains(t, log.lines[0], "broker unavailable")
	assert.Contains(t, log.lines[0], events.OrderCreated)
	require.NoError(t, p.Close())
}
