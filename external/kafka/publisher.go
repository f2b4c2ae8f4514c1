package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"StoreProAPI/internal/events"

	"github.com/IBM/sarama"
)

// Publisher writes domain events to a Kafka topic, keyed by order id so all
// events for one order land on the same partition.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	log      events.Logger
}

func NewPublisher(brokers []string, topic string, log events.Logger) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to start sarama producer: %w", err)
	}
	return NewPublisherWithProducer(producer, topic, log), nil
}

func NewPublisherWithProducer(producer sarama.SyncProducer, topic string, log events.Logger) *Publisher {
	return &Publisher{producer: producer, topic: topic, log: log}
}

func (p *Publisher) Publish(_ context.Context, ev events.Event) {
	value, err := json.Marshal(ev)
	if err != nil {
		p.log.Errorf("kafka: marshal %s event: %v", ev.Type, err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(ev.OrderID, 10)),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(ev.Type)},
		},
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		p.log.Errorf("kafka: send %s event for order %d to %q: %v", ev.Type, ev.OrderID, p.topic, err)
	}
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
