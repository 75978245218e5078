package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-buildhook/core"
	"github.com/twmb/franz-go/pkg/kgo"
)

const BackendKafka = "kafka"

// Producer is the part of *kgo.Client the Kafka sink uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaSink publishes each document as one record. The topic is the document
// index and the key is the build document key, so every build of a job lands
// on the same partition.
type KafkaSink struct {
	producer Producer
	mu       sync.RWMutex
	closed   bool
}

func NewKafkaSink(brokers []string) (*KafkaSink, error) {
	seeds := make([]string, 0, len(brokers))
	for _, broker := range brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			seeds = append(seeds, broker)
		}
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("sink: at least one kafka broker is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("sink: create kafka client: %w", err)
	}
	return NewKafkaSinkWithProducer(client), nil
}

func NewKafkaSinkWithProducer(producer Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Publish(ctx context.Context, doc core.Document) (core.Ack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.producer == nil {
		return core.Ack{}, fmt.Errorf("sink: kafka sink is closed")
	}
	topic := strings.TrimSpace(doc.Index)
	if topic == "" {
		return core.Ack{}, fmt.Errorf("sink: document index is required")
	}
	value, err := json.Marshal(doc.Record)
	if err != nil {
		return core.Ack{}, fmt.Errorf("sink: encode document: %w", err)
	}
	key := doc.Record.DocumentKey()
	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return core.Ack{}, fmt.Errorf("sink: produce document: %w", err)
	}
	return core.Ack{
		Backend:    BackendKafka,
		Index:      topic,
		DocumentID: fmt.Sprintf("%s/%d/%d", key, record.Partition, record.Offset),
	}, nil
}

func (s *KafkaSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.producer != nil {
		s.producer.Close()
	}
	return nil
}

var _ core.Sink = (*KafkaSink)(nil)
