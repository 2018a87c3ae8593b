// Package redpanda publishes fax dispatch lifecycle events.
// The event stream is optional operational plumbing: downstream consumers
// (billing, notification) subscribe to dispatch outcomes without this
// service knowing about them.
package redpanda

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ProducerConfig holds configuration for the event producer
type ProducerConfig struct {
	// Brokers is a list of broker addresses
	Brokers []string
	// LingerMS is the time to wait before sending a batch
	LingerMS int64
	// MaxRetries is the maximum number of retries for failed sends
	MaxRetries int
}

// DefaultProducerConfig returns defaults sized for this service's volume:
// a handful of events per fax, not a streaming workload.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:    []string{"localhost:9092"},
		LingerMS:   10,
		MaxRetries: 3,
	}
}

// Producer publishes dispatch events
type Producer struct {
	client *kgo.Client
	config ProducerConfig
	logger *zap.Logger
	tracer trace.Tracer

	eventsSent  int64
	eventErrors int64
}

// NewProducer creates an event producer
func NewProducer(cfg ProducerConfig, logger *zap.Logger) (*Producer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerLinger(time.Duration(cfg.LingerMS)*time.Millisecond),
		kgo.MaxBufferedRecords(10_000),
		kgo.RecordRetries(cfg.MaxRetries),
		kgo.RequiredAcks(kgo.LeaderAck()),
		kgo.ProducerBatchCompression(kgo.Lz4Compression()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Producer{
		client: client,
		config: cfg,
		logger: logger,
		tracer: otel.Tracer("dispatch-events"),
	}, nil
}

// Publish sends one event and waits for the broker acknowledgment
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	ctx, span := p.tracer.Start(ctx, "publish_dispatch_event",
		trace.WithAttributes(
			attribute.String("topic", topic),
			attribute.String("key", key),
		))
	defer span.End()

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	injectTraceHeaders(ctx, record)

	var produceErr error
	var wg sync.WaitGroup
	wg.Add(1)

	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		defer wg.Done()
		if err != nil {
			produceErr = err
			atomic.AddInt64(&p.eventErrors, 1)
			p.logger.Error("failed to publish dispatch event",
				zap.String("topic", topic),
				zap.String("key", key),
				zap.Error(err))
			span.RecordError(err)
			return
		}
		atomic.AddInt64(&p.eventsSent, 1)
		p.logger.Debug("dispatch event published",
			zap.String("topic", r.Topic),
			zap.Int32("partition", r.Partition),
			zap.Int64("offset", r.Offset))
	})

	wg.Wait()
	return produceErr
}

// Stats returns sent/error counters
func (p *Producer) Stats() (sent, errors int64) {
	return atomic.LoadInt64(&p.eventsSent), atomic.LoadInt64(&p.eventErrors)
}

// Close flushes buffered records and releases the client
func (p *Producer) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush producer: %w", err)
	}
	p.client.Close()
	return nil
}

func injectTraceHeaders(ctx context.Context, record *kgo.Record) {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	sc := span.SpanContext()
	record.Headers = append(record.Headers,
		kgo.RecordHeader{Key: "traceparent", Value: []byte(fmt.Sprintf("00-%s-%s-%02x",
			sc.TraceID().String(),
			sc.SpanID().String(),
			sc.TraceFlags()))},
	)
}
