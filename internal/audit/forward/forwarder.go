// Package forward fans security-critical audit records out to a Kafka topic
// for downstream security tooling. The durable store is the system of record;
// this path is best effort with bounded buffering, so a broker outage never
// backpressures the audit writer.
package forward

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
)

// Publisher is the broker client surface the forwarder needs.
type Publisher interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// Config tunes the forwarder's buffering and publish cadence.
type Config struct {
	Topic            string
	BufferCapacity   int
	BatchSize        int
	PublishInterval  time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Topic:            "audit.security.events",
		BufferCapacity:   10000,
		BatchSize:        100,
		PublishInterval:  time.Second,
		BreakerThreshold: 5,
		BreakerCooldown:  time.Minute,
	}
}

// Forwarder drains a ring buffer of critical records to the broker.
type Forwarder struct {
	publisher Publisher
	cfg       Config
	buffer    *ringBuffer
	breaker   *circuitBreaker
	logger    *slog.Logger
	metrics   *Metrics

	stop chan struct{}
	done chan struct{}
}

type Option func(*Forwarder)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Forwarder) { f.logger = logger }
}

func WithConfig(cfg Config) Option {
	return func(f *Forwarder) { f.cfg = cfg }
}

func WithMetrics(m *Metrics) Option {
	return func(f *Forwarder) { f.metrics = m }
}

func New(publisher Publisher, opts ...Option) (*Forwarder, error) {
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	f := &Forwarder{
		publisher: publisher,
		cfg:       DefaultConfig(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.cfg.Topic == "" {
		return nil, errors.New("topic is required")
	}
	f.buffer = newRingBuffer(f.cfg.BufferCapacity)
	f.breaker = newCircuitBreaker(f.cfg.BreakerThreshold, f.cfg.BreakerCooldown)
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	return f, nil
}

// Forward enqueues a record for publication. Never blocks; when the buffer
// is full the oldest record is dropped.
func (f *Forwarder) Forward(record audit.Record) {
	f.buffer.enqueue(record)
	if f.metrics != nil {
		f.metrics.SetBufferDepth(f.buffer.len())
		f.metrics.SetDropped(f.buffer.droppedCount())
	}
}

// Start launches the publish loop.
func (f *Forwarder) Start() {
	go f.run()
}

// Shutdown stops the loop and attempts one final drain within ctx.
func (f *Forwarder) Shutdown(ctx context.Context) error {
	close(f.stop)
	select {
	case <-f.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	f.drain(ctx)
	return nil
}

// Buffered reports the number of records awaiting publication.
func (f *Forwarder) Buffered() int {
	return f.buffer.len()
}

func (f *Forwarder) run() {
	defer close(f.done)
	ticker := time.NewTicker(f.cfg.PublishInterval)
	defer ticker.Stop()
	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			f.drain(context.Background())
		}
	}
}

// drain publishes buffered records batch by batch until the buffer is empty,
// a publish fails, or the breaker opens.
func (f *Forwarder) drain(ctx context.Context) {
	for {
		if !f.breaker.allow() {
			return
		}
		batch := f.buffer.dequeueBatch(f.cfg.BatchSize)
		if len(batch) == 0 {
			return
		}
		if err := f.publish(ctx, batch); err != nil {
			f.breaker.recordFailure()
			f.buffer.requeue(batch)
			if f.metrics != nil {
				f.metrics.IncPublishFailures()
			}
			if f.logger != nil {
				f.logger.WarnContext(ctx, "security event publish failed, batch buffered",
					"batch_size", len(batch),
					"breaker_open", f.breaker.open(),
					"error", err,
				)
			}
			return
		}
		f.breaker.recordSuccess()
		if f.metrics != nil {
			f.metrics.AddPublished(len(batch))
			f.metrics.SetBufferDepth(f.buffer.len())
		}
	}
}

func (f *Forwarder) publish(ctx context.Context, batch []audit.Record) error {
	for _, record := range batch {
		value, err := json.Marshal(record)
		if err != nil {
			// Unmarshalable records are dropped, not retried.
			if f.logger != nil {
				f.logger.ErrorContext(ctx, "failed to encode security event", "record_id", record.ID, "error", err)
			}
			continue
		}
		if err := f.publisher.Produce(ctx, f.cfg.Topic, []byte(record.ID.String()), value); err != nil {
			return err
		}
	}
	return nil
}
