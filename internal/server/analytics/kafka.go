package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/scriptguard/internal/logging"
	"github.com/dmitrijs2005/scriptguard/internal/server/models"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultKafkaQueueSize    = 1024
	DefaultKafkaWriteTimeout = 5 * time.Second
	kafkaMaxBatch            = 100
)

var (
	ErrQueueFull      = errors.New("analytics queue full")
	ErrRecorderClosed = errors.New("analytics recorder closed")
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaRecorder publishes executions as JSON, keyed by project id so one
// project's events stay ordered within a partition. Record only enqueues;
// a single background worker does the writes, so a slow broker never
// holds up the caller.
type KafkaRecorder struct {
	writer       MessageWriter
	logger       logging.Logger
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

func NewKafkaWriter(brokers []string, topic string) (*kafka.Writer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka recorder requires at least one broker")
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireOne,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}, nil
}

type KafkaOption func(*KafkaRecorder)

func WithQueueSize(n int) KafkaOption {
	return func(r *KafkaRecorder) {
		if n > 0 {
			r.queue = make(chan kafka.Message, n)
		}
	}
}

func WithWriteTimeout(d time.Duration) KafkaOption {
	return func(r *KafkaRecorder) {
		if d > 0 {
			r.writeTimeout = d
		}
	}
}

// NewKafkaRecorder starts the publishing worker; Close stops it.
func NewKafkaRecorder(w MessageWriter, l logging.Logger, opts ...KafkaOption) *KafkaRecorder {
	r := &KafkaRecorder{
		writer:       w,
		logger:       l.With("module", "kafka_recorder"),
		writeTimeout: DefaultKafkaWriteTimeout,
		queue:        make(chan kafka.Message, DefaultKafkaQueueSize),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

// Record never blocks on the broker. A full queue drops the event and
// reports ErrQueueFull.
func (r *KafkaRecorder) Record(_ context.Context, e *models.Execution) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(e.ProjectID),
		Value: payload,
		Time:  e.ExecutedAt,
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRecorderClosed
	}
	select {
	case r.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *KafkaRecorder) run() {
	defer close(r.done)

	batch := make([]kafka.Message, 0, kafkaMaxBatch)
	for msg := range r.queue {
		batch = append(batch[:0], msg)
	drain:
		for len(batch) < kafkaMaxBatch {
			select {
			case m, ok := <-r.queue:
				if !ok {
					break drain
				}
				batch = append(batch, m)
			default:
				break drain
			}
		}
		r.write(batch)
	}
}

func (r *KafkaRecorder) write(batch []kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if err := r.writer.WriteMessages(ctx, batch...); err != nil {
		r.logger.Warn(ctx, "execution events dropped", "count", len(batch), "error", err)
	}
}

// Close flushes queued events, then closes the writer.
func (r *KafkaRecorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
	return r.writer.Close()
}
