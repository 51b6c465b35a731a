package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrProducerClosed = errors.New("producer closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers messages and writes them from one goroutine. Close (or
// cancelling the Start context) stops intake and flushes what is buffered.
type Producer struct {
	w            messageWriter
	inbox        chan kafka.Message
	closing      chan struct{}
	done         chan struct{}
	writeTimeout time.Duration
	log          *zap.Logger

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

func NewProducer(brokers []string, topic string, buf int, log *zap.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}, buf, log)
}

func newProducer(w messageWriter, buf int, log *zap.Logger) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	if buf <= 0 {
		buf = 256
	}
	return &Producer{
		w:            w,
		inbox:        make(chan kafka.Message, buf),
		closing:      make(chan struct{}),
		done:         make(chan struct{}),
		writeTimeout: 10 * time.Second,
		log:          log,
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			p.Close()
		case <-p.closing:
		}
	}()
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			p.write(m)
		}
		if err := p.w.Close(); err != nil {
			p.log.Warn("close kafka writer", zap.Error(err))
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Error("kafka write failed",
			zap.ByteString("key", m.Key), zap.String("event_type", headerValue(m, HeaderEventType)), zap.Error(err))
	}
}

// Publish queues a message. It blocks while the buffer is full, until ctx
// is done.
func (p *Producer) Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.inbox <- kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Emit publishes an encoded event envelope with type and version headers.
func (p *Producer) Emit(ctx context.Context, key []byte, eventType string, value []byte) error {
	return p.Publish(ctx, key, value, EventHeaders(eventType, 1)...)
}

func (p *Producer) Close() {
	p.once.Do(func() {
		close(p.closing)
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
	})
}

// WaitClosed blocks until buffered messages are flushed and the writer is
// closed.
func (p *Producer) WaitClosed() { <-p.done }
