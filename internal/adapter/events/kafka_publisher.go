package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher delivers events through a single async kafka writer. Publish
// never blocks the request path: messages queue into an inbox and a
// background goroutine drains it.
type Publisher struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	log     *zap.Logger
}

func NewPublisher(brokers []string, buf int, log *zap.Logger) *Publisher {
	return &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		log:     log,
	}
}

func (p *Publisher) Start() {
	go func() {
		for m := range p.inbox {
			if err := p.w.WriteMessages(context.Background(), m); err != nil {
				p.log.Warn("publish event", zap.String("topic", m.Topic), zap.Error(err))
			}
		}
		_ = p.w.Close()
		close(p.closeCh)
	}()
}

func (p *Publisher) Publish(topic string, key, value []byte) {
	select {
	case p.inbox <- kafka.Message{Topic: topic, Key: key, Value: value, Time: time.Now()}:
	default:
		p.log.Warn("event inbox full, dropping", zap.String("topic", topic))
	}
}

// Close stops intake; queued messages are flushed before the writer closes.
func (p *Publisher) Close() { close(p.inbox) }

// WaitClosed blocks until the flush goroutine has exited.
func (p *Publisher) WaitClosed() { <-p.closeCh }

// Noop discards events. Used when no brokers are configured and in tests.
type Noop struct{}

func (Noop) Publish(string, []byte, []byte) {}
