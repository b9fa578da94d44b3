package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jmehdipour/visa-crm/internal/model"
)

type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration // default 10s
	BatchTimeout time.Duration // default 50ms
}

// Event is the JSON body of one notification message.
type Event struct {
	RunID        string    `json:"run_id"`
	CustomerName string    `json:"customer_name"`
	Phone        string    `json:"phone"`
	Message      string    `json:"message"`
	Status       string    `json:"status"`
	Outcome      string    `json:"outcome"`
	SentAt       time.Time `json:"sent_at"`
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher is a thin wrapper around segmentio/kafka-go Writer that mirrors
// send-log rows to a topic.
type Publisher struct {
	w       messageWriter
	timeout time.Duration
}

func NewPublisherFromConfig(c Config) *Publisher {
	wt := c.WriteTimeout
	if wt <= 0 {
		wt = 10 * time.Second
	}
	bt := c.BatchTimeout
	if bt <= 0 {
		bt = 50 * time.Millisecond
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           bt,
		WriteTimeout:           wt,
		AllowAutoTopicCreation: true,
	}

	return &Publisher{w: w, timeout: wt}
}

// EncodeMessage builds the kafka message for one send-log row, keyed by phone
// so events for the same destination stay ordered within a partition.
func EncodeMessage(e model.SendLog) (kafka.Message, error) {
	b, err := json.Marshal(Event{
		RunID:        e.RunID,
		CustomerName: e.CustomerName,
		Phone:        e.Phone,
		Message:      e.Message,
		Status:       e.Status,
		Outcome:      e.Outcome.String(),
		SentAt:       e.SentAt.UTC(),
	})
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Key:   []byte(e.Phone),
		Value: b,
		Time:  e.SentAt,
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, e model.SendLog) error {
	msg, err := EncodeMessage(e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.w.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error { return p.w.Close() }
