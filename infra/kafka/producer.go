package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	DriverKafkaGo = "kafka-go"
	DriverSarama  = "sarama"
)

var ErrUnknownDriver = errors.New("kafka: unknown driver")

// Publisher delivers one message synchronously.
type Publisher interface {
	Send(ctx context.Context, key, value []byte) error
	Close() error
}

// New builds the publisher for driver.
func New(driver string, brokers []string, topic string) (Publisher, error) {
	switch driver {
	case DriverKafkaGo, "":
		return NewProducer(brokers, topic), nil
	case DriverSarama:
		return NewSaramaProducer(brokers, topic)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// Producer publishes with a segmentio/kafka-go Writer.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	}); err != nil {
		return fmt.Errorf("kafka: write: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
