package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const defaultKafkaWriteTimeout = 10 * time.Second

// KafkaConfig configures the Kafka job runner.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	// GroupID is required by the worker side only.
	GroupID string
}

func (c KafkaConfig) validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("at least one Kafka broker is required")
	}

	if c.Topic == "" {
		return errors.New("kafka topic is required")
	}

	return nil
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes mails as JSON jobs keyed by Email.ID.
type KafkaDispatcher struct {
	writer  kafkaWriter
	topic   string
	metrics *Metrics
}

// NewKafkaDispatcher creates a KafkaDispatcher producing to cfg.Topic.
func NewKafkaDispatcher(cfg KafkaConfig, metrics *Metrics) (*KafkaDispatcher, error) {
	if err := cfg.validate(); err != nil {
		slog.Error("Invalid Kafka configuration", "brokers", cfg.Brokers, "topic", cfg.Topic, "error", err)
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: defaultKafkaWriteTimeout,
	}

	slog.Info("Initializing Kafka mail dispatcher", "brokers", cfg.Brokers, "topic", cfg.Topic)

	return &KafkaDispatcher{writer: writer, topic: cfg.Topic, metrics: metrics}, nil
}

// Dispatch implements Dispatcher.
func (d *KafkaDispatcher) Dispatch(ctx context.Context, email *Email) error {
	if email.ID == "" {
		email.ID = uuid.NewString()
	}

	payload, err := json.Marshal(email)
	if err != nil {
		d.metrics.dropped()
		slog.Error("Failed to encode mail job", "id", email.ID, "error", err)

		return fmt.Errorf("encode mail %s: %w", email.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(email.ID),
		Value: payload,
		Time:  time.Now(),
	}

	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		d.metrics.dropped()
		slog.Error("Failed to publish mail job", "id", email.ID, "topic", d.topic, "error", err)

		return fmt.Errorf("publish mail %s: %w", email.ID, err)
	}

	d.metrics.queued()
	slog.Debug("Mail job published", "id", email.ID, "topic", d.topic)

	return nil
}

// Close flushes and closes the producer.
func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

// KafkaWorker consumes mail jobs and delivers them through a Sender. Every
// message is committed after one delivery attempt, whatever its outcome.
type KafkaWorker struct {
	reader  kafkaReader
	sender  Sender
	metrics *Metrics
}

// NewKafkaWorker creates a KafkaWorker consuming cfg.Topic as cfg.GroupID.
func NewKafkaWorker(cfg KafkaConfig, sender Sender, metrics *Metrics) (*KafkaWorker, error) {
	if err := cfg.validate(); err != nil {
		slog.Error("Invalid Kafka configuration", "brokers", cfg.Brokers, "topic", cfg.Topic, "error", err)
		return nil, err
	}

	if cfg.GroupID == "" {
		slog.Error("Kafka consumer group is required", "topic", cfg.Topic)
		return nil, errors.New("kafka group id is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})

	slog.Info("Initializing Kafka mail worker", "brokers", cfg.Brokers, "topic", cfg.Topic, "group", cfg.GroupID)

	return &KafkaWorker{reader: reader, sender: sender, metrics: metrics}, nil
}

// Run consumes jobs until ctx is done or the reader is exhausted.
func (w *KafkaWorker) Run(ctx context.Context) error {
	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}

			slog.Error("Failed to fetch mail job", "error", err)

			return fmt.Errorf("fetch mail job: %w", err)
		}

		w.handle(ctx, msg)

		if err := w.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			slog.Error("Failed to commit mail job", "offset", msg.Offset, "error", err)

			return fmt.Errorf("commit mail job: %w", err)
		}
	}
}

func (w *KafkaWorker) handle(ctx context.Context, msg kafka.Message) {
	var email Email
	if err := json.Unmarshal(msg.Value, &email); err != nil {
		w.metrics.failed()
		slog.Error("Discarding undecodable mail job", "key", string(msg.Key), "offset", msg.Offset, "error", err)

		return
	}

	if err := w.sender.Send(ctx, &email); err != nil {
		w.metrics.failed()
		slog.Error("Failed to deliver mail job", "id", email.ID, "error", err)

		return
	}

	w.metrics.sent()
}

// Close closes the consumer.
func (w *KafkaWorker) Close() error {
	return w.reader.Close()
}
