package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher streams completed simulations to a Kafka topic.
// It implements simulation.Recorder.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the results topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

func (p *Publisher) Name() string { return "kafka" }

// Record publishes one message carrying the summary and every region result.
// Messages are keyed by run ID so a simulation always lands on one partition.
func (p *Publisher) Record(ctx context.Context, sim domain.Simulation) error {
	msg, err := serializeToMessage(sim)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish simulation %s: %w", sim.Summary.ID, err)
	}
	p.logger.Debug("simulation published", "simulation_id", sim.Summary.ID, "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Simulation into a Kafka message.
func serializeToMessage(sim domain.Simulation) (kafkago.Message, error) {
	data, err := json.Marshal(sim)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize simulation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(sim.Summary.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "level", Value: []byte(sim.Summary.Parameters.Level)},
			{Key: "completed_at", Value: []byte(sim.Summary.CompletedAt.Format(time.RFC3339))},
		},
	}, nil
}
