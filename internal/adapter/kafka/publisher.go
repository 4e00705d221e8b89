// Package kafka publishes completed risk assessments to a Kafka topic so
// downstream alerting can react without polling the report output.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flood-risk-etl/internal/assess"
)

// Publisher produces one message per assessed gauge.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the assessment topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishReport serializes every gauge result in the report and publishes
// them in a single WriteMessages call. Messages are keyed by gauge ID so a
// compacted topic retains the latest assessment per gauge.
func (p *Publisher) PublishReport(ctx context.Context, report *assess.Report) error {
	if len(report.Gauges) == 0 {
		return nil
	}

	ids := make([]string, 0, len(report.Gauges))
	for id := range report.Gauges {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	msgs := make([]kafkago.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := serializeResult(report.Gauges[id], report.GeneratedAt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish assessments: %w", err)
	}
	p.logger.Info("assessments published", "messages", len(msgs), "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeResult marshals a gauge result into a Kafka message.
func serializeResult(result assess.GaugeResult, generatedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize gauge result %s: %w", result.Gauge.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(result.Gauge.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk", Value: []byte(result.Assessment.Risk.String())},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
