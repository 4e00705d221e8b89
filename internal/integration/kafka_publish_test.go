//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/flood-risk-etl/internal/adapter/kafka"
	"github.com/couchcryptid/flood-risk-etl/internal/assess"
	"github.com/couchcryptid/flood-risk-etl/internal/domain"
)

const testAssessmentTopic = "test-flood-risk-assessments"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-broker Kafka container and returns its
// bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "resolve controller")

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func f64(v float64) *float64 { return &v }

// TestPublishReport verifies that a completed report round-trips through a
// real broker: one message per gauge, keyed by gauge ID, with risk and
// generated_at headers.
func TestPublishReport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAssessmentTopic)

	generatedAt := time.Date(2024, time.February, 10, 12, 0, 0, 0, time.UTC)
	report := &assess.Report{
		GeneratedAt: generatedAt,
		Gauges: map[string]assess.GaugeResult{
			"11425500": {
				Gauge: domain.Gauge{ID: "11425500", Name: "American River at Fair Oaks", FloodStageFt: f64(25)},
				Assessment: domain.RiskAssessment{
					GaugeID: "11425500",
					Risk:    domain.RiskHigh,
					Inputs:  domain.RiskInputs{StageFt: f64(26), FloodStageFt: f64(25)},
				},
			},
			"11447650": {
				Gauge:      domain.Gauge{ID: "11447650"},
				Assessment: domain.RiskAssessment{GaugeID: "11447650", Risk: domain.RiskUnknown},
				StageError: "usgs API error: status 502",
			},
		},
	}

	publisher := kafka.NewPublisher([]string{broker}, testAssessmentTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	require.NoError(t, publisher.PublishReport(ctx, report))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAssessmentTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make(map[string]kafkago.Message, 2)
	for len(received) < 2 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from assessment topic")
		received[string(msg.Key)] = msg
	}

	require.Contains(t, received, "11425500")
	require.Contains(t, received, "11447650")

	high := received["11425500"]
	headers := make(map[string]string, len(high.Headers))
	for _, h := range high.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "HIGH", headers["risk"])
	assert.Equal(t, generatedAt.Format(time.RFC3339), headers["generated_at"])

	var result assess.GaugeResult
	require.NoError(t, json.Unmarshal(high.Value, &result))
	assert.Equal(t, "American River at Fair Oaks", result.Gauge.Name)
	assert.Equal(t, domain.RiskHigh, result.Assessment.Risk)

	var failed assess.GaugeResult
	require.NoError(t, json.Unmarshal(received["11447650"].Value, &failed))
	assert.Equal(t, domain.RiskUnknown, failed.Assessment.Risk)
	assert.Contains(t, failed.StageError, "status 502")
}
