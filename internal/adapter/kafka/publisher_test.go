package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-risk-etl/internal/assess"
	"github.com/couchcryptid/flood-risk-etl/internal/domain"
)

func TestSerializeResult(t *testing.T) {
	generatedAt := time.Date(2024, time.February, 10, 12, 0, 0, 0, time.UTC)
	stage := 24.0
	result := assess.GaugeResult{
		Gauge: domain.Gauge{ID: "11425500", Name: "American River at Fair Oaks"},
		Assessment: domain.RiskAssessment{
			GaugeID: "11425500",
			Risk:    domain.RiskHigh,
			Inputs:  domain.RiskInputs{StageFt: &stage},
		},
	}

	msg, err := serializeResult(result, generatedAt)
	require.NoError(t, err)

	assert.Equal(t, []byte("11425500"), msg.Key)
	assert.Contains(t, string(msg.Value), `"risk":"HIGH"`)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "risk", msg.Headers[0].Key)
	assert.Equal(t, []byte("HIGH"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2024-02-10T12:00:00Z"), msg.Headers[1].Value)
}

func TestSerializeResult_CarriesErrors(t *testing.T) {
	result := assess.GaugeResult{
		Gauge:      domain.Gauge{ID: "11447650"},
		Assessment: domain.RiskAssessment{GaugeID: "11447650", Risk: domain.RiskUnknown},
		StageError: "usgs API error: status 502",
	}

	msg, err := serializeResult(result, time.Now())
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"stage_error":"usgs API error: status 502"`)
}

func TestNewPublisher(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "flood-risk-assessments", nil)
	require.NotNil(t, p.writer)
	assert.Equal(t, "flood-risk-assessments", p.writer.Topic)
	assert.IsType(t, &kafkago.LeastBytes{}, p.writer.Balancer)
}
