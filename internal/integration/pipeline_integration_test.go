//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/jma-weather-etl/internal/adapter/jma"
	"github.com/couchcryptid/jma-weather-etl/internal/adapter/kafka"
	"github.com/couchcryptid/jma-weather-etl/internal/adapter/store/sqlstore"
	"github.com/couchcryptid/jma-weather-etl/internal/domain"
	"github.com/couchcryptid/jma-weather-etl/internal/observability"
	"github.com/couchcryptid/jma-weather-etl/internal/pipeline"
)

const testTopic = "test-jma-records"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("jma-integration"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

// publishedMessage holds a message read back from the records topic.
type publishedMessage struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from records topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return publishedMessage{Key: string(msg.Key), Value: msg.Value, Headers: headers}
}

// TestPipelineEndToEnd runs the master pipeline and the orchestrator against a
// fixture feed, stores into SQLite and publishes to a real Kafka broker.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.May, 10, 3, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	feed := httptest.NewServer(http.FileServer(http.Dir("../pipeline/testdata")))
	t.Cleanup(feed.Close)

	metrics := observability.NewMetricsForTesting()
	source := jma.NewClient(jma.NewHTTPFetcher(feed.URL, 5*time.Second, 0, metrics, discardLogger()), metrics)

	store, err := sqlstore.Open(ctx, sqlstore.SQLite, filepath.Join(t.TempDir(), "jma.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	publisher := kafka.NewPublisher([]string{broker}, testTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	_, err = pipeline.NewMasterPipeline(source, store, discardLogger(), metrics).Run(ctx)
	require.NoError(t, err)

	o := pipeline.NewOrchestrator(source, store, []string{"280000"}, discardLogger(), metrics, pipeline.WithPublisher(publisher))
	res, err := o.Run(ctx, pipeline.RunOptions{Forecasts: true, Warnings: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Forecasts)
	assert.Equal(t, 1, res.Warnings)

	stored, err := store.Forecasts(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.NotNil(t, stored[0].MinTemperature)
	assert.InDelta(t, 11.0, *stored[0].MinTemperature, 1e-9)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	var forecasts []domain.ForecastRecord
	var warnings []domain.WarningRecord
	for range res.Forecasts + res.Warnings {
		msg := readPublished(ctx, t, consumer)
		assert.Equal(t, "2024-05-11", msg.Headers["target_date"])
		_, err := time.Parse(time.RFC3339, msg.Headers["published_at"])
		assert.NoError(t, err, "invalid published_at format")

		switch msg.Headers["record_type"] {
		case "forecast":
			var r domain.ForecastRecord
			require.NoError(t, json.Unmarshal(msg.Value, &r))
			assert.Equal(t, r.SubRegionID, msg.Key)
			forecasts = append(forecasts, r)
		case "warning":
			var r domain.WarningRecord
			require.NoError(t, json.Unmarshal(msg.Value, &r))
			warnings = append(warnings, r)
		default:
			t.Errorf("unexpected record_type %q", msg.Headers["record_type"])
		}
	}

	assert.Equal(t, stored, forecasts)
	assert.Equal(t, []domain.WarningRecord{{SubRegionID: "280010", Warnings: []string{"大雨警報", "大雨注意報"}}}, warnings)
}
