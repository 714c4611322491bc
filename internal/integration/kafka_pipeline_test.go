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

	"github.com/couchcryptid/hazard-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-alert-service/internal/config"
	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/observability"
	"github.com/couchcryptid/hazard-alert-service/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	testPingTopic  = "test-pings"
	testAlertTopic = "test-alerts"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("hazard-alert-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	brokers, err := ctr.Brokers(ctx)
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

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestPingStreamToAlertTopic publishes pings to the ping topic and verifies
// that only the hazardous one comes out on the alert topic.
func TestPingStreamToAlertTopic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testPingTopic)
	createTopic(t, broker, testAlertTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaPingTopic:     testPingTopic,
		KafkaAlertTopic:    testAlertTopic,
		KafkaGroupID:       fmt.Sprintf("test-stream-%d", time.Now().UnixNano()),
		BatchFlushInterval: time.Second,
	}
	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	writer := kafka.NewWriter(cfg, logger)
	t.Cleanup(func() { _ = writer.Close() })
	reader := kafka.NewReader(cfg, logger)
	t.Cleanup(func() { _ = reader.Close() })

	dispatcher := pipeline.NewDispatcher([]pipeline.AlertSink{writer}, 10*time.Second, 4, logger, metrics)
	p := pipeline.New(pipeline.NewEnricher(domain.NewBoxModel(domain.DefaultZones())), dispatcher, nil, logger, metrics)
	stream := pipeline.NewStream(reader, p, logger, metrics, 10)

	streamCtx, stopStream := context.WithCancel(ctx)
	defer stopStream()
	go func() { _ = stream.Run(streamCtx) }()

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testPingTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Value: []byte(`{"user_id":"u2","lat":0,"lon":0}`)},
		kafkago.Message{Value: []byte(`[{"user_id":"u1","lat":28.7041,"lon":77.1025}]`)},
	))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 60*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from alert topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "u1", string(msg.Key))
	assert.Equal(t, "High", headers["level"])
	_, err = time.Parse(time.RFC3339, headers["assessed_at"])
	assert.NoError(t, err, "assessed_at should be valid RFC3339")

	var alert domain.Alert
	require.NoError(t, json.Unmarshal(msg.Value, &alert))
	assert.Equal(t, "u1", alert.UserID)
	assert.Equal(t, domain.LevelHigh, alert.Level)
	assert.Equal(t, "Severe Air Quality in Delhi", alert.Description)

	// u2 is outside every zone, so nothing else reaches the alert topic.
	quietCtx, quietCancel := context.WithTimeout(ctx, 3*time.Second)
	defer quietCancel()
	_, err = consumer.ReadMessage(quietCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
