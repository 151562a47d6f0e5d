package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestProducer_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "customer-flag-events", testLogger())

	err := p.Publish(context.Background(), Record{
		Key:     "42",
		Headers: map[string]string{"event_type": "flag.set"},
		Value:   map[string]any{"customer_id": 42},
	})
	require.NoError(t, err)

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "customer-flag-events", msg.Topic)
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, "flag.set", HeaderMap(msg.Headers)["event_type"])

	var body map[string]int
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, 42, body["customer_id"])
}

func TestProducer_PublishEmptyAndError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, "t", testLogger())

	require.NoError(t, p.Publish(context.Background()))
	assert.EqualError(t, p.Publish(context.Background(), Record{Key: "1", Value: 1}), "broker down")
}

func TestCompressionCodec(t *testing.T) {
	assert.Equal(t, kafka.Snappy, compressionCodec(""))
	assert.Equal(t, kafka.Gzip, compressionCodec("gzip"))
	assert.Equal(t, kafka.Compression(0), compressionCodec("none"))
}
