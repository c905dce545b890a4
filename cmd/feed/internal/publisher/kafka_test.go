package publisher_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/tickerhub/stock-ticker/cmd/feed/internal/publisher"
	"github.com/tickerhub/stock-ticker/pkg/models"
)

type mockWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func TestPublish_KeysBySymbol(t *testing.T) {
	writer := &mockWriter{}
	pub := publisher.New(writer, zap.NewNop())

	tick := models.Tick{Code: "GOOG", Price: 175.50, Timestamp: 1700000000000}
	if err := pub.Publish(context.Background(), tick); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(writer.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(writer.msgs))
	}
	if string(writer.msgs[0].Key) != "GOOG" {
		t.Errorf("key = %q, want GOOG", writer.msgs[0].Key)
	}

	var decoded models.Tick
	if err := json.Unmarshal(writer.msgs[0].Value, &decoded); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if decoded != tick {
		t.Errorf("decoded tick = %+v, want %+v", decoded, tick)
	}
}

func TestPublish_PropagatesWriterError(t *testing.T) {
	writer := &mockWriter{err: errors.New("broker down")}
	pub := publisher.New(writer, zap.NewNop())

	if err := pub.Publish(context.Background(), models.Tick{Code: "AAPL"}); err == nil {
		t.Error("expected writer error to propagate")
	}
}

func TestClose_ClosesWriter(t *testing.T) {
	writer := &mockWriter{}
	pub := publisher.New(writer, zap.NewNop())

	if err := pub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !writer.closed {
		t.Error("Close must close the underlying writer")
	}
}
