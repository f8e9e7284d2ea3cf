package emitters

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/mychain-dash/internal/parser"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaEmitter(t *testing.T) {
	w := &recordingWriter{}
	e := &KafkaEmitter{writer: w, logger: zerolog.Nop()}

	err := e.EmitPurchase(context.Background(), "mychain1buyer", parser.Result{Success: true, TxHash: "ABC", TotalPaid: "5"})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)
	assert.Equal(t, "ABC", string(w.messages[0].Key))

	var event PurchaseEvent
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &event))
	assert.Equal(t, "mychain1buyer", event.Address)
	assert.Equal(t, "5", event.Result.TotalPaid)
	assert.False(t, event.EmittedAt.IsZero())

	w.err = errors.New("broker down")
	err = e.EmitPurchase(context.Background(), "mychain1buyer", parser.Result{TxHash: "DEF"})
	assert.ErrorContains(t, err, "broker down")

	require.NoError(t, e.Close())
	assert.True(t, w.closed)
	require.NoError(t, e.Close())
	assert.Error(t, e.EmitPurchase(context.Background(), "x", parser.Result{}))
}

func TestNew(t *testing.T) {
	assert.IsType(t, NopEmitter{}, New("", "topic", zerolog.Nop()))
	assert.IsType(t, &KafkaEmitter{}, New("localhost:9092", "topic", zerolog.Nop()))
	assert.NoError(t, NopEmitter{}.EmitPurchase(context.Background(), "x", parser.Result{}))
}
