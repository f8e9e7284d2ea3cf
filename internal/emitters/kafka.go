package emitters

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/wnt/mychain-dash/internal/parser"
)

// PurchaseEvent is published for every parsed purchase
type PurchaseEvent struct {
	Address   string        `json:"address"`
	Result    parser.Result `json:"result"`
	EmittedAt time.Time     `json:"emittedAt"`
}

// Emitter publishes purchase events
type Emitter interface {
	EmitPurchase(ctx context.Context, address string, result parser.Result) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter implements Emitter using Kafka
type KafkaEmitter struct {
	writer messageWriter
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewKafkaEmitter creates a new KafkaEmitter
func NewKafkaEmitter(brokerAddress, topic string, logger zerolog.Logger) *KafkaEmitter {
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokerAddress),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger.With().Str("component", "kafka_emitter").Logger(),
	}
}

// EmitPurchase writes the result keyed by transaction hash
func (k *KafkaEmitter) EmitPurchase(ctx context.Context, address string, result parser.Result) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer == nil {
		return fmt.Errorf("kafka emitter is closed")
	}

	value, err := json.Marshal(PurchaseEvent{
		Address:   address,
		Result:    result,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal purchase event: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(result.TxHash),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	k.logger.Info().
		Str("address", address).
		Str("tx_hash", result.TxHash).
		Bool("success", result.Success).
		Msg("Emitted purchase event to Kafka")
	return nil
}

// Close flushes and closes the writer
func (k *KafkaEmitter) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer != nil {
		err := k.writer.Close()
		k.writer = nil
		return err
	}
	return nil
}

// NopEmitter drops every event, used when no broker is configured
type NopEmitter struct{}

func (NopEmitter) EmitPurchase(context.Context, string, parser.Result) error { return nil }
func (NopEmitter) Close() error                                               { return nil }

// New returns a Kafka emitter, or a NopEmitter when brokerAddress is empty
func New(brokerAddress, topic string, logger zerolog.Logger) Emitter {
	if brokerAddress == "" {
		return NopEmitter{}
	}
	return NewKafkaEmitter(brokerAddress, topic, logger)
}
