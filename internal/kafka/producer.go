package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/trogers1052/stock-dataset-compiler/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing dataset events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishTrainingSetCompiled publishes a training set compiled event
func (p *Producer) PublishTrainingSetCompiled(ctx context.Context, report *models.RunReport) error {
	event := models.DatasetEvent{
		EventType: models.EventTrainingSetCompiled,
		RunID:     report.ID,
		Report:    report,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, report.ID, event)
}

// PublishInferenceSetCompiled publishes an inference set compiled event
func (p *Producer) PublishInferenceSetCompiled(ctx context.Context, symbol string, report *models.RunReport) error {
	event := models.DatasetEvent{
		EventType: models.EventInferenceSetCompiled,
		RunID:     report.ID,
		Symbol:    symbol,
		Report:    report,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, symbol, event)
}

// PublishSymbolSkipped publishes a symbol skipped event for one failure of a run
func (p *Producer) PublishSymbolSkipped(ctx context.Context, runID string, failure models.SymbolFailure) error {
	event := models.DatasetEvent{
		EventType: models.EventSymbolSkipped,
		RunID:     runID,
		Symbol:    failure.Symbol,
		Failure:   &failure,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, failure.Symbol, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.DatasetEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
