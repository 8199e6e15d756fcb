package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/trogers1052/stock-dataset-compiler/internal/models"
)

// Runner compiles the datasets requested over Kafka
type Runner interface {
	RunTraining(ctx context.Context, symbols []string) (*models.RunReport, error)
	RunInference(ctx context.Context, symbol string) (*models.RunReport, error)
}

// Consumer handles consuming compile requests from Kafka.
// Requests are handled one at a time.
type Consumer struct {
	reader *kafka.Reader
	runner Runner
	log    zerolog.Logger
}

// NewConsumer creates a new Kafka consumer for compile requests
func NewConsumer(brokers []string, topic, groupID string, runner Runner, log zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       1e6, // 1MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		runner: runner,
		log:    log.With().Str("component", "kafka_consumer").Logger(),
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("Kafka consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				c.log.Error().Err(err).Msg("Error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.Error().Err(err).Msg("Error processing message")
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	c.log.Debug().
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Str("key", string(msg.Key)).
		Msg("Received message")

	var req models.CompileRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("failed to unmarshal compile request: %w", err)
	}

	switch req.EventType {
	case models.RequestCompileTrainingSet:
		report, err := c.runner.RunTraining(ctx, req.Symbols)
		if err != nil {
			return fmt.Errorf("failed to compile training set for request %s: %w", req.RequestID, err)
		}
		c.log.Info().Str("request_id", req.RequestID).Str("run_id", report.ID).Int("rows", report.Rows).Msg("Compiled requested training set")

	case models.RequestCompileInferenceSet:
		if req.Symbol == "" {
			return fmt.Errorf("inference request %s has no symbol", req.RequestID)
		}
		report, err := c.runner.RunInference(ctx, req.Symbol)
		if err != nil {
			return fmt.Errorf("failed to compile inference set for %s: %w", req.Symbol, err)
		}
		c.log.Info().Str("request_id", req.RequestID).Str("symbol", req.Symbol).Str("run_id", report.ID).Msg("Compiled requested inference set")

	default:
		c.log.Debug().Str("event_type", req.EventType).Msg("Ignoring event type")
	}
	return nil
}
