// Package kafka publishes finalized forecast and warning records.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/jma-weather-etl/internal/domain"
)

// Record kinds carried in the record_type header.
const (
	recordForecast = "forecast"
	recordWarning  = "warning"
)

// Publisher writes one message per record to a topic, keyed by sub-region.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishForecasts publishes all forecast records in a single WriteMessages call.
func (p *Publisher) PublishForecasts(ctx context.Context, target domain.Date, records []domain.ForecastRecord) error {
	msgs := make([]kafkago.Message, 0, len(records))
	for _, r := range records {
		msg, err := serializeToMessage(r.SubRegionID, recordForecast, target, r)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return p.write(ctx, msgs)
}

// PublishWarnings publishes all warning records in a single WriteMessages call.
func (p *Publisher) PublishWarnings(ctx context.Context, target domain.Date, records []domain.WarningRecord) error {
	msgs := make([]kafkago.Message, 0, len(records))
	for _, r := range records {
		msg, err := serializeToMessage(r.SubRegionID, recordWarning, target, r)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return p.write(ctx, msgs)
}

func (p *Publisher) write(ctx context.Context, msgs []kafkago.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d records: %w", len(msgs), err)
	}
	p.logger.Debug("published records", "count", len(msgs), "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a record into a Kafka message.
func serializeToMessage(key, kind string, target domain.Date, record any) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s record %s: %w", kind, key, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte(kind)},
			{Key: "target_date", Value: []byte(target.String())},
			{Key: "published_at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}
