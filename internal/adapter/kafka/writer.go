package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/wildfire-risk-engine/internal/config"
	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
)

// Writer produces messages to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	return newWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)
}

// NewSourceWriter creates a producer for the source topic, used to publish
// raw detection records into the pipeline.
func NewSourceWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	return newWriter(cfg.KafkaBrokers, cfg.KafkaSourceTopic, logger)
}

func newWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes cluster events in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msgs[i] = toMessage(events[i])
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(msgs), w.writer.Topic, err)
	}
	w.logger.Debug("batch written", "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

// PublishRecords writes raw feed rows as JSON, keyed by coordinates and
// acquisition time so redeliveries land on the same partition.
func (w *Writer) PublishRecords(ctx context.Context, records []domain.RawDetectionRecord) error {
	msgs := make([]kafkago.Message, 0, len(records))
	for _, rec := range records {
		msg, err := recordToMessage(rec)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d records to %s: %w", len(msgs), w.writer.Topic, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func toMessage(ev domain.OutputEvent) kafkago.Message {
	headers := make([]kafkago.Header, 0, len(ev.Headers))
	for _, k := range []string{"detection_count", "processed_at"} {
		if v, ok := ev.Headers[k]; ok {
			headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
		}
	}
	return kafkago.Message{Key: ev.Key, Value: ev.Value, Headers: headers}
}

func recordToMessage(rec domain.RawDetectionRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize detection record: %w", err)
	}
	key := rec.Latitude + "," + rec.Longitude + "@" + rec.AcqDate + "T" + rec.AcqTime
	return kafkago.Message{Key: []byte(key), Value: data}, nil
}
