// Package kafka publishes relation events derived from the entity graph.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/ibm-apiconnect/backstage/pkg/metrics"
	"github.com/ibm-apiconnect/backstage/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// RelationEvent represents a derived relation between two entities
type RelationEvent struct {
	EventType       string    `json:"event_type"`
	RelationID      string    `json:"relation_id"`
	RelationType    string    `json:"relation_type"`
	Provider        string    `json:"provider"`
	SourceKind      string    `json:"source_kind"`
	SourceNamespace string    `json:"source_namespace"`
	SourceName      string    `json:"source_name"`
	TargetKind      string    `json:"target_kind"`
	TargetNamespace string    `json:"target_namespace"`
	TargetName      string    `json:"target_name"`
	Timestamp       time.Time `json:"timestamp"`
}

// PublishRelationEvent publishes a relation event to Kafka
func (p *Producer) PublishRelationEvent(ctx context.Context, event *RelationEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishRelationEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.RelationID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "relation_type", Value: []byte(event.RelationType)},
			{Key: "provider", Value: []byte(event.Provider)},
			{Key: "schema_version", Value: []byte(SchemaVersion)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.RecordKafkaPublish(p.topic, "failure")
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish relation event")
		return err
	}
	metrics.RecordKafkaPublish(p.topic, "success")

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type":    event.EventType,
		"relation_id":   event.RelationID,
		"relation_type": event.RelationType,
	}).Debug("Published relation event")

	return nil
}
