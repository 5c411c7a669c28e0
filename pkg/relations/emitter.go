package relations

import (
	"context"
	"errors"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/ibm-apiconnect/backstage/pkg/kafka"
	"github.com/ibm-apiconnect/backstage/pkg/metrics"
	"github.com/ibm-apiconnect/backstage/pkg/tracing"
)

// EventTypeRelationDerived marks relation events on the bus
const EventTypeRelationDerived = "relation.derived"

// KafkaEmitter publishes derived relations as Kafka events
type KafkaEmitter struct {
	producer *kafka.Producer
	provider string
	logger   ectologger.Logger
}

// NewKafkaEmitter creates a Kafka-backed relation emitter
func NewKafkaEmitter(producer *kafka.Producer, provider string, logger ectologger.Logger) *KafkaEmitter {
	return &KafkaEmitter{
		producer: producer,
		provider: provider,
		logger:   logger,
	}
}

// EmitRelation publishes one relation event
func (e *KafkaEmitter) EmitRelation(ctx context.Context, relation Relation) error {
	ctx, span := tracing.StartSpan(ctx, "relations.KafkaEmitter.EmitRelation")
	defer span.End()

	event := &kafka.RelationEvent{
		EventType:       EventTypeRelationDerived,
		RelationID:      uuid.New().String(),
		RelationType:    relation.Type,
		Provider:        e.provider,
		SourceKind:      relation.Source.Kind,
		SourceNamespace: relation.Source.Namespace,
		SourceName:      relation.Source.Name,
		TargetKind:      relation.Target.Kind,
		TargetNamespace: relation.Target.Namespace,
		TargetName:      relation.Target.Name,
	}

	if err := e.producer.PublishRelationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s relation", relation.Type)
		return err
	}

	metrics.RelationsEmittedTotal.WithLabelValues(relation.Type).Inc()
	return nil
}

// MultiEmitter fans one relation out to several emitters. All emitters
// are attempted; errors are joined.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates an emitter fan-out
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// EmitRelation sends the relation to every configured emitter
func (e *MultiEmitter) EmitRelation(ctx context.Context, relation Relation) error {
	var errs []error
	for _, emitter := range e.emitters {
		if err := emitter.EmitRelation(ctx, relation); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
