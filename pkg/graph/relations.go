package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ibm-apiconnect/backstage/pkg/relations"
	"github.com/ibm-apiconnect/backstage/pkg/tracing"
)

// RelationWriter materializes derived relations as edges between the
// snapshot's nodes. It implements relations.Emitter.
type RelationWriter struct {
	client   *Client
	provider string
	logger   ectologger.Logger
}

// NewRelationWriter creates a graph-backed relation emitter
func NewRelationWriter(client *Client, providerName string, logger ectologger.Logger) *RelationWriter {
	return &RelationWriter{
		client:   client,
		provider: providerName,
		logger:   logger,
	}
}

// EmitRelation merges one typed edge between the referenced nodes. Both
// endpoints are matched by reference within this provider's snapshot; a
// relation whose endpoint is missing from the snapshot writes nothing.
func (w *RelationWriter) EmitRelation(ctx context.Context, relation relations.Relation) error {
	ctx, span := tracing.StartSpan(ctx, "graph.RelationWriter.EmitRelation")
	defer span.End()

	cypher := fmt.Sprintf(`
		MATCH (s {ref: $source, provider: $provider})
		MATCH (t {ref: $target, provider: $provider})
		MERGE (s)-[r:%s]->(t)
	`, sanitizeLabel(relation.Type))

	_, err := w.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"source":   relation.Source.String(),
			"target":   relation.Target.String(),
			"provider": w.provider,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		w.logger.WithContext(ctx).WithError(err).Errorf("Failed to write %s relation edge", relation.Type)
		return fmt.Errorf("failed to write relation edge: %w", err)
	}

	return nil
}
