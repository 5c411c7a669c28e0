package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ibm-apiconnect/backstage/pkg/models"
	"github.com/ibm-apiconnect/backstage/pkg/provider"
	"github.com/ibm-apiconnect/backstage/pkg/tracing"
)

// Sink stores full entity snapshots in the graph. Each ReplaceAll
// deletes every node attributed to this provider and writes the new set
// in the same transaction, so readers never observe a partial snapshot.
type Sink struct {
	client   *Client
	provider string
	logger   ectologger.Logger
}

// NewSink creates a graph-backed snapshot sink
func NewSink(client *Client, providerName string, logger ectologger.Logger) *Sink {
	return &Sink{
		client:   client,
		provider: providerName,
		logger:   logger,
	}
}

// ReplaceAll atomically substitutes the provider's entity set
func (s *Sink) ReplaceAll(ctx context.Context, mutation provider.Mutation) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Sink.ReplaceAll")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"provider": s.provider,
		"entities": len(mutation.Entities),
	})

	// Group node properties by kind label before touching the store
	byLabel := make(map[string][]map[string]any)
	for _, located := range mutation.Entities {
		label, err := kindLabel(located.Entity)
		if err != nil {
			return err
		}

		props, err := nodeProps(located, s.provider)
		if err != nil {
			return err
		}
		byLabel[label] = append(byLabel[label], props)
	}

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Drop the previous snapshot for this provider
		_, err := tx.Run(ctx, `
			MATCH (e {provider: $provider})
			DETACH DELETE e
		`, map[string]any{"provider": s.provider})
		if err != nil {
			return nil, err
		}

		for label, batch := range byLabel {
			cypher := fmt.Sprintf(`
				UNWIND $batch AS props
				MERGE (e:%s {ref: props.ref, provider: props.provider})
				SET e = props
			`, sanitizeLabel(label))

			if _, err := tx.Run(ctx, cypher, map[string]any{"batch": batch}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	if err != nil {
		log.WithError(err).Error("Failed to replace entity snapshot in graph")
		return fmt.Errorf("failed to replace entity snapshot: %w", err)
	}

	log.Info("Replaced entity snapshot in graph")
	return nil
}

// kindLabel maps an entity to its node label, exhaustively over the
// fixed entity kinds.
func kindLabel(entity models.Entity) (string, error) {
	switch entity.(type) {
	case *models.DomainEntity:
		return models.KindDomain, nil
	case *models.SystemEntity:
		return models.KindSystem, nil
	case *models.ProductEntity:
		return models.KindProduct, nil
	case *models.APIEntity:
		return models.KindAPI, nil
	default:
		return "", fmt.Errorf("unknown entity kind %T", entity)
	}
}

// nodeProps builds the node property map for one located entity
func nodeProps(located provider.LocatedEntity, providerName string) (map[string]any, error) {
	data, err := json.Marshal(located.Entity)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize entity %s: %w", located.Entity.Ref(), err)
	}

	meta := located.Entity.GetMeta()
	return map[string]any{
		"ref":          located.Entity.Ref().String(),
		"provider":     providerName,
		"namespace":    meta.Namespace,
		"name":         meta.Name,
		"title":        meta.Title,
		"location_key": located.LocationKey,
		"entity":       string(data),
	}, nil
}

// sanitizeLabel ensures the label is safe for Cypher
func sanitizeLabel(label string) string {
	result := ""
	for _, c := range label {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result += string(c)
		}
	}
	if result == "" {
		return "Entity"
	}
	return result
}
