package graph

import (
	"context"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	pkgerrors "cozy-triage/backend/pkg/errors"
)

// Uniqueness constraints, one per node label on id
var schemaConstraints = []string{
	"CREATE CONSTRAINT ON (n:User)          ASSERT n.id IS UNIQUE;",
	"CREATE CONSTRAINT ON (n:Task)          ASSERT n.id IS UNIQUE;",
	"CREATE CONSTRAINT ON (n:Project)       ASSERT n.id IS UNIQUE;",
	"CREATE CONSTRAINT ON (n:Area)          ASSERT n.id IS UNIQUE;",
	"CREATE CONSTRAINT ON (n:TriageSession) ASSERT n.id IS UNIQUE;",
	"CREATE CONSTRAINT ON (n:Suggestion)    ASSERT n.id IS UNIQUE;",
}

// One cosine vector index over Task(embedding), fixed at 1024 dimensions
const vectorIndexStatement = `
	CREATE VECTOR INDEX task_embedding_idx
	ON :Task(embedding)
	WITH CONFIG {
	  "dimension": 1024,
	  "capacity": 10000,
	  "metric": "cos"
	};
`

// EnsureSchema deploys the Memgraph schema: uniqueness constraints on every
// node label's id and the task embedding vector index. Safe to run
// repeatedly; duplicate-object errors from Memgraph are tolerated.
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, stmt := range schemaConstraints {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			if isAlreadyExists(err) {
				continue
			}
			return pkgerrors.NewUpstreamStoreError("create constraint", err)
		}
	}
	s.logger.Info("Uniqueness constraints applied", zap.Int("count", len(schemaConstraints)))

	if _, err := session.Run(ctx, vectorIndexStatement, nil); err != nil {
		if !isAlreadyExists(err) {
			return pkgerrors.NewUpstreamStoreError("create vector index", err)
		}
		s.logger.Debug("Vector index already exists, skipping")
	} else {
		s.logger.Info("Vector index applied", zap.String("index", "task_embedding_idx"))
	}

	return nil
}

func isAlreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "already have")
}
