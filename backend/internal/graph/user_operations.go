package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	pkgerrors "cozy-triage/backend/pkg/errors"
)

// CreateUser creates the owner root node. Idempotent: re-creating an
// existing id refreshes the email but keeps the creation time.
func (s *Store) CreateUser(ctx context.Context, user User) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MERGE (u:User {id: $id})
		ON CREATE SET u.created_at = $createdAt
		SET u.email = $email
		RETURN u.id AS id
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"id":        user.ID,
		"email":     user.Email,
		"createdAt": formatTime(user.CreatedAt),
	})
	if err != nil {
		return pkgerrors.NewUpstreamStoreError("create user", err)
	}
	if _, err := result.Single(ctx); err != nil {
		return pkgerrors.NewUpstreamStoreError("create user", err)
	}

	s.logger.Info("User node created", zap.String("user_id", user.ID))
	return nil
}

// GetUser fetches the owner root node by id
func (s *Store) GetUser(ctx context.Context, userID string) (*User, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `MATCH (u:User {id: $id}) RETURN u`, map[string]interface{}{
		"id": userID,
	})
	if err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("get user", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, pkgerrors.NewUpstreamStoreError("get user", err)
		}
		return nil, ErrNotFound{Label: "User", ID: userID}
	}

	node, ok := nodeFromRecord(result.Record(), "u")
	if !ok {
		return nil, ErrNotFound{Label: "User", ID: userID}
	}

	return &User{
		ID:        propString(node.Props, "id", userID),
		Email:     propString(node.Props, "email", ""),
		CreatedAt: propTime(node.Props, "created_at"),
	}, nil
}
