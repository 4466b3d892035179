package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	pkgerrors "cozy-triage/backend/pkg/errors"
)

// CreateTriageSession persists one immutable triage invocation record,
// created together with its OWNS edge. Fails when the owner does not exist.
func (s *Store) CreateTriageSession(ctx context.Context, userID string, sess TriageSession) (string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MATCH (u:User {id: $userID})
		CREATE (u)-[:OWNS]->(ts:TriageSession {
			id: $id,
			input_text: $inputText,
			model: $model,
			prompt_version: $promptVersion,
			created_at: $createdAt
		})
		RETURN ts.id AS id
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID":        userID,
		"id":            sess.ID,
		"inputText":     sess.InputText,
		"model":         sess.Model,
		"promptVersion": sess.PromptVersion,
		"createdAt":     formatTime(sess.CreatedAt),
	})
	if err != nil {
		return "", pkgerrors.NewUpstreamStoreError("create triage session", err)
	}
	if _, err := result.Single(ctx); err != nil {
		return "", pkgerrors.NewUpstreamStoreError("create triage session", fmt.Errorf("owner %s not found: %w", userID, err))
	}

	s.logger.Info("Triage session created",
		zap.String("user_id", userID),
		zap.String("session_id", sess.ID),
	)
	return sess.ID, nil
}

// GetTriageSession fetches one session through the ownership edge
func (s *Store) GetTriageSession(ctx context.Context, userID, sessionID string) (*TriageSession, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (u:User {id: $userID})-[:OWNS]->(ts:TriageSession {id: $sessionID})
		RETURN ts
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID":    userID,
		"sessionID": sessionID,
	})
	if err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("get triage session", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, pkgerrors.NewUpstreamStoreError("get triage session", err)
		}
		return nil, ErrNotFound{Label: "TriageSession", ID: sessionID}
	}

	node, ok := nodeFromRecord(result.Record(), "ts")
	if !ok {
		return nil, ErrNotFound{Label: "TriageSession", ID: sessionID}
	}

	return &TriageSession{
		ID:            propString(node.Props, "id", ""),
		InputText:     propString(node.Props, "input_text", ""),
		Model:         propString(node.Props, "model", ""),
		PromptVersion: propString(node.Props, "prompt_version", ""),
		CreatedAt:     propTime(node.Props, "created_at"),
	}, nil
}

// CreateSuggestion persists one suggestion, owned by the user and linked to
// its producing session, all in a single statement. The accepted_bool
// property is absent until the owner decides.
func (s *Store) CreateSuggestion(ctx context.Context, userID, sessionID string, sug Suggestion) (string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MATCH (u:User {id: $userID})-[:OWNS]->(ts:TriageSession {id: $sessionID})
		CREATE (u)-[:OWNS]->(sg:Suggestion {
			id: $id,
			suggestion_type: $suggestionType,
			payload_json: $payloadJSON,
			created_at: $createdAt
		})
		CREATE (ts)-[:PRODUCED]->(sg)
		RETURN sg.id AS id
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID":         userID,
		"sessionID":      sessionID,
		"id":             sug.ID,
		"suggestionType": sug.SuggestionType,
		"payloadJSON":    sug.PayloadJSON,
		"createdAt":      formatTime(sug.CreatedAt),
	})
	if err != nil {
		return "", pkgerrors.NewUpstreamStoreError("create suggestion", err)
	}
	if _, err := result.Single(ctx); err != nil {
		return "", pkgerrors.NewUpstreamStoreError("create suggestion", fmt.Errorf("session %s not found for owner %s: %w", sessionID, userID, err))
	}
	return sug.ID, nil
}

// GetSuggestionsForSession lists a session's suggestions in creation order
func (s *Store) GetSuggestionsForSession(ctx context.Context, userID, sessionID string) ([]Suggestion, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (u:User {id: $userID})-[:OWNS]->(ts:TriageSession {id: $sessionID})-[:PRODUCED]->(sg:Suggestion)
		RETURN sg
		ORDER BY sg.created_at ASC
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID":    userID,
		"sessionID": sessionID,
	})
	if err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("get suggestions", err)
	}

	var suggestions []Suggestion
	for result.Next(ctx) {
		if node, ok := nodeFromRecord(result.Record(), "sg"); ok {
			suggestions = append(suggestions, suggestionFromNode(node))
		}
	}
	if err := result.Err(); err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("get suggestions", err)
	}
	return suggestions, nil
}

// SetSuggestionAccepted records the owner's decision on one suggestion.
// Idempotent: writing the same flag again is safe.
func (s *Store) SetSuggestionAccepted(ctx context.Context, userID, suggestionID string, accepted bool) (bool, error) {
	return s.UpdateFields(ctx, userID, "Suggestion", suggestionID, map[string]interface{}{
		"accepted_bool": accepted,
	})
}

func suggestionFromNode(node neo4j.Node) Suggestion {
	return Suggestion{
		ID:             propString(node.Props, "id", ""),
		SuggestionType: propString(node.Props, "suggestion_type", ""),
		PayloadJSON:    propString(node.Props, "payload_json", ""),
		Accepted:       propBoolPtr(node.Props, "accepted_bool"),
		CreatedAt:      propTime(node.Props, "created_at"),
	}
}
