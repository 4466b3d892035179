package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	pkgerrors "cozy-triage/backend/pkg/errors"
)

// Relationship types between owned nodes
const (
	EdgePartOf      = "PART_OF"
	EdgeInArea      = "IN_AREA"
	EdgeDuplicateOf = "DUPLICATE_OF"
)

var validEdge = map[string]bool{
	EdgePartOf:      true,
	EdgeInArea:      true,
	EdgeDuplicateOf: true,
}

// FindOrCreateProject returns the owner's project with the given name,
// creating it when absent. Names match case-insensitively: the MERGE keys on
// a case-folded name_key property, which makes concurrent calls for the same
// (owner, name) resolve to one node without client-side locking. The display
// case of the first caller wins.
func (s *Store) FindOrCreateProject(ctx context.Context, userID, name, outcome string) (*Project, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MATCH (u:User {id: $userID})
		MERGE (u)-[:OWNS]->(p:Project {name_key: $nameKey})
		ON CREATE SET p.id = $id,
		              p.name = $name,
		              p.outcome = $outcome,
		              p.status = $status,
		              p.created_at = $createdAt
		RETURN p
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID":    userID,
		"nameKey":   foldName(name),
		"id":        uuid.NewString(),
		"name":      strings.TrimSpace(name),
		"outcome":   outcome,
		"status":    ProjectActive,
		"createdAt": formatTime(time.Now()),
	})
	if err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("find or create project", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("find or create project", fmt.Errorf("owner %s not found: %w", userID, err))
	}

	node, ok := nodeFromRecord(record, "p")
	if !ok {
		return nil, pkgerrors.NewUpstreamStoreError("find or create project", fmt.Errorf("unexpected record shape"))
	}

	project := projectFromNode(node)
	s.logger.Debug("Project resolved",
		zap.String("user_id", userID),
		zap.String("project_id", project.ID),
		zap.String("name", project.Name),
	)
	return &project, nil
}

// FindOrCreateArea returns the owner's area with the given name, creating it
// when absent. Same case-folded MERGE semantics as FindOrCreateProject.
func (s *Store) FindOrCreateArea(ctx context.Context, userID, name string) (*Area, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MATCH (u:User {id: $userID})
		MERGE (u)-[:OWNS]->(a:Area {name_key: $nameKey})
		ON CREATE SET a.id = $id,
		              a.name = $name,
		              a.created_at = $createdAt
		RETURN a
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID":    userID,
		"nameKey":   foldName(name),
		"id":        uuid.NewString(),
		"name":      strings.TrimSpace(name),
		"createdAt": formatTime(time.Now()),
	})
	if err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("find or create area", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("find or create area", fmt.Errorf("owner %s not found: %w", userID, err))
	}

	node, ok := nodeFromRecord(record, "a")
	if !ok {
		return nil, pkgerrors.NewUpstreamStoreError("find or create area", fmt.Errorf("unexpected record shape"))
	}

	area := areaFromNode(node)
	return &area, nil
}

// ListProjects lists the owner's projects, newest first
func (s *Store) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (u:User {id: $userID})-[:OWNS]->(p:Project)
		RETURN p
		ORDER BY p.created_at DESC
	`

	result, err := session.Run(ctx, query, map[string]interface{}{"userID": userID})
	if err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("list projects", err)
	}

	var projects []Project
	for result.Next(ctx) {
		if node, ok := nodeFromRecord(result.Record(), "p"); ok {
			projects = append(projects, projectFromNode(node))
		}
	}
	if err := result.Err(); err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("list projects", err)
	}
	return projects, nil
}

// ListAreas lists the owner's areas, newest first
func (s *Store) ListAreas(ctx context.Context, userID string) ([]Area, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (u:User {id: $userID})-[:OWNS]->(a:Area)
		RETURN a
		ORDER BY a.created_at DESC
	`

	result, err := session.Run(ctx, query, map[string]interface{}{"userID": userID})
	if err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("list areas", err)
	}

	var areas []Area
	for result.Next(ctx) {
		if node, ok := nodeFromRecord(result.Record(), "a"); ok {
			areas = append(areas, areaFromNode(node))
		}
	}
	if err := result.Err(); err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("list areas", err)
	}
	return areas, nil
}

// Link creates one edge of the given type between two nodes. MERGE makes it
// idempotent: repeated calls with the same pair leave exactly one edge.
func (s *Store) Link(ctx context.Context, edgeType, fromID, toID string) error {
	if !validEdge[edgeType] {
		return pkgerrors.NewUpstreamStoreError("link", fmt.Errorf("unknown edge type %q", edgeType))
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	// Relationship types cannot be parameterized; edgeType is checked
	// against the closed set above before interpolation.
	query := fmt.Sprintf(`
		MATCH (from {id: $fromID})
		MATCH (to {id: $toID})
		MERGE (from)-[:%s]->(to)
	`, edgeType)

	if _, err := session.Run(ctx, query, map[string]interface{}{
		"fromID": fromID,
		"toID":   toID,
	}); err != nil {
		return pkgerrors.NewUpstreamStoreError("link "+edgeType, err)
	}
	return nil
}

// LinkTaskToProject records that a task is PART_OF a project
func (s *Store) LinkTaskToProject(ctx context.Context, taskID, projectID string) error {
	return s.Link(ctx, EdgePartOf, taskID, projectID)
}

// LinkTaskToArea records that a task is IN_AREA of an area
func (s *Store) LinkTaskToArea(ctx context.Context, taskID, areaID string) error {
	return s.Link(ctx, EdgeInArea, taskID, areaID)
}

// MarkDuplicateOf records that one task duplicates another
func (s *Store) MarkDuplicateOf(ctx context.Context, taskID, originalTaskID string) error {
	return s.Link(ctx, EdgeDuplicateOf, taskID, originalTaskID)
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func projectFromNode(node neo4j.Node) Project {
	return Project{
		ID:        propString(node.Props, "id", ""),
		Name:      propString(node.Props, "name", ""),
		Outcome:   propString(node.Props, "outcome", ""),
		Status:    propString(node.Props, "status", ProjectActive),
		CreatedAt: propTime(node.Props, "created_at"),
	}
}

func areaFromNode(node neo4j.Node) Area {
	return Area{
		ID:        propString(node.Props, "id", ""),
		Name:      propString(node.Props, "name", ""),
		CreatedAt: propTime(node.Props, "created_at"),
	}
}
