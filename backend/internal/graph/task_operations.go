package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	pkgerrors "cozy-triage/backend/pkg/errors"
)

// CreateTask creates a Task node and its OWNS edge in a single statement, so
// no task can exist unlinked from its owner. Fails when the owner does not
// exist.
func (s *Store) CreateTask(ctx context.Context, userID string, task Task) (string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	now := formatTime(time.Now())
	params := map[string]interface{}{
		"userID":         userID,
		"id":             task.ID,
		"title":          task.Title,
		"description":    task.Description,
		"status":         task.Status,
		"priority":       task.Priority,
		"urgency":        task.Urgency,
		"effort":         task.Effort,
		"nextAction":     task.NextAction,
		"embeddingModel": task.EmbeddingModel,
		"createdAt":      now,
		"updatedAt":      now,
	}

	var dueDate interface{}
	if task.DueDate != nil {
		dueDate = formatTime(*task.DueDate)
	}
	params["dueDate"] = dueDate

	var energy interface{}
	if task.EnergySignal != "" {
		energy = task.EnergySignal
	}
	params["energySignal"] = energy

	var embedding interface{}
	if task.Embedding != nil {
		embedding = task.Embedding
	}
	params["embedding"] = embedding

	query := `
		MATCH (u:User {id: $userID})
		CREATE (u)-[:OWNS]->(t:Task {
			id: $id,
			title: $title,
			description: $description,
			status: $status,
			priority: $priority,
			urgency: $urgency,
			effort: $effort,
			next_action: $nextAction,
			due_date: $dueDate,
			energy_signal: $energySignal,
			embedding: $embedding,
			embedding_model: $embeddingModel,
			created_at: $createdAt,
			updated_at: $updatedAt
		})
		RETURN t.id AS id
	`

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return "", pkgerrors.NewUpstreamStoreError("create task", err)
	}
	if _, err := result.Single(ctx); err != nil {
		// Zero records means the owner MATCH found nothing
		return "", pkgerrors.NewUpstreamStoreError("create task", fmt.Errorf("owner %s not found: %w", userID, err))
	}

	s.logger.Debug("Task created",
		zap.String("user_id", userID),
		zap.String("task_id", task.ID),
	)
	return task.ID, nil
}

// GetTask fetches one task through the ownership edge
func (s *Store) GetTask(ctx context.Context, userID, taskID string) (*Task, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (u:User {id: $userID})-[:OWNS]->(t:Task {id: $taskID})
		RETURN t
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID": userID,
		"taskID": taskID,
	})
	if err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("get task", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, pkgerrors.NewUpstreamStoreError("get task", err)
		}
		return nil, ErrNotFound{Label: "Task", ID: taskID}
	}

	node, ok := nodeFromRecord(result.Record(), "t")
	if !ok {
		return nil, ErrNotFound{Label: "Task", ID: taskID}
	}

	task := taskFromNode(node)
	return &task, nil
}

// ListTasks lists the owner's tasks, newest first. Pass an empty status to
// list all of them.
func (s *Store) ListTasks(ctx context.Context, userID, status string) ([]Task, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (u:User {id: $userID})-[:OWNS]->(t:Task)
		WHERE $status = '' OR t.status = $status
		RETURN t
		ORDER BY t.created_at DESC
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID": userID,
		"status": status,
	})
	if err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("list tasks", err)
	}

	var tasks []Task
	for result.Next(ctx) {
		if node, ok := nodeFromRecord(result.Record(), "t"); ok {
			tasks = append(tasks, taskFromNode(node))
		}
	}
	if err := result.Err(); err != nil {
		return nil, pkgerrors.NewUpstreamStoreError("list tasks", err)
	}
	return tasks, nil
}

// UpdateFields applies a field map to one owned node and stamps updated_at.
// Field names are the caller's responsibility; the closed enums are enforced
// by upstream validators, not here. Returns false when the owner does not
// hold a node with that id.
func (s *Store) UpdateFields(ctx context.Context, userID, label, id string, fields map[string]interface{}) (bool, error) {
	if !validLabel[label] {
		return false, pkgerrors.NewUpstreamStoreError("update fields", fmt.Errorf("unknown label %q", label))
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	// Labels cannot be parameterized in Cypher; label is checked against the
	// closed set above before interpolation.
	query := fmt.Sprintf(`
		MATCH (u:User {id: $userID})-[:OWNS]->(n:%s {id: $id})
		SET n += $fields, n.updated_at = $updatedAt
		RETURN n.id AS id
	`, label)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID":    userID,
		"id":        id,
		"fields":    fields,
		"updatedAt": formatTime(time.Now()),
	})
	if err != nil {
		return false, pkgerrors.NewUpstreamStoreError("update fields", err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return false, pkgerrors.NewUpstreamStoreError("update fields", err)
	}
	return len(records) > 0, nil
}

// UpdateTask updates fields on one owned task
func (s *Store) UpdateTask(ctx context.Context, userID, taskID string, fields map[string]interface{}) (bool, error) {
	return s.UpdateFields(ctx, userID, "Task", taskID, fields)
}

var validLabel = map[string]bool{
	"Task":          true,
	"Project":       true,
	"Area":          true,
	"TriageSession": true,
	"Suggestion":    true,
}

func taskFromNode(node neo4j.Node) Task {
	return Task{
		ID:             propString(node.Props, "id", ""),
		Title:          propString(node.Props, "title", ""),
		Description:    propString(node.Props, "description", ""),
		Status:         propString(node.Props, "status", ""),
		Priority:       propInt(node.Props, "priority", 0),
		Urgency:        propInt(node.Props, "urgency", 0),
		Effort:         propString(node.Props, "effort", ""),
		NextAction:     propString(node.Props, "next_action", ""),
		DueDate:        propTimePtr(node.Props, "due_date"),
		EnergySignal:   propString(node.Props, "energy_signal", ""),
		Embedding:      propFloat64Slice(node.Props, "embedding"),
		EmbeddingModel: propString(node.Props, "embedding_model", ""),
		CreatedAt:      propTime(node.Props, "created_at"),
		UpdatedAt:      propTime(node.Props, "updated_at"),
	}
}
