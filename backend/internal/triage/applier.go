package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cozy-triage/backend/internal/graph"
	"cozy-triage/backend/pkg/logger"
)

// Decision actions
const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

// Decision is one owner verdict on a stored suggestion. EditedFields
// override the suggestion payload field-by-field on accept.
type Decision struct {
	ID           string                 `json:"id"`
	Action       string                 `json:"action"`
	EditedFields map[string]interface{} `json:"edited_fields,omitempty"`
}

// Applier consumes owner decisions against previously stored suggestions
// and materializes accepted ones into the graph.
type Applier struct {
	store    GraphStore
	embedder Embedder
	cache    *ContextCache // nil disables cache invalidation
	logger   *zap.Logger
}

// NewApplier wires the applier. cache may be nil.
func NewApplier(store GraphStore, embedder Embedder, cache *ContextCache) *Applier {
	return &Applier{
		store:    store,
		embedder: embedder,
		cache:    cache,
		logger:   logger.Get(),
	}
}

// Apply processes decisions in sequence. Decisions referencing unknown
// suggestion ids are skipped. There is no cross-decision atomicity: a
// failure materializing one accepted decision halts processing and does not
// roll back acceptance flags already written. Re-writing an acceptance flag
// is idempotent, but re-accepting an already-materialized decision creates a
// second task, so callers must not resubmit applied decision sets.
func (a *Applier) Apply(ctx context.Context, userID, sessionID string, decisions []Decision) error {
	suggestions, err := a.store.GetSuggestionsForSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	byID := make(map[string]graph.Suggestion, len(suggestions))
	for _, sug := range suggestions {
		byID[sug.ID] = sug
	}

	for _, decision := range decisions {
		sug, ok := byID[decision.ID]
		if !ok {
			a.logger.Warn("Decision references unknown suggestion, skipping",
				zap.String("session_id", sessionID),
				zap.String("suggestion_id", decision.ID),
			)
			continue
		}

		switch decision.Action {
		case ActionReject:
			if _, err := a.store.SetSuggestionAccepted(ctx, userID, sug.ID, false); err != nil {
				return err
			}
		case ActionAccept:
			if _, err := a.store.SetSuggestionAccepted(ctx, userID, sug.ID, true); err != nil {
				return err
			}
			if err := a.materialize(ctx, userID, sug, decision.EditedFields); err != nil {
				return err
			}
		default:
			a.logger.Warn("Unknown decision action, skipping",
				zap.String("suggestion_id", decision.ID),
				zap.String("action", decision.Action),
			)
		}
	}

	if a.cache != nil {
		a.cache.Invalidate(ctx, userID)
	}
	return nil
}

// materialize turns one accepted suggestion into a Task plus its project and
// area links. Edited values win field-by-field over the stored payload;
// missing fields fall back to safe defaults.
func (a *Applier) materialize(ctx context.Context, userID string, sug graph.Suggestion, edited map[string]interface{}) error {
	merged := map[string]interface{}{}
	if sug.PayloadJSON != "" {
		if err := json.Unmarshal([]byte(sug.PayloadJSON), &merged); err != nil {
			return fmt.Errorf("decode suggestion payload %s: %w", sug.ID, err)
		}
	}
	for field, value := range edited {
		merged[field] = value
	}

	title := truncate(stringValue(merged["action_title"]), maxTitleLen)
	if title == "" {
		title = "Untitled task"
	}

	status := stringValue(merged["status"])
	if !graph.ValidTaskStatuses[status] {
		status = graph.StatusInbox
	}
	effort := stringValue(merged["effort"])
	if !graph.ValidEfforts[effort] {
		effort = graph.EffortM
	}
	energy := stringValue(merged["energy_signal"])
	if !graph.ValidEnergySignals[energy] {
		energy = ""
	}

	// Fresh embedding from the final, possibly edited title
	vector, err := a.embedder.EmbedQuery(ctx, title)
	if err != nil {
		return err
	}

	task := graph.Task{
		ID:             uuid.NewString(),
		Title:          title,
		Description:    truncate(stringValue(merged["description"]), maxDescriptionLen),
		Status:         status,
		Priority:       clamp(intValue(merged["priority"], 3), 1, 5),
		Urgency:        clamp(intValue(merged["urgency"], 3), 1, 5),
		Effort:         effort,
		NextAction:     truncate(stringValue(merged["next_action"]), maxNextActionLen),
		DueDate:        parseDueDate(merged["due_date"]),
		EnergySignal:   energy,
		Embedding:      vector,
		EmbeddingModel: a.embedder.Model(),
	}

	taskID, err := a.store.CreateTask(ctx, userID, task)
	if err != nil {
		return err
	}

	for _, name := range nameList(merged["project_suggestions"]) {
		project, err := a.store.FindOrCreateProject(ctx, userID, name, "")
		if err != nil {
			return err
		}
		if err := a.store.LinkTaskToProject(ctx, taskID, project.ID); err != nil {
			return err
		}
	}
	for _, name := range nameList(merged["area_suggestions"]) {
		area, err := a.store.FindOrCreateArea(ctx, userID, name)
		if err != nil {
			return err
		}
		if err := a.store.LinkTaskToArea(ctx, taskID, area.ID); err != nil {
			return err
		}
	}

	// The owner can confirm one of the flagged duplicate matches in their
	// decision; the new task then points at the surviving original.
	if originalID := stringValue(merged["duplicate_of_task_id"]); originalID != "" {
		if err := a.store.MarkDuplicateOf(ctx, taskID, originalID); err != nil {
			return err
		}
	}

	a.logger.Info("Suggestion materialized",
		zap.String("user_id", userID),
		zap.String("suggestion_id", sug.ID),
		zap.String("task_id", taskID),
	)
	return nil
}

func parseDueDate(v interface{}) *time.Time {
	str, ok := v.(string)
	if !ok || str == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, str); err == nil {
			return &t
		}
	}
	return nil
}
