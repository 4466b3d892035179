package triage

import (
	"context"

	"cozy-triage/backend/internal/graph"
)

// GraphStore is the slice of the graph store the triage pipeline and the
// suggestion applier depend on. *graph.Store satisfies it; tests swap in an
// in-memory fake.
type GraphStore interface {
	ListProjects(ctx context.Context, userID string) ([]graph.Project, error)
	ListAreas(ctx context.Context, userID string) ([]graph.Area, error)
	ListTasks(ctx context.Context, userID, status string) ([]graph.Task, error)

	CreateTriageSession(ctx context.Context, userID string, sess graph.TriageSession) (string, error)
	CreateSuggestion(ctx context.Context, userID, sessionID string, sug graph.Suggestion) (string, error)
	GetSuggestionsForSession(ctx context.Context, userID, sessionID string) ([]graph.Suggestion, error)
	SetSuggestionAccepted(ctx context.Context, userID, suggestionID string, accepted bool) (bool, error)

	CreateTask(ctx context.Context, userID string, task graph.Task) (string, error)
	FindOrCreateProject(ctx context.Context, userID, name, outcome string) (*graph.Project, error)
	FindOrCreateArea(ctx context.Context, userID, name string) (*graph.Area, error)
	LinkTaskToProject(ctx context.Context, taskID, projectID string) error
	LinkTaskToArea(ctx context.Context, taskID, areaID string) error
	MarkDuplicateOf(ctx context.Context, taskID, originalTaskID string) error

	SimilarTasks(ctx context.Context, userID string, vector []float64, k int) ([]graph.SimilarTask, error)
}

// Embedder converts text to fixed-dimension vectors
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
	Model() string
}

// TriageLLM decomposes brain-dump text into validated candidate items
type TriageLLM interface {
	Triage(ctx context.Context, text string, tctx Context) ([]CandidateItem, error)
	Model() string
}

// Context is the lightweight owner context sent along with the brain dump.
// Each list is bounded to contextEntryCap entries.
type Context struct {
	RecentProjects    []string `json:"recent_projects"`
	ActiveAreas       []string `json:"active_areas"`
	RecentNextActions []string `json:"recent_decisions"`
}

// IsEmpty reports whether no context was gathered
func (c Context) IsEmpty() bool {
	return len(c.RecentProjects) == 0 && len(c.ActiveAreas) == 0 && len(c.RecentNextActions) == 0
}
