package graph

import "time"

// ============================================================================
// Node Types
// ============================================================================

// Task statuses (stored as strings in Memgraph)
const (
	StatusInbox      = "INBOX"
	StatusNext       = "NEXT"
	StatusInProgress = "IN_PROGRESS"
	StatusWaiting    = "WAITING"
	StatusSomeday    = "SOMEDAY"
	StatusDone       = "DONE"
	StatusArchived   = "ARCHIVED"
)

// Task effort sizes
const (
	EffortXS = "XS"
	EffortS  = "S"
	EffortM  = "M"
	EffortL  = "L"
	EffortXL = "XL"
)

// Energy signals describe how a task feels to perform
const (
	EnergyJoy     = "JOY"
	EnergyNeutral = "NEUTRAL"
	EnergyDrain   = "DRAIN"
)

// Project statuses
const (
	ProjectActive   = "ACTIVE"
	ProjectDone     = "DONE"
	ProjectSomeday  = "SOMEDAY"
	ProjectArchived = "ARCHIVED"
)

// ValidTaskStatuses is the closed set of task statuses
var ValidTaskStatuses = map[string]bool{
	StatusInbox:      true,
	StatusNext:       true,
	StatusInProgress: true,
	StatusWaiting:    true,
	StatusSomeday:    true,
	StatusDone:       true,
	StatusArchived:   true,
}

// ValidEfforts is the closed set of task effort sizes
var ValidEfforts = map[string]bool{
	EffortXS: true,
	EffortS:  true,
	EffortM:  true,
	EffortL:  true,
	EffortXL: true,
}

// ValidEnergySignals is the closed set of energy signals
var ValidEnergySignals = map[string]bool{
	EnergyJoy:     true,
	EnergyNeutral: true,
	EnergyDrain:   true,
}

// EmbeddingDim is the fixed dimensionality of task embedding vectors,
// matching the task_embedding_idx vector index.
const EmbeddingDim = 1024

// User is the owner root; every other node hangs off it via OWNS
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Task represents a single actionable item
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         string     `json:"status"`
	Priority       int        `json:"priority"` // 1-5
	Urgency        int        `json:"urgency"`  // 1-5
	Effort         string     `json:"effort"`
	NextAction     string     `json:"next_action,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	EnergySignal   string     `json:"energy_signal,omitempty"`
	Embedding      []float64  `json:"-"`
	EmbeddingModel string     `json:"embedding_model,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Project groups tasks toward a concrete outcome
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Outcome   string    `json:"outcome,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Area is an ongoing sphere of responsibility
type Area struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TriageSession records one brain-dump triage invocation; immutable after
// creation.
type TriageSession struct {
	ID            string    `json:"id"`
	InputText     string    `json:"input_text"`
	Model         string    `json:"model"`
	PromptVersion string    `json:"prompt_version"`
	CreatedAt     time.Time `json:"created_at"`
}

// Suggestion is the persisted, reviewable record of one candidate item.
// Accepted is nil until the owner decides.
type Suggestion struct {
	ID             string    `json:"id"`
	SuggestionType string    `json:"suggestion_type"`
	PayloadJSON    string    `json:"payload_json"`
	Accepted       *bool     `json:"accepted"`
	CreatedAt      time.Time `json:"created_at"`
}

// SimilarTask is one vector-search hit, scoped to the requesting owner
type SimilarTask struct {
	Task  Task    `json:"task"`
	Score float64 `json:"score"`
}
