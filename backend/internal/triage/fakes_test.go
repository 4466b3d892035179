package triage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"cozy-triage/backend/internal/graph"
)

// fakeStore is an in-memory GraphStore keyed by owner, so ownership scoping
// behaves like the real store's OWNS filter.
type fakeStore struct {
	mu          sync.Mutex
	projects    map[string][]graph.Project
	areas       map[string][]graph.Area
	tasks       map[string][]graph.Task
	sessions    map[string][]graph.TriageSession
	suggestions map[string]map[string][]graph.Suggestion // userID -> sessionID
	links       map[string]int
	similar     []graph.SimilarTask

	listProjectsErr      error
	createSuggestionErr  error
	failSuggestionOnCall int // 1-based; 0 disables
	suggestionCalls      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:    map[string][]graph.Project{},
		areas:       map[string][]graph.Area{},
		tasks:       map[string][]graph.Task{},
		sessions:    map[string][]graph.TriageSession{},
		suggestions: map[string]map[string][]graph.Suggestion{},
		links:       map[string]int{},
	}
}

func (f *fakeStore) ListProjects(_ context.Context, userID string) ([]graph.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listProjectsErr != nil {
		return nil, f.listProjectsErr
	}
	return f.projects[userID], nil
}

func (f *fakeStore) ListAreas(_ context.Context, userID string) ([]graph.Area, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.areas[userID], nil
}

func (f *fakeStore) ListTasks(_ context.Context, userID, status string) ([]graph.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []graph.Task
	for _, task := range f.tasks[userID] {
		if status == "" || task.Status == status {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateTriageSession(_ context.Context, userID string, sess graph.TriageSession) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[userID] = append(f.sessions[userID], sess)
	return sess.ID, nil
}

func (f *fakeStore) CreateSuggestion(_ context.Context, userID, sessionID string, sug graph.Suggestion) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suggestionCalls++
	if f.createSuggestionErr != nil && (f.failSuggestionOnCall == 0 || f.suggestionCalls == f.failSuggestionOnCall) {
		return "", f.createSuggestionErr
	}
	if f.suggestions[userID] == nil {
		f.suggestions[userID] = map[string][]graph.Suggestion{}
	}
	f.suggestions[userID][sessionID] = append(f.suggestions[userID][sessionID], sug)
	return sug.ID, nil
}

func (f *fakeStore) GetSuggestionsForSession(_ context.Context, userID, sessionID string) ([]graph.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suggestions[userID][sessionID], nil
}

func (f *fakeStore) SetSuggestionAccepted(_ context.Context, userID, suggestionID string, accepted bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, bySession := range f.suggestions[userID] {
		for i := range bySession {
			if bySession[i].ID == suggestionID {
				flag := accepted
				bySession[i].Accepted = &flag
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeStore) CreateTask(_ context.Context, userID string, task graph.Task) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[userID] = append(f.tasks[userID], task)
	return task.ID, nil
}

func (f *fakeStore) FindOrCreateProject(_ context.Context, userID, name, outcome string) (*graph.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.projects[userID] {
		if strings.EqualFold(f.projects[userID][i].Name, strings.TrimSpace(name)) {
			return &f.projects[userID][i], nil
		}
	}
	project := graph.Project{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(name),
		Outcome: outcome,
		Status:  graph.ProjectActive,
	}
	f.projects[userID] = append(f.projects[userID], project)
	return &project, nil
}

func (f *fakeStore) FindOrCreateArea(_ context.Context, userID, name string) (*graph.Area, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.areas[userID] {
		if strings.EqualFold(f.areas[userID][i].Name, strings.TrimSpace(name)) {
			return &f.areas[userID][i], nil
		}
	}
	area := graph.Area{ID: uuid.NewString(), Name: strings.TrimSpace(name)}
	f.areas[userID] = append(f.areas[userID], area)
	return &area, nil
}

func (f *fakeStore) LinkTaskToProject(_ context.Context, taskID, projectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[graph.EdgePartOf+"|"+taskID+"|"+projectID] = 1
	return nil
}

func (f *fakeStore) LinkTaskToArea(_ context.Context, taskID, areaID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[graph.EdgeInArea+"|"+taskID+"|"+areaID] = 1
	return nil
}

func (f *fakeStore) MarkDuplicateOf(_ context.Context, taskID, originalTaskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[graph.EdgeDuplicateOf+"|"+taskID+"|"+originalTaskID] = 1
	return nil
}

func (f *fakeStore) SimilarTasks(_ context.Context, userID string, vector []float64, k int) ([]graph.SimilarTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.similar) > k {
		return f.similar[:k], nil
	}
	return f.similar, nil
}

func (f *fakeStore) suggestionsFor(userID, sessionID string) []graph.Suggestion {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suggestions[userID][sessionID]
}

// fakeEmbedder returns a constant 1024-dim vector and records inputs
type fakeEmbedder struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.texts = append(f.texts, text)
	vector := make([]float64, 1024)
	for i := range vector {
		vector[i] = 0.1
	}
	return vector, nil
}

func (f *fakeEmbedder) Model() string { return "voyage-3" }

// fakeLLM returns scripted candidate items and records the context it saw
type fakeLLM struct {
	items   []CandidateItem
	err     error
	lastCtx Context
	calls   int
}

func (f *fakeLLM) Triage(_ context.Context, text string, tctx Context) ([]CandidateItem, error) {
	f.calls++
	f.lastCtx = tctx
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *fakeLLM) Model() string { return "test-model" }

// fakeChatAPI scripts chat completion responses for LLMClient tests
type fakeChatAPI struct {
	responses []string
	err       error
	calls     int
}

func (f *fakeChatAPI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	if idx < 0 {
		return openai.ChatCompletionResponse{}, fmt.Errorf("no scripted response")
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.responses[idx]}},
		},
	}, nil
}

func candidate(title string) CandidateItem {
	return CandidateItem{
		ActionTitle: title,
		Description: "test",
		Status:      graph.StatusInbox,
		Priority:    3,
		Urgency:     3,
		Effort:      graph.EffortM,
	}
}
