package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cozy-triage/backend/internal/graph"
	pkgerrors "cozy-triage/backend/pkg/errors"
	"cozy-triage/backend/pkg/logger"
)

// DedupThreshold is the minimum cosine similarity above which an existing
// task is surfaced as a possible duplicate
const DedupThreshold = 0.85

// dedupSearchK is how many owned candidates the duplicate search asks for
const dedupSearchK = 5

// SuggestionTypeTriageItem tags suggestions produced from brain-dump triage
const SuggestionTypeTriageItem = "triage_item"

// Result is the outcome of one triage run. SessionID is always set once a
// session is persisted, so failures stay traceable; Err carries a captured
// pipeline failure instead of hiding it.
type Result struct {
	SessionID   string             `json:"session_id"`
	Suggestions []graph.Suggestion `json:"suggestions"`
	Err         error              `json:"-"`
}

// ErrorMessage returns the captured failure as a string for serialization
func (r *Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Pipeline orchestrates one triage run: persist a session, gather owner
// context, call the LLM, deduplicate each candidate, persist suggestions.
// Each run is a single sequential flow of blocking calls; cancellation is
// honored between candidate items.
type Pipeline struct {
	store    GraphStore
	llm      TriageLLM
	embedder Embedder
	cache    *ContextCache // nil disables caching
	logger   *zap.Logger
}

// NewPipeline wires the pipeline. cache may be nil.
func NewPipeline(store GraphStore, llm TriageLLM, embedder Embedder, cache *ContextCache) *Pipeline {
	return &Pipeline{
		store:    store,
		llm:      llm,
		embedder: embedder,
		cache:    cache,
		logger:   logger.Get(),
	}
}

// RunTriage runs the full pipeline for one brain dump.
//
// Empty input fails before anything is persisted. Once the session record
// exists, failures are captured in Result.Err rather than returned, so the
// caller always receives the session id: an LLM failure yields an empty
// suggestion list, and a failure while processing one candidate aborts the
// remaining candidates of that run.
func (p *Pipeline) RunTriage(ctx context.Context, userID, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, pkgerrors.ErrEmptyInput
	}

	sess := graph.TriageSession{
		ID:            uuid.NewString(),
		InputText:     text,
		Model:         p.llm.Model(),
		PromptVersion: PromptVersion,
		CreatedAt:     time.Now(),
	}
	if _, err := p.store.CreateTriageSession(ctx, userID, sess); err != nil {
		return nil, err
	}

	result := &Result{SessionID: sess.ID, Suggestions: []graph.Suggestion{}}

	tctx := p.gatherContext(ctx, userID)

	items, err := p.llm.Triage(ctx, text, tctx)
	if err != nil {
		p.logger.Error("Triage LLM call failed",
			zap.String("user_id", userID),
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		result.Err = err
		return result, nil
	}

	for i, item := range items {
		// Cooperative cancellation between candidate items
		select {
		case <-ctx.Done():
			result.Err = ctx.Err()
			return result, nil
		default:
		}

		sug, err := p.processItem(ctx, userID, sess.ID, item)
		if err != nil {
			p.logger.Error("Candidate item processing failed, aborting remaining items",
				zap.String("session_id", sess.ID),
				zap.Int("item", i),
				zap.Error(err),
			)
			result.Err = err
			return result, nil
		}
		result.Suggestions = append(result.Suggestions, *sug)
	}

	p.logger.Info("Triage run complete",
		zap.String("user_id", userID),
		zap.String("session_id", sess.ID),
		zap.Int("suggestions", len(result.Suggestions)),
	)
	return result, nil
}

// gatherContext collects the owner's recent projects, areas, and next
// actions. Any failure degrades to empty context rather than aborting the
// run; the error is logged and deliberately discarded.
func (p *Pipeline) gatherContext(ctx context.Context, userID string) Context {
	if p.cache != nil {
		tctx, err := p.cache.Get(ctx, userID, func() (Context, error) {
			return p.fetchContext(ctx, userID)
		})
		if err == nil {
			return tctx
		}
		p.logger.Warn("Context gathering failed, continuing with empty context",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return Context{}
	}

	tctx, err := p.fetchContext(ctx, userID)
	if err != nil {
		p.logger.Warn("Context gathering failed, continuing with empty context",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return Context{}
	}
	return tctx
}

func (p *Pipeline) fetchContext(ctx context.Context, userID string) (Context, error) {
	projects, err := p.store.ListProjects(ctx, userID)
	if err != nil {
		return Context{}, err
	}
	areas, err := p.store.ListAreas(ctx, userID)
	if err != nil {
		return Context{}, err
	}
	nextTasks, err := p.store.ListTasks(ctx, userID, graph.StatusNext)
	if err != nil {
		return Context{}, err
	}

	tctx := Context{}
	for _, project := range projects {
		if len(tctx.RecentProjects) >= contextEntryCap {
			break
		}
		tctx.RecentProjects = append(tctx.RecentProjects, project.Name)
	}
	for _, area := range areas {
		if len(tctx.ActiveAreas) >= contextEntryCap {
			break
		}
		tctx.ActiveAreas = append(tctx.ActiveAreas, area.Name)
	}
	for _, task := range nextTasks {
		if len(tctx.RecentNextActions) >= contextEntryCap {
			break
		}
		tctx.RecentNextActions = append(tctx.RecentNextActions, task.Title)
	}
	return tctx, nil
}

// processItem embeds one candidate's title, searches the owner's tasks for
// duplicates at or above the threshold, and persists the suggestion
func (p *Pipeline) processItem(ctx context.Context, userID, sessionID string, item CandidateItem) (*graph.Suggestion, error) {
	vector, err := p.embedder.EmbedQuery(ctx, item.ActionTitle)
	if err != nil {
		return nil, err
	}

	matches, err := p.store.SimilarTasks(ctx, userID, vector, dedupSearchK)
	if err != nil {
		return nil, err
	}

	var duplicates []DuplicateMatch
	for _, match := range matches {
		if match.Score >= DedupThreshold {
			duplicates = append(duplicates, DuplicateMatch{
				TaskID: match.Task.ID,
				Title:  match.Task.Title,
				Score:  match.Score,
			})
		}
	}

	payload, err := json.Marshal(SuggestionPayload{
		CandidateItem:    item,
		DuplicateMatches: duplicates,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal suggestion payload: %w", err)
	}

	sug := graph.Suggestion{
		ID:             uuid.NewString(),
		SuggestionType: SuggestionTypeTriageItem,
		PayloadJSON:    string(payload),
		CreatedAt:      time.Now(),
	}
	if _, err := p.store.CreateSuggestion(ctx, userID, sessionID, sug); err != nil {
		return nil, err
	}
	return &sug, nil
}
