package triage

import (
	"fmt"
	"strconv"

	"cozy-triage/backend/internal/graph"
	pkgerrors "cozy-triage/backend/pkg/errors"
)

// Field caps applied to LLM output
const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
	maxNextActionLen  = 500
	maxListEntries    = 10
)

// CandidateItem is one validated LLM-proposed task, constructed only by
// validateItems so every instance satisfies the field constraints: status
// and effort from the closed sets, priority and urgency in 1..5, strings
// within their caps, list fields at most maxListEntries long.
type CandidateItem struct {
	RawText             string   `json:"raw_text,omitempty"`
	ActionTitle         string   `json:"action_title"`
	Description         string   `json:"description"`
	Status              string   `json:"status"`
	Priority            int      `json:"priority"`
	Urgency             int      `json:"urgency"`
	Effort              string   `json:"effort"`
	ParaBucket          string   `json:"para_bucket"`
	ProjectSuggestions  []string `json:"project_suggestions"`
	AreaSuggestions     []string `json:"area_suggestions"`
	NeedsClarification  bool     `json:"needs_clarification"`
	ClarifyingQuestions []string `json:"clarifying_questions"`
	DuplicateCandidates []string `json:"duplicate_candidates"`
	NextAction          string   `json:"next_action"`
}

// DuplicateMatch is one existing task surfaced as a possible duplicate
type DuplicateMatch struct {
	TaskID string  `json:"task_id"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
}

// SuggestionPayload is what gets serialized into a Suggestion node: the
// validated candidate plus the vector-search duplicate matches.
type SuggestionPayload struct {
	CandidateItem
	DuplicateMatches []DuplicateMatch `json:"duplicate_matches,omitempty"`
}

var requiredItemFields = []string{"action_title", "description", "status", "priority", "urgency", "effort"}

// validateItems checks a decoded LLM response against the triage contract
// and produces typed candidates. Enum violations are rejected outright;
// out-of-range priority/urgency are silently clamped; overlong strings and
// lists are truncated.
func validateItems(data map[string]interface{}) ([]CandidateItem, error) {
	rawItems, ok := data["items"].([]interface{})
	if !ok {
		return nil, pkgerrors.NewValidationError("items", "missing or not a list")
	}

	items := make([]CandidateItem, 0, len(rawItems))
	for i, raw := range rawItems {
		itemMap, ok := raw.(map[string]interface{})
		if !ok {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("items[%d]", i), "not an object")
		}

		for _, field := range requiredItemFields {
			if _, present := itemMap[field]; !present {
				return nil, pkgerrors.NewValidationError(fmt.Sprintf("items[%d].%s", i, field), "missing required field")
			}
		}

		status := stringValue(itemMap["status"])
		if !graph.ValidTaskStatuses[status] {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("items[%d].status", i), fmt.Sprintf("invalid status %q", status))
		}

		effort := stringValue(itemMap["effort"])
		if !graph.ValidEfforts[effort] {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("items[%d].effort", i), fmt.Sprintf("invalid effort %q", effort))
		}

		items = append(items, CandidateItem{
			RawText:             stringValue(itemMap["raw_text"]),
			ActionTitle:         truncate(stringValue(itemMap["action_title"]), maxTitleLen),
			Description:         truncate(stringValue(itemMap["description"]), maxDescriptionLen),
			Status:              status,
			Priority:            clamp(intValue(itemMap["priority"], 3), 1, 5),
			Urgency:             clamp(intValue(itemMap["urgency"], 3), 1, 5),
			Effort:              effort,
			ParaBucket:          stringValue(itemMap["para_bucket"]),
			ProjectSuggestions:  nameList(itemMap["project_suggestions"]),
			AreaSuggestions:     nameList(itemMap["area_suggestions"]),
			NeedsClarification:  boolValue(itemMap["needs_clarification"]),
			ClarifyingQuestions: nameList(itemMap["clarifying_questions"]),
			DuplicateCandidates: nameList(itemMap["duplicate_candidates"]),
			NextAction:          truncate(stringValue(itemMap["next_action"]), maxNextActionLen),
		})
	}
	return items, nil
}

func stringValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func boolValue(v interface{}) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

// intValue coerces JSON numbers (and numeric strings, which some models
// emit) to int
func intValue(v interface{}, defaultValue int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// nameList accepts a JSON list of either plain strings or {name: ...}
// objects, capped at maxListEntries
func nameList(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var names []string
	for _, entry := range raw {
		if len(names) >= maxListEntries {
			break
		}
		switch e := entry.(type) {
		case string:
			if e != "" {
				names = append(names, e)
			}
		case map[string]interface{}:
			if name, ok := e["name"].(string); ok && name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// truncate caps s at n characters without splitting a multi-byte rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
