package triage

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "cozy-triage/backend/pkg/errors"
)

func decodeResponse(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	return data
}

func validItemMap(overrides map[string]interface{}) map[string]interface{} {
	item := map[string]interface{}{
		"raw_text":             "buy milk",
		"action_title":         "Buy milk",
		"description":          "Get milk from store",
		"status":               "NEXT",
		"priority":             3,
		"urgency":              2,
		"effort":               "XS",
		"para_bucket":          "AREA",
		"project_suggestions":  []interface{}{},
		"area_suggestions":     []interface{}{},
		"needs_clarification":  false,
		"clarifying_questions": []interface{}{},
		"duplicate_candidates": []interface{}{},
		"next_action":          "Go to store",
	}
	for k, v := range overrides {
		item[k] = v
	}
	return item
}

func itemsData(items ...map[string]interface{}) map[string]interface{} {
	list := make([]interface{}, len(items))
	for i, item := range items {
		list[i] = item
	}
	return map[string]interface{}{"items": list}
}

func TestValidateItems_Valid(t *testing.T) {
	items, err := validateItems(itemsData(validItemMap(nil)))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Buy milk", items[0].ActionTitle)
	assert.Equal(t, "NEXT", items[0].Status)
	assert.Equal(t, 3, items[0].Priority)
	assert.Equal(t, "XS", items[0].Effort)
	assert.False(t, items[0].NeedsClarification)
}

func TestValidateItems_ClampsPriorityUrgency(t *testing.T) {
	items, err := validateItems(itemsData(validItemMap(map[string]interface{}{
		"priority": float64(99),
		"urgency":  float64(-5),
	})))
	require.NoError(t, err)
	assert.Equal(t, 5, items[0].Priority)
	assert.Equal(t, 1, items[0].Urgency)
}

func TestValidateItems_EnforcesMaxLengths(t *testing.T) {
	items, err := validateItems(itemsData(validItemMap(map[string]interface{}{
		"action_title": strings.Repeat("a", 300),
		"description":  strings.Repeat("b", 3000),
		"next_action":  strings.Repeat("c", 600),
	})))
	require.NoError(t, err)
	assert.Len(t, items[0].ActionTitle, 200)
	assert.Len(t, items[0].Description, 2000)
	assert.Len(t, items[0].NextAction, 500)
}

func TestValidateItems_RejectsInvalidStatus(t *testing.T) {
	_, err := validateItems(itemsData(validItemMap(map[string]interface{}{
		"status": "INVALID",
	})))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Contains(t, err.Error(), "invalid status")
}

func TestValidateItems_RejectsInvalidEffort(t *testing.T) {
	_, err := validateItems(itemsData(validItemMap(map[string]interface{}{
		"effort": "HUGE",
	})))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Contains(t, err.Error(), "invalid effort")
}

func TestValidateItems_MissingRequiredField(t *testing.T) {
	item := validItemMap(nil)
	delete(item, "description")
	_, err := validateItems(itemsData(item))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Contains(t, err.Error(), "missing required field")
}

func TestValidateItems_MissingItems(t *testing.T) {
	_, err := validateItems(map[string]interface{}{"items": "nope"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestValidateItems_CapsListFields(t *testing.T) {
	var questions []interface{}
	for i := 0; i < 25; i++ {
		questions = append(questions, "a question")
	}
	items, err := validateItems(itemsData(validItemMap(map[string]interface{}{
		"clarifying_questions": questions,
	})))
	require.NoError(t, err)
	assert.Len(t, items[0].ClarifyingQuestions, 10)
}

func TestValidateItems_ListEntriesAsObjects(t *testing.T) {
	items, err := validateItems(itemsData(validItemMap(map[string]interface{}{
		"area_suggestions": []interface{}{
			map[string]interface{}{"name": "Errands"},
			"Health",
		},
	})))
	require.NoError(t, err)
	assert.Equal(t, []string{"Errands", "Health"}, items[0].AreaSuggestions)
}

func TestValidateItems_OptionalFieldsDefault(t *testing.T) {
	item := map[string]interface{}{
		"action_title": "Buy milk",
		"description":  "",
		"status":       "INBOX",
		"priority":     float64(3),
		"urgency":      float64(3),
		"effort":       "M",
	}
	items, err := validateItems(itemsData(item))
	require.NoError(t, err)
	assert.False(t, items[0].NeedsClarification)
	assert.Empty(t, items[0].ProjectSuggestions)
	assert.Empty(t, items[0].ClarifyingQuestions)
	assert.Empty(t, items[0].NextAction)
}

func TestValidateItems_CoercesStringNumbers(t *testing.T) {
	items, err := validateItems(itemsData(validItemMap(map[string]interface{}{
		"priority": "4",
		"urgency":  "77",
	})))
	require.NoError(t, err)
	assert.Equal(t, 4, items[0].Priority)
	assert.Equal(t, 5, items[0].Urgency)
}

func TestValidateItems_FromDecodedJSON(t *testing.T) {
	data := decodeResponse(t, `{"items":[{"action_title":"Call mom","description":"weekly call","status":"NEXT","priority":2,"urgency":4,"effort":"S"}]}`)
	items, err := validateItems(data)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Call mom", items[0].ActionTitle)
	assert.Equal(t, 4, items[0].Urgency)
}
