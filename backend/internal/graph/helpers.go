package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ============================================================================
// Record / property helpers
// ============================================================================

func nodeFromRecord(record *neo4j.Record, key string) (neo4j.Node, bool) {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return neo4j.Node{}, false
	}
	node, ok := val.(neo4j.Node)
	return node, ok
}

func getFloat64FromRecord(record *neo4j.Record, key string) float64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0.0
	}
	if f, ok := val.(float64); ok {
		return f
	}
	if i, ok := val.(int64); ok {
		return float64(i)
	}
	return 0.0
}

func propString(props map[string]interface{}, key, defaultValue string) string {
	val, ok := props[key]
	if !ok || val == nil {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

func propInt(props map[string]interface{}, key string, defaultValue int) int {
	val, ok := props[key]
	if !ok || val == nil {
		return defaultValue
	}
	if i, ok := val.(int64); ok {
		return int(i)
	}
	if f, ok := val.(float64); ok {
		return int(f)
	}
	return defaultValue
}

func propBoolPtr(props map[string]interface{}, key string) *bool {
	val, ok := props[key]
	if !ok || val == nil {
		return nil
	}
	if b, ok := val.(bool); ok {
		return &b
	}
	return nil
}

// propTime accepts either a Bolt temporal value or an RFC 3339 string.
// Timestamps are written as RFC 3339 strings so they sort lexicographically
// in ORDER BY clauses.
func propTime(props map[string]interface{}, key string) time.Time {
	val, ok := props[key]
	if !ok || val == nil {
		return time.Time{}
	}
	if t, ok := val.(time.Time); ok {
		return t
	}
	if str, ok := val.(string); ok {
		if t, err := time.Parse(time.RFC3339, str); err == nil {
			return t
		}
	}
	return time.Time{}
}

func propTimePtr(props map[string]interface{}, key string) *time.Time {
	t := propTime(props, key)
	if t.IsZero() {
		return nil
	}
	return &t
}

func propFloat64Slice(props map[string]interface{}, key string) []float64 {
	val, ok := props[key]
	if !ok || val == nil {
		return nil
	}
	slice, ok := val.([]interface{})
	if !ok {
		return nil
	}
	result := make([]float64, 0, len(slice))
	for _, v := range slice {
		if f, ok := v.(float64); ok {
			result = append(result, f)
		}
	}
	return result
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
