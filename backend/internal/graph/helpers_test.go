package graph

import (
	"context"
	"testing"
	"time"

	pkgerrors "cozy-triage/backend/pkg/errors"
)

func TestPropString(t *testing.T) {
	props := map[string]interface{}{"name": "Errands", "count": int64(3), "nothing": nil}

	if got := propString(props, "name", ""); got != "Errands" {
		t.Errorf("Expected 'Errands', got %q", got)
	}
	if got := propString(props, "missing", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback for missing key, got %q", got)
	}
	if got := propString(props, "count", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback for wrong type, got %q", got)
	}
	if got := propString(props, "nothing", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback for nil value, got %q", got)
	}
}

func TestPropInt(t *testing.T) {
	props := map[string]interface{}{"bolt": int64(4), "json": float64(2), "str": "5"}

	if got := propInt(props, "bolt", 0); got != 4 {
		t.Errorf("Expected 4 from int64, got %d", got)
	}
	if got := propInt(props, "json", 0); got != 2 {
		t.Errorf("Expected 2 from float64, got %d", got)
	}
	if got := propInt(props, "str", 9); got != 9 {
		t.Errorf("Expected default for string value, got %d", got)
	}
	if got := propInt(props, "missing", 3); got != 3 {
		t.Errorf("Expected default for missing key, got %d", got)
	}
}

func TestPropBoolPtr(t *testing.T) {
	props := map[string]interface{}{"accepted_bool": true}

	got := propBoolPtr(props, "accepted_bool")
	if got == nil || !*got {
		t.Errorf("Expected true pointer, got %v", got)
	}
	if got := propBoolPtr(props, "missing"); got != nil {
		t.Errorf("Expected nil for absent property, got %v", got)
	}
}

func TestPropTime(t *testing.T) {
	stamp := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	props := map[string]interface{}{
		"as_string": stamp.Format(time.RFC3339),
		"as_time":   stamp,
		"garbage":   "yesterday",
	}

	if got := propTime(props, "as_string"); !got.Equal(stamp) {
		t.Errorf("Expected %v from RFC3339 string, got %v", stamp, got)
	}
	if got := propTime(props, "as_time"); !got.Equal(stamp) {
		t.Errorf("Expected %v from time.Time, got %v", stamp, got)
	}
	if got := propTime(props, "garbage"); !got.IsZero() {
		t.Errorf("Expected zero time for unparsable value, got %v", got)
	}
	if got := propTimePtr(props, "missing"); got != nil {
		t.Errorf("Expected nil pointer for missing key, got %v", got)
	}
}

func TestPropFloat64Slice(t *testing.T) {
	props := map[string]interface{}{
		"vector": []interface{}{0.1, 0.2, 0.3},
		"mixed":  []interface{}{0.1, "oops", 0.3},
	}

	if got := propFloat64Slice(props, "vector"); len(got) != 3 || got[1] != 0.2 {
		t.Errorf("Expected [0.1 0.2 0.3], got %v", got)
	}
	if got := propFloat64Slice(props, "mixed"); len(got) != 2 {
		t.Errorf("Expected non-floats skipped, got %v", got)
	}
	if got := propFloat64Slice(props, "missing"); got != nil {
		t.Errorf("Expected nil for missing key, got %v", got)
	}
}

func TestFormatTimeIsRFC3339UTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	stamp := time.Date(2026, 3, 1, 10, 30, 0, 0, loc)

	got := formatTime(stamp)
	if got != "2026-03-01T09:30:00Z" {
		t.Errorf("Expected UTC RFC3339 string, got %q", got)
	}
}

func TestFoldName(t *testing.T) {
	cases := map[string]string{
		"  Errands ": "errands",
		"ERRANDS":    "errands",
		"errands":    "errands",
	}
	for input, want := range cases {
		if got := foldName(input); got != want {
			t.Errorf("foldName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestErrNotFound(t *testing.T) {
	err := ErrNotFound{Label: "Task", ID: "t1"}
	if err.Error() != "task not found: t1" {
		t.Errorf("Unexpected message: %q", err.Error())
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should match ErrNotFound")
	}
	if IsNotFound(context.Canceled) {
		t.Error("IsNotFound should not match unrelated errors")
	}
}

// The guard checks below run before any session is opened, so a nil driver
// is fine.

func TestSimilarTasks_RejectsWrongDimension(t *testing.T) {
	store := NewStoreWithDriver(nil)

	_, err := store.SimilarTasks(context.Background(), "user-1", make([]float64, 768), 5)
	if err == nil {
		t.Fatal("Expected error for wrong-dimension vector")
	}
	if !pkgerrors.IsErrorType(err, pkgerrors.ErrorTypeStore) {
		t.Errorf("Expected store error, got %v", err)
	}
}

func TestUpdateFields_RejectsUnknownLabel(t *testing.T) {
	store := NewStoreWithDriver(nil)

	_, err := store.UpdateFields(context.Background(), "user-1", "Note", "id", map[string]interface{}{"x": 1})
	if err == nil {
		t.Fatal("Expected error for unknown label")
	}
}

func TestLink_RejectsUnknownEdgeType(t *testing.T) {
	store := NewStoreWithDriver(nil)

	if err := store.Link(context.Background(), "FOLLOWS", "a", "b"); err == nil {
		t.Fatal("Expected error for unknown edge type")
	}
}
