// Package otel provides structured observability for trendwatch.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and a background drain
// goroutine. The CLI events command reads the same file back.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Ingestion
	KindFetchStart    EventKind = "fetch.start"
	KindFetchComplete EventKind = "fetch.complete"
	KindFetchError    EventKind = "fetch.error"
	KindArticleReject EventKind = "fetch.reject"

	// Detection
	KindClusterPrimary  EventKind = "cluster.primary"
	KindClusterFallback EventKind = "cluster.fallback"
	KindTrendBuilt      EventKind = "trend.built"
	KindTrendSkipped    EventKind = "trend.skipped"

	// Validation
	KindValidateStart    EventKind = "validate.start"
	KindValidateComplete EventKind = "validate.complete"
	KindStageFailed      EventKind = "validate.stage_failed"

	// Store events
	KindStoreError EventKind = "store.error"

	// Engine cycle
	KindCycleStart    EventKind = "cycle.start"
	KindCycleComplete EventKind = "cycle.complete"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time    time.Time      `json:"t"`
	Level   Level          `json:"level,omitempty"`
	Kind    EventKind      `json:"kind"`
	Comp    string         `json:"comp,omitempty"`   // component: "engine", "detect", "validate", "fetch"
	RunID   string         `json:"run_id,omitempty"` // random hex, same for the whole process
	CycleID string         `json:"cycle,omitempty"`  // engine cycle correlation ID
	TrendID string         `json:"trend,omitempty"`
	Dur     time.Duration  `json:"-"`                // not serialized directly
	DurMs   float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count   int            `json:"count,omitempty"`
	Source  string         `json:"source,omitempty"`
	Score   float64        `json:"score,omitempty"`
	Err     string         `json:"err,omitempty"`
	Msg     string         `json:"msg,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
