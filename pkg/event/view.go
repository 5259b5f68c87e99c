package event

import (
	"encoding/json"
	"time"
)

const (
	// ViewsTopic prefixes the subjects snapshots are published on,
	// e.g. "tableside.views.mesa-4".
	ViewsTopic = "tableside.views"

	EventViewUpdated = "view.updated"
	EventViewFailed  = "view.failed"
)

// ViewSubject returns the subject a view's snapshots are published on.
func ViewSubject(base, view string) string {
	if base == "" {
		base = ViewsTopic
	}
	return base + "." + view
}

// ViewUpdatedEvent carries a freshly published view snapshot to
// presentation layers.
type ViewUpdatedEvent struct {
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	View       string          `json:"view"`
	Generation uint64          `json:"generation"`
	Degraded   bool            `json:"degraded"`
	Error      string          `json:"error,omitempty"`
	Snapshot   json.RawMessage `json:"snapshot,omitempty"`
}
