// Package queue defines the realtime change-notification payloads and
// the background consumer that reacts to them.
package queue

// TableChangedEvent is published after any successful mutation of the
// named table. It deliberately carries no diff: task and user lists are
// small, so consumers re-fetch their scoped view instead of merging
// incremental changes.
type TableChangedEvent struct {
	Table     string `json:"table"`      // tasks | users | activity
	ChangedAt string `json:"changed_at"` // RFC3339 UTC timestamp
}

// TableChangedQueue is the durable queue the events travel through.
const TableChangedQueue = "table.changed"
