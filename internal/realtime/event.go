// Package realtime subscribes to row-change notifications emitted by the
// database and delivers them as ordered, debounced batches.
package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Operation is the row-change kind carried by a notification.
type Operation string

// Supported operations. The trigger only fires on insert and update.
const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
)

// ChangeEvent is the envelope the pm_visits trigger emits on the notify
// channel. Row images stay raw at this layer; the consuming module parses
// them into its own model exactly once at its boundary.
type ChangeEvent struct {
	Table    string          `json:"table"`
	Op       Operation       `json:"op"`
	TenantID uuid.UUID       `json:"tenant_id"`
	New      json.RawMessage `json:"new"`
	Old      json.RawMessage `json:"old,omitempty"`
}

// DecodeChangeEvent parses and validates a notification payload. Payloads
// with an unknown operation or no new row image are rejected here so nothing
// loosely-typed travels past the transport boundary.
func DecodeChangeEvent(payload []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("malformed change payload: %w", err)
	}
	if ev.Table == "" {
		return ChangeEvent{}, fmt.Errorf("change payload missing table")
	}
	if ev.Op != OpInsert && ev.Op != OpUpdate {
		return ChangeEvent{}, fmt.Errorf("unsupported change operation %q", ev.Op)
	}
	if len(ev.New) == 0 {
		return ChangeEvent{}, fmt.Errorf("change payload missing new row image")
	}
	return ev, nil
}
