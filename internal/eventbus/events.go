package eventbus

import "time"

// Event types published by the push pipeline.
const (
	TypePushReceived  = "push.received"
	TypePushComposed  = "push.composed"
	TypePushDataOnly  = "push.data_only"
	TypePushColdStart = "push.cold_start"
	TypePushIgnored   = "push.ignored"

	TypeDiag = "diag"

	TypeChannelCreated = "channel.created"
	TypeChannelDeleted = "channel.deleted"

	TypeHistoryPruned  = "history.pruned"
	TypeHistoryCleared = "history.cleared"
)

// PushEvent describes one pipeline decision for a received payload.
type PushEvent struct {
	NotID int       `json:"not_id"`
	From  string    `json:"from,omitempty"`
	Style string    `json:"style,omitempty"`
	At    time.Time `json:"at"`
	Error string    `json:"error,omitempty"`
}

// DiagEvent carries a non-fatal resolution diagnostic.
//
// Composition never fails on these; they exist so operators can see which
// payload fields were dropped or degraded and why.
type DiagEvent struct {
	Kind   string `json:"kind"` // malformed_payload | out_of_range | resource_not_found | fetch_failure
	Field  string `json:"field"`
	Detail string `json:"detail,omitempty"`
	NotID  int    `json:"not_id,omitempty"`
}

// ChannelEvent describes a registry mutation.
type ChannelEvent struct {
	ID string `json:"id"`
}

// HistoryEvent describes a retention sweep.
type HistoryEvent struct {
	Removed int `json:"removed"`
}
