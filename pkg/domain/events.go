package domain

import (
	"context"
	"time"
)

// EventKind defines the category of an event delivered through the dispatcher.
type EventKind string

const (
	// EventGetOutcome asks a node "what is your result?".
	EventGetOutcome EventKind = "get_outcome"
	// EventOutcome is delivered to a node when it resolves.
	EventOutcome EventKind = "outcome"
	// EventChildFinished is delivered to a parent when one of its children resolves.
	EventChildFinished EventKind = "child_finished"
	// EventInterrupt asks a Running node to stop its in-flight work.
	EventInterrupt EventKind = "interrupt"
	// EventProgress carries side effects of external work (e.g. output lines).
	EventProgress EventKind = "progress"
	// EventScoreChanged is delivered to a parent when a child score is set or cleared.
	EventScoreChanged EventKind = "score_changed"
)

// OutputLine is the progress payload emitted by command tasks for each
// stdout or stderr line.
type OutputLine struct {
	Line  string `json:"line"`
	IsErr bool   `json:"is_err,omitempty"`
}

// EventBase contains common fields for all hook events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      EventKind `json:"kind"`
}

// NodeEvent describes a protocol step on a single node.
type NodeEvent struct {
	EventBase
	NodeID   NodeID  `json:"node_id"`
	NodeName string  `json:"node_name"`
	Outcome  Outcome `json:"outcome,omitempty"`
	// Interrupted is set on outcomes of nodes that had been interrupted.
	Interrupted bool `json:"interrupted,omitempty"`
	Payload     any  `json:"payload,omitempty"`
}

// TaskEvent describes the lifetime of an external task handle.
type TaskEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	NodeID    NodeID        `json:"node_id"`
	NodeName  string        `json:"node_name"`
	Duration  time.Duration `json:"duration,omitempty"`
	// Cancelled is true when the handle was released before the work finished.
	Cancelled bool `json:"cancelled,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnRequest     func(context.Context, *NodeEvent)
	OnOutcome     func(context.Context, *NodeEvent)
	OnInterrupt   func(context.Context, *NodeEvent)
	OnProgress    func(context.Context, *NodeEvent)
	OnTaskSpawn   func(context.Context, *TaskEvent)
	OnTaskRelease func(context.Context, *TaskEvent)
}

// OutcomeRecord is one resolved node in a run, as kept by a Journal.
type OutcomeRecord struct {
	RunID       string    `json:"run_id"`
	Seq         int       `json:"seq"`
	NodeID      NodeID    `json:"node_id"`
	NodeName    string    `json:"node_name"`
	Outcome     Outcome   `json:"outcome"`
	Interrupted bool      `json:"interrupted,omitempty"`
	At          time.Time `json:"at"`
}
