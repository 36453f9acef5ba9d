package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when an operation names a node the engine does not hold.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNodeDestroyed is returned when an operation names a node that existed but was destroyed.
	ErrNodeDestroyed = errors.New("node destroyed")

	// ErrBehaviorConflict is returned when a behavior cannot coexist with one already attached.
	ErrBehaviorConflict = errors.New("behavior conflict")

	// ErrBehaviorAttached is returned when a behavior value is attached to a second node.
	ErrBehaviorAttached = errors.New("behavior already attached")

	// ErrUnknownBehavior is returned by the registry for unregistered kinds.
	ErrUnknownBehavior = errors.New("unknown behavior kind")

	// ErrStructural is the sentinel wrapped by every StructuralError.
	ErrStructural = errors.New("structural error")

	// ErrTreeNotFound is returned when a named tree is not loaded.
	ErrTreeNotFound = errors.New("tree not found")

	// ErrRunNotFound is returned by a Journal when a run ID has no records.
	ErrRunNotFound = errors.New("run not found")
)

// StructuralError reports a behavior attached to a node that lacks the data
// the behavior requires. It is a build error, never an outcome.
type StructuralError struct {
	NodeID NodeID
	Kind   BehaviorKind
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s on node %s: %s", e.Kind, e.NodeID, e.Reason)
}

func (e *StructuralError) Unwrap() error {
	return ErrStructural
}
