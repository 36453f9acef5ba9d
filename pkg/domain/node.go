package domain

import "strconv"

// NodeID identifies a node within a single engine. Zero is never a valid ID.
type NodeID uint64

// NoNode is the zero NodeID, used for "no parent".
const NoNode NodeID = 0

// IsZero reports whether the ID is NoNode.
func (id NodeID) IsZero() bool {
	return id == NoNode
}

func (id NodeID) String() string {
	return "#" + strconv.FormatUint(uint64(id), 10)
}

// BehaviorKind names a behavior variant. Kinds are the keys of the
// behavior registry and of tree definition files.
type BehaviorKind string

// Built-in behavior kinds.
const (
	KindSequence      BehaviorKind = "sequence"
	KindFallback      BehaviorKind = "fallback"
	KindParallel      BehaviorKind = "parallel"
	KindScoreSelector BehaviorKind = "score_selector"
	KindScorer        BehaviorKind = "scorer"
	KindRepeat        BehaviorKind = "repeat"
	KindBubbleUp      BehaviorKind = "bubble_up"
	KindInvert        BehaviorKind = "invert"
	KindExternalTask  BehaviorKind = "external_task"
	KindLeaf          BehaviorKind = "leaf"
	KindEndWith       BehaviorKind = "end_with"
	KindSucceedTimes  BehaviorKind = "succeed_times"
)
