package runtime

import (
	"github.com/aretw0/arbor/pkg/domain"
)

// Record is one observed protocol step.
type Record struct {
	Kind    domain.EventKind
	Node    string
	Outcome domain.Outcome
}

// Recorder keeps the order in which nodes were requested and resolved.
type Recorder struct {
	Records []Record
}

// Collect attaches a Recorder to every node of e.
func Collect(e *Engine) *Recorder {
	r := &Recorder{}
	e.Observe(domain.EventGetOutcome, func(e *Engine, id domain.NodeID, ev Event) error {
		r.Records = append(r.Records, Record{Kind: ev.Kind, Node: e.Name(id)})
		return nil
	})
	e.Observe(domain.EventOutcome, func(e *Engine, id domain.NodeID, ev Event) error {
		r.Records = append(r.Records, Record{Kind: ev.Kind, Node: e.Name(id), Outcome: ev.Outcome})
		return nil
	})
	return r
}

// Requests lists requested node names, in order.
func (r *Recorder) Requests() []string {
	return r.names(domain.EventGetOutcome)
}

// Resolved lists "name:outcome" for every resolution, in order.
func (r *Recorder) Resolved() []string {
	var out []string
	for _, rec := range r.Records {
		if rec.Kind == domain.EventOutcome {
			out = append(out, rec.Node+":"+rec.Outcome.String())
		}
	}
	return out
}

// Count returns how many times name was requested.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, v := range r.Requests() {
		if v == name {
			n++
		}
	}
	return n
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.Records = nil
}

func (r *Recorder) names(kind domain.EventKind) []string {
	var out []string
	for _, rec := range r.Records {
		if rec.Kind == kind {
			out = append(out, rec.Node)
		}
	}
	return out
}
