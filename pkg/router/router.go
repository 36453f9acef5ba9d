// Package router dispatches HTTP requests through a behavior tree.
//
// The root is a Fallback. Each route is a Sequence of three leaves: a
// method predicate, a path predicate matched with chi patterns, and a
// responder that serves the request. The first route whose predicates pass
// answers; when every route fails the request is not found.
package router

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/arbor"
	"github.com/go-chi/chi/v5"
)

type route struct {
	method  string
	pattern string
	mux     *chi.Mux
}

// Router is an http.Handler. Requests are served one at a time because
// the engine has a single owner.
type Router struct {
	mu     sync.Mutex
	engine *arbor.Engine
	root   arbor.NodeID
	routes []route

	// current request, valid while the tree is being evaluated.
	w   http.ResponseWriter
	req *http.Request

	NotFound http.Handler
}

// Option configures a Router.
type Option func(*Router)

// WithNotFound sets the handler used when no route matches.
func WithNotFound(h http.Handler) Option {
	return func(r *Router) {
		r.NotFound = h
	}
}

// WithEngineOptions passes options to the underlying engine.
func WithEngineOptions(opts ...arbor.Option) Option {
	return func(r *Router) {
		r.engine = arbor.New(opts...)
	}
}

// New creates an empty Router.
func New(opts ...Option) (*Router, error) {
	r := &Router{NotFound: http.NotFoundHandler()}
	for _, opt := range opts {
		opt(r)
	}
	if r.engine == nil {
		r.engine = arbor.New()
	}
	root, err := r.engine.NewNode("router", arbor.NoNode)
	if err != nil {
		return nil, err
	}
	if err := r.engine.Attach(root, arbor.Fallback()); err != nil {
		return nil, err
	}
	r.root = root
	return r, nil
}

// Engine exposes the routing tree, e.g. for inspection.
func (r *Router) Engine() *arbor.Engine { return r.engine }

// Root returns the Fallback node holding every route.
func (r *Router) Root() arbor.NodeID { return r.root }

// Handle adds a route. Method "*" matches any method. Patterns use chi
// syntax; handlers read parameters with chi.URLParam.
func (r *Router) Handle(method, pattern string, h http.Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	method = strings.ToUpper(method)
	rt := route{method: method, pattern: pattern, mux: chi.NewRouter()}
	rt.mux.Handle(pattern, h)

	e := r.engine
	seq, err := e.NewNode(method+" "+pattern, r.root)
	if err != nil {
		return err
	}
	steps := []struct {
		name string
		b    arbor.Behavior
	}{
		{"method", arbor.Predicate(func() bool {
			return method == "*" || r.req.Method == method
		})},
		{"path", arbor.Predicate(func() bool {
			return rt.mux.Match(chi.NewRouteContext(), r.req.Method, r.req.URL.Path)
		})},
		{"respond", arbor.Leaf(func(e *arbor.Core, id arbor.NodeID) error {
			rt.mux.ServeHTTP(r.w, r.req)
			return e.Deliver(id, arbor.Pass)
		})},
	}

	if err := e.Attach(seq, arbor.Sequence()); err != nil {
		return err
	}
	for _, s := range steps {
		id, err := e.NewNode(s.name, seq)
		if err != nil {
			return err
		}
		if err := e.Attach(id, s.b); err != nil {
			return err
		}
	}
	r.routes = append(r.routes, rt)
	return nil
}

// HandleFunc adds a route served by fn.
func (r *Router) HandleFunc(method, pattern string, fn http.HandlerFunc) error {
	return r.Handle(method, pattern, fn)
}

// Routes lists "METHOD pattern" for every route in match order.
func (r *Router) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.routes))
	for i, rt := range r.routes {
		out[i] = rt.method + " " + rt.pattern
	}
	return out
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.w, r.req = w, req
	defer func() { r.w, r.req = nil, nil }()
	defer func() {
		// A panicking handler leaves its route Running; resolve it so the
		// next request starts a new round.
		if r.engine.IsRunning(r.root) {
			if err := r.engine.Interrupt(r.root); err != nil {
				r.engine.Logger().Error("router reset failed", "error", err)
			}
		}
	}()

	if err := r.engine.Request(r.root); err != nil {
		http.Error(w, fmt.Sprintf("routing failed: %v", err), http.StatusInternalServerError)
		return
	}
	if o, ok := r.engine.OutcomeOf(r.root); !ok || o != arbor.Pass {
		r.NotFound.ServeHTTP(w, req)
	}
}
