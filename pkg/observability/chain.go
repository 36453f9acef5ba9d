package observability

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// Chain combines hooks so that every non-nil callback runs, in order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	node := func(pick func(domain.LifecycleHooks) func(context.Context, *domain.NodeEvent)) func(context.Context, *domain.NodeEvent) {
		var fns []func(context.Context, *domain.NodeEvent)
		for _, h := range hooks {
			if fn := pick(h); fn != nil {
				fns = append(fns, fn)
			}
		}
		if len(fns) == 0 {
			return nil
		}
		return func(ctx context.Context, ev *domain.NodeEvent) {
			for _, fn := range fns {
				fn(ctx, ev)
			}
		}
	}
	task := func(pick func(domain.LifecycleHooks) func(context.Context, *domain.TaskEvent)) func(context.Context, *domain.TaskEvent) {
		var fns []func(context.Context, *domain.TaskEvent)
		for _, h := range hooks {
			if fn := pick(h); fn != nil {
				fns = append(fns, fn)
			}
		}
		if len(fns) == 0 {
			return nil
		}
		return func(ctx context.Context, ev *domain.TaskEvent) {
			for _, fn := range fns {
				fn(ctx, ev)
			}
		}
	}

	return domain.LifecycleHooks{
		OnRequest:     node(func(h domain.LifecycleHooks) func(context.Context, *domain.NodeEvent) { return h.OnRequest }),
		OnOutcome:     node(func(h domain.LifecycleHooks) func(context.Context, *domain.NodeEvent) { return h.OnOutcome }),
		OnInterrupt:   node(func(h domain.LifecycleHooks) func(context.Context, *domain.NodeEvent) { return h.OnInterrupt }),
		OnProgress:    node(func(h domain.LifecycleHooks) func(context.Context, *domain.NodeEvent) { return h.OnProgress }),
		OnTaskSpawn:   task(func(h domain.LifecycleHooks) func(context.Context, *domain.TaskEvent) { return h.OnTaskSpawn }),
		OnTaskRelease: task(func(h domain.LifecycleHooks) func(context.Context, *domain.TaskEvent) { return h.OnTaskRelease }),
	}
}
