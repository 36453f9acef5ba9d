package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
)

// LogHooks returns hooks writing each lifecycle event to logger at Info,
// except requests which are logged at Debug.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRequest: func(ctx context.Context, ev *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_request", "node_id", ev.NodeID, "node", ev.NodeName)
		},
		OnOutcome: func(ctx context.Context, ev *domain.NodeEvent) {
			logger.InfoContext(ctx, "node_outcome",
				"node_id", ev.NodeID,
				"node", ev.NodeName,
				"outcome", ev.Outcome.String(),
				"interrupted", ev.Interrupted,
			)
		},
		OnInterrupt: func(ctx context.Context, ev *domain.NodeEvent) {
			logger.InfoContext(ctx, "node_interrupt", "node_id", ev.NodeID, "node", ev.NodeName)
		},
		OnProgress: func(ctx context.Context, ev *domain.NodeEvent) {
			if line, ok := ev.Payload.(domain.OutputLine); ok {
				logger.InfoContext(ctx, "task_output", "node", ev.NodeName, "line", line.Line, "stderr", line.IsErr)
			}
		},
		OnTaskSpawn: func(ctx context.Context, ev *domain.TaskEvent) {
			logger.DebugContext(ctx, "task_spawn", "node", ev.NodeName)
		},
		OnTaskRelease: func(ctx context.Context, ev *domain.TaskEvent) {
			logger.DebugContext(ctx, "task_release", "node", ev.NodeName, "duration", ev.Duration, "cancelled", ev.Cancelled)
		},
	}
}
