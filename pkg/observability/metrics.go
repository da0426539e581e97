package observability

import (
	"context"

	"github.com/branchwork/bramble/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus instruments. One Metrics value
// serves every session; flows are distinguished by label.
type Metrics struct {
	transitions *prometheus.CounterVec
	events      *prometheus.CounterVec
	actions     *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
}

// NewMetrics registers the engine instruments on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bramble",
			Name:      "branch_transitions_total",
			Help:      "Branch entries per flow and branch.",
		}, []string{"flow", "branch"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bramble",
			Name:      "events_emitted_total",
			Help:      "Emitted events per flow and kind.",
		}, []string{"flow", "kind"}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bramble",
			Name:      "actions_dispatched_total",
			Help:      "Action tags forwarded to the host per flow.",
		}, []string{"flow", "action"}),
		diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bramble",
			Name:      "diagnostics_total",
			Help:      "Recoverable configuration problems per flow and code.",
		}, []string{"flow", "code"}),
	}
}

// Hooks returns lifecycle hooks that feed these instruments. Combine
// with host hooks via Merge when both are needed.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnBranchEnter: func(ctx context.Context, flow, branch string) {
			m.transitions.WithLabelValues(flow, branch).Inc()
		},
		OnEventEmit: func(ctx context.Context, flow string, event domain.Event) {
			m.events.WithLabelValues(flow, string(event.Kind)).Inc()
		},
		OnActionDispatch: func(ctx context.Context, flow string, action domain.ActionTag) {
			m.actions.WithLabelValues(flow, string(action)).Inc()
		},
		OnDiagnostic: func(ctx context.Context, flow string, diag domain.Diagnostic) {
			m.diagnostics.WithLabelValues(flow, string(diag.Code)).Inc()
		},
	}
}

// Merge fans lifecycle callbacks out to every given hook set, skipping
// nil members.
func Merge(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnBranchEnter: func(ctx context.Context, flow, branch string) {
			for _, h := range hooks {
				if h.OnBranchEnter != nil {
					h.OnBranchEnter(ctx, flow, branch)
				}
			}
		},
		OnEventEmit: func(ctx context.Context, flow string, event domain.Event) {
			for _, h := range hooks {
				if h.OnEventEmit != nil {
					h.OnEventEmit(ctx, flow, event)
				}
			}
		},
		OnActionDispatch: func(ctx context.Context, flow string, action domain.ActionTag) {
			for _, h := range hooks {
				if h.OnActionDispatch != nil {
					h.OnActionDispatch(ctx, flow, action)
				}
			}
		},
		OnDiagnostic: func(ctx context.Context, flow string, diag domain.Diagnostic) {
			for _, h := range hooks {
				if h.OnDiagnostic != nil {
					h.OnDiagnostic(ctx, flow, diag)
				}
			}
		},
	}
}
