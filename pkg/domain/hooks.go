package domain

import "context"

// LifecycleHooks defines callbacks for engine observability. All hooks
// are optional; nil hooks are skipped. Hooks run synchronously on the
// emitting goroutine and must not call back into the engine.
type LifecycleHooks struct {
	// OnBranchEnter fires when the engine's pointer moves to a branch.
	OnBranchEnter func(ctx context.Context, flow, branch string)

	// OnEventEmit fires for every emitted event, loading and final.
	OnEventEmit func(ctx context.Context, flow string, event Event)

	// OnActionDispatch fires once per action tag forwarded to the host.
	OnActionDispatch func(ctx context.Context, flow string, action ActionTag)

	// OnDiagnostic fires when a recoverable configuration problem is
	// recorded.
	OnDiagnostic func(ctx context.Context, flow string, diag Diagnostic)
}
