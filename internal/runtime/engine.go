// Package runtime implements the conversation state machine: branch
// resolution, variable substitution, delay/predelay scheduling and
// action forwarding. Hosts normally use the bramble root package,
// which wraps this engine with a friendlier constructor.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/branchwork/bramble/internal/logging"
	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/ports"
	"github.com/branchwork/bramble/pkg/schedule"
	"github.com/branchwork/bramble/pkg/subflow"
	"github.com/branchwork/bramble/pkg/trigger"
	"github.com/branchwork/bramble/pkg/vars"
)

// DefaultMaxAutoAdvance caps nextChat chains. Hitting it means the flow
// document loops on itself; the cap is a safety valve, not a feature.
const DefaultMaxAutoAdvance = 16

// Engine drives one conversation session over an immutable Flow.
//
// All public methods are safe for concurrent use; scheduled callbacks
// (delayed finalize phases, auto-followups) fire on scheduler
// goroutines and synchronize on the same mutex. A callback whose
// transition has been superseded by a newer one is a no-op.
type Engine struct {
	flow     *domain.Flow
	registry *subflow.Registry

	scheduler ports.Scheduler
	matcher   *trigger.Matcher
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	maxAuto   int

	mu      sync.Mutex
	graph   *graph
	status  domain.Status
	current string
	vars    map[string]any
	history []domain.Event
	diags   []domain.Diagnostic
	sink    domain.EventSink

	// seq numbers transitions; scheduled callbacks capture the value
	// at scheduling time and bail out if the engine has moved on.
	seq uint64

	// tokens tracks outstanding scheduler tokens so Reset can
	// invalidate every pending emission.
	tokens map[string]struct{}

	// queue accumulates events under the lock; they are dispatched to
	// the sink after the lock is released so a host may call back into
	// the engine from its sink.
	queue []domain.Event
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a structured logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithScheduler sets the timer facility used for delay, predelay and
// auto-followup scheduling.
func WithScheduler(s ports.Scheduler) EngineOption {
	return func(e *Engine) {
		if s != nil {
			e.scheduler = s
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMaxAutoAdvance overrides the auto-followup chain safety valve.
func WithMaxAutoAdvance(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxAuto = n
		}
	}
}

// NewEngine creates an idle session over the flow. The variable context
// is owned by the engine afterwards; callers should not mutate it.
func NewEngine(flow *domain.Flow, registry *subflow.Registry, variables map[string]any, opts ...EngineOption) *Engine {
	if registry == nil {
		registry = subflow.NewRegistry()
	}
	if variables == nil {
		variables = make(map[string]any)
	}
	e := &Engine{
		flow:     flow,
		registry: registry,
		matcher:  trigger.NewMatcher(),
		logger:   logging.NewNop(),
		maxAuto:  DefaultMaxAutoAdvance,
		status:   domain.StatusIdle,
		vars:     variables,
		tokens:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scheduler == nil {
		e.scheduler = schedule.NewTimerScheduler()
	}
	return e
}

// Subscribe registers the host's event sink. Events emitted before
// subscription are retained in the history but not replayed.
func (e *Engine) Subscribe(sink domain.EventSink) {
	e.mu.Lock()
	e.sink = sink
	e.mu.Unlock()
}

// Start activates the session, assembles the working graph and emits
// the flow's initial message when the AI opens. The returned slice
// holds the synchronously emitted events; delayed phases arrive via
// the subscribed sink.
func (e *Engine) Start() ([]domain.Event, error) {
	e.mu.Lock()
	if e.status == domain.StatusActive {
		e.mu.Unlock()
		return nil, fmt.Errorf("conversation already started")
	}

	g, diags := assemble(e.flow, e.registry)
	e.graph = g
	for _, d := range diags {
		e.recordLocked(d)
	}

	e.status = domain.StatusActive
	e.current = ""
	e.history = nil
	e.seq++

	if e.flow.StartsWith != domain.StartsWithUser && e.flow.InitialMessage != nil {
		b := e.flow.InitialMessage
		if !b.Predelay.IsZero() {
			seq := e.seq
			e.scheduleLocked(b.Predelay.Std(), func() {
				e.firePhase("", seq, 0, phaseEmit)
			})
		} else {
			e.emitBranchLocked("", b, e.seq, 0)
		}
	}

	out := e.drainLocked()
	e.mu.Unlock()

	e.dispatch(out)
	return out, nil
}

// SubmitButton advances the conversation via the current branch's
// transition table. A value with no transition is a UI-level bug, not
// an engine fault: it is ignored and the current branch keeps its
// place.
func (e *Engine) SubmitButton(value string) error {
	e.mu.Lock()
	if err := e.ensureActiveLocked(); err != nil {
		e.mu.Unlock()
		return err
	}

	cur := e.currentBranchLocked()
	dest, ok := "", false
	if cur != nil {
		dest, ok = cur.NextFor(value)
	}
	if !ok {
		e.logger.Debug("button value has no transition, ignoring",
			"flow", e.flow.Name, "branch", e.current, "value", value)
		e.mu.Unlock()
		return nil
	}

	e.transitionLocked(dest, 0)
	out := e.drainLocked()
	e.mu.Unlock()

	e.dispatch(out)
	return nil
}

// SubmitText advances the conversation via free-text matching:
// branch-local transitions first (their keys double as patterns), then
// flow-level user triggers. Unmatched text answers with the branch's
// default message, or the flow's, without moving the pointer.
func (e *Engine) SubmitText(text string) error {
	e.mu.Lock()
	if err := e.ensureActiveLocked(); err != nil {
		e.mu.Unlock()
		return err
	}

	dest, ok := e.matchTextLocked(text)
	if ok {
		e.transitionLocked(dest, 0)
	} else {
		e.emitDefaultLocked()
	}

	out := e.drainLocked()
	e.mu.Unlock()

	e.dispatch(out)
	return nil
}

// NavigateToBranch jumps directly to a branch, bypassing trigger
// matching. Used for deep-linking from outside the conversation. The
// returned event is the first one emitted by the jump (the loading
// phase when the branch declares a delay); later phases arrive via the
// sink. An unknown name leaves the session untouched.
func (e *Engine) NavigateToBranch(name string) (*domain.Event, error) {
	e.mu.Lock()
	if err := e.ensureActiveLocked(); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	if _, ok := e.graph.branches[name]; !ok {
		e.recordLocked(domain.Diagnostic{
			Code:    domain.DiagUnresolvedBranch,
			Subject: name,
			Detail:  "navigation target not present in assembled graph",
		})
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBranch, name)
	}

	e.transitionLocked(name, 0)
	out := e.drainLocked()
	e.mu.Unlock()

	e.dispatch(out)
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

// Reset invalidates every pending timer and discards session state.
// No finalize or auto-followup event is delivered afterwards.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.seq++
	for token := range e.tokens {
		_ = e.scheduler.Cancel(token)
		delete(e.tokens, token)
	}
	e.status = domain.StatusCompleted
	e.current = ""
	e.history = nil
	e.queue = nil
	e.mu.Unlock()
}

// InitialMessage is a pure query: the substituted initial message as it
// would be emitted by Start, or nil when the user opens. No state is
// mutated, no diagnostics are recorded.
func (e *Engine) InitialMessage() *domain.Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	b := e.flow.InitialMessage
	if b == nil || e.flow.StartsWith == domain.StartsWithUser {
		return nil
	}
	ev := domain.Event{
		Kind:       domain.EventFinal,
		Text:       vars.Substitute(b.Response, e.vars),
		Buttons:    substituteButtons(b.Buttons, e.vars),
		Actions:    b.Actions,
		ArtifactID: b.ArtifactID,
	}
	return &ev
}

// Snapshot returns a copy of the session state for host-side
// persistence.
func (e *Engine) Snapshot() *domain.State {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := &domain.State{
		Flow:          e.flow.Name,
		CurrentBranch: e.current,
		Status:        e.status,
		Vars:          e.vars,
		History:       e.history,
	}
	return s.Clone()
}

// Restore rebuilds the session from a snapshot: the graph is
// reassembled from the immutable flow and the pointer, variables and
// history are taken from the snapshot verbatim.
func (e *Engine) Restore(state *domain.State) error {
	if state == nil {
		return fmt.Errorf("nil state")
	}
	copied := state.Clone()

	e.mu.Lock()
	defer e.mu.Unlock()

	g, diags := assemble(e.flow, e.registry)
	e.graph = g
	for _, d := range diags {
		e.recordLocked(d)
	}

	if copied.CurrentBranch != "" {
		if _, ok := g.branches[copied.CurrentBranch]; !ok {
			return fmt.Errorf("%w: %q", domain.ErrUnknownBranch, copied.CurrentBranch)
		}
	}

	e.status = copied.Status
	e.current = copied.CurrentBranch
	e.vars = copied.Vars
	e.history = copied.History
	e.seq++
	return nil
}

// History returns a copy of the emitted events so far.
func (e *Engine) History() []domain.Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Event, len(e.history))
	copy(out, e.history)
	return out
}

// Diagnostics returns a copy of the recoverable configuration problems
// observed so far.
func (e *Engine) Diagnostics() []domain.Diagnostic {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Diagnostic, len(e.diags))
	copy(out, e.diags)
	return out
}

// Status returns the lifecycle phase.
func (e *Engine) Status() domain.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// CurrentBranch returns the active branch name; empty means the
// synthetic initial pointer.
func (e *Engine) CurrentBranch() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// --- internals ---

func (e *Engine) ensureActiveLocked() error {
	switch e.status {
	case domain.StatusActive:
		return nil
	case domain.StatusIdle:
		return fmt.Errorf("%w: call Start first", domain.ErrNotStarted)
	default:
		return fmt.Errorf("%w: conversation was reset", domain.ErrNotStarted)
	}
}

// currentBranchLocked resolves the pointer to a branch definition. The
// synthetic initial pointer resolves to the flow's initial message.
func (e *Engine) currentBranchLocked() *domain.Branch {
	if e.current == "" {
		return e.flow.InitialMessage
	}
	return e.graph.branches[e.current]
}

// matchTextLocked implements free-text destination resolution:
// branch-local transition keys first, then flow-level triggers.
func (e *Engine) matchTextLocked(text string) (string, bool) {
	cur := e.currentBranchLocked()
	if cur != nil {
		for _, t := range cur.Next {
			ok, diag := e.matcher.MatchValue(text, t.When)
			if diag != nil {
				e.recordLocked(withBranch(*diag, e.current))
			}
			if ok {
				return t.To, true
			}
		}
	}

	dest, ok, diags := e.matcher.Match(text, e.flow.UserTriggers)
	for _, d := range diags {
		e.recordLocked(d)
	}
	return dest, ok
}

// transitionLocked moves the pointer and runs the emission machinery
// for the destination branch. depth counts auto-followup hops.
func (e *Engine) transitionLocked(name string, depth int) {
	b, ok := e.resolveBranchLocked(name)
	if !ok {
		e.emitDefaultLocked()
		return
	}

	// The pointer moves immediately; predelay is presentation-only, so
	// rapid repeated calls stay well-defined.
	e.current = name
	e.seq++
	seq := e.seq

	if e.hooks.OnBranchEnter != nil {
		e.hooks.OnBranchEnter(context.Background(), e.flow.Name, name)
	}
	e.logger.Debug("branch enter", "flow", e.flow.Name, "branch", name, "depth", depth)

	if !b.Predelay.IsZero() {
		e.scheduleLocked(b.Predelay.Std(), func() {
			e.firePhase(name, seq, depth, phaseEmit)
		})
		return
	}
	e.emitBranchLocked(name, b, seq, depth)
}

// resolveBranchLocked looks the name up in the arena, expanding a
// still-unresolved subflow reference just-in-time. Failure reports a
// diagnostic and leaves the caller to degrade.
func (e *Engine) resolveBranchLocked(name string) (*domain.Branch, bool) {
	b, ok := e.graph.branches[name]
	if !ok {
		e.recordLocked(domain.Diagnostic{
			Code:    domain.DiagUnresolvedBranch,
			Branch:  e.current,
			Subject: name,
			Detail:  "transition destination not present in assembled graph",
		})
		return nil, false
	}

	if b.IsSubflowRef() {
		res, err := e.registry.Resolve(b.Subflow)
		if err != nil {
			e.recordLocked(domain.Diagnostic{
				Code:    domain.DiagUnknownSubflow,
				Branch:  name,
				Subject: b.Subflow.Subflow,
				Detail:  err.Error(),
			})
			return nil, false
		}
		for _, d := range e.graph.merge(name, res) {
			e.recordLocked(d)
		}
		b = e.graph.branches[name]
	}
	return b, true
}

type phase int

const (
	phaseEmit     phase = iota // after predelay: loading or final
	phaseFinalize              // after delay: the finalized message
)

// firePhase is the scheduler callback entry point. Stale transitions
// (superseded seq) and reset sessions are no-ops.
func (e *Engine) firePhase(name string, seq uint64, depth int, p phase) {
	e.mu.Lock()
	if e.status != domain.StatusActive || e.seq != seq {
		e.mu.Unlock()
		return
	}
	// The synthetic initial pointer lives outside the arena, like in
	// currentBranchLocked.
	b := e.graph.branches[name]
	if b == nil && name == "" {
		b = e.flow.InitialMessage
	}
	if b == nil {
		e.mu.Unlock()
		return
	}

	switch p {
	case phaseEmit:
		e.emitBranchLocked(name, b, seq, depth)
	case phaseFinalize:
		e.finalizeLocked(name, b, seq, depth)
	}

	out := e.drainLocked()
	e.mu.Unlock()
	e.dispatch(out)
}

// emitBranchLocked runs the emission machinery once the predelay (if
// any) has elapsed: either the two-phase loading/final sequence or a
// single final event.
func (e *Engine) emitBranchLocked(name string, b *domain.Branch, seq uint64, depth int) {
	if !b.Delay.IsZero() {
		e.emitLocked(domain.Event{
			Kind:   domain.EventLoading,
			Branch: name,
			Text:   e.substituteLocked(name, b.Response),
		})
		e.scheduleLocked(b.Delay.Std(), func() {
			e.firePhase(name, seq, depth, phaseFinalize)
		})
		return
	}
	e.finalizeLocked(name, b, seq, depth)
}

// finalizeLocked emits the finalized message with buttons and actions
// attached, then chains the auto-followup when the branch asks for it.
func (e *Engine) finalizeLocked(name string, b *domain.Branch, seq uint64, depth int) {
	e.emitLocked(domain.Event{
		Kind:       domain.EventFinal,
		Branch:     name,
		Text:       e.substituteLocked(name, b.Response),
		Buttons:    substituteButtons(b.Buttons, e.substitutionContextLocked(name)),
		Actions:    b.Actions,
		ArtifactID: b.ArtifactID,
	})

	if !domain.ContainsAutoContinue(b.Actions) {
		return
	}
	dest, ok := b.NextFor(domain.AutoFollowupKey)
	if !ok {
		return
	}
	if depth+1 >= e.maxAuto {
		e.recordLocked(domain.Diagnostic{
			Code:    domain.DiagAutoAdvanceLimit,
			Branch:  name,
			Subject: dest,
			Detail:  fmt.Sprintf("auto-followup chain exceeded %d hops", e.maxAuto),
		})
		return
	}
	e.transitionLocked(dest, depth+1)
}

// emitDefaultLocked answers unmatched or unresolvable input with the
// branch-level default message, falling back to the flow-level one.
// The pointer does not move.
func (e *Engine) emitDefaultLocked() {
	msg := e.flow.DefaultMessage
	if cur := e.currentBranchLocked(); cur != nil && cur.DefaultMessage != "" {
		msg = cur.DefaultMessage
	}
	if msg == "" {
		return
	}
	e.emitLocked(domain.Event{
		Kind:   domain.EventFinal,
		Branch: e.current,
		Text:   e.substituteLocked(e.current, msg),
	})
}

func (e *Engine) emitLocked(ev domain.Event) {
	e.history = append(e.history, ev)
	e.queue = append(e.queue, ev)
}

func (e *Engine) drainLocked() []domain.Event {
	out := e.queue
	e.queue = nil
	return out
}

// dispatch delivers drained events to the sink and hooks outside the
// lock, so sinks may call back into the engine.
func (e *Engine) dispatch(events []domain.Event) {
	if len(events) == 0 {
		return
	}
	e.mu.Lock()
	sink := e.sink
	flowName := e.flow.Name
	e.mu.Unlock()

	ctx := context.Background()
	for _, ev := range events {
		if e.hooks.OnEventEmit != nil {
			e.hooks.OnEventEmit(ctx, flowName, ev)
		}
		if ev.Kind == domain.EventFinal && e.hooks.OnActionDispatch != nil {
			for _, a := range ev.Actions {
				e.hooks.OnActionDispatch(ctx, flowName, a)
			}
		}
		if sink != nil {
			sink(ev)
		}
	}
}

// scheduleLocked registers a callback on the scheduler and tracks its
// token so Reset can invalidate it. The caller holds e.mu and the
// callback re-locks before reading the token, so the assignment below
// is visible to it even when the timer fires immediately. The scheduler
// must never run the callback inline from ScheduleAfter.
func (e *Engine) scheduleLocked(d time.Duration, fn func()) {
	var token string
	tok, err := e.scheduler.ScheduleAfter(d, func() {
		e.mu.Lock()
		delete(e.tokens, token)
		e.mu.Unlock()
		fn()
	})
	if err != nil {
		e.logger.Warn("failed to schedule delayed emission", "err", err)
		return
	}
	token = tok
	e.tokens[token] = struct{}{}
}

// substitutionContextLocked layers subflow parameters for the branch
// over the ambient variable context.
func (e *Engine) substitutionContextLocked(name string) map[string]any {
	params := e.graph.params[name]
	if len(params) == 0 {
		return e.vars
	}
	merged := make(map[string]any, len(e.vars)+len(params))
	for k, v := range e.vars {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

// substituteLocked resolves placeholders and records a diagnostic per
// unresolved token. The token itself stays verbatim in the output.
func (e *Engine) substituteLocked(name, text string) string {
	out, unresolved := vars.Validate(text, e.substitutionContextLocked(name))
	for _, path := range unresolved {
		e.recordLocked(domain.Diagnostic{
			Code:    domain.DiagUnresolvedVariable,
			Branch:  name,
			Subject: path,
		})
	}
	return out
}

func (e *Engine) recordLocked(d domain.Diagnostic) {
	e.diags = append(e.diags, d)
	e.logger.Warn("flow diagnostic",
		"flow", e.flow.Name, "code", string(d.Code),
		"branch", d.Branch, "subject", d.Subject, "detail", d.Detail)
	if e.hooks.OnDiagnostic != nil {
		e.hooks.OnDiagnostic(context.Background(), e.flow.Name, d)
	}
}

func withBranch(d domain.Diagnostic, branch string) domain.Diagnostic {
	if d.Branch == "" {
		d.Branch = branch
	}
	return d
}

func substituteButtons(buttons []domain.Button, ctx map[string]any) []domain.Button {
	if len(buttons) == 0 {
		return nil
	}
	out := make([]domain.Button, len(buttons))
	copy(out, buttons)
	for i := range out {
		out[i].Label = vars.Substitute(out[i].Label, ctx)
	}
	return out
}
