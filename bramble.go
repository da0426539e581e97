package bramble

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/branchwork/bramble/internal/runtime"
	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/ports"
	"github.com/branchwork/bramble/pkg/schedule"
	"github.com/branchwork/bramble/pkg/subflow"
)

// Conversation is the high-level entry point for the library. It wraps
// the internal runtime engine and provides a simplified API for hosts.
// One Conversation is one session over one flow document.
type Conversation struct {
	runtime   *runtime.Engine
	flow      *domain.Flow
	scheduler ports.Scheduler
	ownsSched bool
	logger    *slog.Logger
	Name      string
}

// Option defines a functional option for configuring a Conversation.
type Option func(*builder)

type builder struct {
	registry  *subflow.Registry
	variables map[string]any
	scheduler ports.Scheduler
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	maxAuto   int
}

// WithSubflows injects the registry used to resolve subflow references.
func WithSubflows(r *subflow.Registry) Option {
	return func(b *builder) {
		b.registry = r
	}
}

// WithVariables seeds the substitution context (user profile, customer
// record). The Conversation owns the map afterwards.
func WithVariables(vars map[string]any) Option {
	return func(b *builder) {
		b.variables = vars
	}
}

// WithScheduler injects a custom timer facility. Without it a real
// timer scheduler is created and owned by the Conversation.
func WithScheduler(s ports.Scheduler) Option {
	return func(b *builder) {
		b.scheduler = s
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(b *builder) {
		b.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *builder) {
		b.logger = logger
	}
}

// WithMaxAutoAdvance overrides the auto-followup chain cap.
func WithMaxAutoAdvance(n int) Option {
	return func(b *builder) {
		b.maxAuto = n
	}
}

// New creates an idle Conversation over the flow. Call Start to
// activate it, and Close when done so owned timers are released.
func New(flow *domain.Flow, opts ...Option) (*Conversation, error) {
	if flow == nil {
		return nil, fmt.Errorf("flow is required")
	}

	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}

	c := &Conversation{
		flow:      flow,
		scheduler: b.scheduler,
		Name:      flow.Name,
	}
	if c.scheduler == nil {
		c.scheduler = schedule.NewTimerScheduler()
		c.ownsSched = true
	}

	if b.logger == nil {
		b.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c.logger = b.logger
	if c.Name != "" {
		c.logger = c.logger.With("flow", c.Name)
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(c.logger),
		runtime.WithScheduler(c.scheduler),
		runtime.WithLifecycleHooks(b.hooks),
	}
	if b.maxAuto > 0 {
		runtimeOpts = append(runtimeOpts, runtime.WithMaxAutoAdvance(b.maxAuto))
	}

	c.runtime = runtime.NewEngine(flow, b.registry, b.variables, runtimeOpts...)
	return c, nil
}

// Subscribe registers the host's event sink. Delayed phases and
// auto-followups arrive only through the sink.
func (c *Conversation) Subscribe(sink domain.EventSink) {
	c.runtime.Subscribe(sink)
}

// Start activates the session and returns the synchronously emitted
// events (the flow's initial message when the AI opens).
func (c *Conversation) Start() ([]domain.Event, error) {
	return c.runtime.Start()
}

// SubmitText feeds free user text into the conversation.
func (c *Conversation) SubmitText(text string) error {
	return c.runtime.SubmitText(text)
}

// SubmitButton feeds a button selection into the conversation.
func (c *Conversation) SubmitButton(value string) error {
	return c.runtime.SubmitButton(value)
}

// NavigateToBranch jumps directly to a named branch.
func (c *Conversation) NavigateToBranch(name string) (*domain.Event, error) {
	return c.runtime.NavigateToBranch(name)
}

// Reset discards session state and cancels every pending emission.
func (c *Conversation) Reset() {
	c.runtime.Reset()
}

// InitialMessage previews the substituted opening message without
// mutating any state. Nil when the user speaks first.
func (c *Conversation) InitialMessage() *domain.Event {
	return c.runtime.InitialMessage()
}

// Snapshot returns a copy of the session state for persistence.
func (c *Conversation) Snapshot() *domain.State {
	return c.runtime.Snapshot()
}

// Restore rebuilds the session from a persisted snapshot.
func (c *Conversation) Restore(state *domain.State) error {
	return c.runtime.Restore(state)
}

// History returns a copy of the emitted events so far.
func (c *Conversation) History() []domain.Event {
	return c.runtime.History()
}

// Diagnostics returns the recoverable configuration problems observed
// so far (unknown subflows, dangling destinations, bad patterns).
func (c *Conversation) Diagnostics() []domain.Diagnostic {
	return c.runtime.Diagnostics()
}

// Status returns the lifecycle phase.
func (c *Conversation) Status() domain.Status {
	return c.runtime.Status()
}

// CurrentBranch returns the active branch name.
func (c *Conversation) CurrentBranch() string {
	return c.runtime.CurrentBranch()
}

// Flow returns the immutable flow document this session runs over.
func (c *Conversation) Flow() *domain.Flow {
	return c.flow
}

// Close releases the scheduler when the Conversation owns it. Injected
// schedulers are left running for their owner to stop.
func (c *Conversation) Close() {
	if c.ownsSched {
		c.scheduler.Stop()
	}
}
