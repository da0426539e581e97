package runtime

import (
	"testing"
	"time"

	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/schedule"
	"github.com/branchwork/bramble/pkg/subflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector gathers sink events for assertions. Manual scheduler
// callbacks run on the test goroutine, so no locking is needed.
type collector struct {
	events []domain.Event
}

func (c *collector) sink(ev domain.Event) {
	c.events = append(c.events, ev)
}

func greetingFlow() *domain.Flow {
	return &domain.Flow{
		Name:           "greeting",
		StartsWith:     domain.StartsWithAI,
		DefaultMessage: "Sorry, I didn't catch that.",
		InitialMessage: &domain.Branch{
			Response: "Hi {{name}}! Ready to review {{customer}}?",
			Buttons: []domain.Button{
				{Label: "Let's go", Value: "yes"},
				{Label: "Not now", Value: "no"},
			},
			Next: []domain.Transition{
				{When: "yes", To: "review"},
				{When: "no", To: "snooze"},
			},
		},
		UserTriggers: []domain.Trigger{
			{Pattern: ".*help.*", Destination: "help"},
		},
		Branches: map[string]*domain.Branch{
			"review": {Response: "Pulling up the account."},
			"snooze": {Response: "No problem, later then."},
			"help":   {Response: "Here is what I can do."},
		},
	}
}

func testVars() map[string]any {
	return map[string]any{
		"user":     map[string]any{"first": "Sam"},
		"customer": map[string]any{"name": "Acme"},
	}
}

func TestEngine_StartEmitsSubstitutedInitialMessage(t *testing.T) {
	e := NewEngine(greetingFlow(), nil, testVars(),
		WithScheduler(schedule.NewManual()))

	events, err := e.Start()
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, domain.EventFinal, events[0].Kind)
	assert.Equal(t, "Hi Sam! Ready to review Acme?", events[0].Text)
	require.Len(t, events[0].Buttons, 2)
	assert.Equal(t, "Let's go", events[0].Buttons[0].Label)
	assert.Equal(t, domain.StatusActive, e.Status())
}

func TestEngine_StartsWithUserEmitsNothing(t *testing.T) {
	flow := greetingFlow()
	flow.StartsWith = domain.StartsWithUser
	e := NewEngine(flow, nil, testVars(), WithScheduler(schedule.NewManual()))

	events, err := e.Start()
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Nil(t, e.InitialMessage())
}

func TestEngine_SubmitBeforeStartFails(t *testing.T) {
	e := NewEngine(greetingFlow(), nil, nil, WithScheduler(schedule.NewManual()))

	assert.ErrorIs(t, e.SubmitButton("yes"), domain.ErrNotStarted)
	assert.ErrorIs(t, e.SubmitText("hello"), domain.ErrNotStarted)
	_, err := e.NavigateToBranch("review")
	assert.ErrorIs(t, err, domain.ErrNotStarted)
}

func TestEngine_ButtonTransition(t *testing.T) {
	c := &collector{}
	e := NewEngine(greetingFlow(), nil, testVars(), WithScheduler(schedule.NewManual()))
	e.Subscribe(c.sink)
	_, err := e.Start()
	require.NoError(t, err)

	require.NoError(t, e.SubmitButton("yes"))
	assert.Equal(t, "review", e.CurrentBranch())

	last := c.events[len(c.events)-1]
	assert.Equal(t, domain.EventFinal, last.Kind)
	assert.Equal(t, "Pulling up the account.", last.Text)
}

func TestEngine_UnknownButtonValueIsIgnored(t *testing.T) {
	c := &collector{}
	e := NewEngine(greetingFlow(), nil, testVars(), WithScheduler(schedule.NewManual()))
	e.Subscribe(c.sink)
	_, err := e.Start()
	require.NoError(t, err)
	before := len(c.events)

	require.NoError(t, e.SubmitButton("maybe"))
	assert.Equal(t, "", e.CurrentBranch())
	assert.Len(t, c.events, before)
}

func TestEngine_TextPrefersBranchTransitionsOverTriggers(t *testing.T) {
	flow := greetingFlow()
	// "yes" doubles as a free-text pattern on the initial branch; the
	// flow-level trigger would also match but must lose.
	flow.UserTriggers = append([]domain.Trigger{
		{Pattern: ".*yes.*", Destination: "help"},
	}, flow.UserTriggers...)

	e := NewEngine(flow, nil, testVars(), WithScheduler(schedule.NewManual()))
	_, err := e.Start()
	require.NoError(t, err)

	require.NoError(t, e.SubmitText("yes please"))
	assert.Equal(t, "review", e.CurrentBranch())
}

func TestEngine_TriggerMatchesWhenBranchDoesNot(t *testing.T) {
	e := NewEngine(greetingFlow(), nil, testVars(), WithScheduler(schedule.NewManual()))
	_, err := e.Start()
	require.NoError(t, err)

	require.NoError(t, e.SubmitText("I need some help here"))
	assert.Equal(t, "help", e.CurrentBranch())
}

func TestEngine_UnmatchedTextEmitsDefaultWithoutMoving(t *testing.T) {
	flow := greetingFlow()
	flow.Branches["review"].DefaultMessage = "Try one of the buttons."

	c := &collector{}
	e := NewEngine(flow, nil, testVars(), WithScheduler(schedule.NewManual()))
	e.Subscribe(c.sink)
	_, err := e.Start()
	require.NoError(t, err)

	require.NoError(t, e.SubmitText("gibberish"))
	assert.Equal(t, "", e.CurrentBranch())
	assert.Equal(t, "Sorry, I didn't catch that.", c.events[len(c.events)-1].Text)

	require.NoError(t, e.SubmitButton("yes"))
	require.NoError(t, e.SubmitText("more gibberish"))
	assert.Equal(t, "review", e.CurrentBranch())
	assert.Equal(t, "Try one of the buttons.", c.events[len(c.events)-1].Text)
}

func TestEngine_DelayEmitsLoadingThenFinal(t *testing.T) {
	flow := greetingFlow()
	flow.Branches["review"].Delay = domain.Duration(500 * time.Millisecond)
	flow.Branches["review"].Buttons = []domain.Button{{Label: "Done", Value: "done"}}

	m := schedule.NewManual()
	c := &collector{}
	e := NewEngine(flow, nil, testVars(), WithScheduler(m))
	e.Subscribe(c.sink)
	_, err := e.Start()
	require.NoError(t, err)

	require.NoError(t, e.SubmitButton("yes"))

	last := c.events[len(c.events)-1]
	assert.Equal(t, domain.EventLoading, last.Kind)
	assert.Empty(t, last.Buttons)

	m.Advance(time.Second)
	last = c.events[len(c.events)-1]
	assert.Equal(t, domain.EventFinal, last.Kind)
	assert.Equal(t, "Pulling up the account.", last.Text)
	require.Len(t, last.Buttons, 1)
}

func TestEngine_InitialMessageDelayFinalizes(t *testing.T) {
	flow := greetingFlow()
	flow.InitialMessage.Delay = domain.Duration(500 * time.Millisecond)

	m := schedule.NewManual()
	c := &collector{}
	e := NewEngine(flow, nil, testVars(), WithScheduler(m))
	e.Subscribe(c.sink)

	events, err := e.Start()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventLoading, events[0].Kind)

	m.Advance(time.Second)
	last := c.events[len(c.events)-1]
	assert.Equal(t, domain.EventFinal, last.Kind)
	assert.Equal(t, "Hi Sam! Ready to review Acme?", last.Text)
	require.Len(t, last.Buttons, 2)

	require.NoError(t, e.SubmitButton("yes"))
	assert.Equal(t, "review", e.CurrentBranch())
}

func TestEngine_InitialMessagePredelayDefersEmission(t *testing.T) {
	flow := greetingFlow()
	flow.InitialMessage.Predelay = domain.Duration(300 * time.Millisecond)

	m := schedule.NewManual()
	c := &collector{}
	e := NewEngine(flow, nil, testVars(), WithScheduler(m))
	e.Subscribe(c.sink)

	events, err := e.Start()
	require.NoError(t, err)
	assert.Empty(t, events)

	m.Advance(time.Second)
	require.NotEmpty(t, c.events)
	last := c.events[len(c.events)-1]
	assert.Equal(t, domain.EventFinal, last.Kind)
	assert.Equal(t, "Hi Sam! Ready to review Acme?", last.Text)
}

func TestEngine_PredelayThenDelayOrdering(t *testing.T) {
	flow := greetingFlow()
	flow.Branches["review"].Predelay = domain.Duration(100 * time.Millisecond)
	flow.Branches["review"].Delay = domain.Duration(50 * time.Millisecond)

	m := schedule.NewManual()
	c := &collector{}
	e := NewEngine(flow, nil, testVars(), WithScheduler(m))
	e.Subscribe(c.sink)
	_, err := e.Start()
	require.NoError(t, err)
	before := len(c.events)

	require.NoError(t, e.SubmitButton("yes"))
	assert.Len(t, c.events, before)

	m.Advance(99 * time.Millisecond)
	assert.Len(t, c.events, before)

	m.Advance(1 * time.Millisecond)
	require.Len(t, c.events, before+1)
	assert.Equal(t, domain.EventLoading, c.events[len(c.events)-1].Kind)

	m.Advance(49 * time.Millisecond)
	assert.Len(t, c.events, before+1)

	m.Advance(1 * time.Millisecond)
	require.Len(t, c.events, before+2)
	last := c.events[len(c.events)-1]
	assert.Equal(t, domain.EventFinal, last.Kind)
	assert.Equal(t, "Pulling up the account.", last.Text)
}

func TestEngine_NewInputSupersedesPendingFinalize(t *testing.T) {
	flow := greetingFlow()
	flow.Branches["review"].Delay = domain.Duration(500 * time.Millisecond)

	m := schedule.NewManual()
	c := &collector{}
	e := NewEngine(flow, nil, testVars(), WithScheduler(m))
	e.Subscribe(c.sink)
	_, err := e.Start()
	require.NoError(t, err)

	require.NoError(t, e.SubmitButton("yes"))
	require.NoError(t, e.SubmitText("I need help here"))
	assert.Equal(t, "help", e.CurrentBranch())
	before := len(c.events)

	m.Advance(time.Minute)
	assert.Len(t, c.events, before, "superseded finalize must stay silent")
	assert.Equal(t, "help", e.CurrentBranch())
}

func TestEngine_DelayedEmissionReleasesItsToken(t *testing.T) {
	flow := greetingFlow()
	flow.Branches["review"].Delay = domain.Duration(500 * time.Millisecond)

	m := schedule.NewManual()
	e := NewEngine(flow, nil, testVars(), WithScheduler(m))
	_, err := e.Start()
	require.NoError(t, err)

	require.NoError(t, e.SubmitButton("yes"))
	e.mu.Lock()
	outstanding := len(e.tokens)
	e.mu.Unlock()
	assert.Equal(t, 1, outstanding)

	m.Advance(time.Second)
	e.mu.Lock()
	outstanding = len(e.tokens)
	e.mu.Unlock()
	assert.Zero(t, outstanding)
}

func TestEngine_PredelayMovesPointerImmediately(t *testing.T) {
	flow := greetingFlow()
	flow.Branches["review"].Predelay = domain.Duration(300 * time.Millisecond)

	m := schedule.NewManual()
	c := &collector{}
	e := NewEngine(flow, nil, testVars(), WithScheduler(m))
	e.Subscribe(c.sink)
	_, err := e.Start()
	require.NoError(t, err)
	before := len(c.events)

	require.NoError(t, e.SubmitButton("yes"))
	assert.Equal(t, "review", e.CurrentBranch())
	assert.Len(t, c.events, before)

	m.Advance(time.Second)
	assert.Equal(t, domain.EventFinal, c.events[len(c.events)-1].Kind)
	assert.Equal(t, "Pulling up the account.", c.events[len(c.events)-1].Text)
}

func TestEngine_ResetCancelsPendingEmissions(t *testing.T) {
	flow := greetingFlow()
	flow.Branches["review"].Delay = domain.Duration(500 * time.Millisecond)

	m := schedule.NewManual()
	c := &collector{}
	e := NewEngine(flow, nil, testVars(), WithScheduler(m))
	e.Subscribe(c.sink)
	_, err := e.Start()
	require.NoError(t, err)

	require.NoError(t, e.SubmitButton("yes"))
	before := len(c.events)

	e.Reset()
	m.Advance(time.Minute)

	assert.Len(t, c.events, before)
	assert.Equal(t, 0, m.Pending())
	assert.Equal(t, domain.StatusCompleted, e.Status())
	assert.ErrorIs(t, e.SubmitText("anything"), domain.ErrNotStarted)
}

func TestEngine_AutoFollowupChains(t *testing.T) {
	flow := greetingFlow()
	flow.Branches["review"].Actions = []domain.ActionTag{domain.ActionNextChat}
	flow.Branches["review"].Next = []domain.Transition{
		{When: domain.AutoFollowupKey, To: "snooze"},
	}

	c := &collector{}
	e := NewEngine(flow, nil, testVars(), WithScheduler(schedule.NewManual()))
	e.Subscribe(c.sink)
	_, err := e.Start()
	require.NoError(t, err)

	require.NoError(t, e.SubmitButton("yes"))

	texts := make([]string, 0, 2)
	for _, ev := range c.events[1:] {
		texts = append(texts, ev.Text)
	}
	assert.Equal(t, []string{"Pulling up the account.", "No problem, later then."}, texts)
	assert.Equal(t, "snooze", e.CurrentBranch())
}

func TestEngine_AutoFollowupLoopHitsLimit(t *testing.T) {
	flow := greetingFlow()
	flow.Branches["review"].Actions = []domain.ActionTag{domain.ActionNextChat}
	flow.Branches["review"].Next = []domain.Transition{
		{When: domain.AutoFollowupKey, To: "review"},
	}

	e := NewEngine(flow, nil, testVars(),
		WithScheduler(schedule.NewManual()), WithMaxAutoAdvance(3))
	_, err := e.Start()
	require.NoError(t, err)

	require.NoError(t, e.SubmitButton("yes"))

	var found bool
	for _, d := range e.Diagnostics() {
		if d.Code == domain.DiagAutoAdvanceLimit {
			found = true
		}
	}
	assert.True(t, found, "expected an auto-advance limit diagnostic")
}

func TestEngine_UnresolvedVariableStaysVerbatim(t *testing.T) {
	flow := greetingFlow()
	flow.Branches["review"].Response = "Plan: {{account.tier}}"

	c := &collector{}
	e := NewEngine(flow, nil, testVars(), WithScheduler(schedule.NewManual()))
	e.Subscribe(c.sink)
	_, err := e.Start()
	require.NoError(t, err)

	require.NoError(t, e.SubmitButton("yes"))
	assert.Equal(t, "Plan: {{account.tier}}", c.events[len(c.events)-1].Text)

	var found bool
	for _, d := range e.Diagnostics() {
		if d.Code == domain.DiagUnresolvedVariable && d.Subject == "account.tier" {
			found = true
		}
	}
	assert.True(t, found, "expected an unresolved variable diagnostic")
}

func TestEngine_SubflowParametersLayerOverVars(t *testing.T) {
	registry := subflow.NewRegistry()
	require.NoError(t, registry.Register("common.checkin", &subflow.Definition{
		Branch: &domain.Branch{Response: "{{name}}, how is the {{task}} going?"},
	}))

	flow := greetingFlow()
	flow.Branches["review"] = &domain.Branch{
		Subflow: &domain.SubflowRef{
			Subflow:    "common.checkin",
			Parameters: map[string]any{"task": "renewal"},
		},
	}

	c := &collector{}
	e := NewEngine(flow, registry, testVars(), WithScheduler(schedule.NewManual()))
	e.Subscribe(c.sink)
	_, err := e.Start()
	require.NoError(t, err)

	require.NoError(t, e.SubmitButton("yes"))
	assert.Equal(t, "Sam, how is the renewal going?", c.events[len(c.events)-1].Text)
}

func TestEngine_NavigateToBranch(t *testing.T) {
	e := NewEngine(greetingFlow(), nil, testVars(), WithScheduler(schedule.NewManual()))
	_, err := e.Start()
	require.NoError(t, err)

	ev, err := e.NavigateToBranch("help")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "Here is what I can do.", ev.Text)
	assert.Equal(t, "help", e.CurrentBranch())

	_, err = e.NavigateToBranch("nowhere")
	assert.ErrorIs(t, err, domain.ErrUnknownBranch)
	assert.Equal(t, "help", e.CurrentBranch())
}

func TestEngine_SnapshotRestoreRoundTrip(t *testing.T) {
	e := NewEngine(greetingFlow(), nil, testVars(), WithScheduler(schedule.NewManual()))
	_, err := e.Start()
	require.NoError(t, err)
	require.NoError(t, e.SubmitButton("yes"))

	snap := e.Snapshot()
	require.Equal(t, "review", snap.CurrentBranch)
	require.Equal(t, domain.StatusActive, snap.Status)

	restored := NewEngine(greetingFlow(), nil, nil, WithScheduler(schedule.NewManual()))
	require.NoError(t, restored.Restore(snap))
	assert.Equal(t, "review", restored.CurrentBranch())
	assert.Equal(t, domain.StatusActive, restored.Status())

	require.NoError(t, restored.SubmitText("I need help"))
	assert.Equal(t, "help", restored.CurrentBranch())
}

func TestEngine_HistoryAccumulates(t *testing.T) {
	e := NewEngine(greetingFlow(), nil, testVars(), WithScheduler(schedule.NewManual()))
	_, err := e.Start()
	require.NoError(t, err)
	require.NoError(t, e.SubmitButton("yes"))

	h := e.History()
	require.Len(t, h, 2)
	assert.Equal(t, "Hi Sam! Ready to review Acme?", h[0].Text)
	assert.Equal(t, "Pulling up the account.", h[1].Text)
}
