package bramble

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/branchwork/bramble/pkg/actions"
	"github.com/branchwork/bramble/pkg/domain"
)

// Runner drives a Conversation over line-based IO. It exists for easy
// testing and for integration with different frontends (plain CLI, TUI).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
	Buttons  ButtonRenderer

	// Actions, when set, dispatches the tags on finalized messages to
	// registered handlers. ExitTaskMode always ends the loop regardless.
	Actions *actions.Registry
}

// ContentRenderer transforms message text before it is written. This
// lets a TUI render markdown to ANSI without coupling the core package.
type ContentRenderer func(string) (string, error)

// ButtonRenderer formats the reply buttons of a message. Without one
// the Runner prints a plain "[value] Label" line per button.
type ButtonRenderer func([]domain.Button) string

// NewRunner creates a Runner; the caller must set Input and Output
// (typically os.Stdin and os.Stdout).
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes the conversation loop until the flow asks the host to
// exit, the input hits EOF, or the user types exit/quit.
//
// Events arrive asynchronously when branches declare delays; the sink
// renders them as they come while the loop blocks on input.
func (r *Runner) Run(conv *Conversation) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)

	var (
		mu      sync.Mutex
		buttons []domain.Button
		done    bool
	)

	conv.Subscribe(func(ev domain.Event) {
		mu.Lock()
		defer mu.Unlock()

		switch ev.Kind {
		case domain.EventLoading:
			if !r.Headless {
				fmt.Fprintln(r.Output, "...")
			}
		case domain.EventFinal:
			r.print(ev)
			buttons = ev.Buttons
			for _, a := range ev.Actions {
				if a == domain.ActionExitTaskMode {
					done = true
				}
			}
			if r.Actions != nil {
				if err := r.Actions.Dispatch(context.Background(), ev); err != nil {
					fmt.Fprintf(r.Output, "action error: %v\n", err)
				}
			}
		}
	})

	if _, err := conv.Start(); err != nil {
		return fmt.Errorf("start error: %w", err)
	}

	for {
		mu.Lock()
		stop := done
		mu.Unlock()
		if stop {
			break
		}

		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		text, err := lineReader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("input error: %w", err)
		}
		input := strings.TrimSpace(text)

		if input == "exit" || input == "quit" {
			break
		}
		if input == "" {
			continue
		}

		// Exact button values route through the button path; anything
		// else is free text for the trigger matcher.
		mu.Lock()
		value, isButton := matchButton(buttons, input)
		mu.Unlock()

		if isButton {
			err = conv.SubmitButton(value)
		} else {
			err = conv.SubmitText(input)
		}
		if err != nil {
			return fmt.Errorf("submit error: %w", err)
		}
	}

	conv.Reset()
	return nil
}

func (r *Runner) print(ev domain.Event) {
	output := ev.Text
	if r.Renderer != nil {
		if rendered, err := r.Renderer(ev.Text); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(output))

	if len(ev.Buttons) == 0 {
		return
	}
	if r.Buttons != nil {
		fmt.Fprintln(r.Output, "  "+r.Buttons(ev.Buttons))
		return
	}
	for _, b := range ev.Buttons {
		fmt.Fprintf(r.Output, "  [%s] %s\n", b.Value, b.Label)
	}
}

// matchButton resolves typed input against offered buttons, by value
// first, then case-insensitively by label.
func matchButton(buttons []domain.Button, input string) (string, bool) {
	for _, b := range buttons {
		if b.Value == input {
			return b.Value, true
		}
	}
	for _, b := range buttons {
		if strings.EqualFold(b.Label, input) {
			return b.Value, true
		}
	}
	return "", false
}
