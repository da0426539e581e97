package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/branchwork/bramble"
	"github.com/branchwork/bramble/internal/presentation/tui"
)

// RunOptions configures an interactive session.
type RunOptions struct {
	Dir      string
	Flow     string
	Headless bool
	Debug    bool
	Vars     []string
}

// RunSession loads a flow directory and drives one conversation over
// stdin/stdout until the flow exits or the input closes.
func RunSession(opts RunOptions) error {
	logger := createLogger(opts.Debug)

	loader, flow, err := resolveFlow(opts.Dir, opts.Flow, logger)
	if err != nil {
		return err
	}

	vars, err := ParseVars(opts.Vars)
	if err != nil {
		return err
	}

	convOpts := []bramble.Option{
		bramble.WithSubflows(loader.Subflows()),
		bramble.WithVariables(vars),
		bramble.WithLogger(logger),
	}
	if opts.Debug {
		convOpts = append(convOpts, bramble.WithLifecycleHooks(createDebugHooks(logger)))
	}

	conv, err := bramble.New(flow, convOpts...)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	defer conv.Close()

	runner := bramble.NewRunner()
	runner.Input = os.Stdin
	runner.Output = os.Stdout
	runner.Headless = opts.Headless

	interactive := term.IsTerminal(int(os.Stdout.Fd())) && !opts.Headless
	if interactive {
		tui.PrintBanner()
		runner.Renderer = tui.NewRenderer()
		runner.Buttons = tui.RenderButtons
	}

	return runner.Run(conv)
}
