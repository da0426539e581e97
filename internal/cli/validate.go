package cli

import (
	"fmt"
	"io"

	"github.com/branchwork/bramble/internal/validator"
	"github.com/branchwork/bramble/pkg/adapters/file"
)

// Validate loads every flow in dir, runs static analysis on each and
// writes a human-readable report. The returned error is non-nil when
// any flow has problems, so hosts can exit non-zero in CI.
func Validate(dir string, out io.Writer, debug bool) error {
	logger := createLogger(debug)

	loader, err := file.New(dir, file.WithLogger(logger))
	if err != nil {
		return err
	}

	names, err := loader.Flows()
	if err != nil {
		return err
	}

	failed := 0
	for _, name := range names {
		flow, err := loader.Flow(name)
		if err != nil {
			return err
		}

		report := validator.ValidateFlow(flow, loader.Subflows())
		if report.OK() {
			fmt.Fprintf(out, "✓ %s\n", name)
			continue
		}

		failed++
		fmt.Fprintf(out, "✗ %s\n", name)
		for _, dest := range report.Dangling {
			fmt.Fprintf(out, "    dangling destination: %s\n", dest)
		}
		for _, branch := range report.Unreachable {
			fmt.Fprintf(out, "    unreachable branch: %s\n", branch)
		}
		for _, id := range report.UnknownSubflows {
			fmt.Fprintf(out, "    unknown subflow: %s\n", id)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d flows failed validation", failed, len(names))
	}
	fmt.Fprintf(out, "%d flows validated\n", len(names))
	return nil
}
