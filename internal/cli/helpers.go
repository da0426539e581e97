// Package cli carries the shared plumbing of the command line host:
// flow loading, variable parsing, logging setup and debug hooks.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/branchwork/bramble/internal/logging"
	"github.com/branchwork/bramble/pkg/adapters/file"
	"github.com/branchwork/bramble/pkg/domain"
)

// createLogger configures the application logger. Debug mode writes to
// Stderr so the conversation UI on Stdout stays clean.
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// createDebugHooks logs every lifecycle callback, for --debug runs.
func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnBranchEnter: func(ctx context.Context, flow, branch string) {
			logger.Debug("branch enter", "flow", flow, "branch", branch)
		},
		OnEventEmit: func(ctx context.Context, flow string, event domain.Event) {
			logger.Debug("event emit", "flow", flow, "kind", string(event.Kind), "branch", event.Branch)
		},
		OnActionDispatch: func(ctx context.Context, flow string, action domain.ActionTag) {
			logger.Debug("action dispatch", "flow", flow, "action", string(action))
		},
		OnDiagnostic: func(ctx context.Context, flow string, diag domain.Diagnostic) {
			logger.Warn("diagnostic", "flow", flow, "detail", diag.String())
		},
	}
}

// ParseVars converts --var key=value pairs into the nested variable
// context placeholders resolve against. Dots in keys create nesting:
// "user.first=Sam" becomes {"user": {"first": "Sam"}}.
func ParseVars(pairs []string) (map[string]any, error) {
	vars := make(map[string]any)
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid variable %q: expected key=value", pair)
		}

		path := strings.Split(key, ".")
		node := vars
		for i, part := range path {
			if part == "" {
				return nil, fmt.Errorf("invalid variable key %q", key)
			}
			if i == len(path)-1 {
				node[part] = value
				break
			}
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
	}
	return vars, nil
}

// resolveFlow loads the directory and picks the flow to run: the named
// one, or the only one present when the name is empty.
func resolveFlow(dir, name string, logger *slog.Logger) (*file.Loader, *domain.Flow, error) {
	loader, err := file.New(dir, file.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	names, err := loader.Flows()
	if err != nil {
		return nil, nil, err
	}
	if len(names) == 0 {
		return nil, nil, fmt.Errorf("no flow documents found in %s", dir)
	}

	if name == "" {
		if len(names) > 1 {
			return nil, nil, fmt.Errorf("directory contains %d flows (%s); pick one with --flow",
				len(names), strings.Join(names, ", "))
		}
		name = names[0]
	}

	flow, err := loader.Flow(name)
	if err != nil {
		return nil, nil, err
	}
	return loader, flow, nil
}
