// Package file implements ports.FlowSource over a directory of flow
// documents. Both YAML and JSON are accepted; a document with a
// top-level "subflows" key is a subflow library, everything else is a
// flow named by its "name" field.
package file

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/branchwork/bramble/internal/dto"
	"github.com/branchwork/bramble/internal/logging"
	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/subflow"
	"gopkg.in/yaml.v3"
)

// Loader is an immutable FlowSource built by scanning a directory once
// at startup. Safe for concurrent use after New returns.
type Loader struct {
	flows    map[string]*domain.Flow
	registry *subflow.Registry
	logger   *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets a structured logger for load-time reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New scans dir for .yaml, .yml and .json documents. Subflow libraries
// are registered first so flows can reference them regardless of file
// ordering. A malformed document fails the whole load; a misconfigured
// host should not come up half-blind.
func New(dir string, opts ...Option) (*Loader, error) {
	l := &Loader{
		flows:    make(map[string]*domain.Flow),
		registry: subflow.NewRegistry(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	paths, err := documentPaths(dir)
	if err != nil {
		return nil, err
	}

	type pending struct {
		path string
		raw  map[string]any
	}
	var flowDocs []pending

	for _, path := range paths {
		raw, err := readDocument(path)
		if err != nil {
			return nil, err
		}

		if dto.IsSubflowDocument(raw) {
			defs, err := dto.DecodeSubflows(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			for id, def := range defs {
				if err := l.registry.Register(id, def); err != nil {
					return nil, fmt.Errorf("%s: %w", path, err)
				}
			}
			l.logger.Debug("registered subflow library", "path", path, "count", len(defs))
			continue
		}
		flowDocs = append(flowDocs, pending{path: path, raw: raw})
	}

	for _, doc := range flowDocs {
		flow, err := dto.DecodeFlow(doc.raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", doc.path, err)
		}
		if flow.Name == "" {
			flow.Name = strings.TrimSuffix(filepath.Base(doc.path), filepath.Ext(doc.path))
		}
		if _, exists := l.flows[flow.Name]; exists {
			return nil, fmt.Errorf("%s: flow %q already defined", doc.path, flow.Name)
		}
		l.flows[flow.Name] = flow
		l.logger.Debug("loaded flow", "path", doc.path, "flow", flow.Name)
	}

	return l, nil
}

// Flow returns the named flow document.
func (l *Loader) Flow(name string) (*domain.Flow, error) {
	flow, ok := l.flows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFlow, name)
	}
	return flow, nil
}

// Flows lists loaded flow names, sorted.
func (l *Loader) Flows() ([]string, error) {
	names := make([]string, 0, len(l.flows))
	for name := range l.flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Subflows returns the registry built from the directory's subflow
// libraries.
func (l *Loader) Subflows() *subflow.Registry {
	return l.registry
}

func documentPaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml", ".json":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// readDocument parses a file into a generic mapping. YAML is a
// superset of JSON, so one parser covers both extensions.
func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return raw, nil
}
