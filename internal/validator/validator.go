// Package validator performs static analysis of flow documents:
// dangling destinations and unreachable branches. It complements the
// engine's runtime diagnostics with checks that need whole-graph
// traversal.
package validator

import (
	"sort"

	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/subflow"
)

// Report lists the problems found in one flow document.
type Report struct {
	// Dangling are transition or trigger destinations that resolve to
	// no branch.
	Dangling []string

	// Unreachable are branches that no transition, trigger or initial
	// message can ever reach.
	Unreachable []string

	// UnknownSubflows are referenced subflow ids absent from the
	// registry.
	UnknownSubflows []string
}

// OK reports whether the flow passed every check.
func (r *Report) OK() bool {
	return len(r.Dangling) == 0 && len(r.Unreachable) == 0 && len(r.UnknownSubflows) == 0
}

// ValidateFlow crawls the flow from its entry points and reports
// dangling destinations and unreachable branches. Subflow references
// are expanded through the registry so follow-up branches count as
// both reachable and valid destinations.
func ValidateFlow(flow *domain.Flow, registry *subflow.Registry) *Report {
	if registry == nil {
		registry = subflow.NewRegistry()
	}

	report := &Report{}
	danglingSet := make(map[string]bool)
	unknownSet := make(map[string]bool)

	// known holds every name a transition may legally target: declared
	// branches plus follow-ups contributed by subflow expansion.
	known := make(map[string]*domain.Branch, len(flow.Branches))
	for name, b := range flow.Branches {
		known[name] = b
	}
	for name, b := range flow.Branches {
		if !b.IsSubflowRef() {
			continue
		}
		res, err := registry.Resolve(b.Subflow)
		if err != nil {
			unknownSet[b.Subflow.Subflow] = true
			continue
		}
		known[name] = res.Branch
		for fu, fb := range res.FollowUps {
			if _, exists := known[fu]; !exists {
				known[fu] = fb
			}
		}
	}

	visited := make(map[string]bool)
	var queue []string

	enqueue := func(dest string) {
		if _, ok := known[dest]; !ok {
			danglingSet[dest] = true
			return
		}
		if !visited[dest] {
			visited[dest] = true
			queue = append(queue, dest)
		}
	}

	if flow.InitialMessage != nil {
		for _, t := range flow.InitialMessage.Next {
			enqueue(t.To)
		}
	}
	for _, tr := range flow.UserTriggers {
		enqueue(tr.Destination)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, t := range known[current].Next {
			enqueue(t.To)
		}
	}

	for name := range flow.Branches {
		if !visited[name] {
			report.Unreachable = append(report.Unreachable, name)
		}
	}
	for dest := range danglingSet {
		report.Dangling = append(report.Dangling, dest)
	}
	for id := range unknownSet {
		report.UnknownSubflows = append(report.UnknownSubflows, id)
	}

	sort.Strings(report.Dangling)
	sort.Strings(report.Unreachable)
	sort.Strings(report.UnknownSubflows)
	return report
}
