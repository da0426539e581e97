package runtime

import (
	"sort"

	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/subflow"
)

// graph is the session-owned arena of named branches. It starts as a
// copy of the flow's branch table with subflow references eagerly
// expanded, and grows additively if a reference resolves just-in-time
// mid-conversation. Existing keys are never overwritten: a collision
// keeps the first definition and is reported as a diagnostic.
type graph struct {
	branches map[string]*domain.Branch

	// params holds subflow parameters keyed by the branch names a
	// resolution contributed, layered over the ambient variable
	// context during substitution.
	params map[string]map[string]any
}

// assemble builds a fresh graph for one session. Branch names are
// processed in sorted order so collision reporting is deterministic
// run to run.
func assemble(flow *domain.Flow, registry *subflow.Registry) (*graph, []domain.Diagnostic) {
	g := &graph{
		branches: make(map[string]*domain.Branch, len(flow.Branches)),
		params:   make(map[string]map[string]any),
	}
	var diags []domain.Diagnostic

	names := make([]string, 0, len(flow.Branches))
	for name := range flow.Branches {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		g.branches[name] = flow.Branches[name].Clone()
	}

	// Eager expansion pass. References that fail to resolve stay in
	// the graph as references; the engine retries just-in-time and
	// degrades if the registry still has no answer.
	for _, name := range names {
		b := g.branches[name]
		if !b.IsSubflowRef() {
			continue
		}
		res, err := registry.Resolve(b.Subflow)
		if err != nil {
			diags = append(diags, domain.Diagnostic{
				Code:    domain.DiagUnknownSubflow,
				Branch:  name,
				Subject: b.Subflow.Subflow,
				Detail:  err.Error(),
			})
			continue
		}
		diags = append(diags, g.merge(name, res)...)
	}

	diags = append(diags, g.validate(flow)...)
	return g, diags
}

// merge splices a subflow resolution into the arena: the main branch
// replaces the referencing entry, follow-up branches join under their
// own names. First definition wins on collision.
func (g *graph) merge(name string, res *subflow.Resolution) []domain.Diagnostic {
	var diags []domain.Diagnostic

	g.branches[name] = res.Branch
	if res.Parameters != nil {
		g.params[name] = res.Parameters
	}

	followUps := make([]string, 0, len(res.FollowUps))
	for fu := range res.FollowUps {
		followUps = append(followUps, fu)
	}
	sort.Strings(followUps)

	for _, fu := range followUps {
		if _, exists := g.branches[fu]; exists {
			diags = append(diags, domain.Diagnostic{
				Code:    domain.DiagBranchCollision,
				Branch:  name,
				Subject: fu,
				Detail:  "follow-up branch name already defined; keeping first definition",
			})
			continue
		}
		g.branches[fu] = res.FollowUps[fu]
		if res.Parameters != nil {
			g.params[fu] = res.Parameters
		}
	}
	return diags
}

// validate reports transition destinations and trigger destinations
// that do not resolve to a branch in the assembled arena. These are
// configuration errors; at runtime the engine degrades to its default
// message when it hits one.
func (g *graph) validate(flow *domain.Flow) []domain.Diagnostic {
	var diags []domain.Diagnostic

	names := make([]string, 0, len(g.branches))
	for name := range g.branches {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b := g.branches[name]
		if b.IsSubflowRef() {
			continue // unresolved reference, already reported
		}
		for _, t := range b.Next {
			if !g.has(t.To) {
				diags = append(diags, domain.Diagnostic{
					Code:    domain.DiagUnresolvedBranch,
					Branch:  name,
					Subject: t.To,
					Detail:  "transition destination not present in assembled graph",
				})
			}
		}
	}

	for _, tr := range flow.UserTriggers {
		if !g.has(tr.Destination) {
			diags = append(diags, domain.Diagnostic{
				Code:    domain.DiagUnresolvedBranch,
				Subject: tr.Destination,
				Detail:  "user trigger destination not present in assembled graph",
			})
		}
	}

	if flow.InitialMessage != nil {
		for _, t := range flow.InitialMessage.Next {
			if !g.has(t.To) {
				diags = append(diags, domain.Diagnostic{
					Code:    domain.DiagUnresolvedBranch,
					Subject: t.To,
					Detail:  "initial message transition destination not present in assembled graph",
				})
			}
		}
	}
	return diags
}

func (g *graph) has(name string) bool {
	_, ok := g.branches[name]
	return ok
}
