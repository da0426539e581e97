// Package subflow holds the registry of reusable named conversation
// fragments and resolves references to them into concrete branches.
//
// A subflow is a main branch plus the follow-up branches its
// transitions point at. Multiple flows reference the same subflow by
// id ("common.snooze"), so resolution always hands out copies: a
// session may layer parameter substitution onto the result without
// mutating the shared registry entry.
package subflow

import (
	"fmt"
	"sort"
	"sync"

	"github.com/branchwork/bramble/pkg/domain"
)

// Definition is one registered subflow: its main branch and the
// follow-up branches merged into the caller's graph on expansion.
type Definition struct {
	// Branch becomes the effective definition of the referencing entry.
	Branch *domain.Branch `json:"branch" yaml:"branch"`

	// FollowUpBranches are merged into the caller's graph under their
	// own names so the main branch's transitions stay resolvable.
	FollowUpBranches map[string]*domain.Branch `json:"follow_up_branches,omitempty" yaml:"follow_up_branches,omitempty"`
}

// Resolution is the expanded form of a SubflowRef. Both maps contain
// copies owned by the caller.
type Resolution struct {
	Branch     *domain.Branch
	FollowUps  map[string]*domain.Branch
	Parameters map[string]any
}

// Registry is a flat id -> Definition table. Safe for concurrent use;
// typically populated once at load time and shared across sessions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a subflow under the given id. Re-registering an id is a
// configuration mistake and is rejected rather than silently replaced.
func (r *Registry) Register(id string, def *Definition) error {
	if id == "" {
		return fmt.Errorf("subflow id cannot be empty")
	}
	if def == nil || def.Branch == nil {
		return fmt.Errorf("subflow %q has no main branch", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[id]; exists {
		return fmt.Errorf("subflow %q already registered", id)
	}
	r.defs[id] = def
	return nil
}

// IDs returns the registered subflow ids, sorted for deterministic
// introspection output.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve expands a reference into a copied branch plus its follow-up
// branches. Resolution is a pure function of the registry contents: it
// never mutates the stored definition. An unknown id yields
// domain.ErrUnknownSubflow, which callers must treat as terminal for
// the transition that referenced it.
func (r *Registry) Resolve(ref *domain.SubflowRef) (*Resolution, error) {
	if ref == nil {
		return nil, fmt.Errorf("nil subflow reference")
	}

	r.mu.RLock()
	def, ok := r.defs[ref.Subflow]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSubflow, ref.Subflow)
	}

	res := &Resolution{
		Branch:    def.Branch.Clone(),
		FollowUps: make(map[string]*domain.Branch, len(def.FollowUpBranches)),
	}
	for name, b := range def.FollowUpBranches {
		res.FollowUps[name] = b.Clone()
	}
	if len(ref.Parameters) > 0 {
		res.Parameters = make(map[string]any, len(ref.Parameters))
		for k, v := range ref.Parameters {
			res.Parameters[k] = v
		}
	}
	return res, nil
}
