package middleware

import (
	"context"
	"regexp"

	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/ports"
)

// masked replaces matched variable values at rest.
const masked = "***"

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMasking creates a middleware that masks the values of variable
// keys matching any of the patterns before persisting. The in-memory
// state the engine runs on is left untouched; only the stored copy is
// masked. Loads pass through, so restored sessions see the mask.
func NewPIIMasking(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, state *domain.State) error {
	cloned := *state
	cloned.Vars = deepCopyVars(state.Vars)
	maskVars(cloned.Vars, m.patterns)
	return m.next.Save(ctx, sessionID, &cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func deepCopyVars(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		if nested, ok := v.(map[string]any); ok {
			out[k] = deepCopyVars(nested)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskVars(vars map[string]any, patterns []*regexp.Regexp) {
	for k, v := range vars {
		for _, p := range patterns {
			if p.MatchString(k) {
				vars[k] = masked
				break
			}
		}
		if nested, ok := v.(map[string]any); ok {
			maskVars(nested, patterns)
		}
	}
}
