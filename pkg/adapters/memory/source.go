package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/subflow"
)

// Source implements ports.FlowSource over flows registered in code.
// Useful for tests and for hosts that embed their flow documents.
type Source struct {
	mu       sync.RWMutex
	flows    map[string]*domain.Flow
	registry *subflow.Registry
}

// NewSource creates an empty source with its own subflow registry.
func NewSource() *Source {
	return &Source{
		flows:    make(map[string]*domain.Flow),
		registry: subflow.NewRegistry(),
	}
}

// Add registers a flow under its name. Re-adding a name is rejected so
// a misconfigured host fails at startup, not mid-conversation.
func (s *Source) Add(flow *domain.Flow) error {
	if flow == nil || flow.Name == "" {
		return fmt.Errorf("flow must have a name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.flows[flow.Name]; exists {
		return fmt.Errorf("flow %q already registered", flow.Name)
	}
	s.flows[flow.Name] = flow
	return nil
}

// Flow returns the named flow document.
func (s *Source) Flow(name string) (*domain.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flow, ok := s.flows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFlow, name)
	}
	return flow, nil
}

// Flows lists registered flow names, sorted.
func (s *Source) Flows() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.flows))
	for name := range s.flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Subflows returns the registry shared by this source's flows.
func (s *Source) Subflows() *subflow.Registry {
	return s.registry
}
