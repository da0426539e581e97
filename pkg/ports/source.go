package ports

import (
	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/subflow"
)

// FlowSource supplies flow documents by name. Sources also expose the
// subflow registry their documents were loaded with, since a flow is
// only meaningful together with the subflows it references.
type FlowSource interface {
	// Flow returns the named flow document.
	// Returns domain.ErrUnknownFlow if no such flow exists.
	Flow(name string) (*domain.Flow, error)

	// Flows lists available flow names.
	Flows() ([]string, error)

	// Subflows returns the registry shared by this source's flows.
	Subflows() *subflow.Registry
}
