package cli

import (
	"fmt"
	"io"

	"github.com/branchwork/bramble/internal/presentation/graph"
)

// Graph writes a Mermaid diagram of the named flow to out. With an
// empty name the directory must contain exactly one flow.
func Graph(dir, flowName string, out io.Writer, debug bool) error {
	logger := createLogger(debug)

	_, flow, err := resolveFlow(dir, flowName, logger)
	if err != nil {
		return err
	}

	fmt.Fprint(out, graph.GenerateMermaid(flow, nil))
	return nil
}
