package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/branchwork/bramble/pkg/domain"
)

// entryID is the synthetic node representing the flow's opening
// message in the diagram.
const entryID = "__entry__"

// Overlay contains session state to visualize on the diagram.
type Overlay struct {
	VisitedBranches []string
	CurrentBranch   string
}

// GenerateMermaid produces a Mermaid flowchart from a flow document.
// Shapes carry meaning:
//   - Entry: ((Circle))
//   - Subflow reference: [[Subroutine]]
//   - Branch with buttons: [/Parallelogram/] (expects input)
//   - Default: [Rectangle]
//
// Delays are annotated on the node label; trigger edges are dotted.
func GenerateMermaid(flow *domain.Flow, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	if flow.InitialMessage != nil {
		sb.WriteString(fmt.Sprintf("    %s((\"start\"))\n", entryID))
		writeTransitions(&sb, entryID, flow.InitialMessage.Next, false)
	}

	names := make([]string, 0, len(flow.Branches))
	for name := range flow.Branches {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b := flow.Branches[name]
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		switch {
		case b.IsSubflowRef():
			opener, closer = "[[", "]]"
		case len(b.Buttons) > 0:
			opener, closer = "[/", "/]"
		}

		label := name
		if !b.Delay.IsZero() {
			label = fmt.Sprintf("%s <br/> %s", name, b.Delay)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		writeTransitions(&sb, safeID, b.Next, false)
	}

	// Flow-level triggers reach their destination from anywhere; draw
	// them from the entry node, dotted.
	for _, tr := range flow.UserTriggers {
		safePattern := strings.ReplaceAll(tr.Pattern, "\"", "'")
		sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n",
			entryID, safePattern, sanitizeMermaidID(tr.Destination)))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, name := range overlay.VisitedBranches {
			safeID := sanitizeMermaidID(name)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}
		if overlay.CurrentBranch != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentBranch)))
		}
	}

	return sb.String()
}

func writeTransitions(sb *strings.Builder, fromID string, transitions []domain.Transition, dotted bool) {
	for _, t := range transitions {
		safeTo := sanitizeMermaidID(t.To)
		safeWhen := strings.ReplaceAll(t.When, "\"", "'")

		arrow := fmt.Sprintf("-- \"%s\" -->", safeWhen)
		if t.When == domain.AutoFollowupKey {
			arrow = "-. auto .->"
		} else if dotted {
			arrow = fmt.Sprintf("-. \"%s\" .->", safeWhen)
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", fromID, arrow, safeTo))
	}
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
