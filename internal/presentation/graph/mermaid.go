package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/loader"
)

// Overlay contains run data to visualize on the graph.
type Overlay struct {
	// Outcomes holds the last outcome of each node, by name.
	Outcomes map[string]domain.Outcome
	// Interrupted names nodes whose last outcome followed an interrupt.
	Interrupted map[string]bool
}

// OverlayFromRecords keeps the last record of every node.
func OverlayFromRecords(recs []domain.OutcomeRecord) *Overlay {
	o := &Overlay{
		Outcomes:    make(map[string]domain.Outcome),
		Interrupted: make(map[string]bool),
	}
	for _, r := range recs {
		o.Outcomes[r.NodeName] = r.Outcome
		o.Interrupted[r.NodeName] = r.Interrupted
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of a tree definition.
// It applies semantic styling:
// - Sequence / Fallback / Parallel: [Rectangle] labelled with an operator
// - ScoreSelector: {{Hexagon}}
// - Command: [[Subroutine]]
// - EndWith: ((Circle))
// - Default: (Rounded)
// Edges out of ordered composites are numbered. Overlay outcomes, if
// provided, color the nodes.
func GenerateMermaid(def *loader.Definition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	_ = def.Walk(func(n *loader.Node, parent *loader.Node) error {
		safeID := sanitizeMermaidID(n.Name)
		opener, closer := "(", ")"
		label := n.Name

		switch n.Kind {
		case domain.KindSequence:
			opener, closer = "[", "]"
			label = "→ " + label
		case domain.KindFallback:
			opener, closer = "[", "]"
			label = "? " + label
		case domain.KindParallel:
			opener, closer = "[", "]"
			label = "⇉ " + label
		case domain.KindScoreSelector:
			opener, closer = "{{", "}}"
		case "command":
			opener, closer = "[[", "]]"
		case domain.KindEndWith:
			opener, closer = "((", "))"
		}

		var notes []string
		if n.Kind != domain.KindSequence && n.Kind != domain.KindFallback && n.Kind != domain.KindParallel {
			notes = append(notes, string(n.Kind))
		}
		if n.Repeat != nil {
			notes = append(notes, "↻ repeat")
		}
		if n.Score != nil {
			notes = append(notes, fmt.Sprintf("score %g", *n.Score))
		}
		if n.ScoreExpr != "" {
			notes = append(notes, "score = "+n.ScoreExpr)
		}
		text := escape(label)
		for _, note := range notes {
			text += " <br/> " + escape(note)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, text, closer))

		for i, c := range n.Children {
			arrow := "-->"
			if n.Kind == domain.KindSequence || n.Kind == domain.KindFallback {
				arrow = fmt.Sprintf("-- \"%d\" -->", i+1)
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeMermaidID(c.Name)))
		}
		return nil
	})

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme
		sb.WriteString("    classDef pass fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef fail fill:#ffcdd2,stroke:#c62828,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef interrupted fill:#eeeeee,stroke:#616161,stroke-dasharray:4,color:#000;\n")

		_ = def.Walk(func(n *loader.Node, _ *loader.Node) error {
			o, ok := overlay.Outcomes[n.Name]
			if !ok {
				return nil
			}
			class := o.String()
			if overlay.Interrupted[n.Name] {
				class = "interrupted"
			}
			sb.WriteString(fmt.Sprintf("    class %s %s;\n", sanitizeMermaidID(n.Name), class))
			return nil
		})
	}

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
