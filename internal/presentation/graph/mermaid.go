package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/state"
)

// Overlay contains dynamic data to visualize on the tree.
type Overlay struct {
	// Current is the name of the state the router is in.
	Current string
	// Redirects are drawn as dotted edges, keyed by source state.
	Redirects map[string]string
}

// GenerateMermaid produces a Mermaid flowchart of the state tree rooted at the
// implicit root. It applies semantic styling:
//   - Root: ((Circle))
//   - Abstract: {{Hexagon}}
//   - States with resolves: [[Subroutine]]
//   - Default: [Rectangle]
//
// Params are listed under the state name. With an overlay, the current state
// and its ancestors are highlighted.
func GenerateMermaid(states []*state.State, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    root((\"root\"))\n")

	byName := make(map[string]*state.State, len(states))
	for _, s := range states {
		byName[s.Name] = s
	}

	for _, s := range states {
		id := sanitizeMermaidID(s.Name)

		opener, closer := "[", "]"
		switch {
		case s.Abstract:
			opener, closer = "{{", "}}"
		case len(s.Resolve) > 0:
			opener, closer = "[[", "]]"
		}

		label := s.Name
		if len(s.Params) > 0 {
			label = fmt.Sprintf("%s <br/> (%s)", s.Name, strings.Join(s.Params.IDs(), ", "))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, label, closer)

		parent := "root"
		if s.Parent != nil && s.Parent.Name != "" {
			parent = sanitizeMermaidID(s.Parent.Name)
		}
		fmt.Fprintf(&sb, "    %s --> %s\n", parent, id)
	}

	if overlay == nil {
		return sb.String()
	}

	for _, from := range sortedKeys(overlay.Redirects) {
		fmt.Fprintf(&sb, "    %s -. redirect .-> %s\n", sanitizeMermaidID(from), sanitizeMermaidID(overlay.Redirects[from]))
	}

	if current, ok := byName[overlay.Current]; ok {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast on light fills, regardless of theme.
		sb.WriteString("    classDef active fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for _, s := range current.Path() {
			if s.Name == "" || s == current {
				continue
			}
			fmt.Fprintf(&sb, "    class %s active;\n", sanitizeMermaidID(s.Name))
		}
		fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(current.Name))
	}
	return sb.String()
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", "$", "_")
	return "s_" + r.Replace(id)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
