// Package export renders the current attack graph as Graphviz DOT,
// coloring nodes and edges by compromise status so a patched path is
// visually obvious. This is plain text templating over stdlib's
// io/fmt; no available library does Graphviz generation, so there is
// nothing suitable to delegate to.
package export

import (
	"fmt"
	"io"
	"sort"
)

// Edge is a directed network-access edge to render.
type Edge struct {
	Src, Dst, Service string
}

// Graph is everything DOT needs to render one snapshot of the attack
// graph: every known host, every network edge, which hosts the
// attacker currently has code execution on, the attacker's starting
// host, and the goal host.
type Graph struct {
	Nodes         []string
	Edges         []Edge
	Compromised   map[string]bool
	AttackerStart string
	TargetNode    string
}

// WriteDOT writes g as a titled Graphviz digraph to w.
func WriteDOT(w io.Writer, title string, g Graph) error {
	bw := &errWriter{w: w}

	bw.printf("digraph AttackGraph {\n")
	bw.printf("    label=%q;\n", title)
	bw.printf("    labelloc=\"t\";\n")
	bw.printf("    fontsize=20;\n")
	bw.printf("    rankdir=LR;\n")
	bw.printf("    node [shape=box, style=filled];\n\n")

	nodes := append([]string(nil), g.Nodes...)
	sort.Strings(nodes)
	for _, node := range nodes {
		color, suffix := nodeStyle(g, node)
		bw.printf("    %q [fillcolor=%s, label=%q];\n", node, color, node+suffix)
	}
	bw.printf("\n")

	edges := append([]Edge(nil), g.Edges...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Src != edges[j].Src {
			return edges[i].Src < edges[j].Src
		}
		if edges[i].Dst != edges[j].Dst {
			return edges[i].Dst < edges[j].Dst
		}
		return edges[i].Service < edges[j].Service
	})
	for _, e := range edges {
		color, penwidth := edgeStyle(g, e)
		bw.printf("    %q -> %q [label=%q, color=%s, penwidth=%s];\n", e.Src, e.Dst, e.Service, color, penwidth)
	}

	bw.printf("}\n")
	return bw.err
}

func nodeStyle(g Graph, node string) (color, suffix string) {
	switch {
	case node == g.AttackerStart:
		return "lightblue", " [ATTACKER]"
	case node == g.TargetNode:
		if g.Compromised[node] {
			return "red", " [TARGET - COMPROMISED!]"
		}
		return "lightgreen", " [TARGET - SAFE]"
	case g.Compromised[node]:
		return "orange", " [COMPROMISED]"
	default:
		return "white", ""
	}
}

func edgeStyle(g Graph, e Edge) (color, penwidth string) {
	if g.Compromised[e.Src] && g.Compromised[e.Dst] {
		return "red", "2.0"
	}
	return "black", "1.0"
}

// errWriter lets WriteDOT ignore intermediate write errors and surface
// only the first one, avoiding a manual err-check after every printf.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
