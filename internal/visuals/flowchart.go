package visuals

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"procmap/internal/graph"
)

// GenerateFlowchart renders the visible part of a styled view as a Mermaid
// flowchart. Hidden nodes and edges are left out.
func GenerateFlowchart(view graph.View) string {
	body := flowchartSource(view)
	if body == "" {
		return ""
	}
	return fence(body)
}

func flowchartSource(view graph.View) string {
	nodes := view.VisibleNodes()
	if len(nodes) == 0 {
		return ""
	}

	// Mermaid ids must be plain identifiers; activity names are not.
	ids := make(map[string]string, len(nodes))
	for i, n := range nodes {
		ids[n.ID] = fmt.Sprintf("n%d", i)
	}

	var sb strings.Builder
	sb.WriteString("flowchart LR\n")
	for _, n := range nodes {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", ids[n.ID], mermaidText(nodeLabel(n.Node))))
	}

	var styles []string
	for _, e := range view.VisibleEdges() {
		src, okSrc := ids[e.Source]
		dst, okDst := ids[e.Target]
		if !okSrc || !okDst {
			continue
		}
		if e.Label != "" {
			sb.WriteString(fmt.Sprintf("    %s -->|\"%s\"| %s\n", src, mermaidText(e.Label), dst))
		} else {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", src, dst))
		}
		styles = append(styles, fmt.Sprintf("    linkStyle %d stroke:%s,stroke-width:%spx\n", len(styles), e.Style.Stroke, num(e.Style.StrokeWidth)))
	}
	for _, s := range styles {
		sb.WriteString(s)
	}
	return sb.String()
}

// GenerateDOT renders the visible part of a styled view as a Graphviz
// digraph. Nodes that carry a position are pinned to it.
func GenerateDOT(name string, view graph.View) string {
	var out bytes.Buffer
	out.WriteString(fmt.Sprintf("digraph %s {\n", dotQuote(name)))
	out.WriteString("  rankdir=LR;\n")
	out.WriteString("  node [shape=box, style=rounded];\n")

	visible := make(map[string]bool)
	for _, n := range view.VisibleNodes() {
		visible[n.ID] = true
		attrs := []string{"label=" + dotQuote(nodeLabel(n.Node))}
		if n.Position != nil {
			attrs = append(attrs, fmt.Sprintf("pos=\"%s,%s!\"", num(n.Position.X), num(n.Position.Y)))
		}
		out.WriteString(fmt.Sprintf("  %s [%s];\n", dotQuote(n.ID), strings.Join(attrs, ", ")))
	}

	for _, e := range view.VisibleEdges() {
		if !visible[e.Source] || !visible[e.Target] {
			continue
		}
		out.WriteString(fmt.Sprintf("  %s -> %s [label=%s, color=%s, penwidth=%s];\n",
			dotQuote(e.Source), dotQuote(e.Target), dotQuote(e.Label), dotQuote(e.Style.Stroke), num(e.Style.StrokeWidth)))
	}
	out.WriteString("}\n")
	return out.String()
}

func nodeLabel(n graph.Node) string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

func fence(body string) string {
	return "```mermaid\n" + body + "```"
}

func unfence(s string) string {
	s = strings.TrimPrefix(s, "```mermaid\n")
	return strings.TrimSuffix(s, "```")
}

var mermaidEscaper = strings.NewReplacer("\"", "#quot;", "\n", " ")

func mermaidText(s string) string {
	return mermaidEscaper.Replace(s)
}

var dotEscaper = strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "\n", "\\n")

func dotQuote(s string) string {
	return "\"" + dotEscaper.Replace(s) + "\""
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
