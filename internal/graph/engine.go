package graph

import (
	"fmt"
	"maps"
	"math"
	"strconv"
)

const (
	minStrokeWidth = 2.0
	maxStrokeWidth = 8.0

	slowPathRatio = 0.7
	busyPathRatio = 0.8
)

// ComputeEdgeStyles applies the frequency/performance policy with the default
// palette. Maxima are taken over the whole edge set, hidden edges included.
func ComputeEdgeStyles(edges []Edge, metric DisplayMetric, threshold float64) []StyledEdge {
	return FlowPolicy{Metric: metric, Threshold: threshold}.Apply(edges, DefaultPalette())
}

// ComputeNodeVisibility marks a node visible iff it is an endpoint of at least
// one non-hidden edge. Isolated nodes are always hidden and dangling edge
// endpoints are ignored.
func ComputeNodeVisibility(nodes []Node, edges []StyledEdge) []StyledNode {
	visible := make(map[string]struct{}, len(edges)*2)
	for _, e := range edges {
		if e.Hidden {
			continue
		}
		visible[e.Source] = struct{}{}
		visible[e.Target] = struct{}{}
	}

	out := make([]StyledNode, len(nodes))
	for i, n := range nodes {
		_, ok := visible[n.ID]
		out[i] = StyledNode{Node: copyNode(n), Hidden: !ok}
	}
	return out
}

// MergePositions returns next with positions carried over from previous for
// every node id present in both. Nodes new to next keep whatever position
// they came with.
func MergePositions(previous, next []Node) []Node {
	known := make(map[string]Position, len(previous))
	for _, n := range previous {
		if n.Position != nil {
			known[n.ID] = *n.Position
		}
	}

	out := make([]Node, len(next))
	for i, n := range next {
		out[i] = copyNode(n)
		if p, ok := known[n.ID]; ok {
			out[i].Position = &p
		}
	}
	return out
}

// detach copies e so a styled edge shares no map with the caller's edge.
func detach(e Edge) Edge {
	e.OutcomeStats = maps.Clone(e.OutcomeStats)
	return e
}

func copyNode(n Node) Node {
	if n.Position != nil {
		p := *n.Position
		n.Position = &p
	}
	return n
}

// normalize divides v by max, treating a zero max as "everything is zero".
func normalize(v, max float64) float64 {
	if max == 0 {
		return 0
	}
	return v / max
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func widthFor(ratio float64) float64 {
	return math.Max(minStrokeWidth, ratio*maxStrokeWidth)
}

// FrequencyLabel renders an edge count, e.g. "12 items".
func FrequencyLabel(freq float64) string {
	return strconv.FormatFloat(freq, 'f', -1, 64) + " items"
}

// WaitLabel renders an average wait in hours with one decimal, e.g. "3.5h".
func WaitLabel(hours float64) string {
	return fmt.Sprintf("%.1fh", hours)
}
