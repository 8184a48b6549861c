package graph

import (
	"math"

	"procmap/internal/metricfmt"
)

// Policy decides label, color and width for every edge of a diagram.
type Policy interface {
	Apply(edges []Edge, palette Palette) []StyledEdge
}

// StyleEdges runs policy over edges using palette (empty entries fall back to
// the defaults).
func StyleEdges(edges []Edge, policy Policy, palette Palette) []StyledEdge {
	if len(edges) == 0 {
		return []StyledEdge{}
	}
	return policy.Apply(edges, palette.WithDefaults())
}

// View is a render-ready diagram.
type View struct {
	Nodes []StyledNode `json:"nodes"`
	Edges []StyledEdge `json:"edges"`
}

// VisibleEdges returns the edges not hidden by the threshold.
func (v View) VisibleEdges() []StyledEdge {
	out := make([]StyledEdge, 0, len(v.Edges))
	for _, e := range v.Edges {
		if !e.Hidden {
			out = append(out, e)
		}
	}
	return out
}

// VisibleNodes returns the nodes that take part in a visible edge.
func (v View) VisibleNodes() []StyledNode {
	out := make([]StyledNode, 0, len(v.Nodes))
	for _, n := range v.Nodes {
		if !n.Hidden {
			out = append(out, n)
		}
	}
	return out
}

// BuildView styles edges with policy and resolves node visibility from the
// result.
func BuildView(nodes []Node, edges []Edge, policy Policy, palette Palette) View {
	styled := StyleEdges(edges, policy, palette)
	return View{
		Nodes: ComputeNodeVisibility(nodes, styled),
		Edges: styled,
	}
}

// FlowPolicy styles process maps and handover networks by frequency and
// waiting time. Slow paths are flagged before busy ones.
type FlowPolicy struct {
	Metric    DisplayMetric
	Threshold float64
}

func (p FlowPolicy) Apply(edges []Edge, palette Palette) []StyledEdge {
	out := make([]StyledEdge, 0, len(edges))
	if len(edges) == 0 {
		return out
	}

	var maxFreq, maxWait float64
	for _, e := range edges {
		maxFreq = math.Max(maxFreq, e.Frequency)
		maxWait = math.Max(maxWait, e.AvgWaitHours)
	}

	for _, e := range edges {
		nf := normalize(e.Frequency, maxFreq)
		nw := normalize(e.AvgWaitHours, maxWait)
		hidden := nf < p.Threshold

		label := FrequencyLabel(e.Frequency)
		if p.Metric == DisplayPerformance {
			label = WaitLabel(e.AvgWaitHours)
		}

		var stroke string
		switch {
		case hidden:
			stroke = palette.Neutral
		case nw > slowPathRatio:
			stroke = palette.Warning
		case nf > busyPathRatio:
			stroke = palette.Highlight
		default:
			stroke = palette.Default
		}

		out = append(out, StyledEdge{
			Edge:                detach(e),
			Hidden:              hidden,
			Label:               label,
			Style:               Style{Stroke: stroke, StrokeWidth: widthFor(nf)},
			NormalizedFrequency: nf,
			NormalizedWait:      nw,
		})
	}
	return out
}

const (
	highOutcomeRatio = 0.75
	lowOutcomeRatio  = 0.25
)

// OutcomePolicy colors edges by where the selected outcome statistic sits in
// the min-max range of all edges that carry stats for MetricName. Edges
// without stats are drawn neutral with a frequency label. Nothing is hidden.
type OutcomePolicy struct {
	MetricName string
	MetricUnit string
	Stat       StatKind
}

func (p OutcomePolicy) Apply(edges []Edge, palette Palette) []StyledEdge {
	out := make([]StyledEdge, 0, len(edges))

	var lo, hi float64
	seen := false
	for _, e := range edges {
		s, ok := e.Stats(p.MetricName)
		if !ok {
			continue
		}
		v := s.Value(p.Stat)
		if !seen {
			lo, hi, seen = v, v, true
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	for _, e := range edges {
		s, ok := e.Stats(p.MetricName)
		if !ok {
			out = append(out, neutralEdge(e, FrequencyLabel(e.Frequency), palette))
			continue
		}

		v := s.Value(p.Stat)
		n := (v - lo) / span

		stroke := palette.OutcomeMid
		switch {
		case n > highOutcomeRatio:
			stroke = palette.OutcomeHigh
		case n < lowOutcomeRatio:
			stroke = palette.OutcomeLow
		}

		out = append(out, StyledEdge{
			Edge:                detach(e),
			Label:               metricfmt.Label(v, p.MetricName, p.MetricUnit) + " (" + FrequencyLabel(e.Frequency) + ")",
			Style:               Style{Stroke: stroke, StrokeWidth: widthFor(n)},
			NormalizedFrequency: n,
		})
	}
	return out
}

// SegmentPolicy highlights the transitions whose occurrence rate differs most
// between the high and low outcome segments. An empty difference set hands
// the edges to Fallback; with no Fallback every edge is drawn neutral.
type SegmentPolicy struct {
	Differences []PathDifference
	Fallback    Policy
}

type edgeKey struct{ source, target string }

func (p SegmentPolicy) Apply(edges []Edge, palette Palette) []StyledEdge {
	if len(p.Differences) == 0 && p.Fallback != nil {
		return p.Fallback.Apply(edges, palette)
	}

	diffs := make(map[edgeKey]PathDifference, len(p.Differences))
	for _, d := range p.Differences {
		k := edgeKey{d.Source, d.Target}
		if _, dup := diffs[k]; !dup {
			diffs[k] = d
		}
	}

	out := make([]StyledEdge, 0, len(edges))
	for _, e := range edges {
		label := FrequencyLabel(e.Frequency) + " (" + WaitLabel(e.AvgWaitHours) + ")"
		d, ok := diffs[edgeKey{e.Source, e.Target}]
		if !ok {
			out = append(out, neutralEdge(e, label, palette))
			continue
		}

		stroke := palette.OutcomeLow
		if d.DiffRate > 0 {
			stroke = palette.OutcomeHigh
		}
		out = append(out, StyledEdge{
			Edge:  detach(e),
			Label: label,
			Style: Style{
				Stroke:      stroke,
				StrokeWidth: SegmentWidth(d.DiffRate),
			},
		})
	}
	return out
}

// SegmentWidth maps a percentage-point difference to a stroke width:
// 10pt → 4, 20pt → 6, capped at 8.
func SegmentWidth(diffRate float64) float64 {
	return clamp(minStrokeWidth+math.Abs(diffRate)/10*2, minStrokeWidth, maxStrokeWidth)
}

func neutralEdge(e Edge, label string, palette Palette) StyledEdge {
	return StyledEdge{
		Edge:  detach(e),
		Label: label,
		Style: Style{Stroke: palette.Neutral, StrokeWidth: minStrokeWidth},
	}
}
