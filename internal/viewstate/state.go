// Package viewstate holds the dashboard's view state as an immutable value
// updated through a pure reducer.
package viewstate

import (
	"math"
	"slices"

	"procmap/internal/graph"
)

// Metric is an outcome metric offered for selection.
type Metric struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// OutcomeState is the outcome-map selection.
type OutcomeState struct {
	Metrics  []Metric       `json:"metrics"`
	Selected string         `json:"selected"`
	Stat     graph.StatKind `json:"stat"`
}

// SelectedMetric returns the selected metric with its unit.
func (o OutcomeState) SelectedMetric() (Metric, bool) {
	for _, m := range o.Metrics {
		if m.Name == o.Selected {
			return m, true
		}
	}
	return Metric{}, false
}

// State is a snapshot of everything a diagram view derives from. Slices are
// never modified after a State is built.
type State struct {
	AnalysisID string              `json:"analysis_id"`
	Nodes      []graph.Node        `json:"nodes"`
	Edges      []graph.Edge        `json:"edges"`
	Metric     graph.DisplayMetric `json:"display_metric"`
	Threshold  float64             `json:"path_threshold"`
	Outcome    OutcomeState        `json:"outcome"`
}

// Initial returns the empty state with frequency display and no threshold.
func Initial() State {
	return State{
		Metric:  graph.DisplayFrequency,
		Outcome: OutcomeState{Stat: graph.StatAvg},
	}
}

// View styles the current graph with the flow policy.
func (s State) View(palette graph.Palette) graph.View {
	policy := graph.FlowPolicy{Metric: s.Metric, Threshold: s.Threshold}
	return graph.BuildView(s.Nodes, s.Edges, policy, palette)
}

// OutcomeView styles the current graph by the selected outcome metric.
func (s State) OutcomeView(palette graph.Palette) graph.View {
	m, _ := s.Outcome.SelectedMetric()
	if m.Name == "" {
		m.Name = s.Outcome.Selected
	}
	policy := graph.OutcomePolicy{MetricName: m.Name, MetricUnit: m.Unit, Stat: s.Outcome.Stat}
	return graph.BuildView(s.Nodes, s.Edges, policy, palette)
}

// Action is a state transition understood by Reduce.
type Action interface {
	apply(State) State
}

// Reduce returns the state after applying actions in order. s is left
// untouched.
func Reduce(s State, actions ...Action) State {
	for _, a := range actions {
		if a != nil {
			s = a.apply(s)
		}
	}
	return s
}

// SetGraph replaces the displayed graph. Reloading the same analysis keeps
// the positions of nodes that were already laid out.
type SetGraph struct {
	AnalysisID string
	Nodes      []graph.Node
	Edges      []graph.Edge
}

func (a SetGraph) apply(s State) State {
	if a.AnalysisID != "" && a.AnalysisID == s.AnalysisID {
		s.Nodes = graph.MergePositions(s.Nodes, a.Nodes)
	} else {
		s.Nodes = graph.MergePositions(nil, a.Nodes)
	}
	s.Edges = slices.Clone(a.Edges)
	s.AnalysisID = a.AnalysisID
	return s
}

type SetDisplayMetric struct {
	Metric graph.DisplayMetric
}

func (a SetDisplayMetric) apply(s State) State {
	s.Metric = graph.ParseDisplayMetric(string(a.Metric))
	return s
}

// SetPathThreshold sets the visibility ratio, clamped to [0, 1].
type SetPathThreshold struct {
	Value float64
}

func (a SetPathThreshold) apply(s State) State {
	v := a.Value
	if math.IsNaN(v) {
		v = 0
	}
	s.Threshold = math.Max(0, math.Min(1, v))
	return s
}

// SetPositions applies a layout result. Unknown ids are ignored.
type SetPositions struct {
	Positions map[string]graph.Position
}

func (a SetPositions) apply(s State) State {
	nodes := make([]graph.Node, len(s.Nodes))
	for i, n := range s.Nodes {
		if p, ok := a.Positions[n.ID]; ok {
			n.Position = &p
		} else if n.Position != nil {
			p := *n.Position
			n.Position = &p
		}
		nodes[i] = n
	}
	s.Nodes = nodes
	return s
}

// SetMetrics replaces the available outcome metrics. The selection survives
// when still offered; otherwise the first metric is selected.
type SetMetrics struct {
	Metrics []Metric
}

func (a SetMetrics) apply(s State) State {
	s.Outcome.Metrics = slices.Clone(a.Metrics)
	if _, ok := s.Outcome.SelectedMetric(); ok {
		return s
	}
	s.Outcome.Selected = ""
	if len(a.Metrics) > 0 {
		s.Outcome.Selected = a.Metrics[0].Name
	}
	return s
}

// SelectMetric picks the outcome metric by name.
type SelectMetric struct {
	Name string
}

func (a SelectMetric) apply(s State) State {
	s.Outcome.Selected = a.Name
	return s
}

// SetStatKind picks avg, median or total for outcome styling.
type SetStatKind struct {
	Stat graph.StatKind
}

func (a SetStatKind) apply(s State) State {
	s.Outcome.Stat = graph.ParseStatKind(string(a.Stat))
	return s
}

// Reset returns to Initial.
type Reset struct{}

func (Reset) apply(State) State {
	return Initial()
}
