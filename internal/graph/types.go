// Package graph derives render-ready process diagrams from raw node and edge
// payloads: which edges and nodes are visible, how edges are labelled, and
// their stroke color and width.
//
// All functions are pure. Inputs are never mutated; results share no slices
// or maps with them.
package graph

// DisplayMetric selects which edge measurement drives labels.
type DisplayMetric string

const (
	DisplayFrequency   DisplayMetric = "frequency"
	DisplayPerformance DisplayMetric = "performance"
)

// ParseDisplayMetric falls back to DisplayFrequency for unknown values.
func ParseDisplayMetric(s string) DisplayMetric {
	if DisplayMetric(s) == DisplayPerformance {
		return DisplayPerformance
	}
	return DisplayFrequency
}

// StatKind picks one statistic out of OutcomeStats.
type StatKind string

const (
	StatAvg    StatKind = "avg"
	StatMedian StatKind = "median"
	StatTotal  StatKind = "total"
)

// ParseStatKind falls back to StatAvg for unknown values.
func ParseStatKind(s string) StatKind {
	switch StatKind(s) {
	case StatMedian:
		return StatMedian
	case StatTotal:
		return StatTotal
	}
	return StatAvg
}

// Position is a layout coordinate produced by an external layout engine.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is an activity (or resource, for handover networks).
type Node struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Frequency float64   `json:"frequency"`
	Position  *Position `json:"position,omitempty"`
}

// OutcomeStats summarizes a business metric over the cases crossing an edge.
// Values are meaningful only when Count > 0.
type OutcomeStats struct {
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
	Total  float64 `json:"total"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// Value returns the statistic selected by kind.
func (s OutcomeStats) Value(kind StatKind) float64 {
	switch kind {
	case StatMedian:
		return s.Median
	case StatTotal:
		return s.Total
	}
	return s.Avg
}

// Edge is a directly-follows transition between two nodes.
type Edge struct {
	ID           string                  `json:"id"`
	Source       string                  `json:"source"`
	Target       string                  `json:"target"`
	Frequency    float64                 `json:"frequency"`
	AvgWaitHours float64                 `json:"avg_waiting_time_hours"`
	OutcomeStats map[string]OutcomeStats `json:"outcome_stats,omitempty"`
}

// Stats returns the outcome statistics for metric, if the edge carries any.
func (e Edge) Stats(metric string) (OutcomeStats, bool) {
	s, ok := e.OutcomeStats[metric]
	if !ok || s.Count <= 0 {
		return OutcomeStats{}, false
	}
	return s, true
}

// Style is the stroke applied to a rendered edge.
type Style struct {
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
}

// StyledEdge is an Edge decorated for rendering.
type StyledEdge struct {
	Edge
	Hidden              bool    `json:"hidden"`
	Label               string  `json:"label"`
	Style               Style   `json:"style"`
	NormalizedFrequency float64 `json:"normalized_frequency"`
	NormalizedWait      float64 `json:"normalized_wait"`
}

// StyledNode is a Node with its visibility resolved.
type StyledNode struct {
	Node
	Hidden bool `json:"hidden"`
}

// PathDifference is the occurrence-rate gap of one transition between the
// high and low outcome segments, in percentage points.
type PathDifference struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	HighRate float64 `json:"high_rate"`
	LowRate  float64 `json:"low_rate"`
	DiffRate float64 `json:"diff_rate"`
}
