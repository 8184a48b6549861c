package backend

import (
	"fmt"

	"procmap/internal/graph"
)

// MapNodes converts stored diagram nodes into engine nodes.
func MapNodes(items []NodeDTO) []graph.Node {
	nodes := make([]graph.Node, 0, len(items))
	for _, item := range items {
		label := item.Data.Label
		if label == "" {
			label = item.ID
		}
		n := graph.Node{
			ID:        item.ID,
			Label:     label,
			Frequency: item.Data.Frequency,
		}
		if item.Position != nil {
			p := *item.Position
			n.Position = &p
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// MapEdges converts stored diagram edges into engine edges. A missing waiting
// time becomes zero.
func MapEdges(items []EdgeDTO) []graph.Edge {
	edges := make([]graph.Edge, 0, len(items))
	for i, item := range items {
		e := graph.Edge{
			ID:           item.ID,
			Source:       item.Source,
			Target:       item.Target,
			Frequency:    item.Data.Frequency,
			OutcomeStats: item.Data.OutcomeStats,
		}
		if e.ID == "" {
			e.ID = edgeID(i)
		}
		if item.Data.AvgWaitHours != nil {
			e.AvgWaitHours = *item.Data.AvgWaitHours
		}
		edges = append(edges, e)
	}
	return edges
}

// Graph returns the process map of a stored analysis.
func (r *AnalysisResult) Graph() ([]graph.Node, []graph.Edge) {
	return MapNodes(r.Nodes), MapEdges(r.Edges)
}

// Graph returns the path-outcome process map.
func (r *PathOutcomeResult) Graph() ([]graph.Node, []graph.Edge) {
	return MapNodes(r.Nodes), MapEdges(r.Edges)
}

// Graph returns the process map of one segment.
func (s *Segment) Graph() ([]graph.Node, []graph.Edge) {
	return MapNodes(s.Nodes), MapEdges(s.Edges)
}

// Graph returns the merged before/after map of a comparison. Removed nodes
// and edges are kept so they can still be drawn.
func (c *Comparison) Graph() ([]graph.Node, []graph.Edge) {
	nodes := make([]NodeDTO, len(c.Nodes))
	for i, n := range c.Nodes {
		nodes[i] = n.NodeDTO
	}
	edges := make([]EdgeDTO, len(c.Edges))
	for i, e := range c.Edges {
		edges[i] = e.EdgeDTO
	}
	return MapNodes(nodes), MapEdges(edges)
}

// Graph converts a handover network: activity counts become node frequency,
// handover counts become edge frequency, and edges are numbered edge-0,
// edge-1, ... in payload order.
func (h *HandoverAnalysis) Graph() ([]graph.Node, []graph.Edge) {
	nodes := make([]graph.Node, 0, len(h.Nodes))
	for _, n := range h.Nodes {
		nodes = append(nodes, graph.Node{ID: n.ID, Label: n.Label, Frequency: n.ActivityCount})
	}

	edges := make([]graph.Edge, 0, len(h.Edges))
	for i, e := range h.Edges {
		edge := graph.Edge{
			ID:        edgeID(i),
			Source:    e.Source,
			Target:    e.Target,
			Frequency: e.HandoverCount,
		}
		if e.AvgWaitHours != nil {
			edge.AvgWaitHours = *e.AvgWaitHours
		}
		edges = append(edges, edge)
	}
	return nodes, edges
}

func edgeID(i int) string {
	return fmt.Sprintf("edge-%d", i)
}
