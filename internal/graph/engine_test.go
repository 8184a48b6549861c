package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEdges() []Edge {
	return []Edge{
		{ID: "e1", Source: "start", Target: "review", Frequency: 100, AvgWaitHours: 2},
		{ID: "e2", Source: "review", Target: "approve", Frequency: 90, AvgWaitHours: 40},
		{ID: "e3", Source: "review", Target: "reject", Frequency: 10, AvgWaitHours: 5},
		{ID: "e4", Source: "approve", Target: "end", Frequency: 50, AvgWaitHours: 1},
	}
}

func sampleNodes() []Node {
	return []Node{
		{ID: "start", Label: "Start", Frequency: 100},
		{ID: "review", Label: "Review", Frequency: 100},
		{ID: "approve", Label: "Approve", Frequency: 90},
		{ID: "reject", Label: "Reject", Frequency: 10},
		{ID: "end", Label: "End", Frequency: 50},
		{ID: "orphan", Label: "Orphan", Frequency: 3},
	}
}

func TestComputeEdgeStyles_Empty(t *testing.T) {
	got := ComputeEdgeStyles(nil, DisplayFrequency, 0.5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestComputeEdgeStyles_Idempotent(t *testing.T) {
	edges := sampleEdges()
	first := ComputeEdgeStyles(edges, DisplayPerformance, 0.3)
	second := ComputeEdgeStyles(edges, DisplayPerformance, 0.3)
	assert.Equal(t, first, second)
	assert.Equal(t, sampleEdges(), edges, "input must not be mutated")
}

func TestComputeEdgeStyles_NormalizationBounded(t *testing.T) {
	for _, e := range ComputeEdgeStyles(sampleEdges(), DisplayFrequency, 0) {
		assert.GreaterOrEqual(t, e.NormalizedFrequency, 0.0, e.ID)
		assert.LessOrEqual(t, e.NormalizedFrequency, 1.0, e.ID)
		assert.GreaterOrEqual(t, e.NormalizedWait, 0.0, e.ID)
		assert.LessOrEqual(t, e.NormalizedWait, 1.0, e.ID)
		assert.GreaterOrEqual(t, e.Style.StrokeWidth, 2.0, e.ID)
		assert.LessOrEqual(t, e.Style.StrokeWidth, 8.0, e.ID)
	}
}

func TestComputeEdgeStyles_ThresholdMonotonic(t *testing.T) {
	edges := sampleEdges()
	thresholds := []float64{0, 0.05, 0.1, 0.2, 0.5, 0.9, 1, 1.1}

	prevHidden := map[string]bool{}
	for _, th := range thresholds {
		for _, e := range ComputeEdgeStyles(edges, DisplayFrequency, th) {
			if prevHidden[e.ID] {
				assert.True(t, e.Hidden, "edge %s revealed when threshold rose to %v", e.ID, th)
			}
			prevHidden[e.ID] = e.Hidden
		}
	}
}

func TestComputeEdgeStyles_ZeroMax(t *testing.T) {
	edges := []Edge{
		{ID: "a", Source: "x", Target: "y"},
		{ID: "b", Source: "y", Target: "z"},
	}

	for _, th := range []float64{0.01, 0.5, 1} {
		for _, e := range ComputeEdgeStyles(edges, DisplayPerformance, th) {
			assert.True(t, e.Hidden, "threshold %v", th)
			assert.Zero(t, e.NormalizedFrequency)
			assert.Zero(t, e.NormalizedWait)
			assert.Equal(t, 2.0, e.Style.StrokeWidth)
			assert.Equal(t, "0.0h", e.Label)
		}
	}

	for _, e := range ComputeEdgeStyles(edges, DisplayFrequency, 0) {
		assert.False(t, e.Hidden)
	}
}

func TestComputeEdgeStyles_Colors(t *testing.T) {
	p := DefaultPalette()
	edges := []Edge{
		{ID: "slow-and-busy", Frequency: 9, AvgWaitHours: 8},
		{ID: "max", Frequency: 10, AvgWaitHours: 10},
		{ID: "busy", Frequency: 8.5, AvgWaitHours: 1},
		{ID: "plain", Frequency: 5, AvgWaitHours: 1},
		{ID: "rare", Frequency: 1, AvgWaitHours: 9},
	}

	got := ComputeEdgeStyles(edges, DisplayFrequency, 0.2)
	require.Len(t, got, len(edges))

	byID := map[string]StyledEdge{}
	for _, e := range got {
		byID[e.ID] = e
	}

	tie := byID["slow-and-busy"]
	assert.InDelta(t, 0.9, tie.NormalizedFrequency, 1e-9)
	assert.InDelta(t, 0.8, tie.NormalizedWait, 1e-9)
	assert.Equal(t, p.Warning, tie.Style.Stroke, "slow paths win over busy paths")

	assert.Equal(t, p.Highlight, byID["busy"].Style.Stroke)
	assert.Equal(t, p.Default, byID["plain"].Style.Stroke)
	assert.True(t, byID["rare"].Hidden)
	assert.Equal(t, p.Neutral, byID["rare"].Style.Stroke, "hidden beats slow")
	assert.Equal(t, 8.0, byID["max"].Style.StrokeWidth)
	assert.Equal(t, "9 items", tie.Label)
}

func TestComputeEdgeStyles_PerformanceLabel(t *testing.T) {
	got := ComputeEdgeStyles([]Edge{{ID: "a", Frequency: 3, AvgWaitHours: 12.345}}, DisplayPerformance, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "12.3h", got[0].Label)
}

func TestComputeNodeVisibility(t *testing.T) {
	styled := ComputeEdgeStyles(sampleEdges(), DisplayFrequency, 0.5)
	nodes := ComputeNodeVisibility(sampleNodes(), styled)

	hidden := map[string]bool{}
	for _, n := range nodes {
		hidden[n.ID] = n.Hidden
	}

	assert.False(t, hidden["start"])
	assert.False(t, hidden["review"])
	assert.False(t, hidden["approve"])
	assert.False(t, hidden["end"])
	assert.True(t, hidden["reject"], "only endpoint of a hidden edge")
	assert.True(t, hidden["orphan"], "isolated nodes are always hidden")
}

func TestComputeNodeVisibility_PruningLaw(t *testing.T) {
	for _, th := range []float64{0, 0.1, 0.5, 0.95, 1} {
		styled := ComputeEdgeStyles(sampleEdges(), DisplayFrequency, th)
		for _, n := range ComputeNodeVisibility(sampleNodes(), styled) {
			endpoint := false
			for _, e := range styled {
				if !e.Hidden && (e.Source == n.ID || e.Target == n.ID) {
					endpoint = true
				}
			}
			assert.Equal(t, endpoint, !n.Hidden, "node %s at threshold %v", n.ID, th)
		}
	}
}

func TestComputeNodeVisibility_DanglingEdge(t *testing.T) {
	styled := ComputeEdgeStyles([]Edge{{ID: "d", Source: "known", Target: "ghost", Frequency: 1}}, DisplayFrequency, 0)
	nodes := ComputeNodeVisibility([]Node{{ID: "known"}}, styled)
	require.Len(t, nodes, 1)
	assert.False(t, nodes[0].Hidden)
}

func TestMergePositions(t *testing.T) {
	prev := []Node{
		{ID: "a", Position: &Position{X: 10, Y: 20}},
		{ID: "b", Position: &Position{X: 30, Y: 40}},
		{ID: "gone", Position: &Position{X: 1, Y: 1}},
	}
	next := []Node{
		{ID: "a", Label: "A2"},
		{ID: "b", Label: "B2", Position: &Position{X: 99, Y: 99}},
		{ID: "c", Label: "C", Position: &Position{X: 5, Y: 5}},
		{ID: "d", Label: "D"},
	}

	got := MergePositions(prev, next)
	require.Len(t, got, 4)

	assert.Equal(t, &Position{X: 10, Y: 20}, got[0].Position)
	assert.Equal(t, "A2", got[0].Label)
	assert.Equal(t, &Position{X: 30, Y: 40}, got[1].Position, "previous layout wins")
	assert.Equal(t, &Position{X: 5, Y: 5}, got[2].Position)
	assert.Nil(t, got[3].Position)

	got[0].Position.X = -1
	assert.Equal(t, 10.0, prev[0].Position.X, "result must not alias the previous slice")
	assert.Nil(t, next[0].Position)
}
