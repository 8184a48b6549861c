package visuals

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procmap/internal/backend"
	"procmap/internal/graph"
)

func sampleView(threshold float64) graph.View {
	nodes := []graph.Node{
		{ID: "Start", Label: "Start"},
		{ID: "Review \"A\"", Label: "Review \"A\""},
		{ID: "Rare", Label: "Rare", Position: &graph.Position{X: 10, Y: 20.5}},
	}
	edges := []graph.Edge{
		{ID: "e1", Source: "Start", Target: "Review \"A\"", Frequency: 10, AvgWaitHours: 1},
		{ID: "e2", Source: "Review \"A\"", Target: "Rare", Frequency: 1, AvgWaitHours: 2},
	}
	policy := graph.FlowPolicy{Metric: graph.DisplayFrequency, Threshold: threshold}
	return graph.BuildView(nodes, edges, policy, graph.Palette{})
}

func TestGenerateFlowchart(t *testing.T) {
	got := GenerateFlowchart(sampleView(0))

	assert.True(t, strings.HasPrefix(got, "```mermaid\nflowchart LR\n"))
	assert.True(t, strings.HasSuffix(got, "```"))
	assert.Contains(t, got, `n1["Review #quot;A#quot;"]`)
	assert.Contains(t, got, `n0 -->|"10 items"| n1`)
	assert.Contains(t, got, "linkStyle 0 stroke:")
	assert.Contains(t, got, "linkStyle 1 stroke:")
}

func TestGenerateFlowchart_SkipsHidden(t *testing.T) {
	got := GenerateFlowchart(sampleView(0.5))

	assert.NotContains(t, got, "Rare")
	assert.NotContains(t, got, "linkStyle 1")
	assert.Equal(t, 1, strings.Count(got, "-->"))
}

func TestGenerateFlowchart_Empty(t *testing.T) {
	assert.Empty(t, GenerateFlowchart(graph.View{}))
}

func TestGenerateDOT(t *testing.T) {
	got := GenerateDOT("order flow", sampleView(0))

	assert.True(t, strings.HasPrefix(got, "digraph \"order flow\" {\n  rankdir=LR;\n"))
	assert.Contains(t, got, `"Review \"A\"" [label="Review \"A\""];`)
	assert.Contains(t, got, `"Rare" [label="Rare", pos="10,20.5!"];`)
	assert.Contains(t, got, `"Start" -> "Review \"A\"" [label="10 items", color="#3182ce", penwidth=8];`)
	assert.True(t, strings.HasSuffix(got, "}\n"))
}

func TestGenerateWorkloadChart(t *testing.T) {
	w := &backend.WorkloadAnalysis{
		AggregationLevel: backend.LevelDepartment,
		Workload: []backend.WorkloadItem{
			{ResourceID: "sales", ResourceName: "Sales", ActivityCount: 40},
			{ResourceID: "ops", ActivityCount: 10},
		},
	}
	got := GenerateWorkloadChart(w)

	assert.Contains(t, got, "xychart-beta")
	assert.Contains(t, got, `title "Workload (department)"`)
	assert.Contains(t, got, `x-axis ["Sales", "ops"]`)
	assert.Contains(t, got, "bar [100, 25]")
	assert.Empty(t, GenerateWorkloadChart(&backend.WorkloadAnalysis{}))
	assert.Empty(t, GenerateWorkloadChart(nil))
}

func TestGeneratePerformanceChart(t *testing.T) {
	p := &backend.PerformanceAnalysis{
		Performance: []backend.PerformanceItem{
			{ResourceName: "Alice", AvgDurationHours: 2.3, MedianDurationHours: 2, TotalDurationHours: 45},
			{ResourceName: "Bob", AvgDurationHours: 4, MedianDurationHours: 3.5, TotalDurationHours: 12},
		},
	}

	tests := []struct {
		stat graph.StatKind
		bar  string
		axis string
	}{
		{graph.StatAvg, "bar [2.3, 4.0]", "0 --> 5"},
		{graph.StatMedian, "bar [2.0, 3.5]", "0 --> 5"},
		{graph.StatTotal, "bar [45.0, 12.0]", "0 --> 54"},
	}
	for _, tt := range tests {
		t.Run(string(tt.stat), func(t *testing.T) {
			got := GeneratePerformanceChart(p, tt.stat)
			assert.Contains(t, got, tt.bar)
			assert.Contains(t, got, tt.axis)
			assert.Contains(t, got, "(employee)")
		})
	}
}

func TestLeadTimeSummary(t *testing.T) {
	min, median, max := 1.0, 5.5, 20.0
	s := &backend.LeadTimeStats{
		CaseCount:     12,
		LeadTimeHours: backend.LeadTimeHours{Min: &min, Median: &median, Max: &max},
		HappyPath: &backend.HappyPath{
			CaseCount: 8,
			Path:      []string{"Receive", "Approve", "Ship"},
		},
	}
	got := LeadTimeSummary(s)

	assert.Contains(t, got, "- Cases: 12")
	assert.Contains(t, got, "Min: 1.0h | Median: 5.5h | Max: 20.0h")
	assert.Contains(t, got, "Happy path (8 cases): Receive → Approve → Ship")
	assert.Contains(t, got, "Min: - | Median: - | Max: -")
	assert.Empty(t, LeadTimeSummary(nil))
}

func TestSegmentComparison(t *testing.T) {
	r := &backend.SegmentComparisonResult{
		HighSegment: backend.Segment{Label: "Top 25%", CaseCount: 5, OutcomeStats: graph.OutcomeStats{Avg: 1234.567, Max: 2000}},
		LowSegment:  backend.Segment{Label: "Bottom 25%", CaseCount: 5},
		Differences: []graph.PathDifference{
			{Source: "A", Target: "B", HighRate: 80, LowRate: 20, DiffRate: 60},
			{Source: "A", Target: "C", HighRate: 10, LowRate: 45.5, DiffRate: -35.5},
		},
	}
	r.Summary.MetricName = "revenue"
	r.Summary.SegmentMode = backend.SegmentTop25
	r.Summary.TotalCases = 20

	got := SegmentComparison(r, "")
	assert.Contains(t, got, "#### Top 25%")
	assert.Contains(t, got, "| 5 | ¥1,234.57 | ¥0.00 | ¥0.00 | ¥0.00 | ¥2,000.00 |")
	assert.Contains(t, got, "| A → B | 80% | 20% | +60% |")
	assert.Contains(t, got, "| A → C | 10% | 45.5% | -35.5% |")
}

func TestDifferencesTable_Empty(t *testing.T) {
	assert.Empty(t, DifferencesTable(nil))
}

func TestRenderHTML(t *testing.T) {
	page := Page{
		Title: "Order <flow>",
		Sections: []Section{
			{Heading: "Process map", Mermaid: GenerateFlowchart(sampleView(0))},
			{Heading: "Lead time", Text: "- Cases: 12"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, page))
	got := buf.String()

	assert.Contains(t, got, "<title>Order &lt;flow&gt;</title>")
	assert.Contains(t, got, `<pre class="mermaid">flowchart LR`)
	assert.NotContains(t, got, "```")
	assert.Contains(t, got, `<pre class="panel">- Cases: 12</pre>`)
	assert.Contains(t, got, "mermaid.esm.min.mjs")
	assert.NotContains(t, got, "startOnLoad: false", "viewer script is minified")
}

func TestWriteHTMLAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.html")
	require.NoError(t, WriteHTML(path, Page{Title: "x"}))

	orig := openFile
	defer func() { openFile = orig }()

	var opened string
	openFile = func(p string) error {
		opened = p
		return nil
	}
	require.NoError(t, Open(path))
	assert.Equal(t, path, opened)

	openFile = func(string) error { return errors.New("no display") }
	assert.Error(t, Open(path))
}
