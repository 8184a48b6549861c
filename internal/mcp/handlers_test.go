package mcp

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procmap/internal/backend"
	"procmap/internal/backend/backendtest"
	"procmap/internal/config"
	"procmap/internal/graph"
)

func ptr(v float64) *float64 { return &v }

func newTestServer(t *testing.T, fake *backendtest.Fake) *Server {
	t.Helper()
	s := NewServer(&config.AppConfig{
		Palette:       graph.DefaultPalette(),
		DisplayMetric: graph.DisplayFrequency,
		ViewDir:       t.TempDir(),
	}, fake)
	s.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	return s
}

func orderAnalysis() *backend.AnalysisResult {
	median := 30.0
	return &backend.AnalysisResult{
		Nodes: []backend.NodeDTO{
			{ID: "receive", Data: backend.NodeDataDTO{Label: "Receive", Frequency: 20}},
			{ID: "approve", Data: backend.NodeDataDTO{Label: "Approve", Frequency: 20}},
			{ID: "escalate", Data: backend.NodeDataDTO{Label: "Escalate", Frequency: 2}},
		},
		Edges: []backend.EdgeDTO{
			{ID: "e1", Source: "receive", Target: "approve", Data: backend.EdgeDataDTO{Frequency: 20, AvgWaitHours: ptr(4)}},
			{ID: "e2", Source: "approve", Target: "escalate", Data: backend.EdgeDataDTO{Frequency: 2}},
		},
		LeadTimeStats: &backend.LeadTimeStats{
			CaseCount:     20,
			LeadTimeHours: backend.LeadTimeHours{Median: &median},
			HappyPath:     &backend.HappyPath{CaseCount: 18, Path: []string{"Receive", "Approve"}},
		},
	}
}

func dataMap(t *testing.T, env ResponseEnvelope) map[string]any {
	t.Helper()
	m, ok := env.Data.(map[string]any)
	require.True(t, ok, "data is %T", env.Data)
	return m
}

func TestHandleGetProcessMap(t *testing.T) {
	fake := &backendtest.Fake{Results: map[string]*backend.AnalysisResult{"a1": orderAnalysis()}}
	s := newTestServer(t, fake)

	env, err := s.handleGetProcessMap(context.Background(), processMapInput{AnalysisID: "a1", PathThreshold: ptr(0.5)})
	require.NoError(t, err)

	data := dataMap(t, env)
	assert.Equal(t, 2, data["edges_total"])
	assert.Equal(t, 1, data["edges_visible"])
	assert.Equal(t, 2, data["nodes_visible"])
	assert.Equal(t, 0.5, data["path_threshold"])

	require.Len(t, env.Diagrams, 2)
	assert.Contains(t, env.Diagrams[0], "flowchart LR")
	assert.NotContains(t, env.Diagrams[0], "Escalate")
	assert.Contains(t, env.Diagrams[1], "Happy path (18 cases): Receive → Approve")
	assert.Empty(t, env.Warnings)
}

func TestHandleGetProcessMap_PerformanceDOT(t *testing.T) {
	fake := &backendtest.Fake{Results: map[string]*backend.AnalysisResult{"a1": orderAnalysis()}}
	s := newTestServer(t, fake)

	env, err := s.handleGetProcessMap(context.Background(), processMapInput{
		AnalysisID:    "a1",
		DisplayMetric: "performance",
		PathThreshold: ptr(0),
		Format:        "dot",
	})
	require.NoError(t, err)

	require.NotEmpty(t, env.Diagrams)
	assert.True(t, strings.HasPrefix(env.Diagrams[0], `digraph "a1" {`))
	assert.Contains(t, env.Diagrams[0], `label="4.0h"`)
	assert.Contains(t, env.Diagrams[0], `label="0.0h"`)
}

func TestHandleGetProcessMap_ThresholdClamped(t *testing.T) {
	fake := &backendtest.Fake{Results: map[string]*backend.AnalysisResult{"a1": orderAnalysis()}}
	s := newTestServer(t, fake)

	env, err := s.handleGetProcessMap(context.Background(), processMapInput{AnalysisID: "a1", PathThreshold: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 1.0, dataMap(t, env)["path_threshold"], "threshold is clamped")
	assert.Len(t, env.Warnings, 0, "a threshold of 1 still shows the busiest edge")
}

func TestHandleGetProcessMap_NotFound(t *testing.T) {
	s := newTestServer(t, &backendtest.Fake{})

	_, err := s.handleGetProcessMap(context.Background(), processMapInput{AnalysisID: "missing"})
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestHandlePreview(t *testing.T) {
	fake := &backendtest.Fake{
		PreviewResult: &backend.PreviewResponse{EventCount: 0, CaseCount: 0},
		LeadTime:      &backend.LeadTimeStats{},
	}
	s := newTestServer(t, fake)

	_, err := s.handlePreview(context.Background(), previewInput{ProcessType: "order", FilterMode: "case_start"})
	assert.Error(t, err, "date range is required for case_start")
	assert.Zero(t, fake.Calls("Preview"))

	env, err := s.handlePreview(context.Background(), previewInput{ProcessType: "order", FilterMode: "case_start", DateFrom: "2026-01-01", DateTo: "2026-01-31"})
	require.NoError(t, err)
	assert.Len(t, env.Warnings, 1)
	assert.Equal(t, "2026-01-31", fake.LastPreviewQuery.DateTo)
	assert.Equal(t, map[string]any{"process_type": "order"}, env.Context)
}

func TestHandleCreateAnalysis_DefaultName(t *testing.T) {
	fake := &backendtest.Fake{}
	s := newTestServer(t, fake)

	_, err := s.handleCreateAnalysis(context.Background(), createAnalysisInput{ProcessType: "order"})
	require.NoError(t, err)
	require.Len(t, fake.CreatedAnalyses, 1)
	assert.Equal(t, "order_2026-03-14", fake.CreatedAnalyses[0].AnalysisName)

	_, err = s.handleCreateAnalysis(context.Background(), createAnalysisInput{})
	assert.Error(t, err)
}

func TestHandleCompareAnalyses(t *testing.T) {
	fake := &backendtest.Fake{ComparisonResult: &backend.Comparison{
		Nodes: []backend.ComparisonNode{
			{NodeDTO: backend.NodeDTO{ID: "a"}, DiffStatus: "unchanged"},
			{NodeDTO: backend.NodeDTO{ID: "b"}, DiffStatus: "added"},
		},
		Edges: []backend.ComparisonEdge{
			{EdgeDTO: backend.EdgeDTO{Source: "a", Target: "b", Data: backend.EdgeDataDTO{Frequency: 3}}, DiffStatus: "added"},
		},
	}}
	s := newTestServer(t, fake)

	_, err := s.handleCompareAnalyses(context.Background(), compareInput{BeforeID: "x"})
	assert.Error(t, err)

	env, err := s.handleCompareAnalyses(context.Background(), compareInput{BeforeID: "x", AfterID: "y"})
	require.NoError(t, err)
	data := dataMap(t, env)
	assert.Equal(t, map[string]int{"unchanged": 1, "added": 1}, data["node_status"])
	require.Len(t, env.Diagrams, 1)
	assert.Contains(t, env.Diagrams[0], `n0 -->|"3 items"| n1`)
}

func TestHandleGetOrganizationAnalysis(t *testing.T) {
	detail := &backend.OrganizationAnalysisDetail{
		OrganizationAnalysisSummary: backend.OrganizationAnalysisSummary{
			AnalysisID:       "org-1",
			ProcessType:      "order",
			AggregationLevel: backend.LevelEmployee,
		},
		FilterMode: backend.FilterAll,
		HandoverData: backend.HandoverAnalysis{
			Nodes: []backend.HandoverNode{{ID: "alice", Label: "Alice", ActivityCount: 8}, {ID: "bob", Label: "Bob", ActivityCount: 4}},
			Edges: []backend.HandoverEdge{{Source: "alice", Target: "bob", HandoverCount: 6}},
		},
		WorkloadData: backend.WorkloadAnalysis{Workload: []backend.WorkloadItem{{ResourceID: "alice", ActivityCount: 8}}},
	}
	fake := &backendtest.Fake{
		OrgDetails: map[string]*backend.OrganizationAnalysisDetail{"org-1": detail},
		WorkloadResult: map[backend.AggregationLevel]*backend.WorkloadAnalysis{
			backend.LevelDepartment: {Workload: []backend.WorkloadItem{{ResourceID: "sales", ActivityCount: 12}}, AggregationLevel: backend.LevelDepartment},
		},
	}
	s := newTestServer(t, fake)

	env, err := s.handleGetOrganizationAnalysis(context.Background(), organizationInput{AnalysisID: "org-1"})
	require.NoError(t, err)
	assert.Zero(t, fake.Calls("Handover"))
	require.Len(t, env.Diagrams, 2, "handover map and workload chart; no performance data")
	assert.Contains(t, env.Diagrams[0], `-->|"6 items"|`)
	assert.Contains(t, env.Diagrams[1], "xychart-beta")

	env, err = s.handleGetOrganizationAnalysis(context.Background(), organizationInput{AnalysisID: "org-1", AggregationLevel: "department"})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Calls("Workload"))
	assert.Equal(t, backend.LevelDepartment, dataMap(t, env)["aggregation_level"])
	assert.Len(t, env.Warnings, 1, "department handover is empty in the fake")

	_, err = s.handleGetOrganizationAnalysis(context.Background(), organizationInput{AnalysisID: "org-1", AggregationLevel: "team"})
	assert.Error(t, err)
}

const pathOutcomeJSON = `{
  "nodes": [
    {"id": "a", "data": {"label": "A", "frequency": 5}},
    {"id": "b", "data": {"label": "B", "frequency": 5}},
    {"id": "c", "data": {"label": "C", "frequency": 2}}
  ],
  "edges": [
    {"id": "ab", "source": "a", "target": "b", "data": {"frequency": 5, "outcome_stats": {"revenue": {"avg": 1000, "median": 900, "total": 5000, "min": 100, "max": 2000, "count": 5}}}},
    {"id": "bc", "source": "b", "target": "c", "data": {"frequency": 2, "outcome_stats": {"revenue": {"avg": 3000, "median": 3000, "total": 6000, "min": 2500, "max": 3500, "count": 2}}}}
  ],
  "summary": {
    "total_cases": 5,
    "metrics": ["revenue"],
    "overall_stats": {"avg": 1500.5, "median": 1000, "total": 7502.5, "min": 100, "max": 3500, "count": 5},
    "top_paths": [{"source": "b", "target": "c", "avg_outcome": 3000}]
  }
}`

const segmentJSON = `{
  "high_segment": {
    "label": "Top 25%",
    "case_count": 3,
    "outcome_stats": {"avg": 5000, "median": 5000, "total": 15000, "min": 4000, "max": 6000, "count": 3},
    "nodes": [{"id": "a", "data": {"label": "A"}}, {"id": "b", "data": {"label": "B"}}, {"id": "c", "data": {"label": "C"}}],
    "edges": [
      {"id": "ab", "source": "a", "target": "b", "data": {"frequency": 3, "avg_waiting_time_hours": 2}},
      {"id": "ac", "source": "a", "target": "c", "data": {"frequency": 1}}
    ]
  },
  "low_segment": {
    "label": "Bottom 75%",
    "case_count": 9,
    "outcome_stats": {"avg": 100, "count": 9},
    "nodes": [{"id": "a", "data": {"label": "A"}}, {"id": "c", "data": {"label": "C"}}],
    "edges": [{"id": "ac", "source": "a", "target": "c", "data": {"frequency": 9}}]
  },
  "differences": [{"source": "a", "target": "b", "high_rate": 100, "low_rate": 40, "diff_rate": 60}],
  "summary": {"metric_name": "revenue", "segment_mode": "top25", "threshold_value": 4000, "total_cases": 12}
}`

func outcomeFake() *backendtest.Fake {
	summary := func(id, kind string) backend.OutcomeAnalysisSummary {
		return backend.OutcomeAnalysisSummary{AnalysisID: id, ProcessType: "order", MetricName: "revenue", AnalysisType: kind}
	}
	return &backendtest.Fake{
		Metrics: []backend.MetricInfo{{MetricName: "revenue", MetricUnit: "JPY", SampleCount: 5}},
		OutcomeDetails: map[string]*backend.OutcomeAnalysisDetail{
			"po": {OutcomeAnalysisSummary: summary("po", backend.AnalysisPathOutcome), ResultData: json.RawMessage(pathOutcomeJSON)},
			"sc": {OutcomeAnalysisSummary: summary("sc", backend.AnalysisSegmentComparison), ResultData: json.RawMessage(segmentJSON)},
		},
	}
}

func TestHandleGetOutcomeAnalysis_PathOutcome(t *testing.T) {
	s := newTestServer(t, outcomeFake())

	env, err := s.handleGetOutcomeAnalysis(context.Background(), outcomeInput{AnalysisID: "po"})
	require.NoError(t, err)

	data := dataMap(t, env)
	assert.Equal(t, graph.StatAvg, data["stat"])
	assert.Equal(t, "¥1,500.50", data["overall"].(map[string]string)["avg"])

	edges := data["edges"].([]edgeSummary)
	require.Len(t, edges, 2)
	assert.Equal(t, "¥1,000 (5 items)", edges[0].Label)
	assert.Equal(t, graph.DefaultPalette().OutcomeLow, edges[0].Stroke)
	assert.Equal(t, "¥3,000 (2 items)", edges[1].Label)
	assert.Equal(t, graph.DefaultPalette().OutcomeHigh, edges[1].Stroke)

	env, err = s.handleGetOutcomeAnalysis(context.Background(), outcomeInput{AnalysisID: "po", Stat: "total"})
	require.NoError(t, err)
	edges = dataMap(t, env)["edges"].([]edgeSummary)
	assert.Equal(t, "¥5,000 (5 items)", edges[0].Label)
}

func TestHandleGetOutcomeAnalysis_SegmentComparison(t *testing.T) {
	s := newTestServer(t, outcomeFake())

	env, err := s.handleGetOutcomeAnalysis(context.Background(), outcomeInput{AnalysisID: "sc"})
	require.NoError(t, err)

	require.Len(t, env.Diagrams, 3)
	assert.Contains(t, env.Diagrams[0], "| 3 | ¥5,000.00 |")
	assert.Contains(t, env.Diagrams[0], "| a → b | 100% | 40% | +60% |")
	assert.Contains(t, env.Diagrams[1], `-->|"3 items (2.0h)"|`)
	assert.Contains(t, env.Diagrams[1], "stroke:#38a169,stroke-width:8px")
	assert.Contains(t, env.Diagrams[1], "stroke:#ccc,stroke-width:2px")
	assert.Empty(t, env.Warnings)
}

func TestHandleCreateOutcomeAnalysis(t *testing.T) {
	fake := &backendtest.Fake{}
	s := newTestServer(t, fake)

	_, err := s.handleCreateOutcomeAnalysis(context.Background(), createOutcomeInput{
		ProcessType: "order", MetricName: "revenue", AnalysisType: backend.AnalysisSegmentComparison, SegmentMode: backend.SegmentThreshold,
	})
	assert.Error(t, err, "threshold mode needs a non-zero threshold")

	env, err := s.handleCreateOutcomeAnalysis(context.Background(), createOutcomeInput{
		ProcessType: "order", MetricName: "revenue", AnalysisType: backend.AnalysisSegmentComparison, SegmentMode: backend.SegmentThreshold, Threshold: ptr(4000),
	})
	require.NoError(t, err)
	require.Len(t, fake.CreatedOutcomes, 1)
	req := fake.CreatedOutcomes[0]
	assert.Equal(t, "order_revenue_segment-comparison_2026-03-14", req.AnalysisName)
	assert.Equal(t, map[string]any{"segment_mode": "threshold", "threshold": 4000.0}, req.FilterConfig)
	assert.Equal(t, "order_revenue_segment-comparison_2026-03-14", dataMap(t, env)["analysis_name"])

	_, err = s.handleCreateOutcomeAnalysis(context.Background(), createOutcomeInput{ProcessType: "order", MetricName: "revenue"})
	require.NoError(t, err)
	assert.Nil(t, fake.CreatedOutcomes[1].FilterConfig)
	assert.Equal(t, backend.AnalysisPathOutcome, fake.CreatedOutcomes[1].AnalysisType)
}

func TestHandleFormatMetric(t *testing.T) {
	s := newTestServer(t, &backendtest.Fake{})

	tests := []struct {
		in   formatInput
		want string
	}{
		{formatInput{Value: 1234.5, MetricName: "revenue"}, "¥1,235"},
		{formatInput{Value: 0.1234, MetricUnit: "percent"}, "12.3%"},
		{formatInput{Value: 1234.5, MetricName: "revenue", Decimal: true}, "¥1,234.50"},
		{formatInput{Value: 3.25, MetricName: "unknown"}, "3.25"},
	}
	for _, tt := range tests {
		env, err := s.handleFormatMetric(context.Background(), tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, dataMap(t, env)["formatted"], "%+v", tt.in)
	}
}

func TestHandleExportViewer(t *testing.T) {
	fake := &backendtest.Fake{Results: map[string]*backend.AnalysisResult{"a1": orderAnalysis()}}
	s := newTestServer(t, fake)

	env, err := s.handleExportViewer(context.Background(), viewerInput{AnalysisID: "a1"})
	require.NoError(t, err)

	path := dataMap(t, env)["path"].(string)
	page, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>Process map a1</title>")
	assert.Contains(t, string(page), "Receive")
}
