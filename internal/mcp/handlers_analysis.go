package mcp

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"procmap/internal/backend"
	"procmap/internal/graph"
	"procmap/internal/metricfmt"
	"procmap/internal/orchestrate"
	"procmap/internal/viewstate"
	"procmap/internal/visuals"
)

func (s *Server) handleListProcessTypes(ctx context.Context, _ noInput) (ResponseEnvelope, error) {
	types, err := s.client.ListProcessTypes(ctx)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	env := WrapResponse(map[string]any{"process_types": types}, nil)
	if len(types) == 0 {
		env = env.warn("The backend has no event logs loaded.")
	}
	return env, nil
}

func (s *Server) handleListAnalyses(ctx context.Context, in processTypeInput) (ResponseEnvelope, error) {
	analyses, err := s.client.ListAnalyses(ctx, in.ProcessType)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	return WrapResponse(map[string]any{"analyses": analyses}, processContext(in.ProcessType)), nil
}

func (s *Server) handlePreview(ctx context.Context, in previewInput) (ResponseEnvelope, error) {
	if in.ProcessType == "" {
		return ResponseEnvelope{}, fmt.Errorf("process_type is required")
	}
	f := backend.Filter{Mode: backend.FilterMode(in.FilterMode), DateFrom: in.DateFrom, DateTo: in.DateTo}
	if err := f.Validate(); err != nil {
		return ResponseEnvelope{}, err
	}

	b, err := orchestrate.LoadPreview(ctx, s.client, in.ProcessType, f)
	if err != nil {
		return ResponseEnvelope{}, err
	}

	env := WrapResponse(map[string]any{
		"preview":   b.Preview,
		"lead_time": b.LeadTime,
	}, processContext(in.ProcessType), visuals.LeadTimeSummary(b.LeadTime))
	if b.Preview.CaseCount == 0 {
		env = env.warn("No cases match this filter; creating an analysis would produce an empty map.")
	}
	return env, nil
}

func (s *Server) handleCreateAnalysis(ctx context.Context, in createAnalysisInput) (ResponseEnvelope, error) {
	name := in.AnalysisName
	if name == "" {
		name = backend.DefaultAnalysisName(in.ProcessType, s.now())
	}

	res, err := s.client.CreateAnalysis(ctx, backend.AnalyzeRequest{
		AnalysisName: name,
		ProcessType:  in.ProcessType,
		FilterMode:   backend.FilterMode(in.FilterMode),
		DateFrom:     in.DateFrom,
		DateTo:       in.DateTo,
	})
	if err != nil {
		return ResponseEnvelope{}, err
	}
	log.Info().Str("analysis_id", res.AnalysisID).Str("name", name).Msg("Analysis created")
	return WrapResponse(res, processContext(in.ProcessType)), nil
}

// edgeSummary is the per-edge detail returned next to a rendered map.
type edgeSummary struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
	Stroke string `json:"stroke"`
}

func summarizeEdges(edges []graph.StyledEdge) []edgeSummary {
	out := make([]edgeSummary, 0, len(edges))
	for _, e := range edges {
		out = append(out, edgeSummary{Source: e.Source, Target: e.Target, Label: e.Label, Stroke: e.Style.Stroke})
	}
	return out
}

func (s *Server) handleGetProcessMap(ctx context.Context, in processMapInput) (ResponseEnvelope, error) {
	res, err := s.client.GetAnalysis(ctx, in.AnalysisID)
	if err != nil {
		return ResponseEnvelope{}, err
	}

	nodes, edges := res.Graph()
	actions := []viewstate.Action{viewstate.SetGraph{AnalysisID: in.AnalysisID, Nodes: nodes, Edges: edges}}
	if in.DisplayMetric != "" {
		actions = append(actions, viewstate.SetDisplayMetric{Metric: graph.DisplayMetric(in.DisplayMetric)})
	}
	if in.PathThreshold != nil {
		actions = append(actions, viewstate.SetPathThreshold{Value: *in.PathThreshold})
	}
	state := s.store.Dispatch(actions...)
	view := state.View(s.cfg.Palette)

	diagram := visuals.GenerateFlowchart(view)
	if in.Format == "dot" {
		diagram = visuals.GenerateDOT(in.AnalysisID, view)
	}

	visible := view.VisibleEdges()
	env := WrapResponse(map[string]any{
		"display_metric": state.Metric,
		"path_threshold": state.Threshold,
		"nodes_total":    len(view.Nodes),
		"nodes_visible":  len(view.VisibleNodes()),
		"edges_total":    len(view.Edges),
		"edges_visible":  len(visible),
		"edges":          summarizeEdges(visible),
	}, map[string]any{"analysis_id": in.AnalysisID}, diagram, visuals.LeadTimeSummary(res.LeadTimeStats))

	if len(view.Edges) > 0 && len(visible) == 0 {
		env = env.warn("The path threshold hides every edge; lower path_threshold to see the map.")
	}
	return env, nil
}

func (s *Server) handleCompareAnalyses(ctx context.Context, in compareInput) (ResponseEnvelope, error) {
	if in.BeforeID == "" || in.AfterID == "" {
		return ResponseEnvelope{}, fmt.Errorf("before_id and after_id are required")
	}
	cmp, err := s.client.CompareAnalyses(ctx, in.BeforeID, in.AfterID)
	if err != nil {
		return ResponseEnvelope{}, err
	}

	nodeStatus := make(map[string]int)
	for _, n := range cmp.Nodes {
		nodeStatus[n.DiffStatus]++
	}
	type changedEdge struct {
		Source     string  `json:"source"`
		Target     string  `json:"target"`
		Status     string  `json:"status"`
		ChangeRate float64 `json:"frequency_change_rate,omitempty"`
	}
	edgeStatus := make(map[string]int)
	var changed []changedEdge
	for _, e := range cmp.Edges {
		edgeStatus[e.DiffStatus]++
		if e.DiffStatus != "" && e.DiffStatus != "unchanged" {
			changed = append(changed, changedEdge{e.Source, e.Target, e.DiffStatus, e.FrequencyChangeRate})
		}
	}

	nodes, edges := cmp.Graph()
	view := graph.BuildView(nodes, edges, graph.FlowPolicy{Metric: graph.DisplayFrequency}, s.cfg.Palette)

	return WrapResponse(map[string]any{
		"node_status":   nodeStatus,
		"edge_status":   edgeStatus,
		"changed_edges": changed,
	}, map[string]any{"before_id": in.BeforeID, "after_id": in.AfterID}, visuals.GenerateFlowchart(view)), nil
}

func (s *Server) handleFormatMetric(_ context.Context, in formatInput) (ResponseEnvelope, error) {
	formatted := metricfmt.Format(in.Value, in.MetricName, in.MetricUnit)
	if in.Decimal {
		formatted = metricfmt.Decimal(in.Value, in.MetricName, in.MetricUnit)
	}
	unit := metricfmt.UnitFor(in.MetricName, in.MetricUnit)
	return WrapResponse(map[string]any{
		"formatted": formatted,
		"unit":      unit,
		"symbol":    metricfmt.Symbol(unit),
	}, nil), nil
}

func (s *Server) handleExportViewer(ctx context.Context, in viewerInput) (ResponseEnvelope, error) {
	res, err := s.client.GetAnalysis(ctx, in.AnalysisID)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	nodes, edges := res.Graph()
	state := s.store.Dispatch(viewstate.SetGraph{AnalysisID: in.AnalysisID, Nodes: nodes, Edges: edges})

	page := visuals.Page{
		Title: "Process map " + in.AnalysisID,
		Sections: []visuals.Section{
			{Heading: "Process map", Mermaid: visuals.GenerateFlowchart(state.View(s.cfg.Palette))},
			{Heading: "Lead time", Text: visuals.LeadTimeSummary(res.LeadTimeStats)},
		},
	}
	path := filepath.Join(s.cfg.ViewDir, filepath.Base(in.AnalysisID)+".html")
	if err := visuals.WriteHTML(path, page); err != nil {
		return ResponseEnvelope{}, err
	}
	if in.Open {
		if err := visuals.Open(path); err != nil {
			return WrapResponse(map[string]any{"path": path}, nil).warn(err.Error()), nil
		}
	}
	return WrapResponse(map[string]any{"path": path}, map[string]any{"analysis_id": in.AnalysisID}), nil
}

func processContext(processType string) map[string]any {
	if processType == "" {
		return nil
	}
	return map[string]any{"process_type": processType}
}
