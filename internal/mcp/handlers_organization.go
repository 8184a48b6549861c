package mcp

import (
	"context"
	"fmt"

	"procmap/internal/backend"
	"procmap/internal/graph"
	"procmap/internal/orchestrate"
	"procmap/internal/visuals"
)

func (s *Server) handleListOrganizationAnalyses(ctx context.Context, in processTypeInput) (ResponseEnvelope, error) {
	list, err := s.client.ListOrganizationAnalyses(ctx, in.ProcessType)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	return WrapResponse(map[string]any{"analyses": list}, processContext(in.ProcessType)), nil
}

func (s *Server) handleCreateOrganizationAnalysis(ctx context.Context, in createOrganizationInput) (ResponseEnvelope, error) {
	level := backend.AggregationLevel(in.AggregationLevel)
	if level == "" {
		level = backend.LevelEmployee
	}
	name := in.AnalysisName
	if name == "" {
		name = backend.DefaultAnalysisName(in.ProcessType, s.now(), string(level))
	}

	res, err := s.client.CreateOrganizationAnalysis(ctx, backend.OrganizationAnalyzeRequest{
		AnalysisName:     name,
		ProcessType:      in.ProcessType,
		AggregationLevel: level,
		FilterMode:       backend.FilterMode(in.FilterMode),
		DateFrom:         in.DateFrom,
		DateTo:           in.DateTo,
	})
	if err != nil {
		return ResponseEnvelope{}, err
	}
	return WrapResponse(res, processContext(in.ProcessType)), nil
}

func (s *Server) handleGetOrganizationAnalysis(ctx context.Context, in organizationInput) (ResponseEnvelope, error) {
	level := backend.AggregationLevel(in.AggregationLevel)
	switch level {
	case "", backend.LevelEmployee, backend.LevelDepartment:
	default:
		return ResponseEnvelope{}, fmt.Errorf("unknown aggregation level %q: use employee or department", level)
	}

	detail, err := s.client.GetOrganizationAnalysis(ctx, in.AnalysisID)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	b, err := orchestrate.OrganizationAt(ctx, s.client, detail, level)
	if err != nil {
		return ResponseEnvelope{}, err
	}

	nodes, edges := b.Handover.Graph()
	view := graph.BuildView(nodes, edges, graph.FlowPolicy{Metric: s.cfg.DisplayMetric}, s.cfg.Palette)
	stat := graph.ParseStatKind(in.Stat)

	env := WrapResponse(map[string]any{
		"aggregation_level": b.Level,
		"resources":         len(nodes),
		"handovers":         len(edges),
		"workload":          b.Workload.Workload,
		"performance":       b.Performance.Performance,
	}, map[string]any{
		"analysis_id":  detail.AnalysisID,
		"process_type": detail.ProcessType,
		"saved_level":  detail.AggregationLevel,
	},
		visuals.GenerateFlowchart(view),
		visuals.GenerateWorkloadChart(b.Workload),
		visuals.GeneratePerformanceChart(b.Performance, stat),
	)
	if len(edges) == 0 {
		env = env.warn("No handovers were recorded between resources at this level.")
	}
	return env, nil
}
