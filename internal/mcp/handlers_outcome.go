package mcp

import (
	"context"

	"github.com/rs/zerolog/log"

	"procmap/internal/backend"
	"procmap/internal/graph"
	"procmap/internal/metricfmt"
	"procmap/internal/viewstate"
	"procmap/internal/visuals"
)

func (s *Server) handleListMetrics(ctx context.Context, in metricsInput) (ResponseEnvelope, error) {
	metrics, err := s.client.ListMetrics(ctx, in.ProcessType)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	env := WrapResponse(map[string]any{"metrics": metrics}, processContext(in.ProcessType))
	if len(metrics) == 0 {
		env = env.warn("No outcome metrics are recorded for this process type.")
	}
	return env, nil
}

func (s *Server) handleListOutcomeAnalyses(ctx context.Context, in outcomeListInput) (ResponseEnvelope, error) {
	list, err := s.client.ListOutcomeAnalyses(ctx, in.ProcessType, in.MetricName)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	return WrapResponse(map[string]any{"analyses": list}, processContext(in.ProcessType)), nil
}

func (s *Server) handleCreateOutcomeAnalysis(ctx context.Context, in createOutcomeInput) (ResponseEnvelope, error) {
	analysisType := in.AnalysisType
	if analysisType == "" {
		analysisType = backend.AnalysisPathOutcome
	}

	var filterConfig map[string]any
	if analysisType == backend.AnalysisSegmentComparison {
		mode := in.SegmentMode
		if mode == "" {
			mode = backend.SegmentTop25
		}
		filterConfig = map[string]any{"segment_mode": mode}
		if mode == backend.SegmentThreshold {
			threshold := 0.0
			if in.Threshold != nil {
				threshold = *in.Threshold
			}
			filterConfig["threshold"] = threshold
		}
	}

	name := in.AnalysisName
	if name == "" {
		name = backend.DefaultAnalysisName(in.ProcessType, s.now(), in.MetricName, analysisType)
	}

	res, err := s.client.CreateOutcomeAnalysis(ctx, backend.CreateOutcomeAnalysisRequest{
		AnalysisName: name,
		ProcessType:  in.ProcessType,
		MetricName:   in.MetricName,
		AnalysisType: analysisType,
		FilterConfig: filterConfig,
		DateFrom:     in.DateFrom,
		DateTo:       in.DateTo,
	})
	if err != nil {
		return ResponseEnvelope{}, err
	}
	return WrapResponse(map[string]any{
		"analysis_id":   res.AnalysisID,
		"analysis_name": name,
		"analysis_type": analysisType,
	}, processContext(in.ProcessType)), nil
}

func (s *Server) handleGetOutcomeAnalysis(ctx context.Context, in outcomeInput) (ResponseEnvelope, error) {
	detail, err := s.client.GetOutcomeAnalysis(ctx, in.AnalysisID)
	if err != nil {
		return ResponseEnvelope{}, err
	}

	metrics := s.outcomeMetrics(ctx, detail.ProcessType)
	unit := ""
	for _, m := range metrics {
		if m.Name == detail.MetricName {
			unit = m.Unit
		}
	}
	meta := map[string]any{
		"analysis_id":   detail.AnalysisID,
		"process_type":  detail.ProcessType,
		"metric_name":   detail.MetricName,
		"analysis_type": detail.AnalysisType,
	}

	if detail.IsSegmentComparison() {
		return s.segmentComparison(detail, unit, meta)
	}

	r, err := detail.PathOutcome()
	if err != nil {
		return ResponseEnvelope{}, err
	}
	nodes, edges := r.Graph()
	state := s.store.Dispatch(
		viewstate.SetGraph{AnalysisID: detail.AnalysisID, Nodes: nodes, Edges: edges},
		viewstate.SetMetrics{Metrics: metrics},
		viewstate.SelectMetric{Name: detail.MetricName},
		viewstate.SetStatKind{Stat: graph.StatKind(in.Stat)},
	)
	view := state.OutcomeView(s.cfg.Palette)

	format := func(v float64) string { return metricfmt.Decimal(v, detail.MetricName, unit) }
	type topPath struct {
		Source     string `json:"source"`
		Target     string `json:"target"`
		AvgOutcome string `json:"avg_outcome"`
	}
	top := make([]topPath, 0, len(r.Summary.TopPaths))
	for _, p := range r.Summary.TopPaths {
		top = append(top, topPath{p.Source, p.Target, format(p.AvgOutcome)})
	}
	overall := r.Summary.OverallStats

	return WrapResponse(map[string]any{
		"stat":        state.Outcome.Stat,
		"total_cases": r.Summary.TotalCases,
		"overall": map[string]string{
			"avg":    format(overall.Avg),
			"median": format(overall.Median),
			"total":  format(overall.Total),
			"min":    format(overall.Min),
			"max":    format(overall.Max),
		},
		"top_paths": top,
		"edges":     summarizeEdges(view.Edges),
	}, meta, visuals.GenerateFlowchart(view)), nil
}

func (s *Server) segmentComparison(detail *backend.OutcomeAnalysisDetail, unit string, meta map[string]any) (ResponseEnvelope, error) {
	r, err := detail.SegmentComparison()
	if err != nil {
		return ResponseEnvelope{}, err
	}
	fallback := graph.OutcomePolicy{MetricName: detail.MetricName, MetricUnit: unit, Stat: graph.StatAvg}
	policy := graph.SegmentPolicy{Differences: r.Differences, Fallback: fallback}

	highNodes, highEdges := r.HighSegment.Graph()
	lowNodes, lowEdges := r.LowSegment.Graph()
	high := graph.BuildView(highNodes, highEdges, policy, s.cfg.Palette)
	low := graph.BuildView(lowNodes, lowEdges, policy, s.cfg.Palette)

	env := WrapResponse(map[string]any{
		"summary":     r.Summary,
		"high_cases":  r.HighSegment.CaseCount,
		"low_cases":   r.LowSegment.CaseCount,
		"differences": r.Differences,
	}, meta,
		visuals.SegmentComparison(r, unit),
		visuals.GenerateFlowchart(high),
		visuals.GenerateFlowchart(low),
	)
	if len(r.Differences) == 0 {
		env = env.warn("The segments follow the same paths; edges are colored by outcome instead.")
	}
	return env, nil
}

// outcomeMetrics lists the metrics of processType for selection. A failure
// only costs the unit decoration, so it is logged and ignored.
func (s *Server) outcomeMetrics(ctx context.Context, processType string) []viewstate.Metric {
	infos, err := s.client.ListMetrics(ctx, processType)
	if err != nil {
		log.Warn().Err(err).Str("process_type", processType).Msg("Failed to list outcome metrics")
		return nil
	}
	metrics := make([]viewstate.Metric, 0, len(infos))
	for _, m := range infos {
		metrics = append(metrics, viewstate.Metric{Name: m.MetricName, Unit: m.MetricUnit})
	}
	return metrics
}
