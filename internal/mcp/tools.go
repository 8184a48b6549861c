package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

type noInput struct{}

type processTypeInput struct {
	ProcessType string `json:"process_type,omitempty" jsonschema:"Optional process type to filter by"`
}

type previewInput struct {
	ProcessType string `json:"process_type" jsonschema:"The process type to preview"`
	FilterMode  string `json:"filter_mode,omitempty" jsonschema:"Case filter: all (default), case_start or case_end"`
	DateFrom    string `json:"date_from,omitempty" jsonschema:"Inclusive start date (YYYY-MM-DD), required unless filter_mode is all"`
	DateTo      string `json:"date_to,omitempty" jsonschema:"Inclusive end date (YYYY-MM-DD), required unless filter_mode is all"`
}

type createAnalysisInput struct {
	AnalysisName string `json:"analysis_name,omitempty" jsonschema:"Optional name. Defaults to {process_type}_{YYYY-MM-DD}"`
	ProcessType  string `json:"process_type" jsonschema:"The process type to mine"`
	FilterMode   string `json:"filter_mode,omitempty" jsonschema:"Case filter: all (default), case_start or case_end"`
	DateFrom     string `json:"date_from,omitempty" jsonschema:"Inclusive start date (YYYY-MM-DD), required unless filter_mode is all"`
	DateTo       string `json:"date_to,omitempty" jsonschema:"Inclusive end date (YYYY-MM-DD), required unless filter_mode is all"`
}

type processMapInput struct {
	AnalysisID    string   `json:"analysis_id" jsonschema:"ID of a stored analysis"`
	DisplayMetric string   `json:"display_metric,omitempty" jsonschema:"Edge labels: frequency (default) or performance (average waiting hours)"`
	PathThreshold *float64 `json:"path_threshold,omitempty" jsonschema:"Hide edges whose frequency is below this share (0..1) of the busiest edge"`
	Format        string   `json:"format,omitempty" jsonschema:"Diagram format: mermaid (default) or dot"`
}

type compareInput struct {
	BeforeID string `json:"before_id" jsonschema:"Analysis ID of the baseline"`
	AfterID  string `json:"after_id" jsonschema:"Analysis ID to compare against the baseline"`
}

type createOrganizationInput struct {
	AnalysisName     string `json:"analysis_name,omitempty" jsonschema:"Optional name. Defaults to {process_type}_{level}_{YYYY-MM-DD}"`
	ProcessType      string `json:"process_type" jsonschema:"The process type to analyze"`
	AggregationLevel string `json:"aggregation_level,omitempty" jsonschema:"employee (default) or department"`
	FilterMode       string `json:"filter_mode,omitempty" jsonschema:"Case filter: all (default), case_start or case_end"`
	DateFrom         string `json:"date_from,omitempty" jsonschema:"Inclusive start date (YYYY-MM-DD), required unless filter_mode is all"`
	DateTo           string `json:"date_to,omitempty" jsonschema:"Inclusive end date (YYYY-MM-DD), required unless filter_mode is all"`
}

type organizationInput struct {
	AnalysisID       string `json:"analysis_id" jsonschema:"ID of a stored organization analysis"`
	AggregationLevel string `json:"aggregation_level,omitempty" jsonschema:"employee or department. Defaults to the level the analysis was saved with"`
	Stat             string `json:"stat,omitempty" jsonschema:"Performance statistic to chart: avg (default), median or total"`
}

type metricsInput struct {
	ProcessType string `json:"process_type" jsonschema:"The process type whose outcome metrics to list"`
}

type outcomeListInput struct {
	ProcessType string `json:"process_type,omitempty" jsonschema:"Optional process type to filter by"`
	MetricName  string `json:"metric_name,omitempty" jsonschema:"Optional metric to filter by"`
}

type createOutcomeInput struct {
	AnalysisName string   `json:"analysis_name,omitempty" jsonschema:"Optional name. Defaults to {process_type}_{metric}_{analysis_type}_{YYYY-MM-DD}"`
	ProcessType  string   `json:"process_type" jsonschema:"The process type to analyze"`
	MetricName   string   `json:"metric_name" jsonschema:"Outcome metric to relate paths to"`
	AnalysisType string   `json:"analysis_type,omitempty" jsonschema:"path-outcome (default) or segment-comparison"`
	SegmentMode  string   `json:"segment_mode,omitempty" jsonschema:"For segment-comparison: top25 (default), bottom25 or threshold"`
	Threshold    *float64 `json:"threshold,omitempty" jsonschema:"Metric value splitting the segments, required (non-zero) when segment_mode is threshold"`
	DateFrom     string   `json:"date_from,omitempty" jsonschema:"Optional start date (YYYY-MM-DD)"`
	DateTo       string   `json:"date_to,omitempty" jsonschema:"Optional end date (YYYY-MM-DD)"`
}

type outcomeInput struct {
	AnalysisID string `json:"analysis_id" jsonschema:"ID of a stored outcome analysis"`
	Stat       string `json:"stat,omitempty" jsonschema:"Edge statistic for path-outcome maps: avg (default), median or total"`
}

type formatInput struct {
	Value      float64 `json:"value" jsonschema:"The value to format"`
	MetricName string  `json:"metric_name,omitempty" jsonschema:"Metric name, used to infer the unit of legacy metrics"`
	MetricUnit string  `json:"metric_unit,omitempty" jsonschema:"Explicit unit (JPY, percent, count, score, weight, points, days, hours)"`
	Decimal    bool    `json:"decimal,omitempty" jsonschema:"Use the two-decimal summary style instead of the edge-label style"`
}

type viewerInput struct {
	AnalysisID string `json:"analysis_id" jsonschema:"ID of a stored analysis"`
	Open       bool   `json:"open,omitempty" jsonschema:"Open the page in the default browser"`
}

func (s *Server) registerTools(srv *sdk.Server) {
	addTool(srv, "list_process_types",
		"List the process types the backend has event logs for.",
		s.handleListProcessTypes)
	addTool(srv, "list_analyses",
		"List stored process-map analyses, newest first.",
		s.handleListAnalyses)
	addTool(srv, "preview_analysis",
		"Estimate how many events and cases a filter selects, with lead-time statistics and the happy path. Call this before create_analysis.",
		s.handlePreview)
	addTool(srv, "create_analysis",
		"Mine a new process map for a process type and filter.",
		s.handleCreateAnalysis)
	addTool(srv, "get_process_map",
		"Render a stored analysis as a styled process map. Rare paths can be hidden with path_threshold.",
		s.handleGetProcessMap)
	addTool(srv, "compare_analyses",
		"Compare two stored analyses and report added, removed and changed nodes and edges.",
		s.handleCompareAnalyses)

	addTool(srv, "list_organization_analyses",
		"List stored organization (handover, workload, performance) analyses.",
		s.handleListOrganizationAnalyses)
	addTool(srv, "create_organization_analysis",
		"Run a new organization analysis at employee or department level.",
		s.handleCreateOrganizationAnalysis)
	addTool(srv, "get_organization_analysis",
		"Render the handover network with workload and performance charts. Switching aggregation_level reloads the data with the saved filter.",
		s.handleGetOrganizationAnalysis)

	addTool(srv, "list_outcome_metrics",
		"List the outcome metrics available for a process type.",
		s.handleListMetrics)
	addTool(srv, "list_outcome_analyses",
		"List stored outcome analyses.",
		s.handleListOutcomeAnalyses)
	addTool(srv, "create_outcome_analysis",
		"Run a path-outcome or segment-comparison analysis for an outcome metric.",
		s.handleCreateOutcomeAnalysis)
	addTool(srv, "get_outcome_analysis",
		"Render a stored outcome analysis: edges colored by outcome, or the high and low segments with their key differences.",
		s.handleGetOutcomeAnalysis)

	addTool(srv, "format_metric_value",
		"Format a metric value the way the dashboard displays it.",
		s.handleFormatMetric)

	if s.cfg.EnableHTMLViewer {
		addTool(srv, "export_process_map_html",
			"Write a standalone HTML viewer for a stored analysis and return its path.",
			s.handleExportViewer)
	}
}

// addTool registers h under name with a schema derived from In. Handler
// errors become tool errors rather than protocol errors.
func addTool[In any](srv *sdk.Server, name, description string, h func(context.Context, In) (ResponseEnvelope, error)) {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		panic(fmt.Sprintf("failed to derive input schema for %s: %v", name, err))
	}

	tool := &sdk.Tool{Name: name, Description: description, InputSchema: schema}
	sdk.AddTool(srv, tool, func(ctx context.Context, _ *sdk.CallToolRequest, in In) (*sdk.CallToolResult, any, error) {
		start := time.Now()
		env, err := h(ctx, in)
		if err != nil {
			log.Warn().Err(err).Str("tool", name).Msg("Tool call failed")
			return errorResult(err), nil, nil
		}
		log.Info().Str("tool", name).Dur("elapsed", time.Since(start)).Msg("Tool call completed")
		return toResult(env), nil, nil
	})
}
