package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"procmap/internal/backend"
	"procmap/internal/graph"
	"procmap/internal/orchestrate"
	"procmap/internal/viewstate"
	"procmap/internal/visuals"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	renderFormat    string
	renderOpen      bool
	renderFile      string
	renderOut       string
	renderThreshold float64
	renderMetric    string
	renderLevel     string
	renderStat      string
)

// rendering is a styled diagram plus the panels and charts shown with it.
type rendering struct {
	title  string
	view   graph.View
	extras []visuals.Section
}

var renderCmd = &cobra.Command{
	Use:   "render <process|handover|outcome|segment> [analysis-id]",
	Short: "Render a stored analysis as a diagram",
	Long: `Render a stored analysis as Mermaid, Graphviz DOT, JSON or a standalone HTML
viewer. With --file the analysis is read from a JSON file instead of the backend.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if renderOpen && renderFormat != "html" {
			return fmt.Errorf("--open requires --format html")
		}
		id := ""
		if len(args) > 1 {
			id = args[1]
		}
		if id == "" && renderFile == "" {
			return fmt.Errorf("an analysis id or --file is required")
		}

		threshold := cfg.PathThreshold
		if cmd.Flags().Changed("threshold") {
			threshold = renderThreshold
		}
		metric := cfg.DisplayMetric
		if cmd.Flags().Changed("metric") {
			metric = graph.ParseDisplayMetric(renderMetric)
		}

		ctx := cmd.Context()
		var r *rendering
		var err error
		switch args[0] {
		case "process":
			r, err = renderProcess(ctx, id, metric, threshold)
		case "handover":
			r, err = renderHandover(ctx, id, metric, threshold)
		case "outcome":
			r, err = renderOutcome(ctx, id)
		case "segment":
			r, err = renderSegment(ctx, id)
		default:
			return fmt.Errorf("unknown diagram %q: use process, handover, outcome or segment", args[0])
		}
		if err != nil {
			return err
		}
		return writeRendering(cmd.OutOrStdout(), r)
	},
}

// load reads T from --file when given, otherwise from the backend.
func load[T any](ctx context.Context, id string, fetch func(context.Context, string) (*T, error)) (*T, error) {
	if renderFile == "" {
		return fetch(ctx, id)
	}
	data, err := os.ReadFile(renderFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", renderFile, err)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", renderFile, err)
	}
	return &v, nil
}

func renderProcess(ctx context.Context, id string, metric graph.DisplayMetric, threshold float64) (*rendering, error) {
	res, err := load(ctx, id, client.GetAnalysis)
	if err != nil {
		return nil, err
	}
	nodes, edges := res.Graph()
	state := viewstate.Reduce(viewstate.Initial(),
		viewstate.SetGraph{AnalysisID: id, Nodes: nodes, Edges: edges},
		viewstate.SetDisplayMetric{Metric: metric},
		viewstate.SetPathThreshold{Value: threshold},
	)
	return &rendering{
		title:  titleFor("Process map", id),
		view:   state.View(cfg.Palette),
		extras: []visuals.Section{{Heading: "Lead time", Text: visuals.LeadTimeSummary(res.LeadTimeStats)}},
	}, nil
}

func renderHandover(ctx context.Context, id string, metric graph.DisplayMetric, threshold float64) (*rendering, error) {
	detail, err := load(ctx, id, client.GetOrganizationAnalysis)
	if err != nil {
		return nil, err
	}
	b, err := orchestrate.OrganizationAt(ctx, client, detail, backend.AggregationLevel(renderLevel))
	if err != nil {
		return nil, err
	}
	nodes, edges := b.Handover.Graph()
	policy := graph.FlowPolicy{Metric: metric, Threshold: math.Max(0, math.Min(1, threshold))}
	return &rendering{
		title: titleFor("Handover network", detail.AnalysisID),
		view:  graph.BuildView(nodes, edges, policy, cfg.Palette),
		extras: []visuals.Section{
			{Heading: "Workload", Mermaid: visuals.GenerateWorkloadChart(b.Workload)},
			{Heading: "Performance", Mermaid: visuals.GeneratePerformanceChart(b.Performance, graph.ParseStatKind(renderStat))},
		},
	}, nil
}

func renderOutcome(ctx context.Context, id string) (*rendering, error) {
	detail, err := load(ctx, id, client.GetOutcomeAnalysis)
	if err != nil {
		return nil, err
	}
	r, err := detail.PathOutcome()
	if err != nil {
		return nil, err
	}
	nodes, edges := r.Graph()
	state := viewstate.Reduce(viewstate.Initial(),
		viewstate.SetGraph{AnalysisID: detail.AnalysisID, Nodes: nodes, Edges: edges},
		viewstate.SetMetrics{Metrics: []viewstate.Metric{{Name: detail.MetricName, Unit: metricUnit(ctx, detail)}}},
		viewstate.SetStatKind{Stat: graph.StatKind(renderStat)},
	)
	return &rendering{
		title: titleFor("Outcome map", detail.AnalysisID),
		view:  state.OutcomeView(cfg.Palette),
	}, nil
}

func renderSegment(ctx context.Context, id string) (*rendering, error) {
	detail, err := load(ctx, id, client.GetOutcomeAnalysis)
	if err != nil {
		return nil, err
	}
	r, err := detail.SegmentComparison()
	if err != nil {
		return nil, err
	}
	unit := metricUnit(ctx, detail)
	policy := graph.SegmentPolicy{
		Differences: r.Differences,
		Fallback:    graph.OutcomePolicy{MetricName: detail.MetricName, MetricUnit: unit, Stat: graph.StatAvg},
	}
	highNodes, highEdges := r.HighSegment.Graph()
	lowNodes, lowEdges := r.LowSegment.Graph()
	low := graph.BuildView(lowNodes, lowEdges, policy, cfg.Palette)

	return &rendering{
		title: titleFor("Segment comparison", detail.AnalysisID),
		view:  graph.BuildView(highNodes, highEdges, policy, cfg.Palette),
		extras: []visuals.Section{
			{Heading: r.LowSegment.Label, Mermaid: visuals.GenerateFlowchart(low)},
			{Heading: "Segments", Text: visuals.SegmentComparison(r, unit)},
		},
	}, nil
}

// metricUnit looks the unit up from the backend. Offline renders rely on the
// legacy name table instead.
func metricUnit(ctx context.Context, d *backend.OutcomeAnalysisDetail) string {
	if renderFile != "" {
		return ""
	}
	metrics, err := client.ListMetrics(ctx, d.ProcessType)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list outcome metrics, falling back to metric name")
		return ""
	}
	for _, m := range metrics {
		if m.MetricName == d.MetricName {
			return m.MetricUnit
		}
	}
	return ""
}

func writeRendering(stdout io.Writer, r *rendering) error {
	if renderFormat == "html" {
		return writeHTML(stdout, r)
	}

	var body string
	switch renderFormat {
	case "mermaid":
		parts := []string{visuals.GenerateFlowchart(r.view)}
		for _, s := range r.extras {
			parts = append(parts, s.Mermaid, s.Text)
		}
		body = joinNonEmpty(parts) + "\n"
	case "dot":
		body = visuals.GenerateDOT(r.title, r.view)
	case "json":
		data, err := json.MarshalIndent(r.view, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode view: %w", err)
		}
		body = string(data) + "\n"
	default:
		return fmt.Errorf("unknown format %q: use mermaid, dot, json or html", renderFormat)
	}

	if renderOut == "" {
		_, err := io.WriteString(stdout, body)
		return err
	}
	if err := os.WriteFile(renderOut, []byte(body), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", renderOut, err)
	}
	fmt.Fprintln(stdout, renderOut)
	return nil
}

func writeHTML(stdout io.Writer, r *rendering) error {
	page := visuals.Page{
		Title:    r.title,
		Sections: append([]visuals.Section{{Heading: r.title, Mermaid: visuals.GenerateFlowchart(r.view)}}, r.extras...),
	}

	path := renderOut
	if path == "" {
		path = filepath.Join(cfg.ViewDir, fileSafe(r.title)+".html")
	}
	if err := visuals.WriteHTML(path, page); err != nil {
		return err
	}
	fmt.Fprintln(stdout, path)

	if renderOpen {
		return visuals.Open(path)
	}
	return nil
}

func titleFor(kind, id string) string {
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(renderFile), filepath.Ext(renderFile))
	}
	return kind + " " + id
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

func joinNonEmpty(parts []string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimRight(p, "\n"))
		}
	}
	return strings.Join(kept, "\n\n")
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderFormat, "format", "f", "mermaid", "output format: mermaid, dot, json or html")
	f.BoolVar(&renderOpen, "open", false, "open the HTML viewer in the default browser")
	f.StringVar(&renderFile, "file", "", "read the analysis from a JSON file instead of the backend")
	f.StringVarP(&renderOut, "out", "o", "", "write to this file instead of stdout")
	f.Float64Var(&renderThreshold, "threshold", 0, "hide edges below this share of the busiest edge (0..1)")
	f.StringVar(&renderMetric, "metric", "frequency", "edge labels: frequency or performance")
	f.StringVar(&renderLevel, "level", "", "aggregation level for handover: employee or department")
	f.StringVar(&renderStat, "stat", "avg", "statistic for outcome and performance: avg, median or total")
}
