package backend

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"procmap/internal/graph"
)

// FilterMode restricts which cases enter an analysis.
type FilterMode string

const (
	FilterAll       FilterMode = "all"
	FilterCaseStart FilterMode = "case_start"
	FilterCaseEnd   FilterMode = "case_end"
)

// Filter is the case-date filter shared by preview, analysis and
// organization requests. Dates are YYYY-MM-DD.
type Filter struct {
	Mode     FilterMode `json:"filter_mode"`
	DateFrom string     `json:"date_from,omitempty"`
	DateTo   string     `json:"date_to,omitempty"`
}

func (f Filter) mode() FilterMode {
	if f.Mode == "" {
		return FilterAll
	}
	return f.Mode
}

func (f Filter) encode(params url.Values) {
	params.Set("filter_mode", string(f.mode()))
	if f.DateFrom != "" {
		params.Set("date_from", f.DateFrom)
	}
	if f.DateTo != "" {
		params.Set("date_to", f.DateTo)
	}
}

// Validate requires a full date range whenever the filter is not "all".
func (f Filter) Validate() error {
	if f.mode() != FilterAll && (f.DateFrom == "" || f.DateTo == "") {
		return fmt.Errorf("filter mode %q requires both date_from and date_to", f.Mode)
	}
	return nil
}

// DefaultAnalysisName is the name proposed for a new analysis created on day.
func DefaultAnalysisName(processType string, day time.Time, parts ...string) string {
	name := processType
	for _, p := range parts {
		name += "_" + p
	}
	return name + "_" + day.Format("2006-01-02")
}

// Analysis is one entry of the saved process-flow analyses list.
type Analysis struct {
	AnalysisID   string `json:"analysis_id"`
	AnalysisName string `json:"analysis_name"`
	ProcessType  string `json:"process_type"`
	CreatedAt    string `json:"created_at"`
}

// NodeDTO is a diagram node as the backend stores it.
type NodeDTO struct {
	ID       string          `json:"id"`
	Type     string          `json:"type,omitempty"`
	Data     NodeDataDTO     `json:"data"`
	Position *graph.Position `json:"position,omitempty"`
}

type NodeDataDTO struct {
	Label     string  `json:"label"`
	Frequency float64 `json:"frequency"`
}

// EdgeDTO is a diagram edge as the backend stores it.
type EdgeDTO struct {
	ID     string      `json:"id"`
	Source string      `json:"source"`
	Target string      `json:"target"`
	Data   EdgeDataDTO `json:"data"`
}

type EdgeDataDTO struct {
	Frequency    float64                       `json:"frequency"`
	AvgWaitHours *float64                      `json:"avg_waiting_time_hours,omitempty"`
	OutcomeStats map[string]graph.OutcomeStats `json:"outcome_stats,omitempty"`
}

// AnalysisResult is the stored process map of an analysis.
type AnalysisResult struct {
	Nodes         []NodeDTO      `json:"nodes"`
	Edges         []EdgeDTO      `json:"edges"`
	LeadTimeStats *LeadTimeStats `json:"lead_time_stats,omitempty"`
}

// AnalyzeRequest creates a process-flow analysis.
type AnalyzeRequest struct {
	AnalysisName string     `json:"analysis_name"`
	ProcessType  string     `json:"process_type"`
	FilterMode   FilterMode `json:"filter_mode"`
	DateFrom     string     `json:"date_from,omitempty"`
	DateTo       string     `json:"date_to,omitempty"`
}

func (r AnalyzeRequest) Validate() error {
	if r.AnalysisName == "" || r.ProcessType == "" {
		return fmt.Errorf("analysis name and process type are required")
	}
	return Filter{Mode: r.FilterMode, DateFrom: r.DateFrom, DateTo: r.DateTo}.Validate()
}

type FilterApplied struct {
	Mode     FilterMode `json:"mode"`
	DateFrom string     `json:"date_from,omitempty"`
	DateTo   string     `json:"date_to,omitempty"`
}

type AnalyzeResponse struct {
	AnalysisID    string        `json:"analysis_id"`
	AnalysisName  string        `json:"analysis_name"`
	ProcessType   string        `json:"process_type"`
	CreatedAt     string        `json:"created_at"`
	EventCount    int           `json:"event_count"`
	CaseCount     int           `json:"case_count"`
	NodeCount     int           `json:"node_count"`
	EdgeCount     int           `json:"edge_count"`
	Cached        bool          `json:"cached"`
	FilterApplied FilterApplied `json:"filter_applied"`
}

// PreviewResponse estimates the size of an analysis before it is created.
type PreviewResponse struct {
	EventCount int `json:"event_count"`
	CaseCount  int `json:"case_count"`
	DateRange  struct {
		Min *string `json:"min"`
		Max *string `json:"max"`
	} `json:"date_range"`
	FilterApplied FilterApplied `json:"filter_applied"`
}

type LeadTimeHours struct {
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Median *float64 `json:"median"`
}

type HappyPath struct {
	CaseCount     int           `json:"case_count"`
	LeadTimeHours LeadTimeHours `json:"lead_time_hours"`
	Path          []string      `json:"path"`
}

// LeadTimeStats summarizes end-to-end case durations.
type LeadTimeStats struct {
	CaseCount     int           `json:"case_count"`
	LeadTimeHours LeadTimeHours `json:"lead_time_hours"`
	HappyPath     *HappyPath    `json:"happy_path,omitempty"`
}

// Comparison is the diff of two analyses' process maps.
type Comparison struct {
	Nodes []ComparisonNode `json:"nodes"`
	Edges []ComparisonEdge `json:"edges"`
}

type ComparisonNode struct {
	NodeDTO
	DiffStatus          string  `json:"diff_status"`
	FrequencyChangeRate float64 `json:"frequency_change_rate,omitempty"`
}

type ComparisonEdge struct {
	EdgeDTO
	DiffStatus          string  `json:"diff_status"`
	FrequencyChangeRate float64 `json:"frequency_change_rate,omitempty"`
}

// AggregationLevel selects the resource granularity of organization analyses.
type AggregationLevel string

const (
	LevelEmployee   AggregationLevel = "employee"
	LevelDepartment AggregationLevel = "department"
)

// OrgQuery parameterizes the organization endpoints.
type OrgQuery struct {
	ProcessType string
	Level       AggregationLevel
	Filter      Filter
}

func (q OrgQuery) encode() url.Values {
	params := url.Values{}
	params.Set("process_type", q.ProcessType)
	level := q.Level
	if level == "" {
		level = LevelEmployee
	}
	params.Set("aggregation_level", string(level))
	q.Filter.encode(params)
	return params
}

type HandoverNode struct {
	ID            string  `json:"id"`
	Label         string  `json:"label"`
	ActivityCount float64 `json:"activity_count"`
}

type HandoverEdge struct {
	Source        string   `json:"source"`
	Target        string   `json:"target"`
	HandoverCount float64  `json:"handover_count"`
	AvgWaitHours  *float64 `json:"avg_waiting_time_hours,omitempty"`
}

type HandoverAnalysis struct {
	Nodes            []HandoverNode   `json:"nodes"`
	Edges            []HandoverEdge   `json:"edges"`
	AggregationLevel AggregationLevel `json:"aggregation_level"`
}

type WorkloadItem struct {
	ResourceID    string  `json:"resource_id"`
	ResourceName  string  `json:"resource_name"`
	ActivityCount float64 `json:"activity_count"`
	CaseCount     float64 `json:"case_count"`
}

type WorkloadAnalysis struct {
	Workload         []WorkloadItem   `json:"workload"`
	AggregationLevel AggregationLevel `json:"aggregation_level"`
}

type PerformanceItem struct {
	ResourceID          string  `json:"resource_id"`
	ResourceName        string  `json:"resource_name"`
	AvgDurationHours    float64 `json:"avg_duration_hours"`
	MedianDurationHours float64 `json:"median_duration_hours"`
	TotalDurationHours  float64 `json:"total_duration_hours"`
	ActivityCount       float64 `json:"activity_count"`
}

type PerformanceAnalysis struct {
	Performance      []PerformanceItem `json:"performance"`
	AggregationLevel AggregationLevel  `json:"aggregation_level"`
}

type OrganizationAnalyzeRequest struct {
	AnalysisName     string           `json:"analysis_name"`
	ProcessType      string           `json:"process_type"`
	AggregationLevel AggregationLevel `json:"aggregation_level"`
	FilterMode       FilterMode       `json:"filter_mode"`
	DateFrom         string           `json:"date_from,omitempty"`
	DateTo           string           `json:"date_to,omitempty"`
}

func (r OrganizationAnalyzeRequest) Validate() error {
	if r.AnalysisName == "" || r.ProcessType == "" {
		return fmt.Errorf("analysis name and process type are required")
	}
	return Filter{Mode: r.FilterMode, DateFrom: r.DateFrom, DateTo: r.DateTo}.Validate()
}

type OrganizationAnalyzeResponse struct {
	AnalysisID       string           `json:"analysis_id"`
	AnalysisName     string           `json:"analysis_name"`
	ProcessType      string           `json:"process_type"`
	AggregationLevel AggregationLevel `json:"aggregation_level"`
	CreatedAt        string           `json:"created_at"`
	NodeCount        int              `json:"node_count"`
	ResourceCount    int              `json:"resource_count"`
}

type OrganizationAnalysisSummary struct {
	AnalysisID       string           `json:"analysis_id"`
	AnalysisName     string           `json:"analysis_name"`
	ProcessType      string           `json:"process_type"`
	AggregationLevel AggregationLevel `json:"aggregation_level"`
	CreatedAt        string           `json:"created_at"`
}

// OrganizationAnalysisDetail is a saved organization analysis with all three
// result sets.
type OrganizationAnalysisDetail struct {
	OrganizationAnalysisSummary
	FilterMode      FilterMode          `json:"filter_mode"`
	DateFrom        *string             `json:"date_from"`
	DateTo          *string             `json:"date_to"`
	HandoverData    HandoverAnalysis    `json:"handover_data"`
	WorkloadData    WorkloadAnalysis    `json:"workload_data"`
	PerformanceData PerformanceAnalysis `json:"performance_data"`
}

// Query rebuilds the parameters the analysis was saved with, at level.
func (d OrganizationAnalysisDetail) Query(level AggregationLevel) OrgQuery {
	q := OrgQuery{
		ProcessType: d.ProcessType,
		Level:       level,
		Filter:      Filter{Mode: d.FilterMode},
	}
	if d.DateFrom != nil {
		q.Filter.DateFrom = *d.DateFrom
	}
	if d.DateTo != nil {
		q.Filter.DateTo = *d.DateTo
	}
	return q
}

// MetricInfo describes an outcome metric available for a process type.
type MetricInfo struct {
	MetricName  string `json:"metric_name"`
	MetricUnit  string `json:"metric_unit"`
	SampleCount int    `json:"sample_count"`
}

const (
	AnalysisPathOutcome       = "path-outcome"
	AnalysisSegmentComparison = "segment-comparison"
)

const (
	SegmentTop25     = "top25"
	SegmentBottom25  = "bottom25"
	SegmentThreshold = "threshold"
)

type OutcomeAnalysisSummary struct {
	AnalysisID   string `json:"analysis_id"`
	AnalysisName string `json:"analysis_name"`
	ProcessType  string `json:"process_type"`
	MetricName   string `json:"metric_name"`
	AnalysisType string `json:"analysis_type"`
	CreatedAt    string `json:"created_at"`
}

// OutcomeAnalysisDetail carries ResultData undecoded because its shape
// depends on AnalysisType.
type OutcomeAnalysisDetail struct {
	OutcomeAnalysisSummary
	FilterConfig map[string]any  `json:"filter_config,omitempty"`
	ResultData   json.RawMessage `json:"result_data"`
}

func (d *OutcomeAnalysisDetail) IsSegmentComparison() bool {
	return d.AnalysisType == AnalysisSegmentComparison
}

// PathOutcome decodes ResultData of a path-outcome analysis.
func (d *OutcomeAnalysisDetail) PathOutcome() (*PathOutcomeResult, error) {
	if d.IsSegmentComparison() {
		return nil, fmt.Errorf("analysis %s is a %s analysis", d.AnalysisID, d.AnalysisType)
	}
	var r PathOutcomeResult
	if err := json.Unmarshal(d.ResultData, &r); err != nil {
		return nil, fmt.Errorf("failed to decode path outcome result: %w", err)
	}
	return &r, nil
}

// SegmentComparison decodes ResultData of a segment-comparison analysis.
func (d *OutcomeAnalysisDetail) SegmentComparison() (*SegmentComparisonResult, error) {
	if !d.IsSegmentComparison() {
		return nil, fmt.Errorf("analysis %s is a %s analysis", d.AnalysisID, d.AnalysisType)
	}
	var r SegmentComparisonResult
	if err := json.Unmarshal(d.ResultData, &r); err != nil {
		return nil, fmt.Errorf("failed to decode segment comparison result: %w", err)
	}
	return &r, nil
}

type TopPath struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	AvgOutcome float64 `json:"avg_outcome"`
}

type PathOutcomeResult struct {
	Nodes   []NodeDTO `json:"nodes"`
	Edges   []EdgeDTO `json:"edges"`
	Summary struct {
		TotalCases   int                `json:"total_cases"`
		Metrics      []string           `json:"metrics"`
		OverallStats graph.OutcomeStats `json:"overall_stats"`
		TopPaths     []TopPath          `json:"top_paths"`
	} `json:"summary"`
}

type Segment struct {
	Label        string             `json:"label"`
	Nodes        []NodeDTO          `json:"nodes"`
	Edges        []EdgeDTO          `json:"edges"`
	CaseCount    int                `json:"case_count"`
	OutcomeStats graph.OutcomeStats `json:"outcome_stats"`
}

type SegmentComparisonResult struct {
	HighSegment Segment                `json:"high_segment"`
	LowSegment  Segment                `json:"low_segment"`
	Differences []graph.PathDifference `json:"differences"`
	Summary     struct {
		MetricName     string  `json:"metric_name"`
		SegmentMode    string  `json:"segment_mode"`
		ThresholdValue float64 `json:"threshold_value"`
		TotalCases     int     `json:"total_cases"`
	} `json:"summary"`
}

type CreateOutcomeAnalysisRequest struct {
	AnalysisName string         `json:"analysis_name"`
	ProcessType  string         `json:"process_type"`
	MetricName   string         `json:"metric_name"`
	AnalysisType string         `json:"analysis_type,omitempty"`
	FilterConfig map[string]any `json:"filter_config,omitempty"`
	DateFrom     string         `json:"date_from,omitempty"`
	DateTo       string         `json:"date_to,omitempty"`
}

// Validate checks required fields and the segment threshold.
func (r CreateOutcomeAnalysisRequest) Validate() error {
	if r.AnalysisName == "" || r.ProcessType == "" || r.MetricName == "" {
		return fmt.Errorf("analysis name, process type and metric name are required")
	}
	if r.AnalysisType == AnalysisSegmentComparison && r.FilterConfig["segment_mode"] == SegmentThreshold {
		if v, ok := r.FilterConfig["threshold"].(float64); !ok || v == 0 {
			return fmt.Errorf("segment mode %q requires a non-zero threshold", SegmentThreshold)
		}
	}
	return nil
}

type CreateOutcomeAnalysisResponse struct {
	AnalysisID string `json:"analysis_id"`
}
