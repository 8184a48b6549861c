// Package backendtest provides an in-memory backend.Client for tests.
package backendtest

import (
	"context"
	"fmt"
	"sync"

	"procmap/internal/backend"
)

// Fake serves canned data. Any field left nil yields ErrNotFound for lookups
// and empty results for lists. Err, when set, is returned by every call.
type Fake struct {
	mu    sync.Mutex
	calls map[string]int

	Err error
	// Hook runs at the start of every call with the method name. It may
	// block to simulate latency; it sees the caller's context.
	Hook func(ctx context.Context, method string) error

	ProcessTypes     []string
	Analyses         []backend.Analysis
	Results          map[string]*backend.AnalysisResult
	ComparisonResult *backend.Comparison
	PreviewResult    *backend.PreviewResponse
	LeadTime         *backend.LeadTimeStats

	HandoverResult    map[backend.AggregationLevel]*backend.HandoverAnalysis
	WorkloadResult    map[backend.AggregationLevel]*backend.WorkloadAnalysis
	PerformanceResult map[backend.AggregationLevel]*backend.PerformanceAnalysis
	OrgAnalyses       []backend.OrganizationAnalysisSummary
	OrgDetails        map[string]*backend.OrganizationAnalysisDetail

	Metrics          []backend.MetricInfo
	OutcomeAnalyses  []backend.OutcomeAnalysisSummary
	OutcomeDetails   map[string]*backend.OutcomeAnalysisDetail
	CreatedAnalyses  []backend.AnalyzeRequest
	CreatedOutcomes  []backend.CreateOutcomeAnalysisRequest
	CreatedOrgs      []backend.OrganizationAnalyzeRequest
	LastPreviewQuery backend.Filter
}

var _ backend.Client = (*Fake)(nil)

// Calls reports how many times method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *Fake) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[method]++
	hook := f.Hook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, method); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.Err
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, &backend.APIError{StatusCode: 404, Detail: kind + " not found"})
}

func (f *Fake) ListProcessTypes(ctx context.Context) ([]string, error) {
	if err := f.enter(ctx, "ListProcessTypes"); err != nil {
		return nil, err
	}
	return f.ProcessTypes, nil
}

func (f *Fake) ListAnalyses(ctx context.Context, processType string) ([]backend.Analysis, error) {
	if err := f.enter(ctx, "ListAnalyses"); err != nil {
		return nil, err
	}
	var out []backend.Analysis
	for _, a := range f.Analyses {
		if processType == "" || a.ProcessType == processType {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *Fake) GetAnalysis(ctx context.Context, id string) (*backend.AnalysisResult, error) {
	if err := f.enter(ctx, "GetAnalysis"); err != nil {
		return nil, err
	}
	if r, ok := f.Results[id]; ok {
		return r, nil
	}
	return nil, notFound("analysis", id)
}

func (f *Fake) CompareAnalyses(ctx context.Context, before, after string) (*backend.Comparison, error) {
	if err := f.enter(ctx, "CompareAnalyses"); err != nil {
		return nil, err
	}
	if f.ComparisonResult == nil {
		return nil, notFound("analysis", before)
	}
	return f.ComparisonResult, nil
}

func (f *Fake) CreateAnalysis(ctx context.Context, req backend.AnalyzeRequest) (*backend.AnalyzeResponse, error) {
	if err := f.enter(ctx, "CreateAnalysis"); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreatedAnalyses = append(f.CreatedAnalyses, req)
	return &backend.AnalyzeResponse{
		AnalysisID:   fmt.Sprintf("analysis-%d", len(f.CreatedAnalyses)),
		AnalysisName: req.AnalysisName,
		ProcessType:  req.ProcessType,
	}, nil
}

func (f *Fake) Preview(ctx context.Context, processType string, flt backend.Filter) (*backend.PreviewResponse, error) {
	if err := f.enter(ctx, "Preview"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.LastPreviewQuery = flt
	f.mu.Unlock()
	if f.PreviewResult == nil {
		return &backend.PreviewResponse{}, nil
	}
	return f.PreviewResult, nil
}

func (f *Fake) LeadTimeStats(ctx context.Context, processType string, flt backend.Filter) (*backend.LeadTimeStats, error) {
	if err := f.enter(ctx, "LeadTimeStats"); err != nil {
		return nil, err
	}
	if f.LeadTime == nil {
		return &backend.LeadTimeStats{}, nil
	}
	return f.LeadTime, nil
}

func (f *Fake) Handover(ctx context.Context, q backend.OrgQuery) (*backend.HandoverAnalysis, error) {
	if err := f.enter(ctx, "Handover"); err != nil {
		return nil, err
	}
	if r, ok := f.HandoverResult[q.Level]; ok {
		return r, nil
	}
	return &backend.HandoverAnalysis{AggregationLevel: q.Level}, nil
}

func (f *Fake) Workload(ctx context.Context, q backend.OrgQuery) (*backend.WorkloadAnalysis, error) {
	if err := f.enter(ctx, "Workload"); err != nil {
		return nil, err
	}
	if r, ok := f.WorkloadResult[q.Level]; ok {
		return r, nil
	}
	return &backend.WorkloadAnalysis{AggregationLevel: q.Level}, nil
}

func (f *Fake) Performance(ctx context.Context, q backend.OrgQuery) (*backend.PerformanceAnalysis, error) {
	if err := f.enter(ctx, "Performance"); err != nil {
		return nil, err
	}
	if r, ok := f.PerformanceResult[q.Level]; ok {
		return r, nil
	}
	return &backend.PerformanceAnalysis{AggregationLevel: q.Level}, nil
}

func (f *Fake) CreateOrganizationAnalysis(ctx context.Context, req backend.OrganizationAnalyzeRequest) (*backend.OrganizationAnalyzeResponse, error) {
	if err := f.enter(ctx, "CreateOrganizationAnalysis"); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreatedOrgs = append(f.CreatedOrgs, req)
	return &backend.OrganizationAnalyzeResponse{
		AnalysisID:       fmt.Sprintf("org-%d", len(f.CreatedOrgs)),
		AnalysisName:     req.AnalysisName,
		ProcessType:      req.ProcessType,
		AggregationLevel: req.AggregationLevel,
	}, nil
}

func (f *Fake) ListOrganizationAnalyses(ctx context.Context, processType string) ([]backend.OrganizationAnalysisSummary, error) {
	if err := f.enter(ctx, "ListOrganizationAnalyses"); err != nil {
		return nil, err
	}
	var out []backend.OrganizationAnalysisSummary
	for _, a := range f.OrgAnalyses {
		if processType == "" || a.ProcessType == processType {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *Fake) GetOrganizationAnalysis(ctx context.Context, id string) (*backend.OrganizationAnalysisDetail, error) {
	if err := f.enter(ctx, "GetOrganizationAnalysis"); err != nil {
		return nil, err
	}
	if d, ok := f.OrgDetails[id]; ok {
		return d, nil
	}
	return nil, notFound("organization analysis", id)
}

func (f *Fake) ListMetrics(ctx context.Context, processType string) ([]backend.MetricInfo, error) {
	if err := f.enter(ctx, "ListMetrics"); err != nil {
		return nil, err
	}
	return f.Metrics, nil
}

func (f *Fake) ListOutcomeAnalyses(ctx context.Context, processType, metricName string) ([]backend.OutcomeAnalysisSummary, error) {
	if err := f.enter(ctx, "ListOutcomeAnalyses"); err != nil {
		return nil, err
	}
	var out []backend.OutcomeAnalysisSummary
	for _, a := range f.OutcomeAnalyses {
		if processType != "" && a.ProcessType != processType {
			continue
		}
		if metricName != "" && a.MetricName != metricName {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *Fake) GetOutcomeAnalysis(ctx context.Context, id string) (*backend.OutcomeAnalysisDetail, error) {
	if err := f.enter(ctx, "GetOutcomeAnalysis"); err != nil {
		return nil, err
	}
	if d, ok := f.OutcomeDetails[id]; ok {
		return d, nil
	}
	return nil, notFound("outcome analysis", id)
}

func (f *Fake) CreateOutcomeAnalysis(ctx context.Context, req backend.CreateOutcomeAnalysisRequest) (*backend.CreateOutcomeAnalysisResponse, error) {
	if err := f.enter(ctx, "CreateOutcomeAnalysis"); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreatedOutcomes = append(f.CreatedOutcomes, req)
	return &backend.CreateOutcomeAnalysisResponse{AnalysisID: fmt.Sprintf("outcome-%d", len(f.CreatedOutcomes))}, nil
}
