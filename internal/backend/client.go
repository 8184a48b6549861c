package backend

import (
	"context"
	"time"
)

// Client is the interface for interacting with the process-mining backend.
type Client interface {
	ListProcessTypes(ctx context.Context) ([]string, error)

	ListAnalyses(ctx context.Context, processType string) ([]Analysis, error)
	GetAnalysis(ctx context.Context, id string) (*AnalysisResult, error)
	CompareAnalyses(ctx context.Context, before, after string) (*Comparison, error)
	CreateAnalysis(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error)
	Preview(ctx context.Context, processType string, f Filter) (*PreviewResponse, error)
	LeadTimeStats(ctx context.Context, processType string, f Filter) (*LeadTimeStats, error)

	Handover(ctx context.Context, q OrgQuery) (*HandoverAnalysis, error)
	Workload(ctx context.Context, q OrgQuery) (*WorkloadAnalysis, error)
	Performance(ctx context.Context, q OrgQuery) (*PerformanceAnalysis, error)
	CreateOrganizationAnalysis(ctx context.Context, req OrganizationAnalyzeRequest) (*OrganizationAnalyzeResponse, error)
	ListOrganizationAnalyses(ctx context.Context, processType string) ([]OrganizationAnalysisSummary, error)
	GetOrganizationAnalysis(ctx context.Context, id string) (*OrganizationAnalysisDetail, error)

	ListMetrics(ctx context.Context, processType string) ([]MetricInfo, error)
	ListOutcomeAnalyses(ctx context.Context, processType, metricName string) ([]OutcomeAnalysisSummary, error)
	GetOutcomeAnalysis(ctx context.Context, id string) (*OutcomeAnalysisDetail, error)
	CreateOutcomeAnalysis(ctx context.Context, req CreateOutcomeAnalysisRequest) (*CreateOutcomeAnalysisResponse, error)
}

// Config holds the connection settings for the backend.
type Config struct {
	BaseURL string
	Token   string

	Timeout  time.Duration
	CacheTTL time.Duration
}

// NewClient creates a new backend client based on the provided configuration.
func NewClient(cfg Config) Client {
	return NewHTTPClient(cfg)
}
