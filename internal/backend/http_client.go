package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
)

const (
	requestIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	requestIDLength   = 12

	maxCacheExtensions = 6
)

type restClient struct {
	cfg        Config
	httpClient *http.Client

	// Response cache for GET endpoints
	cache      map[string]*cacheEntry
	cacheMutex sync.Mutex
}

type cacheEntry struct {
	Body        []byte
	Expiration  time.Time
	AccessCount int
	OriginalTTL time.Duration
}

// NewHTTPClient returns a Client talking JSON over HTTP to cfg.BaseURL.
func NewHTTPClient(cfg Config) Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &restClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache: make(map[string]*cacheEntry),
	}
}

func (c *restClient) getFromCache(key string) ([]byte, bool) {
	if c.cfg.CacheTTL <= 0 {
		return nil, false
	}

	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	entry, ok := c.cache[key]
	if !ok {
		log.Debug().Str("key", key).Msg("Cache miss")
		return nil, false
	}

	if time.Now().After(entry.Expiration) {
		delete(c.cache, key)
		log.Debug().Str("key", key).Msg("Cache expired")
		return nil, false
	}
	log.Debug().Str("key", key).Msg("Cache hit")

	// Sliding window extension
	if entry.AccessCount < maxCacheExtensions {
		entry.Expiration = time.Now().Add(entry.OriginalTTL)
		entry.AccessCount++
		log.Trace().Str("key", key).Int("count", entry.AccessCount).Msg("Extended cache TTL")
	}

	return entry.Body, true
}

func (c *restClient) addToCache(key string, body []byte) {
	if c.cfg.CacheTTL <= 0 {
		return
	}

	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	c.cache[key] = &cacheEntry{
		Body:        body,
		Expiration:  time.Now().Add(c.cfg.CacheTTL),
		OriginalTTL: c.cfg.CacheTTL,
		AccessCount: 1,
	}
	log.Debug().Str("key", key).Dur("ttl", c.cfg.CacheTTL).Msg("Added to cache")
}

// invalidate drops every cached response. Creating an analysis changes the
// lists, so any write clears the cache.
func (c *restClient) invalidate() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	clear(c.cache)
}

func (c *restClient) authenticateRequest(req *http.Request) {
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
}

func (c *restClient) get(ctx context.Context, path string, params url.Values, result any) error {
	target := c.cfg.BaseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	if body, ok := c.getFromCache(target); ok {
		return decode(body, result)
	}

	body, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	if err := decode(body, result); err != nil {
		return err
	}
	c.addToCache(target, body)
	return nil
}

func (c *restClient) post(ctx context.Context, path string, payload any, result any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request body: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.cfg.BaseURL+path, data)
	if err != nil {
		return err
	}
	c.invalidate()
	return decode(body, result)
}

func (c *restClient) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	requestID, err := nanoid.Generate(requestIDAlphabet, requestIDLength)
	if err == nil {
		req.Header.Set("X-Request-ID", requestID)
	}
	c.authenticateRequest(req)

	log.Debug().Str("method", method).Str("url", target).Str("request_id", requestID).Msg("Backend request")
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	log.Debug().
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Backend response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseAPIError(resp, body)
		log.Warn().Str("request_id", requestID).Int("status", resp.StatusCode).Str("detail", apiErr.Detail).Msg("Backend request failed")
		return nil, apiErr
	}
	return body, nil
}

func decode(body []byte, result any) error {
	if result == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func optional(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

func (c *restClient) ListProcessTypes(ctx context.Context) ([]string, error) {
	var types []string
	if err := c.get(ctx, "/process-types", nil, &types); err != nil {
		return nil, fmt.Errorf("list process types: %w", err)
	}
	return types, nil
}

func (c *restClient) ListAnalyses(ctx context.Context, processType string) ([]Analysis, error) {
	params := url.Values{}
	optional(params, "process_type", processType)

	var analyses []Analysis
	if err := c.get(ctx, "/analyses", params, &analyses); err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return analyses, nil
}

func (c *restClient) GetAnalysis(ctx context.Context, id string) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := c.get(ctx, "/analyses/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}
	return &result, nil
}

func (c *restClient) CompareAnalyses(ctx context.Context, before, after string) (*Comparison, error) {
	params := url.Values{}
	params.Set("before", before)
	params.Set("after", after)

	var result Comparison
	if err := c.get(ctx, "/compare", params, &result); err != nil {
		return nil, fmt.Errorf("compare analyses %s and %s: %w", before, after, err)
	}
	return &result, nil
}

func (c *restClient) CreateAnalysis(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.FilterMode == "" {
		req.FilterMode = FilterAll
	}

	var result AnalyzeResponse
	if err := c.post(ctx, "/analyze", req, &result); err != nil {
		return nil, fmt.Errorf("create analysis: %w", err)
	}
	log.Info().Str("analysis_id", result.AnalysisID).Int("cases", result.CaseCount).Bool("cached", result.Cached).Msg("Analysis created")
	return &result, nil
}

func (c *restClient) Preview(ctx context.Context, processType string, f Filter) (*PreviewResponse, error) {
	params := url.Values{}
	params.Set("process_type", processType)
	f.encode(params)

	var result PreviewResponse
	if err := c.get(ctx, "/preview", params, &result); err != nil {
		return nil, fmt.Errorf("preview %s: %w", processType, err)
	}
	return &result, nil
}

func (c *restClient) LeadTimeStats(ctx context.Context, processType string, f Filter) (*LeadTimeStats, error) {
	params := url.Values{}
	params.Set("process_type", processType)
	f.encode(params)

	var result LeadTimeStats
	if err := c.get(ctx, "/lead-time-stats", params, &result); err != nil {
		return nil, fmt.Errorf("lead time stats %s: %w", processType, err)
	}
	return &result, nil
}

func (c *restClient) Handover(ctx context.Context, q OrgQuery) (*HandoverAnalysis, error) {
	var result HandoverAnalysis
	if err := c.get(ctx, "/organization/handover", q.encode(), &result); err != nil {
		return nil, fmt.Errorf("handover analysis: %w", err)
	}
	return &result, nil
}

func (c *restClient) Workload(ctx context.Context, q OrgQuery) (*WorkloadAnalysis, error) {
	var result WorkloadAnalysis
	if err := c.get(ctx, "/organization/workload", q.encode(), &result); err != nil {
		return nil, fmt.Errorf("workload analysis: %w", err)
	}
	return &result, nil
}

func (c *restClient) Performance(ctx context.Context, q OrgQuery) (*PerformanceAnalysis, error) {
	var result PerformanceAnalysis
	if err := c.get(ctx, "/organization/performance", q.encode(), &result); err != nil {
		return nil, fmt.Errorf("performance analysis: %w", err)
	}
	return &result, nil
}

func (c *restClient) CreateOrganizationAnalysis(ctx context.Context, req OrganizationAnalyzeRequest) (*OrganizationAnalyzeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.FilterMode == "" {
		req.FilterMode = FilterAll
	}
	if req.AggregationLevel == "" {
		req.AggregationLevel = LevelEmployee
	}

	var result OrganizationAnalyzeResponse
	if err := c.post(ctx, "/organization/analyze", req, &result); err != nil {
		return nil, fmt.Errorf("create organization analysis: %w", err)
	}
	log.Info().Str("analysis_id", result.AnalysisID).Int("resources", result.ResourceCount).Msg("Organization analysis created")
	return &result, nil
}

func (c *restClient) ListOrganizationAnalyses(ctx context.Context, processType string) ([]OrganizationAnalysisSummary, error) {
	params := url.Values{}
	optional(params, "process_type", processType)

	var result []OrganizationAnalysisSummary
	if err := c.get(ctx, "/organization/analyses", params, &result); err != nil {
		return nil, fmt.Errorf("list organization analyses: %w", err)
	}
	return result, nil
}

func (c *restClient) GetOrganizationAnalysis(ctx context.Context, id string) (*OrganizationAnalysisDetail, error) {
	var result OrganizationAnalysisDetail
	if err := c.get(ctx, "/organization/analyses/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, fmt.Errorf("get organization analysis %s: %w", id, err)
	}
	return &result, nil
}

func (c *restClient) ListMetrics(ctx context.Context, processType string) ([]MetricInfo, error) {
	params := url.Values{}
	params.Set("process_type", processType)

	var result []MetricInfo
	if err := c.get(ctx, "/outcome/metrics", params, &result); err != nil {
		return nil, fmt.Errorf("list metrics for %s: %w", processType, err)
	}
	return result, nil
}

func (c *restClient) ListOutcomeAnalyses(ctx context.Context, processType, metricName string) ([]OutcomeAnalysisSummary, error) {
	params := url.Values{}
	optional(params, "process_type", processType)
	optional(params, "metric_name", metricName)

	var result []OutcomeAnalysisSummary
	if err := c.get(ctx, "/outcome/analyses", params, &result); err != nil {
		return nil, fmt.Errorf("list outcome analyses: %w", err)
	}
	return result, nil
}

func (c *restClient) GetOutcomeAnalysis(ctx context.Context, id string) (*OutcomeAnalysisDetail, error) {
	var result OutcomeAnalysisDetail
	if err := c.get(ctx, "/outcome/analyses/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, fmt.Errorf("get outcome analysis %s: %w", id, err)
	}
	return &result, nil
}

func (c *restClient) CreateOutcomeAnalysis(ctx context.Context, req CreateOutcomeAnalysisRequest) (*CreateOutcomeAnalysisResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.AnalysisType == "" {
		req.AnalysisType = AnalysisPathOutcome
	}

	var result CreateOutcomeAnalysisResponse
	if err := c.post(ctx, "/outcome/analyze", req, &result); err != nil {
		return nil, fmt.Errorf("create outcome analysis: %w", err)
	}
	log.Info().Str("analysis_id", result.AnalysisID).Str("metric", req.MetricName).Msg("Outcome analysis created")
	return &result, nil
}
