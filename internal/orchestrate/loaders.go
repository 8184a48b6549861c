package orchestrate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"procmap/internal/backend"
)

// PreviewBundle pairs the size estimate with lead-time statistics for the
// same filter.
type PreviewBundle struct {
	ProcessType string
	Filter      backend.Filter
	Preview     *backend.PreviewResponse
	LeadTime    *backend.LeadTimeStats
}

// LoadPreview fetches preview and lead-time stats in parallel. Either failure
// fails the bundle.
func LoadPreview(ctx context.Context, c backend.Client, processType string, f backend.Filter) (*PreviewBundle, error) {
	b := &PreviewBundle{ProcessType: processType, Filter: f}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.Preview(gctx, processType, f)
		b.Preview = p
		return err
	})
	g.Go(func() error {
		lt, err := c.LeadTimeStats(gctx, processType, f)
		b.LeadTime = lt
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return b, nil
}

// OrganizationBundle is the full data behind an organization view.
type OrganizationBundle struct {
	Level       backend.AggregationLevel
	Handover    *backend.HandoverAnalysis
	Workload    *backend.WorkloadAnalysis
	Performance *backend.PerformanceAnalysis
}

// LoadOrganization fetches handover, workload and performance in parallel.
func LoadOrganization(ctx context.Context, c backend.Client, q backend.OrgQuery) (*OrganizationBundle, error) {
	b := &OrganizationBundle{Level: q.Level}
	if b.Level == "" {
		b.Level = backend.LevelEmployee
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := c.Handover(gctx, q)
		b.Handover = r
		return err
	})
	g.Go(func() error {
		r, err := c.Workload(gctx, q)
		b.Workload = r
		return err
	})
	g.Go(func() error {
		r, err := c.Performance(gctx, q)
		b.Performance = r
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return b, nil
}

// OrganizationAt returns the organization data of a saved analysis at level.
// The saved level is served from the stored detail; any other level is
// re-fetched with the analysis's saved filter.
func OrganizationAt(ctx context.Context, c backend.Client, d *backend.OrganizationAnalysisDetail, level backend.AggregationLevel) (*OrganizationBundle, error) {
	if level == "" || level == d.AggregationLevel {
		return &OrganizationBundle{
			Level:       d.AggregationLevel,
			Handover:    &d.HandoverData,
			Workload:    &d.WorkloadData,
			Performance: &d.PerformanceData,
		}, nil
	}
	log.Debug().Str("analysis_id", d.AnalysisID).Str("level", string(level)).Msg("Reloading organization data")
	return LoadOrganization(ctx, c, d.Query(level))
}

// PreviewLoader debounces preview requests and delivers only the result of
// the newest one.
type PreviewLoader struct {
	ctx      context.Context
	client   backend.Client
	debounce *Debouncer
	latest   Latest
	deliver  func(*PreviewBundle, error)

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPreviewLoader calls deliver once per settled request. Superseded
// results are dropped silently.
func NewPreviewLoader(ctx context.Context, c backend.Client, delay time.Duration, deliver func(*PreviewBundle, error)) *PreviewLoader {
	return &PreviewLoader{
		ctx:      ctx,
		client:   c,
		debounce: NewDebouncer(delay),
		deliver:  deliver,
	}
}

// Request schedules a preview. Requests without a process type are ignored.
func (p *PreviewLoader) Request(processType string, f backend.Filter) {
	if processType == "" {
		return
	}
	p.debounce.Trigger(func() {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		p.wg.Add(1)
		p.mu.Unlock()
		defer p.wg.Done()

		ctx, ticket := p.latest.Begin(p.ctx)
		defer ticket.Finish()

		b, err := LoadPreview(ctx, p.client, processType, f)
		if !p.latest.Deliver(ticket, func() { p.deliver(b, err) }) {
			log.Debug().Str("process_type", processType).Msg("Discarding stale preview")
		}
	})
}

// Close drops pending requests, cancels the one in flight and waits for any
// running delivery to return.
func (p *PreviewLoader) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.debounce.Stop()
	p.latest.Stop()
	p.wg.Wait()
}
