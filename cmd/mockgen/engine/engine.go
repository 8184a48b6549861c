package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"procmap/internal/backend"
	"procmap/internal/graph"
)

type GeneratorConfig struct {
	ProcessType  string
	Scenario     string // "mild", "chaos" or "drift"
	Distribution string // "uniform" or "weibull"
	Count        int
	Seed         int64
	Now          time.Time
}

// Event is one executed activity of a case.
type Event struct {
	Activity   string
	Resource   Resource
	Start      time.Time
	DurationHr float64
}

type Resource struct {
	ID         string
	Name       string
	Department string
}

// Case is a generated trace with its outcome.
type Case struct {
	ID      string
	Events  []Event
	Revenue float64
}

// LeadTimeHours is the time from the first event's start to the last event's end.
func (c Case) LeadTimeHours() float64 {
	if len(c.Events) == 0 {
		return 0
	}
	first, last := c.Events[0], c.Events[len(c.Events)-1]
	return last.Start.Sub(first.Start).Hours() + last.DurationHr
}

// RevenueMetric is the outcome metric attached to generated cases.
const RevenueMetric = "revenue"

var activityLabels = map[string]string{
	"receive": "Receive order",
	"check":   "Check credit",
	"rework":  "Rework order",
	"ship":    "Ship goods",
	"invoice": "Send invoice",
}

var staff = map[string][]Resource{
	"receive": {{"alice", "Alice", "sales"}, {"bob", "Bob", "sales"}},
	"check":   {{"carol", "Carol", "finance"}, {"dave", "Dave", "finance"}},
	"rework":  {{"bob", "Bob", "sales"}},
	"ship":    {{"erin", "Erin", "logistics"}, {"frank", "Frank", "logistics"}},
	"invoice": {{"carol", "Carol", "finance"}},
}

// Generate produces Count order-to-cash cases, one arriving per day and the
// last one a day before Now.
func Generate(cfg GeneratorConfig) []Case {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	arrivals := cfg.Now.AddDate(0, 0, -cfg.Count)

	cases := make([]Case, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		progress := float64(i) / math.Max(1, float64(cfg.Count))

		reworkChance, k, lambda := 0.1, 2.5, 0.5
		switch cfg.Scenario {
		case "chaos":
			reworkChance, k, lambda = 0.4, 0.8, 0.8
		case "drift":
			reworkChance = 0.1 + 0.4*progress
			k = 2.5 - 1.7*progress
			lambda = 0.5 + 0.5*progress
		}

		sample := func() float64 {
			if cfg.Distribution == "weibull" {
				return weibullSample(rng, k, lambda) * 24
			}
			return 2 + rng.Float64()*10
		}

		route := []string{"receive", "check"}
		for rng.Float64() < reworkChance && len(route) < 8 {
			route = append(route, "rework", "check")
		}
		route = append(route, "ship", "invoice")

		c := Case{ID: fmt.Sprintf("ORD-%04d", i+1)}
		t := arrivals.AddDate(0, 0, i)
		for _, act := range route {
			pool := staff[act]
			ev := Event{Activity: act, Resource: pool[rng.Intn(len(pool))], Start: t, DurationHr: sample()}
			c.Events = append(c.Events, ev)
			// Hand-off wait before the next activity starts.
			t = t.Add(time.Duration((ev.DurationHr + sample()) * float64(time.Hour)))
		}

		reworks := (len(route) - 4) / 2
		c.Revenue = math.Max(1000, math.Round(80000+rng.Float64()*60000-float64(reworks)*25000))
		cases = append(cases, c)
	}
	return cases
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

type edgeKey struct{ source, target string }

type flow struct {
	nodes     map[string]float64
	edges     map[edgeKey]float64
	waits     map[edgeKey]float64
	outcomes  map[edgeKey][]float64
	edgeOrder []edgeKey
	nodeOrder []string
}

func newFlow() *flow {
	return &flow{
		nodes:    map[string]float64{},
		edges:    map[edgeKey]float64{},
		waits:    map[edgeKey]float64{},
		outcomes: map[edgeKey][]float64{},
	}
}

// add records the activity transitions of c. key maps an event to a node id.
func (f *flow) add(c Case, key func(Event) string) {
	seen := map[edgeKey]bool{}
	for i, ev := range c.Events {
		id := key(ev)
		if _, ok := f.nodes[id]; !ok {
			f.nodeOrder = append(f.nodeOrder, id)
		}
		f.nodes[id]++
		if i == 0 {
			continue
		}
		prev := c.Events[i-1]
		ek := edgeKey{key(prev), id}
		if ek.source == ek.target {
			continue
		}
		if _, ok := f.edges[ek]; !ok {
			f.edgeOrder = append(f.edgeOrder, ek)
		}
		f.edges[ek]++
		f.waits[ek] += ev.Start.Sub(prev.Start).Hours() - prev.DurationHr
		if !seen[ek] {
			seen[ek] = true
			f.outcomes[ek] = append(f.outcomes[ek], c.Revenue)
		}
	}
}

func (f *flow) nodeDTOs(label func(string) string) []backend.NodeDTO {
	out := make([]backend.NodeDTO, 0, len(f.nodeOrder))
	for _, id := range f.nodeOrder {
		out = append(out, backend.NodeDTO{ID: id, Data: backend.NodeDataDTO{Label: label(id), Frequency: f.nodes[id]}})
	}
	return out
}

func (f *flow) edgeDTOs(withOutcome bool) []backend.EdgeDTO {
	out := make([]backend.EdgeDTO, 0, len(f.edgeOrder))
	for _, ek := range f.edgeOrder {
		wait := round1(f.waits[ek] / f.edges[ek])
		e := backend.EdgeDTO{
			ID:     ek.source + "->" + ek.target,
			Source: ek.source,
			Target: ek.target,
			Data:   backend.EdgeDataDTO{Frequency: f.edges[ek], AvgWaitHours: &wait},
		}
		if withOutcome {
			e.Data.OutcomeStats = map[string]graph.OutcomeStats{RevenueMetric: describe(f.outcomes[ek])}
		}
		out = append(out, e)
	}
	return out
}

func activityLabel(id string) string {
	if l, ok := activityLabels[id]; ok {
		return l
	}
	return id
}

func activityOf(ev Event) string { return ev.Activity }

// ProcessMap builds the stored process map of cases.
func ProcessMap(cases []Case) *backend.AnalysisResult {
	f := newFlow()
	for _, c := range cases {
		f.add(c, activityOf)
	}
	return &backend.AnalysisResult{
		Nodes:         f.nodeDTOs(activityLabel),
		Edges:         f.edgeDTOs(false),
		LeadTimeStats: leadTime(cases),
	}
}

func leadTime(cases []Case) *backend.LeadTimeStats {
	s := &backend.LeadTimeStats{CaseCount: len(cases)}
	if len(cases) == 0 {
		return s
	}
	s.LeadTimeHours = hoursOf(cases)

	variants := map[string][]Case{}
	var order []string
	for _, c := range cases {
		key := fmt.Sprint(variant(c))
		if _, ok := variants[key]; !ok {
			order = append(order, key)
		}
		variants[key] = append(variants[key], c)
	}
	best := order[0]
	for _, key := range order[1:] {
		if len(variants[key]) > len(variants[best]) {
			best = key
		}
	}
	happy := variants[best]
	s.HappyPath = &backend.HappyPath{
		CaseCount:     len(happy),
		LeadTimeHours: hoursOf(happy),
		Path:          variant(happy[0]),
	}
	return s
}

func variant(c Case) []string {
	path := make([]string, len(c.Events))
	for i, ev := range c.Events {
		path[i] = activityLabel(ev.Activity)
	}
	return path
}

func hoursOf(cases []Case) backend.LeadTimeHours {
	values := make([]float64, len(cases))
	for i, c := range cases {
		values[i] = c.LeadTimeHours()
	}
	st := describe(values)
	lo, mid, hi := round1(st.Min), round1(st.Median), round1(st.Max)
	return backend.LeadTimeHours{Min: &lo, Median: &mid, Max: &hi}
}

// Organization builds a saved organization analysis at level.
func Organization(processType string, cases []Case, level backend.AggregationLevel, now time.Time) *backend.OrganizationAnalysisDetail {
	if level == "" {
		level = backend.LevelEmployee
	}
	key := func(ev Event) string {
		if level == backend.LevelDepartment {
			return ev.Resource.Department
		}
		return ev.Resource.ID
	}
	names := map[string]string{}
	durations := map[string][]float64{}
	cased := map[string]map[string]bool{}

	f := newFlow()
	for _, c := range cases {
		f.add(c, key)
		for _, ev := range c.Events {
			id := key(ev)
			names[id] = ev.Resource.Name
			if level == backend.LevelDepartment {
				names[id] = ev.Resource.Department
			}
			durations[id] = append(durations[id], ev.DurationHr)
			if cased[id] == nil {
				cased[id] = map[string]bool{}
			}
			cased[id][c.ID] = true
		}
	}

	d := &backend.OrganizationAnalysisDetail{
		OrganizationAnalysisSummary: backend.OrganizationAnalysisSummary{
			AnalysisID:       "org-" + string(level),
			AnalysisName:     backend.DefaultAnalysisName(processType, now, string(level)),
			ProcessType:      processType,
			AggregationLevel: level,
			CreatedAt:        now.UTC().Format(time.RFC3339),
		},
		FilterMode: backend.FilterAll,
	}
	d.HandoverData.AggregationLevel = level
	d.WorkloadData.AggregationLevel = level
	d.PerformanceData.AggregationLevel = level

	for _, id := range f.nodeOrder {
		d.HandoverData.Nodes = append(d.HandoverData.Nodes, backend.HandoverNode{ID: id, Label: names[id], ActivityCount: f.nodes[id]})

		st := describe(durations[id])
		d.WorkloadData.Workload = append(d.WorkloadData.Workload, backend.WorkloadItem{
			ResourceID:    id,
			ResourceName:  names[id],
			ActivityCount: f.nodes[id],
			CaseCount:     float64(len(cased[id])),
		})
		d.PerformanceData.Performance = append(d.PerformanceData.Performance, backend.PerformanceItem{
			ResourceID:          id,
			ResourceName:        names[id],
			AvgDurationHours:    round1(st.Avg),
			MedianDurationHours: round1(st.Median),
			TotalDurationHours:  round1(st.Total),
			ActivityCount:       f.nodes[id],
		})
	}
	for _, e := range f.edgeDTOs(false) {
		d.HandoverData.Edges = append(d.HandoverData.Edges, backend.HandoverEdge{
			Source:        e.Source,
			Target:        e.Target,
			HandoverCount: e.Data.Frequency,
			AvgWaitHours:  e.Data.AvgWaitHours,
		})
	}
	sort.SliceStable(d.WorkloadData.Workload, func(i, j int) bool {
		return d.WorkloadData.Workload[i].ActivityCount > d.WorkloadData.Workload[j].ActivityCount
	})
	return d
}

// PathOutcome builds a saved path-outcome analysis of revenue.
func PathOutcome(processType string, cases []Case, now time.Time) (*backend.OutcomeAnalysisDetail, error) {
	f := newFlow()
	revenues := make([]float64, len(cases))
	for i, c := range cases {
		f.add(c, activityOf)
		revenues[i] = c.Revenue
	}

	var r backend.PathOutcomeResult
	r.Nodes = f.nodeDTOs(activityLabel)
	r.Edges = f.edgeDTOs(true)
	r.Summary.TotalCases = len(cases)
	r.Summary.Metrics = []string{RevenueMetric}
	r.Summary.OverallStats = describe(revenues)

	for _, e := range r.Edges {
		r.Summary.TopPaths = append(r.Summary.TopPaths, backend.TopPath{
			Source:     e.Source,
			Target:     e.Target,
			AvgOutcome: e.Data.OutcomeStats[RevenueMetric].Avg,
		})
	}
	sort.SliceStable(r.Summary.TopPaths, func(i, j int) bool {
		return r.Summary.TopPaths[i].AvgOutcome > r.Summary.TopPaths[j].AvgOutcome
	})
	if len(r.Summary.TopPaths) > 5 {
		r.Summary.TopPaths = r.Summary.TopPaths[:5]
	}
	return outcomeDetail("outcome-path", backend.AnalysisPathOutcome, processType, now, nil, r)
}

// SegmentComparison builds a saved top-versus-bottom quartile comparison of
// revenue.
func SegmentComparison(processType string, cases []Case, now time.Time) (*backend.OutcomeAnalysisDetail, error) {
	sorted := slices.Clone(cases)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Revenue > sorted[j].Revenue })
	quarter := max(1, len(sorted)/4)
	if len(sorted) == 0 {
		quarter = 0
	}

	var r backend.SegmentComparisonResult
	high, low := sorted[:quarter], sorted[len(sorted)-quarter:]
	r.HighSegment = segment("High revenue (top 25%)", high)
	r.LowSegment = segment("Low revenue (bottom 25%)", low)
	r.Differences = differences(high, low)
	r.Summary.MetricName = RevenueMetric
	r.Summary.SegmentMode = backend.SegmentTop25
	r.Summary.TotalCases = len(cases)

	filter := map[string]any{"segment_mode": backend.SegmentTop25}
	return outcomeDetail("outcome-segment", backend.AnalysisSegmentComparison, processType, now, filter, r)
}

func segment(label string, cases []Case) backend.Segment {
	f := newFlow()
	revenues := make([]float64, len(cases))
	for i, c := range cases {
		f.add(c, activityOf)
		revenues[i] = c.Revenue
	}
	return backend.Segment{
		Label:        label,
		Nodes:        f.nodeDTOs(activityLabel),
		Edges:        f.edgeDTOs(false),
		CaseCount:    len(cases),
		OutcomeStats: describe(revenues),
	}
}

// differences compares the share of cases in each segment that take a path,
// in percent.
func differences(high, low []Case) []graph.PathDifference {
	share := func(cases []Case) (map[edgeKey]float64, []edgeKey) {
		f := newFlow()
		for _, c := range cases {
			f.add(c, activityOf)
		}
		rates := map[edgeKey]float64{}
		for ek, revs := range f.outcomes {
			rates[ek] = 100 * float64(len(revs)) / math.Max(1, float64(len(cases)))
		}
		return rates, f.edgeOrder
	}
	hr, order := share(high)
	lr, lowOrder := share(low)
	for _, ek := range lowOrder {
		if _, ok := hr[ek]; !ok {
			order = append(order, ek)
		}
	}

	out := make([]graph.PathDifference, 0, len(order))
	for _, ek := range order {
		out = append(out, graph.PathDifference{
			Source:   ek.source,
			Target:   ek.target,
			HighRate: round1(hr[ek]),
			LowRate:  round1(lr[ek]),
			DiffRate: round1(hr[ek] - lr[ek]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return math.Abs(out[i].DiffRate) > math.Abs(out[j].DiffRate) })
	return out
}

func outcomeDetail(id, kind, processType string, now time.Time, filter map[string]any, result any) (*backend.OutcomeAnalysisDetail, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s result: %w", kind, err)
	}
	return &backend.OutcomeAnalysisDetail{
		OutcomeAnalysisSummary: backend.OutcomeAnalysisSummary{
			AnalysisID:   id,
			AnalysisName: backend.DefaultAnalysisName(processType, now, RevenueMetric, kind),
			ProcessType:  processType,
			MetricName:   RevenueMetric,
			AnalysisType: kind,
			CreatedAt:    now.UTC().Format(time.RFC3339),
		},
		FilterConfig: filter,
		ResultData:   data,
	}, nil
}

func describe(values []float64) graph.OutcomeStats {
	if len(values) == 0 {
		return graph.OutcomeStats{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	st := graph.OutcomeStats{Min: sorted[0], Max: sorted[len(sorted)-1], Count: len(sorted)}
	for _, v := range sorted {
		st.Total += v
	}
	st.Avg = st.Total / float64(len(sorted))
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		st.Median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		st.Median = sorted[mid]
	}
	return st
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Save writes every fixture kind into outDir as indented JSON and returns the
// written paths.
func Save(outDir string, processType string, cases []Case, now time.Time) ([]string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}

	outcome, err := PathOutcome(processType, cases, now)
	if err != nil {
		return nil, err
	}
	segments, err := SegmentComparison(processType, cases, now)
	if err != nil {
		return nil, err
	}

	fixtures := []struct {
		name string
		v    any
	}{
		{"process.json", ProcessMap(cases)},
		{"organization.json", Organization(processType, cases, backend.LevelEmployee, now)},
		{"organization_department.json", Organization(processType, cases, backend.LevelDepartment, now)},
		{"outcome.json", outcome},
		{"segment.json", segments},
	}

	var written []string
	for _, fx := range fixtures {
		path := filepath.Join(outDir, processType+"_"+fx.name)
		data, err := json.MarshalIndent(fx.v, "", "  ")
		if err != nil {
			return written, fmt.Errorf("failed to encode %s: %w", fx.name, err)
		}
		if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
