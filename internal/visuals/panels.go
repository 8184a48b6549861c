package visuals

import (
	"fmt"
	"strconv"
	"strings"

	"procmap/internal/backend"
	"procmap/internal/graph"
	"procmap/internal/metricfmt"
)

// LeadTimeSummary renders lead-time statistics, and the happy path when the
// backend found one, as a markdown panel.
func LeadTimeSummary(s *backend.LeadTimeStats) string {
	if s == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("### Lead Time\n")
	sb.WriteString(fmt.Sprintf("- Cases: %d\n", s.CaseCount))
	sb.WriteString(fmt.Sprintf("- %s\n", leadTimeLine(s.LeadTimeHours)))

	if hp := s.HappyPath; hp != nil && len(hp.Path) > 0 {
		sb.WriteString(fmt.Sprintf("- Happy path (%d cases): %s\n", hp.CaseCount, strings.Join(hp.Path, " → ")))
		sb.WriteString(fmt.Sprintf("  - %s\n", leadTimeLine(hp.LeadTimeHours)))
	}
	return sb.String()
}

func leadTimeLine(h backend.LeadTimeHours) string {
	return fmt.Sprintf("Min: %s | Median: %s | Max: %s", hours(h.Min), hours(h.Median), hours(h.Max))
}

func hours(v *float64) string {
	if v == nil {
		return "-"
	}
	return graph.WaitLabel(*v)
}

// SegmentPanel renders a segment's case count and outcome statistics.
func SegmentPanel(seg backend.Segment, metricName, metricUnit string) string {
	f := func(v float64) string { return metricfmt.Decimal(v, metricName, metricUnit) }
	st := seg.OutcomeStats

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("#### %s\n", seg.Label))
	sb.WriteString("| Cases | Avg | Median | Total | Min | Max |\n")
	sb.WriteString("|---:|---:|---:|---:|---:|---:|\n")
	sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s |\n",
		seg.CaseCount, f(st.Avg), f(st.Median), f(st.Total), f(st.Min), f(st.Max)))
	return sb.String()
}

// DifferencesTable lists transitions whose traversal rate differs between
// the segments. Rates are percentages as sent by the backend.
func DifferencesTable(diffs []graph.PathDifference) string {
	if len(diffs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("| Transition | High | Low | Difference |\n")
	sb.WriteString("|---|---:|---:|---:|\n")
	for _, d := range diffs {
		sign := ""
		if d.DiffRate > 0 {
			sign = "+"
		}
		sb.WriteString(fmt.Sprintf("| %s → %s | %s%% | %s%% | %s%s%% |\n",
			d.Source, d.Target, rate(d.HighRate), rate(d.LowRate), sign, rate(d.DiffRate)))
	}
	return sb.String()
}

func rate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SegmentComparison renders both segment panels followed by the differences
// table.
func SegmentComparison(r *backend.SegmentComparisonResult, metricUnit string) string {
	if r == nil {
		return ""
	}
	name := r.Summary.MetricName

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("### Segment comparison: %s (%s, %d cases)\n\n", name, r.Summary.SegmentMode, r.Summary.TotalCases))
	sb.WriteString(SegmentPanel(r.HighSegment, name, metricUnit))
	sb.WriteString("\n")
	sb.WriteString(SegmentPanel(r.LowSegment, name, metricUnit))
	if table := DifferencesTable(r.Differences); table != "" {
		sb.WriteString("\n#### Key differences\n")
		sb.WriteString(table)
	}
	return sb.String()
}
