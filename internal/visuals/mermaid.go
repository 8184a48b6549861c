package visuals

import (
	"fmt"
	"math"
	"strings"

	"procmap/internal/backend"
	"procmap/internal/graph"
)

// GenerateWorkloadChart creates a Mermaid bar chart of each resource's
// activity count as a share of the busiest resource.
func GenerateWorkloadChart(w *backend.WorkloadAnalysis) string {
	if w == nil || len(w.Workload) == 0 {
		return ""
	}

	maxCount := 0.0
	for _, item := range w.Workload {
		maxCount = math.Max(maxCount, item.ActivityCount)
	}

	var labels []string
	var values []string
	for _, item := range w.Workload {
		share := 0.0
		if maxCount > 0 {
			share = item.ActivityCount / maxCount * 100
		}
		labels = append(labels, fmt.Sprintf("\"%s\"", mermaidText(resourceName(item.ResourceName, item.ResourceID))))
		values = append(values, fmt.Sprintf("%.0f", share))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"Workload (%s)\"\n", levelName(w.AggregationLevel)))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString("    y-axis \"Share of busiest resource (%)\" 0 --> 100\n")
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GeneratePerformanceChart creates a Mermaid bar chart of per-resource
// processing hours for the chosen statistic.
func GeneratePerformanceChart(p *backend.PerformanceAnalysis, stat graph.StatKind) string {
	if p == nil || len(p.Performance) == 0 {
		return ""
	}

	var labels []string
	var values []string
	maxY := 0.0
	for _, item := range p.Performance {
		v := item.AvgDurationHours
		switch stat {
		case graph.StatMedian:
			v = item.MedianDurationHours
		case graph.StatTotal:
			v = item.TotalDurationHours
		}
		maxY = math.Max(maxY, v)
		labels = append(labels, fmt.Sprintf("\"%s\"", mermaidText(resourceName(item.ResourceName, item.ResourceID))))
		values = append(values, fmt.Sprintf("%.1f", v))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"Performance, %s hours (%s)\"\n", stat, levelName(p.AggregationLevel)))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Hours\" 0 --> %d\n", int(math.Max(1, math.Ceil(maxY*1.2)))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

func resourceName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func levelName(l backend.AggregationLevel) string {
	if l == "" {
		return string(backend.LevelEmployee)
	}
	return string(l)
}
