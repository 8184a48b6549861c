package commands

import (
	"fmt"
	"io"

	"procmap/internal/backend"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	listProcessType string
	listKind        string
)

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "List stored analyses",
	Long:  "List stored process, organization or outcome analyses, optionally for one process type.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		switch listKind {
		case "process":
			list, err := client.ListAnalyses(ctx, listProcessType)
			if err != nil {
				return err
			}
			rows := make([]listRow, 0, len(list))
			for _, a := range list {
				rows = append(rows, listRow{a.AnalysisID, a.AnalysisName, a.ProcessType, "", a.CreatedAt})
			}
			printRows(out, rows)
		case "organization":
			list, err := client.ListOrganizationAnalyses(ctx, listProcessType)
			if err != nil {
				return err
			}
			rows := make([]listRow, 0, len(list))
			for _, a := range list {
				rows = append(rows, listRow{a.AnalysisID, a.AnalysisName, a.ProcessType, string(a.AggregationLevel), a.CreatedAt})
			}
			printRows(out, rows)
		case "outcome":
			list, err := client.ListOutcomeAnalyses(ctx, listProcessType, "")
			if err != nil {
				return err
			}
			rows := make([]listRow, 0, len(list))
			for _, a := range list {
				rows = append(rows, listRow{a.AnalysisID, a.AnalysisName, a.ProcessType, a.MetricName + " " + outcomeKind(a.AnalysisType), a.CreatedAt})
			}
			printRows(out, rows)
		default:
			return fmt.Errorf("unknown kind %q: use process, organization or outcome", listKind)
		}
		return nil
	},
}

type listRow struct {
	id, name, processType, detail, createdAt string
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	idColor     = color.New(color.FgYellow)
	dimColor    = color.New(color.Faint)
)

func printRows(w io.Writer, rows []listRow) {
	if len(rows) == 0 {
		dimColor.Fprintln(w, "No analyses found.")
		return
	}
	headerColor.Fprintf(w, "%-38s %-32s %-14s %s\n", "ID", "NAME", "PROCESS", "DETAIL")
	for _, r := range rows {
		idColor.Fprintf(w, "%-38s", r.id)
		fmt.Fprintf(w, " %-32s %-14s %s", r.name, r.processType, r.detail)
		dimColor.Fprintf(w, "  %s\n", r.createdAt)
	}
}

func outcomeKind(analysisType string) string {
	if analysisType == backend.AnalysisSegmentComparison {
		return "(segments)"
	}
	return "(paths)"
}

func init() {
	analysesCmd.Flags().StringVarP(&listProcessType, "process-type", "p", "", "only list analyses of this process type")
	analysesCmd.Flags().StringVarP(&listKind, "kind", "k", "process", "analysis kind: process, organization or outcome")
}
