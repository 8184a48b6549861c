package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"procmap/internal/backend"
	"procmap/internal/orchestrate"
	"procmap/internal/visuals"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview <process-type>",
	Short: "Preview filters interactively",
	Long: `Read one filter per line from stdin and print the matching event and case
counts with lead-time statistics. Lines look like "all" or
"case_start 2026-01-01 2026-03-31". Only the newest filter is answered when
lines arrive faster than the debounce delay.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		session := newPreviewSession(out)

		loader := orchestrate.NewPreviewLoader(cmd.Context(), client, cfg.PreviewDebounce, session.deliver)
		defer loader.Close()

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			f, err := parseFilter(line)
			if err != nil {
				color.New(color.FgRed).Fprintln(out, err)
				continue
			}
			session.expect(f)
			loader.Request(args[0], f)
		}
		if err := scanner.Err(); err != nil {
			return err
		}

		select {
		case <-session.done():
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		}
		return session.err()
	},
}

// previewSession prints deliveries and signals once the last requested
// filter has been answered.
type previewSession struct {
	out io.Writer

	mu      sync.Mutex
	last    *backend.Filter
	lastErr error
	settled chan struct{}
}

func newPreviewSession(out io.Writer) *previewSession {
	s := &previewSession{out: out, settled: make(chan struct{})}
	close(s.settled)
	return s
}

func (s *previewSession) expect(f backend.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		s.settled = make(chan struct{})
	}
	s.last = &f
}

func (s *previewSession) done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

func (s *previewSession) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *previewSession) deliver(b *orchestrate.PreviewBundle, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		color.New(color.FgRed).Fprintf(s.out, "Preview failed: %v\n", err)
		s.lastErr = err
		s.settle()
		return
	}

	headerColor.Fprintf(s.out, "%s [%s]\n", b.ProcessType, describeFilter(b.Filter))
	fmt.Fprintf(s.out, "Events: %d  Cases: %d\n", b.Preview.EventCount, b.Preview.CaseCount)
	fmt.Fprint(s.out, visuals.LeadTimeSummary(b.LeadTime))
	s.lastErr = nil

	if s.last != nil && *s.last == b.Filter {
		s.settle()
	}
}

func (s *previewSession) settle() {
	if s.last != nil {
		s.last = nil
		close(s.settled)
	}
}

func parseFilter(line string) (backend.Filter, error) {
	fields := strings.Fields(line)
	f := backend.Filter{Mode: backend.FilterMode(fields[0])}
	switch f.Mode {
	case backend.FilterAll:
		if len(fields) != 1 {
			return f, fmt.Errorf("%q takes no dates", line)
		}
	case backend.FilterCaseStart, backend.FilterCaseEnd:
		if len(fields) != 3 {
			return f, fmt.Errorf("%q needs a start and an end date", line)
		}
		f.DateFrom, f.DateTo = fields[1], fields[2]
	default:
		return f, fmt.Errorf("unknown filter mode %q: use all, case_start or case_end", fields[0])
	}
	return f, f.Validate()
}

func describeFilter(f backend.Filter) string {
	if f.Mode == "" || f.Mode == backend.FilterAll {
		return string(backend.FilterAll)
	}
	return fmt.Sprintf("%s %s..%s", f.Mode, f.DateFrom, f.DateTo)
}
