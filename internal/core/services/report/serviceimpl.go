package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rodaine/table"

	"gitlab.com/dutbench.net/internal/domain"
)

var _ IReportService = (*ReportService)(nil)

const maxFailedIDsLength = 30

// ReportService implements IReportService
type ReportService struct {
	colored bool
}

// Option configures a ReportService
type Option func(*ReportService)

// WithColor enables coloured headers and run names
func WithColor(enabled bool) Option {
	return func(s *ReportService) { s.colored = enabled }
}

func NewReportService(opts ...Option) *ReportService {
	s := &ReportService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Aggregate classifies every run. Runs with no recorded outcome are Skipped.
// When a run name has several outcomes the last one counts.
func (s *ReportService) Aggregate(runs []domain.RunSpec, outcomes []domain.RunOutcome) domain.Report {
	byName := make(map[string]domain.RunOutcome, len(outcomes))
	for _, o := range outcomes {
		byName[o.RunName] = o
	}

	rep := domain.Report{
		Rows:      make([]domain.RunSummary, 0, len(runs)),
		TotalRuns: len(runs),
	}

	for _, run := range runs {
		outcome, ok := byName[run.Name]
		if !ok {
			rep.Rows = append(rep.Rows, domain.RunSummary{
				RunName:     run.Name,
				Status:      domain.RunStatusSkipped,
				Observation: "Not executed",
			})
			continue
		}

		rep.Rows = append(rep.Rows, Summarize(outcome))
		rep.ExecutedRuns++
		rep.TotalDuration += outcome.Duration
	}

	if rep.ExecutedRuns > 0 {
		rep.AverageDuration = rep.TotalDuration / time.Duration(rep.ExecutedRuns)
	}

	return rep
}

// Summarize classifies a single outcome
func Summarize(o domain.RunOutcome) domain.RunSummary {
	passed, total := o.PassedCount(), len(o.Results)
	row := domain.RunSummary{
		RunName:  o.RunName,
		Passed:   passed,
		Total:    total,
		Duration: o.Duration,
	}

	switch {
	case o.ExecutionError:
		row.Status = domain.RunStatusExecError
		row.Observation = o.ErrorReason
		if row.Observation == "" {
			row.Observation = "Instrument error"
		}
	case total > 0 && passed == total:
		row.Status = domain.RunStatusAllPass
	case total > 0 && passed == 0:
		row.Status = domain.RunStatusAllFail
		row.Observation = fmt.Sprintf("All %d tests failed", total)
	default:
		row.Status = domain.RunStatusPartialFail
		row.Observation = FailedTestsObservation(o.FailedTestIDs())
	}

	if o.CommandFailures > 0 && row.Status != domain.RunStatusExecError {
		row.Observation = joinObservation(row.Observation, fmt.Sprintf("%d DUT command(s) failed", o.CommandFailures))
	}

	return row
}

// FailedTestsObservation names one failing test directly and lists several
// joined with ", ", truncated to 30 characters with a "..." suffix.
func FailedTestsObservation(ids []int) string {
	switch len(ids) {
	case 0:
		return "No results"
	case 1:
		return fmt.Sprintf("Failed test %d", ids[0])
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	joined := strings.Join(parts, ", ")
	if len(joined) > maxFailedIDsLength {
		joined = joined[:maxFailedIDsLength] + "..."
	}
	return "Failed tests " + joined
}

func joinObservation(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}

// Render writes the report table and totals
func (s *ReportService) Render(w io.Writer, rep domain.Report) error {
	tbl := table.New("Run", "Pass/Total", "Status", "Duration", "Observation").WithWriter(w)
	if s.colored {
		headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
		columnFmt := color.New(color.FgYellow).SprintfFunc()
		tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)
	}

	for _, row := range rep.Rows {
		tbl.AddRow(
			row.RunName,
			fmt.Sprintf("%d/%d", row.Passed, row.Total),
			string(row.Status),
			formatDuration(row.Duration),
			row.Observation,
		)
	}
	tbl.Print()

	if _, err := fmt.Fprintf(w, "\nRuns: %d (executed %d)\n", rep.TotalRuns, rep.ExecutedRuns); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Average run duration: %s\n", formatDuration(rep.AverageDuration)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Total elapsed: %s\n", formatDuration(rep.TotalDuration))
	return err
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
