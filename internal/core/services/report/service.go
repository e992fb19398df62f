package report

import (
	"io"

	"gitlab.com/dutbench.net/internal/domain"
)

// IReportService turns run outcomes into the batch summary
type IReportService interface {
	// Aggregate builds one row per configured run, in configured order
	Aggregate(runs []domain.RunSpec, outcomes []domain.RunOutcome) domain.Report

	// Render writes the report as a table followed by the duration totals
	Render(w io.Writer, report domain.Report) error
}
