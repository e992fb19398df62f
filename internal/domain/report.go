package domain

import "time"

// RunStatus is the report classification of a run
type RunStatus string

const (
	RunStatusAllPass     RunStatus = "All Pass"
	RunStatusAllFail     RunStatus = "All Fail"
	RunStatusPartialFail RunStatus = "Partial Fail"
	RunStatusExecError   RunStatus = "Exec Error"
	RunStatusSkipped     RunStatus = "Skipped"
)

// RunSummary is one report row
type RunSummary struct {
	RunName     string        `json:"run_name"`
	Passed      int           `json:"passed"`
	Total       int           `json:"total"`
	Status      RunStatus     `json:"status"`
	Duration    time.Duration `json:"duration"`
	Observation string        `json:"observation"`
}

// Report is the aggregated view of a batch, rows in configured run order
type Report struct {
	Rows            []RunSummary  `json:"rows"`
	TotalRuns       int           `json:"total_runs"`
	ExecutedRuns    int           `json:"executed_runs"`
	TotalDuration   time.Duration `json:"total_duration"`
	AverageDuration time.Duration `json:"average_duration"`
}

// CountByStatus returns how many rows have the given status
func (r Report) CountByStatus(status RunStatus) int {
	n := 0
	for _, row := range r.Rows {
		if row.Status == status {
			n++
		}
	}
	return n
}
