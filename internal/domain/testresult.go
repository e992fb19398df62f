package domain

import "time"

// TestResult is one instrument test outcome
type TestResult struct {
	TestID int     `json:"test_id" db:"test_id"`
	Passed bool    `json:"passed" db:"passed"`
	Margin float64 `json:"margin" db:"margin"`
}

// RunOutcome is what the orchestrator records for a single run
type RunOutcome struct {
	RunName         string        `json:"run_name"`
	Results         []TestResult  `json:"results"`
	Duration        time.Duration `json:"duration"`
	ExecutionError  bool          `json:"execution_error"`
	ErrorReason     string        `json:"error_reason,omitempty"`
	CommandFailures int           `json:"command_failures"`
}

// PassedCount returns how many results passed
func (o RunOutcome) PassedCount() int {
	n := 0
	for _, r := range o.Results {
		if r.Passed {
			n++
		}
	}
	return n
}

// FailedTestIDs returns the IDs of failing tests in result order
func (o RunOutcome) FailedTestIDs() []int {
	ids := make([]int, 0)
	for _, r := range o.Results {
		if !r.Passed {
			ids = append(ids, r.TestID)
		}
	}
	return ids
}
