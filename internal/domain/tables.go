package domain

// BatchRunTable names the batch_runs columns
type BatchRunTable struct {
	ID        string
	StartedAt string
	RunNames  string
}

func GetBatchRunTable() BatchRunTable {
	return BatchRunTable{
		ID:        "id",
		StartedAt: "started_at",
		RunNames:  "run_names",
	}
}

func (BatchRunTable) TableName() string {
	return "batch_runs"
}

// RunOutcomeTable names the run_outcomes columns
type RunOutcomeTable struct {
	BatchID         string
	RunIndex        string
	RunName         string
	DurationMs      string
	ExecutionError  string
	ErrorReason     string
	CommandFailures string
	RecordedAt      string
}

func GetRunOutcomeTable() RunOutcomeTable {
	return RunOutcomeTable{
		BatchID:         "batch_id",
		RunIndex:        "run_index",
		RunName:         "run_name",
		DurationMs:      "duration_ms",
		ExecutionError:  "execution_error",
		ErrorReason:     "error_reason",
		CommandFailures: "command_failures",
		RecordedAt:      "recorded_at",
	}
}

func (RunOutcomeTable) TableName() string {
	return "run_outcomes"
}

// TestResultTable names the test_results columns
type TestResultTable struct {
	BatchID  string
	RunIndex string
	Position string
	TestID   string
	Passed   string
	Margin   string
}

func GetTestResultTable() TestResultTable {
	return TestResultTable{
		BatchID:  "batch_id",
		RunIndex: "run_index",
		Position: "position",
		TestID:   "test_id",
		Passed:   "passed",
		Margin:   "margin",
	}
}

func (TestResultTable) TableName() string {
	return "test_results"
}
