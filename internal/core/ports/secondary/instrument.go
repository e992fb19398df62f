package secondary

import (
	"context"

	"gitlab.com/dutbench.net/internal/domain"
)

// InstrumentRequest carries everything one test execution cycle needs
type InstrumentRequest struct {
	Address             string
	ProjectName         string
	ReportName          string
	TestIDs             []int
	OutputBaseDirectory string
	SettingsFile        string
	// ProjectTemplate is an instrument-side project path opened instead of a new project
	ProjectTemplate string
}

// Instrument runs the selected tests on the measurement instrument
type Instrument interface {
	// RunTests blocks until the instrument has produced results.
	// An error means the whole cycle produced nothing usable.
	RunTests(ctx context.Context, req InstrumentRequest) ([]domain.TestResult, error)
}
