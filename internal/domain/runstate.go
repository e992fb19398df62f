package domain

import "time"

// RunState is the orchestrator's per-run state
type RunState string

const (
	RunStatePending           RunState = "PENDING"
	RunStateConfiguringDUT    RunState = "CONFIGURING_DUT"
	RunStateRunningInstrument RunState = "RUNNING_INSTRUMENT_TESTS"
	RunStateCollectingResults RunState = "COLLECTING_RESULTS"
	RunStateDone              RunState = "DONE"
	RunStateSkipped           RunState = "SKIPPED"
)

// RunStateRecord is a state snapshot as kept by the progress store
type RunStateRecord struct {
	RunName   string    `json:"run_name"`
	State     RunState  `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}
