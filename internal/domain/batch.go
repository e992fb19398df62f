package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDutServerPort is the control protocol port
const DefaultDutServerPort = 13000

// CommonSettings holds batch-wide settings shared by every run
type CommonSettings struct {
	DutServerAddress    string `json:"dut_server_ip" yaml:"dut_server_ip"`
	DutServerPort       int    `json:"dut_server_port,omitempty" yaml:"dut_server_port,omitempty"`
	InstrumentAddress   string `json:"instrument_ip" yaml:"instrument_ip"`
	InstrumentSettings  string `json:"instrument_settings,omitempty" yaml:"instrument_settings,omitempty"`
	ProjectTemplate     string `json:"project_template,omitempty" yaml:"project_template,omitempty"`
	DefaultTestIDs      []int  `json:"default_test_ids" yaml:"default_test_ids"`
	OutputBaseDirectory string `json:"output_base_directory,omitempty" yaml:"output_base_directory,omitempty"`
}

// RunSpec is one named unit of batch work
type RunSpec struct {
	Name        string   `json:"name" yaml:"name"`
	DutCommands []string `json:"dut_commands" yaml:"dut_commands"`
	ProjectName string   `json:"project_name" yaml:"project_name"`
	ReportName  string   `json:"report_name" yaml:"report_name"`
	TestIDs     []int    `json:"test_ids,omitempty" yaml:"test_ids,omitempty"`
}

// EffectiveTestIDs returns the run's test IDs or the batch default when unset
func (r RunSpec) EffectiveTestIDs(defaults []int) []int {
	if r.TestIDs != nil {
		return r.TestIDs
	}
	return defaults
}

// BatchConfig is the full batch definition. Run order is execution and report order.
type BatchConfig struct {
	CommonSettings CommonSettings `json:"common_settings" yaml:"common_settings"`
	Runs           []RunSpec      `json:"runs" yaml:"runs"`
}

// RunNames returns the run names in configured order
func (c *BatchConfig) RunNames() []string {
	names := make([]string, len(c.Runs))
	for i, r := range c.Runs {
		names[i] = r.Name
	}
	return names
}

// BatchResult is everything one RunBatch call produced
type BatchResult struct {
	ID        uuid.UUID
	StartedAt time.Time
	Elapsed   time.Duration
	Outcomes  []RunOutcome
}
