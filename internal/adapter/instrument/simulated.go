package instrument

import (
	"context"
	"path"
	"sync"
	"time"

	"gitlab.com/dutbench.net/internal/core/ports/primary"
)

var _ RemoteApp = (*SimulatedApp)(nil)

// SimulatedResults is what a SimulatedApp reports unless told otherwise
const SimulatedResults = "TestID=100,Passed=True,Margin=15.5;TestID=101,Passed=False,Margin=5.0"

// SimulatedApp is an in-process stand-in for the remote test application
type SimulatedApp struct {
	logger   primary.Logger
	results  string
	runDelay time.Duration

	mu       sync.Mutex
	config   map[string]string
	selected []int
	runs     int
}

// SimulatedOption configures a SimulatedApp
type SimulatedOption func(*SimulatedApp)

// WithResults sets the raw results text returned after a run
func WithResults(raw string) SimulatedOption {
	return func(a *SimulatedApp) { a.results = raw }
}

// WithRunDelay makes Run take the given time
func WithRunDelay(d time.Duration) SimulatedOption {
	return func(a *SimulatedApp) { a.runDelay = d }
}

func NewSimulatedApp(logger primary.Logger, opts ...SimulatedOption) *SimulatedApp {
	a := &SimulatedApp{
		logger:  logger,
		results: SimulatedResults,
		config:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SimulatedConnector returns a Connector that opens a fresh SimulatedApp per session
func SimulatedConnector(logger primary.Logger, opts ...SimulatedOption) Connector {
	return func(_ context.Context, address string) (RemoteApp, error) {
		logger.Info("[SIM] connected", "address", address)
		return NewSimulatedApp(logger, opts...), nil
	}
}

func (a *SimulatedApp) NewProject(_ context.Context, discardUnsaved bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.config = make(map[string]string)
	a.selected = nil
	a.logger.Info("[SIM] NewProject", "discardUnsaved", discardUnsaved)
	return nil
}

func (a *SimulatedApp) OpenProject(_ context.Context, opts OpenProjectOptions) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.config = make(map[string]string)
	a.selected = nil
	a.logger.Info("[SIM] OpenProject", "path", opts.FullPath, "discardUnsaved", opts.DiscardUnsaved)
	return nil
}

func (a *SimulatedApp) SetConfig(_ context.Context, key, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.config[key] = value
	a.logger.Info("[SIM] SetConfig", "key", key, "value", value)
	return nil
}

func (a *SimulatedApp) SelectTests(_ context.Context, testIDs []int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.selected = append([]int(nil), testIDs...)
	return nil
}

func (a *SimulatedApp) Run(ctx context.Context) error {
	a.logger.Info("[SIM] Run started")
	if a.runDelay > 0 {
		select {
		case <-time.After(a.runDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	a.mu.Lock()
	a.runs++
	a.mu.Unlock()

	a.logger.Info("[SIM] Run finished")
	return nil
}

func (a *SimulatedApp) GetResults(_ context.Context) (string, error) {
	return a.results, nil
}

func (a *SimulatedApp) SaveProject(_ context.Context, opts SaveProjectOptions) (string, error) {
	return path.Join(toSlash(opts.BaseDirectory), opts.Name+".dpj"), nil
}

func (a *SimulatedApp) ExportPdf(_ context.Context, opts ExportPdfOptions) (string, error) {
	return path.Join(toSlash(opts.Path), opts.FileName), nil
}

// Config returns a copy of the applied settings
func (a *SimulatedApp) Config() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]string, len(a.config))
	for k, v := range a.config {
		out[k] = v
	}
	return out
}

// SelectedTests returns the last selection
func (a *SimulatedApp) SelectedTests() []int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]int(nil), a.selected...)
}

// Runs returns how many runs completed
func (a *SimulatedApp) Runs() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.runs
}
