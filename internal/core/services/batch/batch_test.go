package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/dutbench.net/internal/adapter/logging"
	"gitlab.com/dutbench.net/internal/core/ports/secondary"
	"gitlab.com/dutbench.net/internal/core/services/report"
	"gitlab.com/dutbench.net/internal/domain"
	"gitlab.com/dutbench.net/internal/static/errs"
)

type mockDutClient struct {
	mock.Mock
}

func (m *mockDutClient) SendCommand(ctx context.Context, command string) (string, error) {
	args := m.Called(ctx, command)
	return args.String(0), args.Error(1)
}

func (m *mockDutClient) WriteRegister(ctx context.Context, slave, reg, value byte) (string, error) {
	args := m.Called(ctx, slave, reg, value)
	return args.String(0), args.Error(1)
}

func (m *mockDutClient) ReadRegister(ctx context.Context, slave, reg byte) (string, error) {
	args := m.Called(ctx, slave, reg)
	return args.String(0), args.Error(1)
}

type mockInstrument struct {
	mock.Mock
}

func (m *mockInstrument) RunTests(ctx context.Context, req secondary.InstrumentRequest) ([]domain.TestResult, error) {
	args := m.Called(ctx, req)
	results, _ := args.Get(0).([]domain.TestResult)
	return results, args.Error(1)
}

type mockOutcomeRepository struct {
	mock.Mock
}

func (m *mockOutcomeRepository) SaveBatch(ctx context.Context, batchID uuid.UUID, runNames []string) error {
	return m.Called(ctx, batchID, runNames).Error(0)
}

func (m *mockOutcomeRepository) SaveOutcome(ctx context.Context, batchID uuid.UUID, runIndex int, outcome domain.RunOutcome) error {
	return m.Called(ctx, batchID, runIndex, outcome).Error(0)
}

func (m *mockOutcomeRepository) GetBatch(ctx context.Context, batchID uuid.UUID) ([]string, []domain.RunOutcome, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).([]string), args.Get(1).([]domain.RunOutcome), args.Error(2)
}

func (m *mockOutcomeRepository) LatestBatchID(ctx context.Context) (uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// stateRecorder is an in-memory RunStateRepository
type stateRecorder struct {
	mu     sync.Mutex
	states map[string][]domain.RunState
	fail   bool
}

func newStateRecorder() *stateRecorder {
	return &stateRecorder{states: make(map[string][]domain.RunState)}
}

func (r *stateRecorder) SaveRunState(_ context.Context, _ uuid.UUID, runName string, state domain.RunState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("redis down")
	}
	r.states[runName] = append(r.states[runName], state)
	return nil
}

func (r *stateRecorder) GetRunStates(context.Context, uuid.UUID) ([]domain.RunStateRecord, error) {
	return nil, nil
}

func (r *stateRecorder) LatestBatchID(context.Context) (uuid.UUID, error) {
	return uuid.Nil, nil
}

// stepClock advances one second per call
func stepClock() func() time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func twoRunConfig() *domain.BatchConfig {
	return &domain.BatchConfig{
		CommonSettings: domain.CommonSettings{
			DutServerAddress:  "127.0.0.1",
			DutServerPort:     13000,
			InstrumentAddress: "10.0.0.9",
			DefaultTestIDs:    []int{100, 101},
		},
		Runs: []domain.RunSpec{
			{
				Name: "A",
				DutCommands: []string{
					"// configure lane 0",
					"write_register(0x7c, 0x02, 0x01)",
					"eq 3",
					"write_register(0x7c, 0x02)",
					"",
				},
				ProjectName: "projA",
				ReportName:  "repA",
			},
			{
				Name:        "B",
				DutCommands: []string{"write_register(0x7c, 0x03, 0xff)"},
				ProjectName: "projB",
				ReportName:  "repB",
				TestIDs:     []int{200},
			},
		},
	}
}

func forProject(name string) interface{} {
	return mock.MatchedBy(func(req secondary.InstrumentRequest) bool { return req.ProjectName == name })
}

func TestBatchService_RunBatch(t *testing.T) {
	client := &mockDutClient{}
	client.On("WriteRegister", mock.Anything, byte(0x7c), byte(0x02), byte(0x01)).Return("OK", nil).Once()
	client.On("SendCommand", mock.Anything, "eq 3").Return("Error: Unknown command 'eq'", nil).Once()
	client.On("WriteRegister", mock.Anything, byte(0x7c), byte(0x03), byte(0xff)).Return("", errs.ErrNoResponse).Once()

	instrument := &mockInstrument{}
	instrument.On("RunTests", mock.Anything, forProject("projA")).Return([]domain.TestResult{
		{TestID: 100, Passed: true, Margin: 15.5},
		{TestID: 101, Passed: false, Margin: 5.0},
	}, nil).Once()
	instrument.On("RunTests", mock.Anything, forProject("projB")).Return(nil, errors.New("scope unreachable")).Once()

	outcomes := &mockOutcomeRepository{}
	outcomes.On("SaveBatch", mock.Anything, mock.Anything, []string{"A", "B"}).Return(nil).Once()
	outcomes.On("SaveOutcome", mock.Anything, mock.Anything, 0, mock.AnythingOfType("domain.RunOutcome")).Return(nil).Once()
	outcomes.On("SaveOutcome", mock.Anything, mock.Anything, 1, mock.AnythingOfType("domain.RunOutcome")).Return(errors.New("db down")).Once()

	states := newStateRecorder()
	svc := NewBatchService(client, instrument, logging.NewNopLogger(),
		WithOutcomeRepository(outcomes),
		WithRunStateRepository(states),
		WithClock(stepClock()),
	)

	cfg := twoRunConfig()
	result, err := svc.RunBatch(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)

	a, b := result.Outcomes[0], result.Outcomes[1]
	assert.Equal(t, "A", a.RunName)
	assert.False(t, a.ExecutionError)
	assert.Equal(t, 2, a.CommandFailures, "error reply and malformed line")
	assert.Equal(t, time.Second, a.Duration)

	assert.Equal(t, "B", b.RunName)
	assert.True(t, b.ExecutionError)
	assert.Equal(t, "scope unreachable", b.ErrorReason)
	assert.NotNil(t, b.Results)
	assert.Empty(t, b.Results)
	assert.Equal(t, 1, b.CommandFailures)

	rep := report.NewReportService().Aggregate(cfg.Runs, result.Outcomes)
	assert.Equal(t, 2, rep.TotalRuns)
	assert.Equal(t, domain.RunStatusPartialFail, rep.Rows[0].Status)
	assert.Contains(t, rep.Rows[0].Observation, "101")
	assert.Equal(t, domain.RunStatusExecError, rep.Rows[1].Status)

	assert.Equal(t, []domain.RunState{
		domain.RunStatePending,
		domain.RunStateConfiguringDUT,
		domain.RunStateRunningInstrument,
		domain.RunStateCollectingResults,
		domain.RunStateDone,
	}, states.states["A"])

	client.AssertExpectations(t)
	instrument.AssertExpectations(t)
	outcomes.AssertExpectations(t)
}

func TestBatchService_TestIDDefaults(t *testing.T) {
	client := &mockDutClient{}
	client.On("WriteRegister", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("OK", nil)
	client.On("SendCommand", mock.Anything, mock.Anything).Return("OK", nil)

	instrument := &mockInstrument{}
	instrument.On("RunTests", mock.Anything, mock.MatchedBy(func(req secondary.InstrumentRequest) bool {
		return req.ProjectName == "projA" && assert.ObjectsAreEqual([]int{100, 101}, req.TestIDs) && req.Address == "10.0.0.9" &&
			req.ProjectTemplate == `C:\tpl\base.dpj`
	})).Return([]domain.TestResult{}, nil).Once()
	instrument.On("RunTests", mock.Anything, mock.MatchedBy(func(req secondary.InstrumentRequest) bool {
		return req.ProjectName == "projB" && assert.ObjectsAreEqual([]int{200}, req.TestIDs)
	})).Return([]domain.TestResult{}, nil).Once()

	cfg := twoRunConfig()
	cfg.CommonSettings.ProjectTemplate = `C:\tpl\base.dpj`

	svc := NewBatchService(client, instrument, logging.NewNopLogger())
	_, err := svc.RunBatch(context.Background(), cfg)
	require.NoError(t, err)
	instrument.AssertExpectations(t)
}

func TestBatchService_CancelledBeforeStart(t *testing.T) {
	client := &mockDutClient{}
	instrument := &mockInstrument{}
	states := newStateRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewBatchService(client, instrument, logging.NewNopLogger(), WithRunStateRepository(states))
	cfg := twoRunConfig()
	result, err := svc.RunBatch(ctx, cfg)
	require.NoError(t, err)
	assert.Empty(t, result.Outcomes)

	assert.Equal(t, []domain.RunState{domain.RunStatePending, domain.RunStateSkipped}, states.states["A"])
	assert.Equal(t, []domain.RunState{domain.RunStatePending, domain.RunStateSkipped}, states.states["B"])
	client.AssertNotCalled(t, "WriteRegister", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	rep := report.NewReportService().Aggregate(cfg.Runs, result.Outcomes)
	assert.Equal(t, 2, rep.CountByStatus(domain.RunStatusSkipped))
}

func TestBatchService_CancelDuringRunFinishesRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	client := &mockDutClient{}
	client.On("WriteRegister", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("OK", nil)
	client.On("SendCommand", mock.Anything, mock.Anything).Return("OK", nil)

	instrument := &mockInstrument{}
	instrument.On("RunTests", mock.Anything, forProject("projA")).
		Run(func(args mock.Arguments) {
			cancel()
			assert.NoError(t, args.Get(0).(context.Context).Err(), "run context is not cancelled")
		}).
		Return([]domain.TestResult{{TestID: 100, Passed: true}}, nil).Once()

	svc := NewBatchService(client, instrument, logging.NewNopLogger())
	result, err := svc.RunBatch(ctx, twoRunConfig())
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "A", result.Outcomes[0].RunName)
	instrument.AssertExpectations(t)
}

func TestBatchService_StoreFailuresAreNotFatal(t *testing.T) {
	client := &mockDutClient{}
	client.On("WriteRegister", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("OK", nil)
	client.On("SendCommand", mock.Anything, mock.Anything).Return("OK", nil)

	instrument := &mockInstrument{}
	instrument.On("RunTests", mock.Anything, mock.Anything).Return([]domain.TestResult{{TestID: 1, Passed: true}}, nil)

	states := newStateRecorder()
	states.fail = true

	svc := NewBatchService(client, instrument, logging.NewNopLogger(), WithRunStateRepository(states))
	result, err := svc.RunBatch(context.Background(), twoRunConfig())
	require.NoError(t, err)
	assert.Len(t, result.Outcomes, 2)
}

func TestBatchService_NilConfig(t *testing.T) {
	svc := NewBatchService(&mockDutClient{}, &mockInstrument{}, logging.NewNopLogger())
	_, err := svc.RunBatch(context.Background(), nil)
	assert.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestCommandFailed(t *testing.T) {
	assert.False(t, commandFailed("OK", nil))
	assert.False(t, commandFailed("0x01", nil))
	assert.False(t, commandFailed("eq set", nil))
	assert.True(t, commandFailed("Fail", nil))
	assert.True(t, commandFailed("Error: Empty command", nil))
	assert.True(t, commandFailed("", errs.ErrNoResponse))
}
