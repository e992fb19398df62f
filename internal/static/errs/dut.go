package errs

import "errors"

var (
	ErrNoResponse     = errors.New("no response from DUT server")
	ErrConfigNotFound = errors.New("config file not found")
	ErrNoRuns         = errors.New("no 'runs' found in config")
	ErrInvalidConfig  = errors.New("invalid batch config")
	ErrNotConnected   = errors.New("instrument not connected")
	ErrNoReferenceRun = errors.New("no runs with write_register commands found")
	ErrBatchNotFound  = errors.New("batch not found")
)
