package config

import (
	"os"
	"strconv"
	"time"
)

type DutServerCfg struct {
	Address        string
	ReadBufferSize int
	// FailSlave, when set, makes the mock driver reject writes to that slave
	FailSlave *byte
	// MetricsAddr serves /metrics when non-empty
	MetricsAddr string
}

func NewDutServerCfg() *DutServerCfg {
	bufSize, err := strconv.Atoi(os.Getenv("DUT_SERVER_READ_BUFFER"))
	if err != nil || bufSize <= 0 {
		bufSize = 1024
	}

	cfg := &DutServerCfg{
		Address:        getEnv("DUT_SERVER_ADDR", ":13000"),
		ReadBufferSize: bufSize,
		MetricsAddr:    os.Getenv("METRICS_ADDR"),
	}

	if v, err := strconv.ParseUint(os.Getenv("MOCK_FAIL_SLAVE"), 0, 8); err == nil {
		slave := byte(v)
		cfg.FailSlave = &slave
	}

	return cfg
}

type ClientCfg struct {
	Timeout time.Duration
}

func NewClientCfg() *ClientCfg {
	timeoutSec, err := strconv.ParseFloat(os.Getenv("DUT_CLIENT_TIMEOUT_SEC"), 64)
	if err != nil || timeoutSec <= 0 {
		timeoutSec = 5
	}
	return &ClientCfg{
		Timeout: time.Duration(timeoutSec * float64(time.Second)),
	}
}
