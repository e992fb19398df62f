// Package mockdriver is an in-memory register driver for running the control
// server without bench hardware.
package mockdriver

import (
	"context"
	"fmt"
	"sync"

	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/core/ports/secondary"
)

var _ secondary.Driver = (*Driver)(nil)

type registerKey struct {
	slave byte
	reg   byte
}

// Driver remembers written values per (slave, register). Unwritten registers read as 0x00.
type Driver struct {
	logger    primary.Logger
	mu        sync.Mutex
	registers map[registerKey]byte
	failSlave map[byte]struct{}
}

// Option configures a Driver
type Option func(*Driver)

// FailAddress makes every write to the given slave report failure
func FailAddress(slave byte) Option {
	return func(d *Driver) {
		d.failSlave[slave] = struct{}{}
	}
}

func New(logger primary.Logger, opts ...Option) *Driver {
	d := &Driver{
		logger:    logger,
		registers: make(map[registerKey]byte),
		failSlave: make(map[byte]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) Write(_ context.Context, slave, reg, value byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, fail := d.failSlave[slave]; fail {
		d.logger.Info("[MOCK I2C] write rejected", "slave", hexByte(slave), "reg", hexByte(reg), "value", hexByte(value))
		return false
	}

	d.registers[registerKey{slave: slave, reg: reg}] = value
	d.logger.Info("[MOCK I2C] write", "slave", hexByte(slave), "reg", hexByte(reg), "value", hexByte(value))
	return true
}

func (d *Driver) Read(_ context.Context, slave, reg byte) byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	value := d.registers[registerKey{slave: slave, reg: reg}]
	d.logger.Info("[MOCK I2C] read", "slave", hexByte(slave), "reg", hexByte(reg), "value", hexByte(value))
	return value
}

func hexByte(b byte) string {
	return fmt.Sprintf("0x%02x", b)
}
