package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/core/ports/secondary"
	"gitlab.com/dutbench.net/internal/static/errs"
	"gitlab.com/dutbench.net/internal/tcp/codec"
	"gitlab.com/dutbench.net/internal/tcp/defs"
)

var _ secondary.DutClient = (*DutControlClient)(nil)

// DutControlClient talks to the DUT control server. Every call opens its own
// connection, sends one request, reads one reply and closes.
type DutControlClient struct {
	address string
	timeout time.Duration
	logger  primary.Logger
}

// ClientOption configures a DutControlClient
type ClientOption func(*DutControlClient)

// WithTimeout sets the per-call deadline covering connect, send and receive
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *DutControlClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func NewDutControlClient(host string, port int, logger primary.Logger, opts ...ClientOption) *DutControlClient {
	c := &DutControlClient{
		address: net.JoinHostPort(host, strconv.Itoa(port)),
		timeout: defs.DefaultClientTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns host:port of the server
func (c *DutControlClient) Address() string {
	return c.address
}

// SendCommand sends a raw command and returns the reply text.
// Any transport failure is logged and returned wrapped in errs.ErrNoResponse.
func (c *DutControlClient) SendCommand(ctx context.Context, command string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", c.address)
	if err != nil {
		c.logger.Error("Failed to connect to DUT server", "address", c.address, "error", err)
		return "", fmt.Errorf("%w: %v", errs.ErrNoResponse, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte(command)); err != nil {
		c.logger.Error("Failed to send command", "command", command, "error", err)
		return "", fmt.Errorf("%w: %v", errs.ErrNoResponse, err)
	}

	buf := make([]byte, defs.MaxMessageSize)
	n, err := conn.Read(buf)
	if err != nil {
		c.logger.Error("Failed to read response", "command", command, "error", err)
		return "", fmt.Errorf("%w: %v", errs.ErrNoResponse, err)
	}

	return string(buf[:n]), nil
}

// WriteRegister sends "write <slave> <reg> <val>"
func (c *DutControlClient) WriteRegister(ctx context.Context, slave, reg, value byte) (string, error) {
	command := string(codec.EncodeRequest(&defs.Request{Op: defs.OpWrite, Slave: slave, Reg: reg, Value: value}))
	c.logger.Info("Writing register", "command", command)
	return c.SendCommand(ctx, command)
}

// ReadRegister sends "read <slave> <reg>"
func (c *DutControlClient) ReadRegister(ctx context.Context, slave, reg byte) (string, error) {
	command := string(codec.EncodeRequest(&defs.Request{Op: defs.OpRead, Slave: slave, Reg: reg}))
	c.logger.Info("Reading register", "command", command)
	return c.SendCommand(ctx, command)
}

// SetDPMode switches the bench into DP mode
func (c *DutControlClient) SetDPMode(ctx context.Context) (string, error) {
	return c.SendCommand(ctx, "dpaddr")
}
