package handlers

import (
	"context"

	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/core/ports/secondary"
	"gitlab.com/dutbench.net/internal/tcp/defs"
)

var _ primary.MessageHandler = (*WriteHandler)(nil)

// WriteHandler handles write requests
type WriteHandler struct {
	Driver secondary.Driver
	Logger primary.Logger
}

func NewWriteHandler(driver secondary.Driver, logger primary.Logger) *WriteHandler {
	return &WriteHandler{
		Driver: driver,
		Logger: logger,
	}
}

// HandleMessage implements the MessageHandler interface
func (h *WriteHandler) HandleMessage(ctx context.Context, req *defs.Request) defs.Response {
	if !h.Driver.Write(ctx, req.Slave, req.Reg, req.Value) {
		h.Logger.Warn("Register write failed", "slave", req.Slave, "reg", req.Reg, "value", req.Value)
		return defs.Fail()
	}
	return defs.OK()
}
