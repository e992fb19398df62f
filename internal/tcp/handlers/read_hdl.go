package handlers

import (
	"context"

	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/core/ports/secondary"
	"gitlab.com/dutbench.net/internal/tcp/defs"
)

var _ primary.MessageHandler = (*ReadHandler)(nil)

// ReadHandler handles read requests
type ReadHandler struct {
	Driver secondary.Driver
	Logger primary.Logger
}

func NewReadHandler(driver secondary.Driver, logger primary.Logger) *ReadHandler {
	return &ReadHandler{
		Driver: driver,
		Logger: logger,
	}
}

// HandleMessage implements the MessageHandler interface
func (h *ReadHandler) HandleMessage(ctx context.Context, req *defs.Request) defs.Response {
	return defs.Value(h.Driver.Read(ctx, req.Slave, req.Reg))
}
