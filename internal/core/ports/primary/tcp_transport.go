package primary

import (
	"context"

	"gitlab.com/dutbench.net/internal/tcp/defs"
)

// MessageHandler executes one decoded control request and returns the response to send back
type MessageHandler interface {
	HandleMessage(ctx context.Context, req *defs.Request) defs.Response
}
