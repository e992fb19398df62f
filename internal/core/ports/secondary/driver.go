package secondary

import "context"

// Driver is the register access capability behind the control server.
// Implementations must be safe for concurrent use; failures surface as false.
type Driver interface {
	Write(ctx context.Context, slave, reg, value byte) bool
	Read(ctx context.Context, slave, reg byte) byte
}
