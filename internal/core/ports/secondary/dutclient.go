package secondary

import "context"

// DutClient sends control protocol commands to the DUT server
type DutClient interface {
	SendCommand(ctx context.Context, command string) (string, error)
	WriteRegister(ctx context.Context, slave, reg, value byte) (string, error)
	ReadRegister(ctx context.Context, slave, reg byte) (string, error)
}
