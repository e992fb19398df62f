package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dutbench.net/internal/tcp/defs"
)

func TestEncodeRequest(t *testing.T) {
	assert.Equal(t, "write 7c 02 01", string(EncodeRequest(&defs.Request{Op: defs.OpWrite, Slave: 0x7c, Reg: 0x02, Value: 0x01})))
	assert.Equal(t, "read 7c 0a", string(EncodeRequest(&defs.Request{Op: defs.OpRead, Slave: 0x7c, Reg: 0x0A})))
	assert.Equal(t, "write ff ff ff", string(EncodeRequest(&defs.Request{Op: defs.OpWrite, Slave: 0xFF, Reg: 0xFF, Value: 0xFF})))
}

func TestWriteRequestRoundTrip(t *testing.T) {
	for slave := 0; slave < 256; slave += 15 {
		for reg := 0; reg < 256; reg += 17 {
			for val := 0; val < 256; val += 51 {
				req := &defs.Request{Op: defs.OpWrite, Slave: byte(slave), Reg: byte(reg), Value: byte(val)}
				got, err := DecodeRequest(EncodeRequest(req))
				require.NoError(t, err)
				require.Equal(t, req, got)
			}
		}
	}
}

func TestReadRequestRoundTrip(t *testing.T) {
	for reg := 0; reg < 256; reg++ {
		req := &defs.Request{Op: defs.OpRead, Slave: 0x7c, Reg: byte(reg)}
		got, err := DecodeRequest(EncodeRequest(req))
		require.NoError(t, err)
		require.Equal(t, req, got)
	}
}

func TestDecodeRequest_Malformed(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		reason    string
		unknownOp string
	}{
		{"empty", "   ", "Empty command", ""},
		{"unknown op", "bogus", "Unknown command 'bogus'", "bogus"},
		{"unknown op lowered", "DPADDR 1", "Unknown command 'dpaddr'", "dpaddr"},
		{"write arity", "write 7c 02", "Usage 'write <addr> <reg> <val>'", ""},
		{"read arity", "read 7c 02 01", "Usage 'read <addr> <reg>'", ""},
		{"non hex", "write 7c zz 01", "Invalid number format", ""},
		{"out of range", "read 7c 100", "Invalid number format", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest([]byte(tt.input))
			assert.Nil(t, req)
			require.Error(t, err)

			var perr *defs.ProtocolError
			require.True(t, errors.As(err, &perr))
			assert.Contains(t, perr.Reason, tt.reason)
			assert.Equal(t, tt.unknownOp, perr.UnknownOp)
			assert.Regexp(t, `^Error: `, string(EncodeResponse(ErrorResponse(err))))
		})
	}
}

func TestDecodeRequest_Tolerant(t *testing.T) {
	req, err := DecodeRequest([]byte("  WRITE 0x7C 0x02 0x01\r\n"))
	require.NoError(t, err)
	assert.Equal(t, &defs.Request{Op: defs.OpWrite, Slave: 0x7c, Reg: 0x02, Value: 0x01}, req)
}

func TestResponseRoundTrip(t *testing.T) {
	assert.Equal(t, "OK", string(EncodeResponse(defs.OK())))
	assert.Equal(t, defs.OK(), DecodeResponse(EncodeResponse(defs.OK())))
	assert.Equal(t, defs.Fail(), DecodeResponse(EncodeResponse(defs.Fail())))

	for v := 0; v < 256; v++ {
		encoded := EncodeResponse(defs.Value(byte(v)))
		assert.Regexp(t, `^0x[0-9a-f]{2}$`, string(encoded))
		assert.Equal(t, defs.Value(byte(v)), DecodeResponse(encoded))
	}

	errResp := DecodeResponse([]byte("Error: Unknown command 'eq'"))
	assert.Equal(t, defs.ResponseError, errResp.Kind)
	assert.Equal(t, "Unknown command 'eq'", errResp.Reason)
	assert.True(t, errResp.IsFailure())
}

func TestDecodeResponse_Raw(t *testing.T) {
	resp := DecodeResponse([]byte("EQ=3 applied"))
	assert.Equal(t, defs.ResponseRaw, resp.Kind)
	assert.Equal(t, "EQ=3 applied", resp.Raw)
	assert.False(t, resp.IsFailure())
	assert.Equal(t, "EQ=3 applied", string(EncodeResponse(resp)))
}
