package tcp

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dutbench.net/internal/adapter/driver/mockdriver"
	"gitlab.com/dutbench.net/internal/adapter/logging"
)

func startServer(t *testing.T, opts ...mockdriver.Option) *TCPServer {
	t.Helper()

	logger := logging.NewNopLogger()
	server := NewTCPServer(mockdriver.New(logger, opts...), logger, WithAddress("127.0.0.1:0"))
	require.NoError(t, server.Start())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})

	return server
}

func exchange(t *testing.T, conn net.Conn, request string) string {
	t.Helper()

	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))
	_, err := conn.Write([]byte(request))
	require.NoError(t, err)

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestTCPServer_Session(t *testing.T) {
	server := startServer(t)

	conn, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "OK", exchange(t, conn, "write 7c 02 01"))
	assert.Equal(t, "0x01", exchange(t, conn, "read 7c 02"))
	assert.Regexp(t, `^0x[0-9a-f]{2}$`, exchange(t, conn, "read 7c 40"))

	// malformed input gets an error reply and the session stays usable
	assert.Regexp(t, `^Error: `, exchange(t, conn, "bogus"))
	assert.Equal(t, "Error: Usage 'read <addr> <reg>'", exchange(t, conn, "read 7c"))
	assert.Equal(t, "Error: Unknown command 'eq'", exchange(t, conn, "eq 3"))
	assert.Equal(t, "OK", exchange(t, conn, "WRITE 0x7c 0x03 0xff"))
	assert.Equal(t, "0xff", exchange(t, conn, "read 7c 03"))
}

func TestTCPServer_WriteFailure(t *testing.T) {
	server := startServer(t, mockdriver.FailAddress(0x10))

	conn, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "Fail", exchange(t, conn, "write 10 02 01"))
	assert.Equal(t, "OK", exchange(t, conn, "write 7c 02 01"))
}

func TestTCPServer_ConcurrentSessions(t *testing.T) {
	server := startServer(t)

	const sessions = 8
	errCh := make(chan error, sessions)
	for i := 0; i < sessions; i++ {
		go func() {
			conn, err := net.Dial("tcp", server.Addr().String())
			if err != nil {
				errCh <- err
				return
			}
			defer conn.Close()

			buf := make([]byte, 1024)
			if _, err := conn.Write([]byte("read 7c 00")); err != nil {
				errCh <- err
				return
			}
			_, err = conn.Read(buf)
			errCh <- err
		}()
	}

	for i := 0; i < sessions; i++ {
		assert.NoError(t, <-errCh)
	}
}

func TestTCPServer_StopClosesSessions(t *testing.T) {
	logger := logging.NewNopLogger()
	server := NewTCPServer(mockdriver.New(logger), logger, WithAddress("127.0.0.1:0"))
	require.NoError(t, server.Start())

	conn, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "OK", exchange(t, conn, "write 7c 01 01"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err = conn.Read(make([]byte, 16))
	assert.Error(t, err, "session should be closed by Stop")

	_, err = net.DialTimeout("tcp", server.Addr().String(), 200*time.Millisecond)
	assert.Error(t, err, "listener should be closed by Stop")
}

func TestNewTCPServer_Defaults(t *testing.T) {
	logger := logging.NewNopLogger()
	server := NewTCPServer(mockdriver.New(logger), logger, WithReadBufferSize(0))

	assert.Equal(t, ":13000", server.address)
	assert.Equal(t, 1024, server.readBufferSize)
	assert.Nil(t, server.Addr())
	assert.Len(t, server.handlers, 2)
}

type recordingMetrics struct {
	mu       sync.Mutex
	commands map[string]int
	open     int
}

func (m *recordingMetrics) CommandHandled(op, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[op+"/"+result]++
}

func (m *recordingMetrics) SessionOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open++
}

func (m *recordingMetrics) SessionClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open--
}

func (m *recordingMetrics) snapshot() (map[string]int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.commands))
	for k, v := range m.commands {
		out[k] = v
	}
	return out, m.open
}

func TestTCPServer_Metrics(t *testing.T) {
	logger := logging.NewNopLogger()
	rec := &recordingMetrics{commands: make(map[string]int)}
	server := NewTCPServer(mockdriver.New(logger), logger, WithAddress("127.0.0.1:0"), WithMetrics(rec))
	require.NoError(t, server.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	}()

	conn, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)

	exchange(t, conn, "write 7c 02 01")
	exchange(t, conn, "read 7c 02")
	exchange(t, conn, "eq 3")
	exchange(t, conn, "write 7c 02")

	commands, open := rec.snapshot()
	assert.Equal(t, 1, commands["write/ok"])
	assert.Equal(t, 1, commands["read/value"])
	assert.Equal(t, 1, commands["unknown/error"])
	assert.Equal(t, 1, commands["invalid/error"])
	assert.Equal(t, 1, open)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		_, open := rec.snapshot()
		return open == 0
	}, 2*time.Second, 10*time.Millisecond)
}
