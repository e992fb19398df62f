package connectionmanager

import (
	"fmt"
	"net"
	"sync"

	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/tcp/codec"
	"gitlab.com/dutbench.net/internal/tcp/defs"
)

// ConnectionManager tracks open control sessions so they can be closed on shutdown
type ConnectionManager struct {
	Connections map[string]net.Conn // remote address -> conn
	ConnMutex   sync.RWMutex
	Logger      primary.Logger
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(logger primary.Logger) *ConnectionManager {
	return &ConnectionManager{
		Connections: make(map[string]net.Conn),
		Logger:      logger,
	}
}

// Add registers a session and returns its key
func (cm *ConnectionManager) Add(conn net.Conn) string {
	key := conn.RemoteAddr().String()

	cm.ConnMutex.Lock()
	cm.Connections[key] = conn
	cm.ConnMutex.Unlock()

	return key
}

// Remove forgets a session when its connection is closed
func (cm *ConnectionManager) Remove(key string) {
	cm.ConnMutex.Lock()
	delete(cm.Connections, key)
	cm.ConnMutex.Unlock()
}

// Count returns the number of open sessions
func (cm *ConnectionManager) Count() int {
	cm.ConnMutex.RLock()
	defer cm.ConnMutex.RUnlock()

	return len(cm.Connections)
}

// CloseAll closes every open session
func (cm *ConnectionManager) CloseAll() {
	cm.ConnMutex.Lock()
	defer cm.ConnMutex.Unlock()

	for key, conn := range cm.Connections {
		if err := conn.Close(); err != nil {
			cm.Logger.Debug("Failed to close connection", "client", key, "error", err)
		}
		delete(cm.Connections, key)
	}
}

// SendResponse writes exactly one encoded reply
func SendResponse(conn net.Conn, resp defs.Response) error {
	if _, err := conn.Write(codec.EncodeResponse(resp)); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
