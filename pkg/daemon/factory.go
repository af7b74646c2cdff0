package daemon

import (
	"net"
	"os"
	"time"

	"github.com/grovetools/queued/errors"
	"github.com/grovetools/queued/pkg/paths"
)

// New returns a Client for the daemon listening on the default socket.
// It fails with DAEMON_NOT_RUNNING when the socket does not accept
// connections.
func New() (Client, error) {
	return NewForSocket(paths.SocketPath())
}

// NewForSocket is New for an explicit socket path.
func NewForSocket(socketPath string) (Client, error) {
	if _, err := os.Stat(socketPath); err != nil {
		return nil, errors.DaemonNotRunning(socketPath)
	}
	conn, err := net.DialTimeout("unix", socketPath, 100*time.Millisecond)
	if err != nil {
		return nil, errors.DaemonNotRunning(socketPath)
	}
	conn.Close()
	return NewRemoteClient(socketPath), nil
}
