package tor

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/tornago"
)

// DefaultStartupTimeout is how long a freshly launched daemon may take to
// bootstrap.
const DefaultStartupTimeout = 3 * time.Minute

// Daemon is a Tor process launched by opendir for users without a running
// Tor service. Start blocks until the daemon has bootstrapped, which usually
// takes between one and three minutes.
type Daemon struct {
	process        *tornago.TorProcess
	startupTimeout time.Duration
}

// NewDaemon returns a daemon that is not started yet. A non-positive
// startupTimeout selects DefaultStartupTimeout.
func NewDaemon(startupTimeout time.Duration) *Daemon {
	if startupTimeout <= 0 {
		startupTimeout = DefaultStartupTimeout
	}
	return &Daemon{startupTimeout: startupTimeout}
}

// Start launches tor on OS-assigned SOCKS and control ports.
func (d *Daemon) Start(ctx context.Context) error {
	if d.process != nil {
		return nil
	}

	cfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(d.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	process, err := tornago.StartTorDaemon(cfg)
	if err != nil {
		return fmt.Errorf("failed to start embedded Tor daemon: %w", err)
	}
	if err := ctx.Err(); err != nil {
		_ = process.Stop()
		return err
	}

	d.process = process
	return nil
}

// Stop terminates the daemon. It is a no-op when the daemon is not running.
func (d *Daemon) Stop() error {
	if d.process == nil {
		return nil
	}
	err := d.process.Stop()
	d.process = nil
	return err
}

// Running reports whether Start succeeded and Stop was not called since.
func (d *Daemon) Running() bool {
	return d.process != nil
}

// SocksAddr returns the daemon's SOCKS5 address, or "" when not running.
func (d *Daemon) SocksAddr() string {
	if d.process == nil {
		return ""
	}
	return d.process.SocksAddr()
}

// NewClient returns a Client using the daemon's SOCKS5 port.
func (d *Daemon) NewClient(timeout time.Duration) (*Client, error) {
	if !d.Running() {
		return nil, ErrDaemonNotRunning
	}
	return NewClient(d.SocksAddr(), timeout)
}
