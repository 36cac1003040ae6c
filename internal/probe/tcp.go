package probe

import (
	"context"
	"net"
	"time"
)

// TCPProber treats a completed TCP handshake as reachable. Addresses without
// a port get DefaultPort.
type TCPProber struct {
	Timeout     time.Duration
	DefaultPort string
}

func NewTCPProber(timeout time.Duration) *TCPProber {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &TCPProber{Timeout: timeout, DefaultPort: "53"}
}

// HostPort returns address with DefaultPort attached when it has none.
func (p *TCPProber) HostPort(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	port := p.DefaultPort
	if port == "" {
		port = "53"
	}
	return net.JoinHostPort(address, port)
}

func (p *TCPProber) Probe(ctx context.Context, address string) Result {
	d := net.Dialer{Timeout: p.Timeout}
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", p.HostPort(address))
	lat := time.Since(start)
	if err != nil {
		return Result{Reachable: false, Latency: lat, Message: err.Error()}
	}
	_ = conn.Close()
	return Result{Reachable: true, Latency: lat, Message: "connected"}
}
