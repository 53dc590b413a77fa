// Package sshprobe checks that an SSH server answers on an address by
// completing the key exchange and reading its host key.
package sshprobe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/felixgeelhaar/hostharden/internal/ports"
	"golang.org/x/crypto/ssh"
)

// errHostKeySeen aborts the handshake once the server has proven itself.
var errHostKeySeen = errors.New("host key received")

// Prober implements ports.ListenProbe. It never authenticates: the
// connection is dropped as soon as the server presents its host key.
type Prober struct {
	timeout  time.Duration
	attempts int
	interval time.Duration
	logger   ports.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout bounds each connection attempt (default 5s).
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) { p.timeout = d }
}

// WithRetry retries failed attempts; sshd may need a moment after restart.
func WithRetry(attempts int, interval time.Duration) Option {
	return func(p *Prober) {
		p.attempts = attempts
		p.interval = interval
	}
}

// WithLogger logs failed attempts.
func WithLogger(l ports.Logger) Option {
	return func(p *Prober) { p.logger = l }
}

// New creates a Prober.
func New(opts ...Option) *Prober {
	p := &Prober{timeout: 5 * time.Second, attempts: 1}
	for _, opt := range opts {
		opt(p)
	}
	if p.attempts < 1 {
		p.attempts = 1
	}
	return p
}

// Probe returns the SHA256 fingerprint of the host key served at addr.
func (p *Prober) Probe(ctx context.Context, addr string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(p.interval):
			}
		}

		fp, err := p.once(ctx, addr)
		if err == nil {
			return fp, nil
		}
		lastErr = err
		if p.logger != nil {
			p.logger.Debug(ctx, "ssh probe attempt failed",
				ports.F("addr", addr),
				ports.F("attempt", attempt),
				ports.Err(err),
			)
		}
	}
	return "", fmt.Errorf("ssh probe %s failed after %d attempt(s): %w", addr, p.attempts, lastErr)
}

func (p *Prober) once(ctx context.Context, addr string) (string, error) {
	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(p.timeout))

	var fingerprint string
	config := &ssh.ClientConfig{
		User: "hostharden-probe",
		HostKeyCallback: func(_ string, _ net.Addr, key ssh.PublicKey) error {
			fingerprint = ssh.FingerprintSHA256(key)
			return errHostKeySeen
		},
		Timeout: p.timeout,
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if fingerprint != "" {
		return fingerprint, nil
	}
	if err == nil {
		// Unreachable with the callback above; close cleanly regardless.
		_ = ssh.NewClient(c, chans, reqs).Close()
		return "", errors.New("ssh server accepted a connection without presenting a host key")
	}
	return "", err
}

var _ ports.ListenProbe = (*Prober)(nil)
