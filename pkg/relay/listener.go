package relay

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Listener accepts TCP connections and spins up a Session per connection,
// gating total concurrent sessions at config.Server.MaxPlayers (spec.md
// §4.1, §7.2). Grounded on gate's Listener.Listen accept loop, with the
// player cap expressed as a weighted semaphore rather than gate's proxy
// capacity check.
type Listener struct {
	relay *Relay
	ln    net.Listener
	sem   *semaphore.Weighted
}

func NewListener(r *Relay) (*Listener, error) {
	addr := fmt.Sprintf("%s:%d", r.config.Server.Address, r.config.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("relay: listen %s: %w", addr, err)
	}
	return &Listener{
		relay: r,
		ln:    ln,
		sem:   semaphore.NewWeighted(int64(r.config.Server.MaxPlayers)),
	}, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Serve runs the accept loop until ctx is cancelled or the listener is
// closed. Each accepted connection either acquires a semaphore slot and
// gets its own Session goroutine, or is rejected immediately if the
// server is at capacity (spec.md §7.2 "server is full").
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("relay: accept: %w", err)
		}

		if l.relay.bans.IsIPBanned(hostOf(conn.RemoteAddr())) {
			l.relay.log.Debug("rejecting banned IP", zap.Stringer("remote", conn.RemoteAddr()))
			_ = conn.Close()
			continue
		}

		if !l.sem.TryAcquire(1) {
			l.relay.log.Info("rejecting connection: server full", zap.Stringer("remote", conn.RemoteAddr()))
			_ = conn.Close()
			continue
		}

		sess := newSession(l.relay, conn)
		go func() {
			defer l.sem.Release(1)
			sess.run()
		}()
	}
}

func (l *Listener) Close() error {
	return l.ln.Close()
}

func hostOf(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
