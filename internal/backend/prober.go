package backend

import (
	"context"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/musher-dev/zxdb-adapter/internal/config"
	"github.com/musher-dev/zxdb-adapter/internal/observability"
)

// DefaultRetryInterval is the delay between failed connection attempts.
const DefaultRetryInterval = time.Second

// Dialer opens a connection to address. It must honor ctx cancellation.
type Dialer func(ctx context.Context, network, address string) (net.Conn, error)

// Prober waits for the console's debug adapter server to accept connections.
type Prober struct {
	sup            *Supervisor
	notify         observability.Notifier
	address        string
	retryInterval  time.Duration
	defaultTimeout time.Duration
	dial           Dialer
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithAddress sets the host:port to probe.
func WithAddress(address string) ProberOption {
	return func(p *Prober) {
		p.address = address
	}
}

// WithRetryInterval sets the delay between failed attempts.
func WithRetryInterval(d time.Duration) ProberOption {
	return func(p *Prober) {
		p.retryInterval = d
	}
}

// WithDialer replaces the connection dialer.
func WithDialer(dial Dialer) ProberOption {
	return func(p *Prober) {
		p.dial = dial
	}
}

// WithDefaultTimeout sets the timeout used when WaitUntilReady is given zero.
func WithDefaultTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		p.defaultTimeout = d
	}
}

// NewProber creates a prober bound to sup. A deadline or an early console
// exit tears sup's console down.
func NewProber(sup *Supervisor, notify observability.Notifier, opts ...ProberOption) *Prober {
	var d net.Dialer

	p := &Prober{
		sup:            sup,
		notify:         notify,
		address:        config.ServerAddress(),
		retryInterval:  DefaultRetryInterval,
		defaultTimeout: time.Duration(config.DefaultTimeoutMS) * time.Millisecond,
		dial:           d.DialContext,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Address returns the host:port being probed.
func (p *Prober) Address() string {
	return p.address
}

// WaitUntilReady polls the adapter port until a connection succeeds or
// timeout elapses. At most one connection attempt is in flight at a time.
// On timeout the console is stopped before the error is returned. Stop on
// the supervisor or cancellation of ctx end the wait early.
func (p *Prober) WaitUntilReady(ctx context.Context, timeout time.Duration) (err error) {
	if timeout <= 0 {
		timeout = p.defaultTimeout
	}

	ctx, span := tracer.Start(ctx, "backend.wait_until_ready")
	span.SetAttributes(
		attribute.String("backend.address", p.address),
		attribute.Int64("backend.timeout_ms", timeout.Milliseconds()),
	)
	defer func() { observability.EndSpan(span, err) }()

	st := newProbeState(p.address, timeout, p.sup.Stop)
	p.sup.arm(st)
	defer p.sup.disarm(st)

	st.armTimer(timeout, func() {
		p.notify.Info("Timeout starting zxdb console.", slog.Duration("timeout", timeout))
	})

	go p.poll(ctx, st)

	select {
	case err = <-st.result:
	case <-ctx.Done():
		st.finalize(outcomeCanceled, ctx.Err())
		err = <-st.result
	}

	span.SetAttributes(attribute.String("backend.outcome", st.winningOutcome().String()))

	return err
}

func (p *Prober) poll(ctx context.Context, st *probeState) {
	for attempt := 1; ; attempt++ {
		attemptCtx, ok := st.beginAttempt(ctx)
		if !ok {
			return
		}

		conn, err := p.dial(attemptCtx, "tcp", st.address)
		st.endAttempt()

		if err == nil {
			_ = conn.Close()

			if st.finalize(outcomeConnected, nil) {
				p.notify.Info("zxdb console has started.", slog.Int("attempts", attempt))
			}

			return
		}

		if !st.finalized() {
			p.notify.Debug("socket error - "+err.Error(), slog.Int("attempt", attempt))
		}

		if !st.waitRetry(p.retryInterval) {
			return
		}
	}
}
