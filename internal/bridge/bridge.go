// Package bridge connects a debugger front-end to the zxdb console's debug
// adapter server. It brings the console up on the first front-end message,
// waits for readiness, then relays DAP frames untouched in both directions
// while a session.Tracker observes them.
package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/go-dap"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/musher-dev/zxdb-adapter/internal/backend"
	clierrors "github.com/musher-dev/zxdb-adapter/internal/errors"
	"github.com/musher-dev/zxdb-adapter/internal/observability"
	"github.com/musher-dev/zxdb-adapter/internal/session"
)

var tracer = observability.Tracer("github.com/musher-dev/zxdb-adapter/internal/bridge")

// Options configures a Bridge.
type Options struct {
	Supervisor *backend.Supervisor
	Prober     *backend.Prober
	Sink       *observability.Sink

	// Command is typed into the console to start zxdb.
	Command string
	// Timeout bounds the readiness wait; zero uses the prober default.
	Timeout time.Duration

	// Dial opens the session connection to the backend. Defaults to
	// net.Dialer.DialContext.
	Dial backend.Dialer

	// TrackerOptions are applied to every session tracker.
	TrackerOptions []session.TrackerOption
}

// Bridge serves debug sessions. Sessions run one at a time and share the
// supervisor, so a restarted session reuses a live console.
type Bridge struct {
	opts Options
}

// New creates a Bridge.
func New(opts Options) *Bridge {
	if opts.Dial == nil {
		var d net.Dialer
		opts.Dial = d.DialContext
	}

	return &Bridge{opts: opts}
}

// sessionDescriptor is logged when a session starts.
type sessionDescriptor struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Command   string `json:"command"`
	Address   string `json:"address"`
	TimeoutMS int64  `json:"timeoutMs,omitempty"`
}

// Serve runs one debug session over client. It returns nil when the session
// ends normally, and the startup error when the console could not be brought
// up.
func (b *Bridge) Serve(ctx context.Context, client io.ReadWriter) (err error) {
	reader := bufio.NewReader(client)

	first, err := dap.ReadBaseMessage(reader)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}

		return fmt.Errorf("read first client message: %w", err)
	}

	id := uuid.NewString()
	sink := b.opts.Sink.With(slog.String("session.id", id))
	out := &clientWriter{w: client}

	prev := sink.SetSurface(outputSurface(out))
	defer sink.SetSurface(prev)

	ctx, span := tracer.Start(ctx, "bridge.session")
	span.SetAttributes(attribute.String("session.id", id))
	defer func() { observability.EndSpan(span, err) }()

	tracker := session.NewTracker(b.opts.Supervisor, sink,
		append([]session.TrackerOption{session.WithSessionID(id)}, b.opts.TrackerOptions...)...)

	tracker.OnWillStartSession(sessionDescriptor{
		ID:        id,
		Type:      session.DebugType,
		Command:   b.opts.Command,
		Address:   b.opts.Prober.Address(),
		TimeoutMS: b.opts.Timeout.Milliseconds(),
	})

	conn, err := b.connect(ctx, sink)
	if err != nil {
		b.rejectFirst(out, first, err)
		tracker.OnWillStopSession()

		return err
	}

	relayErr := b.relay(ctx, first, reader, out, conn, tracker, sink)

	exitCode := 0
	if relayErr != nil {
		exitCode = 1
		tracker.OnError(relayErr)
	}

	tracker.OnWillStopSession()
	tracker.OnExit(exitCode, "")

	return nil
}

// connect starts the console unless one is live, waits until its adapter
// port accepts connections and dials the session connection.
func (b *Bridge) connect(ctx context.Context, sink *observability.Sink) (net.Conn, error) {
	if b.opts.Supervisor.Running() {
		sink.Debug("reusing live zxdb console", slog.Int("pid", b.opts.Supervisor.PID()))
	} else if err := b.opts.Supervisor.Start(ctx, b.opts.Command); err != nil {
		return nil, err
	}

	if err := b.opts.Prober.WaitUntilReady(ctx, b.opts.Timeout); err != nil {
		return nil, err
	}

	sink.Info("Creating debug adapter client.")

	conn, err := b.opts.Dial(ctx, "tcp", b.opts.Prober.Address())
	if err != nil {
		return nil, fmt.Errorf("connect to zxdb debug adapter: %w", err)
	}

	return conn, nil
}

// rejectFirst answers the pending first request with err.
func (b *Bridge) rejectFirst(out *clientWriter, first []byte, err error) {
	hdr, parseErr := parseHeader(first)
	if parseErr != nil || hdr.Type != "request" {
		return
	}

	message := err.Error()

	var cliErr *clierrors.CLIError
	if clierrors.As(err, &cliErr) {
		message = cliErr.UserMessage()
	}

	_ = out.writeMessage(errorResponse(hdr.Seq, hdr.Command, message))
}

type relayResult struct {
	side string
	err  error
}

// relay pumps frames until either side closes or ctx is canceled. A clean
// close by either side and cancellation return nil.
func (b *Bridge) relay(
	ctx context.Context,
	first []byte,
	clientReader *bufio.Reader,
	out *clientWriter,
	conn net.Conn,
	tracker *session.Tracker,
	sink *observability.Sink,
) error {
	defer conn.Close()

	done := make(chan relayResult, 2)
	backendWriter := &clientWriter{w: conn}

	go func() {
		backendReader := bufio.NewReader(conn)

		for {
			frame, err := dap.ReadBaseMessage(backendReader)
			if err != nil {
				done <- relayResult{side: "backend", err: err}
				return
			}

			tracker.ObserveInbound(frame)

			if err := out.writeFrame(frame); err != nil {
				done <- relayResult{side: "client", err: err}
				return
			}
		}
	}()

	go func() {
		frame := first

		for {
			if err := b.forward(frame, out, backendWriter, tracker, sink); err != nil {
				done <- relayResult{side: "backend", err: err}
				return
			}

			next, err := dap.ReadBaseMessage(clientReader)
			if err != nil {
				done <- relayResult{side: "client", err: err}
				return
			}

			frame = next
		}
	}()

	var res relayResult

	select {
	case res = <-done:
	case <-ctx.Done():
		res = relayResult{side: "context", err: ctx.Err()}
	}

	sink.Debug("relay finished", slog.String("side", res.side))

	if res.err == nil || errors.Is(res.err, io.EOF) || errors.Is(res.err, net.ErrClosed) ||
		errors.Is(res.err, io.ErrClosedPipe) || errors.Is(res.err, context.Canceled) {
		return nil
	}

	return fmt.Errorf("%s connection: %w", res.side, res.err)
}

// forward sends one front-end frame to the backend. Launch and attach
// requests are resolved first; a rejected one is answered with an error and
// not forwarded.
func (b *Bridge) forward(frame []byte, out, backendWriter *clientWriter, tracker *session.Tracker, sink *observability.Sink) error {
	hdr, err := parseHeader(frame)
	if err == nil && hdr.Type == "request" && (hdr.Command == session.RequestLaunch || hdr.Command == session.RequestAttach) {
		resolved, rejectErr := b.resolve(frame, sink)
		if rejectErr != nil {
			msg := clierrors.InvalidLaunchConfig(rejectErr.Error()).Message

			return out.writeMessage(errorResponse(hdr.Seq, hdr.Command, msg))
		}

		frame = resolved
	}

	tracker.ObserveOutbound(frame)

	return backendWriter.writeFrame(frame)
}

func (b *Bridge) resolve(frame []byte, sink *observability.Sink) ([]byte, error) {
	args, err := requestArguments(frame)
	if err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}

	// The request kind comes from the command, not from the arguments, even
	// when the arguments are empty.
	hdr, _ := parseHeader(frame)
	if _, ok := args["request"]; !ok {
		args["request"] = hdr.Command
	}

	resolved, err := session.Resolve(args, sink)
	if err != nil {
		return nil, err
	}

	return rewriteArguments(frame, resolved)
}

// ServeListener accepts front-end connections on ln and serves them one at
// a time until ctx is done.
func (b *Bridge) ServeListener(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("accept: %w", err)
		}

		b.opts.Sink.Info("debugger connected", slog.String("remote", conn.RemoteAddr().String()))

		if serveErr := b.Serve(ctx, conn); serveErr != nil {
			b.opts.Sink.Warn("debug session failed to start", slog.String("error", serveErr.Error()))
		}

		_ = conn.Close()
	}
}
