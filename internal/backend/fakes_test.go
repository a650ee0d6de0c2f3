package backend

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

type note struct {
	level string
	msg   string
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (r *recordingNotifier) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note{level: level, msg: msg})
}

func (r *recordingNotifier) Debug(msg string, _ ...any)    { r.add("debug", msg) }
func (r *recordingNotifier) Info(msg string, _ ...any)     { r.add("info", msg) }
func (r *recordingNotifier) Announce(msg string, _ ...any) { r.add("announce", msg) }
func (r *recordingNotifier) Warn(msg string, _ ...any)     { r.add("warn", msg) }
func (r *recordingNotifier) Error(msg string, _ ...any)    { r.add("error", msg) }

func (r *recordingNotifier) has(level, msg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.notes {
		if n.level == level && n.msg == msg {
			return true
		}
	}

	return false
}

type fakeTerminal struct {
	name     string
	logPath  string
	pid      chan int
	disposed atomic.Int32
}

func newFakeTerminal(name string) *fakeTerminal {
	return &fakeTerminal{name: name, pid: make(chan int, 1)}
}

func (t *fakeTerminal) Name() string { return t.name }

func (t *fakeTerminal) ProcessID(ctx context.Context) (int, error) {
	select {
	case pid := <-t.pid:
		return pid, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (t *fakeTerminal) LogPath() string { return t.logPath }

func (t *fakeTerminal) Dispose() error {
	t.disposed.Add(1)
	return nil
}

type fakeHost struct {
	mu        sync.Mutex
	spawned   []*fakeTerminal
	commands  []string
	listeners []ExitListener
	err       error
	nextPID   int
	captures  bool
}

func (h *fakeHost) Spawn(_ context.Context, name, command string, listener ExitListener) (Terminal, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.err != nil {
		return nil, h.err
	}

	term := newFakeTerminal(name)
	if h.captures {
		term.logPath = fmt.Sprintf("/tmp/zxdb-console-%d.log", len(h.spawned)+1)
	}

	if h.nextPID > 0 {
		term.pid <- h.nextPID
		h.nextPID++
	}

	h.spawned = append(h.spawned, term)
	h.commands = append(h.commands, command)
	h.listeners = append(h.listeners, listener)

	return term, nil
}

func (h *fakeHost) last() *fakeTerminal {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.spawned) == 0 {
		return nil
	}

	return h.spawned[len(h.spawned)-1]
}

type signalCall struct {
	pid int
	sig Signal
}

type recordingSignaler struct {
	mu    sync.Mutex
	calls []signalCall
	err   error
}

func (r *recordingSignaler) signal(pid int, sig Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, signalCall{pid: pid, sig: sig})

	return r.err
}

func (r *recordingSignaler) snapshot() []signalCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]signalCall(nil), r.calls...)
}

// countingDialer fails the first failures attempts, then connects. It
// records how many attempts were in flight at once.
type countingDialer struct {
	failures int
	hang     bool

	mu          sync.Mutex
	attempts    int
	inFlight    int
	maxInFlight int
	canceled    int
	conns       []*trackedConn
}

func (d *countingDialer) dial(ctx context.Context, _, address string) (net.Conn, error) {
	d.mu.Lock()
	d.attempts++
	attempt := d.attempts
	d.inFlight++
	if d.inFlight > d.maxInFlight {
		d.maxInFlight = d.inFlight
	}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.inFlight--
		d.mu.Unlock()
	}()

	if d.hang {
		<-ctx.Done()

		d.mu.Lock()
		d.canceled++
		d.mu.Unlock()

		return nil, ctx.Err()
	}

	if attempt <= d.failures {
		return nil, fmt.Errorf("dial tcp %s: connect: connection refused", address)
	}

	client, server := net.Pipe()
	_ = server.Close()

	conn := &trackedConn{Conn: client}

	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()

	return conn, nil
}

func (d *countingDialer) stats() (attempts, maxInFlight int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.attempts, d.maxInFlight
}

type trackedConn struct {
	net.Conn
	closed atomic.Bool
}

func (c *trackedConn) Close() error {
	c.closed.Store(true)
	return c.Conn.Close()
}

func (r *recordingNotifier) snapshot() []note {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]note(nil), r.notes...)
}
