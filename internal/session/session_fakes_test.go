package session

import (
	"strings"
	"sync"

	"github.com/musher-dev/zxdb-adapter/internal/backend"
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

// find returns the first note at level whose message contains substr.
func (r *recordingNotifier) find(level, substr string) (note, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.notes {
		if n.level == level && strings.Contains(n.msg, substr) {
			return n, true
		}
	}

	return note{}, false
}

func (r *recordingNotifier) count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, note := range r.notes {
		if note.level == level {
			n++
		}
	}

	return n
}

type countingBackend struct {
	stops int
}

func (b *countingBackend) Stop() { b.stops++ }

type signalCall struct {
	pid int
	sig backend.Signal
}

type recordingSignaler struct {
	calls []signalCall
	err   error
}

func (r *recordingSignaler) signal(pid int, sig backend.Signal) error {
	r.calls = append(r.calls, signalCall{pid: pid, sig: sig})
	return r.err
}
