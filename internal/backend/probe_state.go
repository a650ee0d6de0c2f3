package backend

import (
	"context"
	"sync"
	"time"

	clierrors "github.com/musher-dev/zxdb-adapter/internal/errors"
)

type outcome int

const (
	outcomeConnected outcome = iota + 1
	outcomeDeadline
	outcomeBackendEnded
	outcomeStopped
	outcomeCanceled
)

func (o outcome) String() string {
	switch o {
	case outcomeConnected:
		return "connected"
	case outcomeDeadline:
		return "deadline"
	case outcomeBackendEnded:
		return "backend-ended"
	case outcomeStopped:
		return "stopped"
	case outcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// probeState tracks one readiness wait. Exactly one call to finalize wins;
// every later call is a no-op.
type probeState struct {
	address  string
	deadline time.Time
	teardown func()

	mu            sync.Mutex
	consumed      bool
	attemptActive bool
	retrying      bool
	cancelAttempt context.CancelFunc
	timer         *time.Timer
	wake          chan struct{}
	result        chan error
	winner        outcome
}

func newProbeState(address string, timeout time.Duration, teardown func()) *probeState {
	return &probeState{
		address:  address,
		deadline: time.Now().Add(timeout),
		teardown: teardown,
		wake:     make(chan struct{}),
		result:   make(chan error, 1),
	}
}

// armTimer schedules the deadline. The timer runs on the monotonic clock, so
// wall-clock jumps do not move it.
func (st *probeState) armTimer(timeout time.Duration, onExpire func()) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.consumed {
		return
	}

	st.timer = time.AfterFunc(timeout, func() {
		if st.finalize(outcomeDeadline, nil) && onExpire != nil {
			onExpire()
		}
	})
}

// beginAttempt registers a connection attempt and returns the context that
// bounds it. It reports false once the state is finalized.
func (st *probeState) beginAttempt(parent context.Context) (context.Context, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.consumed || st.attemptActive {
		return nil, false
	}

	ctx, cancel := context.WithCancel(parent)
	st.attemptActive = true
	st.cancelAttempt = cancel

	return ctx, true
}

// endAttempt releases the current attempt.
func (st *probeState) endAttempt() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.cancelAttempt != nil {
		st.cancelAttempt()
		st.cancelAttempt = nil
	}

	st.attemptActive = false
}

// waitRetry sleeps for interval, returning early if the state is finalized.
// It reports whether another attempt should be made.
func (st *probeState) waitRetry(interval time.Duration) bool {
	st.mu.Lock()
	if st.consumed {
		st.mu.Unlock()
		return false
	}
	st.retrying = true
	st.mu.Unlock()

	t := time.NewTimer(interval)
	defer t.Stop()

	select {
	case <-t.C:
	case <-st.wake:
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.retrying = false

	return !st.consumed
}

// finalize records the outcome of the wait. It cancels the deadline timer,
// any pending retry and any in-flight attempt. For a deadline or an early
// backend exit it also runs teardown before the result is published. It
// reports whether this call won.
func (st *probeState) finalize(o outcome, cause error) bool {
	st.mu.Lock()
	if st.consumed {
		st.mu.Unlock()
		return false
	}

	st.consumed = true
	st.winner = o

	if st.timer != nil {
		st.timer.Stop()
	}

	if st.cancelAttempt != nil {
		st.cancelAttempt()
		st.cancelAttempt = nil
	}

	close(st.wake)
	st.mu.Unlock()

	var err error

	switch o {
	case outcomeConnected:
	case outcomeDeadline, outcomeBackendEnded:
		if st.teardown != nil {
			st.teardown()
		}

		err = clierrors.ReadinessTimeout(cause)
	case outcomeStopped:
		err = clierrors.BackendStopped()
	case outcomeCanceled:
		err = cause
	}

	st.result <- err

	return true
}

// finalized reports whether an outcome has been recorded.
func (st *probeState) finalized() bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.consumed
}

// winningOutcome returns the recorded outcome, or zero if none yet.
func (st *probeState) winningOutcome() outcome {
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.winner
}
