//go:build unix

package backend

import (
	"errors"

	"golang.org/x/sys/unix"
)

// SignalGroup sends sig to the process group rooted at pid (kill(-pid)).
// If the group cannot be signalled for a reason other than it being gone,
// the leader is signalled directly.
func SignalGroup(pid int, sig Signal) error {
	if pid <= 0 {
		return ErrProcessGone
	}

	err := unix.Kill(-pid, sig.unix())
	if err == nil {
		return nil
	}

	if errors.Is(err, unix.ESRCH) {
		return ErrProcessGone
	}

	if leaderErr := unix.Kill(pid, sig.unix()); leaderErr != nil {
		if errors.Is(leaderErr, unix.ESRCH) {
			return ErrProcessGone
		}

		return leaderErr
	}

	return nil
}

// GroupAlive reports whether any process is left in the process group pgid.
func GroupAlive(pgid int) bool {
	if pgid <= 0 {
		return false
	}

	err := unix.Kill(-pgid, 0)

	return err == nil || errors.Is(err, unix.EPERM)
}

func (s Signal) unix() unix.Signal {
	switch s {
	case SignalInterrupt:
		return unix.SIGINT
	case SignalKill:
		return unix.SIGKILL
	case SignalHangup:
		return unix.SIGHUP
	default:
		return unix.SIGTERM
	}
}
