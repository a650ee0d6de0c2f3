//go:build !unix

package backend

import "os"

// SignalGroup terminates pid. Process groups do not exist on this platform,
// so only the process itself is reached.
func SignalGroup(pid int, _ Signal) error {
	if pid <= 0 {
		return ErrProcessGone
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return ErrProcessGone
	}

	return proc.Kill()
}

// GroupAlive reports whether pid still exists.
func GroupAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	_ = proc.Release()

	return true
}
