//go:build unix

package backend

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ChildPID returns the first child of pid as reported by `pgrep -P`.
func ChildPID(ctx context.Context, pid int) (int, error) {
	out, err := exec.CommandContext(ctx, "pgrep", "-P", strconv.Itoa(pid)).Output()
	if err != nil {
		var exitErr *exec.ExitError
		// pgrep exits 1 when nothing matched.
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return 0, ErrNoChild
		}

		return 0, fmt.Errorf("pgrep -P %d: %w", pid, err)
	}

	return parseFirstPID(out)
}

func parseFirstPID(out []byte) (int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		pid, err := strconv.Atoi(line)
		if err != nil {
			return 0, fmt.Errorf("parse pid %q: %w", line, err)
		}

		return pid, nil
	}

	return 0, ErrNoChild
}
