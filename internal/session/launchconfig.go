package session

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/musher-dev/zxdb-adapter/internal/observability"
)

// MaxProcessNameLength is the longest process filter zxdb accepts.
const MaxProcessNameLength = 31

// Debug configuration request kinds.
const (
	RequestAttach = "attach"
	RequestLaunch = "launch"
)

// DebugType is the debug configuration type served by zxdb-adapter.
const DebugType = "zxdb"

// ErrUnknownRequest is returned for a configuration whose request is neither
// attach nor launch.
var ErrUnknownRequest = errors.New("unknown launch config")

const missingConfigMessage = "launch.json does not have any zxdb configuration. Initial configurations will be " +
	"added automatically, if not add it manually (Hint: Add Configuration -> zxdb...).\n" +
	"Next, pick a configuration in the launch configuration dropdown to start debugging."

// Resolve validates a debug configuration before a session uses it. The
// input is not modified; the returned map is a shallow copy.
//
// An entirely empty configuration (no type, request or name) is filled with
// an attach default and reported as an error so the user adds a real one. A
// process filter longer than MaxProcessNameLength is truncated with a
// warning.
func Resolve(cfg map[string]any, notify observability.Notifier) (map[string]any, error) {
	resolved := make(map[string]any, len(cfg)+3)
	for k, v := range cfg {
		resolved[k] = v
	}

	if stringField(resolved, "type") == "" && stringField(resolved, "request") == "" && stringField(resolved, "name") == "" {
		notify.Error(missingConfigMessage)

		resolved["type"] = DebugType
		resolved["request"] = RequestAttach
		resolved["name"] = "Attach (zxdb)"
	}

	process := stringField(resolved, "process")
	if runes := []rune(process); len(runes) > MaxProcessNameLength {
		process = string(runes[:MaxProcessNameLength])
		resolved["process"] = process
		notify.Warn(fmt.Sprintf("Process name too long. It will be trimmed to %q", process))
	}

	switch request := stringField(resolved, "request"); request {
	case RequestAttach:
		notify.Info("Attaching to "+process, slog.String("process", process))
	case RequestLaunch:
		command := stringField(resolved, "launchCommand")
		notify.Info(fmt.Sprintf("Launching process %s with command %q", process, command),
			slog.String("process", process),
			slog.String("launch_command", command),
		)
	default:
		notify.Error("Unknown launch config", slog.String("request", request))

		return nil, fmt.Errorf("%w: request %q", ErrUnknownRequest, request)
	}

	return resolved, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
