// Package logger builds the process-wide slog logger and provides helpers
// for security-relevant audit events. Credentials and tokens are never
// passed to these helpers.
package logger

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// New creates a JSON logger at the given level. Unknown levels fall back
// to info.
func New(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// AuthFailure records a rejected authentication attempt
func AuthFailure(log *slog.Logger, ip, path, reason string) {
	if log == nil {
		return
	}
	log.Warn("authentication_failure",
		slog.String("event_type", "auth_failure"),
		slog.String("ip", ip),
		slog.String("path", path),
		slog.String("reason", reason),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// AccessDenied records a failed role check
func AccessDenied(log *slog.Logger, accountID, path string) {
	if log == nil {
		return
	}
	log.Warn("access_denied",
		slog.String("event_type", "access_denied"),
		slog.String("account_id", accountID),
		slog.String("path", path),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// AdminAction records a destructive or privileged operation
func AdminAction(log *slog.Logger, accountID, action, target string) {
	if log == nil {
		return
	}
	log.Info("admin_action",
		slog.String("event_type", "admin_action"),
		slog.String("account_id", accountID),
		slog.String("action", action),
		slog.String("target", target),
		slog.Time("timestamp", time.Now().UTC()),
	)
}
