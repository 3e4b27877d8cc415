// Package logging wraps github.com/charmbracelet/log with the field set
// every dxcore component logs against: channel, activity and component
// name, so a single log stream can be filtered per running activity.
package logging

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is a thin alias so callers don't import charmbracelet/log
// directly; it keeps the dependency swappable behind one seam.
type Logger = log.Logger

// New builds a logger writing to stderr with timestamps and the given
// minimum level, report-caller disabled (dxcore logs are high-volume per
// half-frame; caller info is noise at that rate).
func New(level log.Level) *Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
	})
	return l
}

// ForChannel returns a logger with channel and component fields attached,
// the structured-field pattern used throughout dxcore instead of
// formatted message strings.
func ForChannel(base *Logger, channelID uint32, component string) *Logger {
	return base.With("channel", channelID, "component", component)
}

// ForActivity further narrows a channel logger to one activity.
func ForActivity(base *Logger, activityID uint32) *Logger {
	return base.With("activity", activityID)
}
