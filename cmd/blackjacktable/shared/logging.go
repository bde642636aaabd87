package shared

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// SetupLogger configures a console logger at the given level.
func SetupLogger(level string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           parseLevel(level),
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
}

// SetupFileLogger writes logs to a file instead of the terminal. The TUI
// client uses this so log output does not corrupt the display.
func SetupFileLogger(path, level string) (*log.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, nil, err
	}

	logger := log.NewWithOptions(f, log.Options{
		Level:           parseLevel(level),
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	return logger, f, nil
}

func parseLevel(level string) log.Level {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel
	}
	return parsed
}
