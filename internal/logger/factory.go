package logger

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Setup sets the global level and output used by package-level log calls.
// debug wins over level; an unknown level name falls back to warn.
func Setup(debug bool, level string) {
	log.SetOutput(os.Stderr)
	switch {
	case debug:
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	default:
		lvl, err := log.ParseLevel(strings.ToLower(level))
		if err != nil || level == "" {
			lvl = log.WarnLevel
		}
		log.SetLevel(lvl)
	}
}

// Plain creates a logger without timestamps for interactive output.
func Plain(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportTimestamp: false,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}
