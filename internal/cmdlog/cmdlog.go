package cmdlog

import (
	"time"

	"truthlens/internal/logging"
	"truthlens/internal/metrics"
)

// Run executes one CLI command, counting it and logging <cmd>_ok or <cmd>_error.
func Run(cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	start := time.Now()
	err := f()
	took := time.Since(start).Milliseconds()
	if err != nil {
		metrics.IncCommandError(cmd)
		logging.Error(cmd+"_error", map[string]any{"error": err.Error(), "took_ms": took})
	} else {
		logging.Info(cmd+"_ok", map[string]any{"took_ms": took})
	}
	return err
}
