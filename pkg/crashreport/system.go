// system.go captures process state at submission time.

package crashreport

import (
	"runtime"
	"time"
)

// SystemState captures process metrics at the time of a crash.
// The host name is deliberately absent.
type SystemState struct {
	// MemoryBytes is the current heap allocation in bytes.
	MemoryBytes int64

	// GoroutineCount is the number of active goroutines.
	GoroutineCount int

	// UptimeMs is the process uptime in milliseconds.
	UptimeMs int64

	// GOOS and GOARCH identify the platform.
	GOOS   string
	GOARCH string
}

// CaptureSystemState captures system metrics at the current moment.
// The startTime parameter is used to calculate process uptime.
func CaptureSystemState(startTime time.Time) *SystemState {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	uptimeMs := time.Since(startTime).Milliseconds()
	if uptimeMs < 0 {
		uptimeMs = 0 // start time in the future
	}

	return &SystemState{
		MemoryBytes:    int64(memStats.Alloc),
		GoroutineCount: runtime.NumGoroutine(),
		UptimeMs:       uptimeMs,
		GOOS:           runtime.GOOS,
		GOARCH:         runtime.GOARCH,
	}
}

func (s *SystemState) asMap() map[string]any {
	return map[string]any{
		"memory_bytes":    s.MemoryBytes,
		"goroutine_count": s.GoroutineCount,
		"uptime_ms":       s.UptimeMs,
		"os":              s.GOOS,
		"arch":            s.GOARCH,
	}
}
