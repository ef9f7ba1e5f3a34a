package crashreport

import (
	"runtime"
	"testing"
	"time"
)

func TestCaptureSystemState_PopulatesFields(t *testing.T) {
	state := CaptureSystemState(time.Now().Add(-time.Second))

	if state.MemoryBytes <= 0 {
		t.Errorf("MemoryBytes = %d, want > 0", state.MemoryBytes)
	}
	if state.GoroutineCount <= 0 {
		t.Errorf("GoroutineCount = %d, want > 0", state.GoroutineCount)
	}
	if state.UptimeMs < 1000 {
		t.Errorf("UptimeMs = %d, want >= 1000", state.UptimeMs)
	}
	if state.GOOS != runtime.GOOS || state.GOARCH != runtime.GOARCH {
		t.Errorf("platform = %s/%s", state.GOOS, state.GOARCH)
	}
}

func TestCaptureSystemState_FutureStartTime(t *testing.T) {
	state := CaptureSystemState(time.Now().Add(time.Hour))
	if state.UptimeMs != 0 {
		t.Errorf("UptimeMs = %d, want 0 for a future start time", state.UptimeMs)
	}
}

func TestSystemState_AsMapHasNoHostName(t *testing.T) {
	m := CaptureSystemState(time.Now()).asMap()

	for _, key := range []string{"memory_bytes", "goroutine_count", "uptime_ms", "os", "arch"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	for _, key := range []string{"hostname", "host", "server_name"} {
		if _, ok := m[key]; ok {
			t.Errorf("unexpected key %q", key)
		}
	}
}
