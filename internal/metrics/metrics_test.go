package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestInitIdempotent ensures repeated Init calls do not re-register
// collectors.
func TestInitIdempotent(t *testing.T) {
	Init()
	Init()
}

// TestObserversAfterInit exercises each observer against the registry.
func TestObserversAfterInit(t *testing.T) {
	Init()

	ObserveHarvester("boe", 2, false, 3*time.Second)
	ObserveHarvester("esrb", 0, true, time.Second)
	ObserveRecordFailure("boe")
	ObserveAttachmentStored("boe")
	ObserveRun("ok", 5*time.Second)
	ObserveRun("failed", 0)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body := rr.Body.String()

	for _, want := range []string{
		"harvest_records_total",
		"harvest_failures_total",
		"harvest_attachments_stored_total",
		"harvest_duration_seconds",
		"harvest_run_duration_seconds",
		"harvest_runs_total",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %s", want)
		}
	}
}
