package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Login(true)
	m.Registered()
	m.TaskCompleted(5)
	m.RSVP(true)
	m.MessagePosted()
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.Login(false)
	m.TaskCompleted(7)
	m.RSVP(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`hearth_logins_total{outcome="failure"} 1`,
		`hearth_task_completions_total 1`,
		`hearth_points_awarded_total 7`,
		`hearth_event_rsvps_total{state="joined"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
