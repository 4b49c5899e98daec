package ratelimit

import (
	"fmt"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestLimiter_AllowAndExpire(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newLimiter(2, time.Minute, clk.Now)

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests should be allowed")
	}
	if l.Allow("a") {
		t.Error("third request should be limited")
	}
	if l.Remaining("a") != 0 {
		t.Errorf("Remaining = %d, want 0", l.Remaining("a"))
	}
	if !l.Allow("b") {
		t.Error("other keys are independent")
	}

	clk.t = clk.t.Add(time.Minute + time.Second)
	if !l.Allow("a") {
		t.Error("request after window should be allowed")
	}
	if l.Remaining("a") != 1 {
		t.Errorf("Remaining = %d, want 1", l.Remaining("a"))
	}
}

func TestLimiter_ResetAndSweep(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	l := newLimiter(1, time.Minute, clk.Now)

	l.Allow("a")
	l.Reset("a")
	if !l.Allow("a") {
		t.Error("Allow after Reset should succeed")
	}

	clk.t = clk.t.Add(2 * time.Minute)
	l.sweep()
	if len(l.windows) != 0 {
		t.Errorf("sweep left %d windows", len(l.windows))
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"remote addr", nil, "10.0.0.1:1234", "10.0.0.1"},
		{"remote without port", nil, "10.0.0.1", "10.0.0.1"},
		{"forwarded for ignored", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "10.0.0.1:1", "10.0.0.1"},
		{"real ip ignored", map[string]string{"X-Real-IP": " 5.6.7.8 "}, "10.0.0.1:1", "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/auth/login", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoginLimiter(t *testing.T) {
	ll := NewLoginLimiter(4, time.Minute)
	t.Cleanup(ll.Stop)

	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	r.RemoteAddr = "10.0.0.9:5555"

	for i := 0; i < 2; i++ {
		if ok, _ := ll.Check(r, "Ann@Example.com"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if ok, reason := ll.Check(r, "ann@example.com "); ok || reason == "" {
		t.Error("third attempt for the same email should be limited")
	}

	ll.ResetEmail("ANN@example.com")
	if ok, _ := ll.Check(r, "ann@example.com"); !ok {
		t.Error("attempt after ResetEmail should be allowed")
	}
	if ok, _ := ll.Check(r, "bob@example.com"); ok {
		t.Error("fifth attempt from the same IP should be limited")
	}
}

func TestLoginLimiter_IgnoresForwardedFor(t *testing.T) {
	ll := NewLoginLimiter(2, time.Minute)
	t.Cleanup(ll.Stop)

	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		r := httptest.NewRequest("POST", "/api/auth/login", nil)
		r.RemoteAddr = "10.0.0.7:4000"
		r.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		ok, _ := ll.Check(r, email)
		if want := i < 2; ok != want {
			t.Errorf("attempt %d: allowed = %v, want %v", i+1, ok, want)
		}
	}
}
