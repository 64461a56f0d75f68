package infra

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("k", "image/png", []byte("png"))

	e, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(e.Value) != "png" || e.ContentType != "image/png" {
		t.Errorf("unexpected entry %+v", e)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(time.Minute)
	c.now = func() time.Time { return now }
	c.Set("k", "image/svg+xml", []byte("<svg/>"))

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
	c.Cleanup()
	if c.Len() != 0 {
		t.Errorf("expected cleanup to drop expired entry, got %d", c.Len())
	}

	c.Set("a", "", nil)
	c.Flush()
	if c.Len() != 0 {
		t.Error("expected flush to empty the cache")
	}
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded once bucket is empty, got %v", err)
	}
}

func TestPerMinute(t *testing.T) {
	rl := PerMinute(120)
	if rl.maxTokens != 120 {
		t.Errorf("expected 120 tokens, got %d", rl.maxTokens)
	}
	if rl.refillRate != 500*time.Millisecond {
		t.Errorf("expected 500ms refill, got %s", rl.refillRate)
	}
}

func TestDoGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("missing Accept header")
		}
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing User-Agent header")
		}
		if r.URL.Path == "/fail" {
			http.Error(w, "bad api key", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	headers := map[string]string{"Accept": "application/json"}
	body, status, err := DoGet(context.Background(), srv.URL+"/ok", headers)
	if err != nil {
		t.Fatalf("DoGet: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if status != http.StatusOK || string(data) != `{"ok":true}` {
		t.Errorf("unexpected response %d %s", status, data)
	}

	_, status, err = DoGet(context.Background(), srv.URL+"/fail?api_key=secret&x=1", headers)
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if status != http.StatusBadRequest || he.Status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("api key leaked into error: %v", err)
	}
	if !strings.Contains(err.Error(), "bad api key") {
		t.Errorf("expected body excerpt in error: %v", err)
	}
}

func TestRedact(t *testing.T) {
	tests := []struct{ in, want string }{
		{"http://x/a?api_key=abc&b=1", "http://x/a?api_key=REDACTED&b=1"},
		{"http://x/a?b=1&api_key=abc", "http://x/a?api_key=REDACTED&b=1"},
		{"http://x/a?b=1", "http://x/a?b=1"},
		{"http://x/a?my_api_key=abc&b=1", "http://x/a?my_api_key=abc&b=1"},
		{"http://x/a?my_api_key=abc&api_key=def", "http://x/a?api_key=REDACTED&my_api_key=abc"},
		{"http://x/%zz?api_key=abc", "<invalid url>"},
	}
	for _, tt := range tests {
		if got := redact(tt.in); got != tt.want {
			t.Errorf("redact(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
