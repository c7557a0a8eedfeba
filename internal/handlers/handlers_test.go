package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"permitscope/internal/dataset"
	"permitscope/internal/metrics"
	"permitscope/internal/session"
)

func newSessionApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := session.NewManager(clockwork.NewFakeClock(), time.Hour, logger, metrics.New(prometheus.NewRegistry()))

	app := fiber.New()
	app.Get("/whoami", SessionMiddleware(mgr), func(c fiber.Ctx) error {
		s := SessionFromCtx(c)
		if s == nil {
			return fiber.ErrInternalServerError
		}
		return c.SendString(s.ID)
	})
	return app
}

func TestSessionMiddleware_SetsCookieAndReusesSession(t *testing.T) {
	app := newSessionApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var cookie string
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			cookie = c.Value
		}
	}
	if cookie == "" {
		t.Fatal("expected session cookie to be set")
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != cookie {
		t.Errorf("session ID %q does not match cookie %q", body, cookie)
	}

	// Replaying the cookie keeps the same session.
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Cookie", SessionCookie+"="+cookie)
	resp2, err := app.Test(req)
	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	defer resp2.Body.Close()

	body2, _ := io.ReadAll(resp2.Body)
	if string(body2) != cookie {
		t.Errorf("expected session %q to be reused, got %q", cookie, body2)
	}
}

func TestSessionMiddleware_UnknownCookieGetsFreshSession(t *testing.T) {
	app := newSessionApp(t)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Cookie", SessionCookie+"=no-such-session")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) == "no-such-session" {
		t.Error("expected a fresh session for an unknown cookie")
	}
}

func TestProbes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	registry := dataset.NewRegistry(dir, nil, logger)

	app := fiber.New()
	probe := NewProbeHandler(dir, registry)
	app.Get("/healthz", probe.Liveness)
	app.Get("/readyz", probe.Readiness)

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil))
	if err != nil {
		t.Fatalf("liveness request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("liveness = %d, want 200", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/readyz", nil))
	if err != nil {
		t.Fatalf("readiness request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("readiness = %d, want 200", resp.StatusCode)
	}
}

func TestReadiness_MissingDataDir(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := dataset.NewRegistry("/no/such/dir", nil, logger)

	app := fiber.New()
	probe := NewProbeHandler("/no/such/dir", registry)
	app.Get("/readyz", probe.Readiness)

	resp, err := app.Test(httptest.NewRequest("GET", "/readyz", nil))
	if err != nil {
		t.Fatalf("readiness request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("readiness = %d, want 503", resp.StatusCode)
	}
}
