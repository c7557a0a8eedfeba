package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"permitscope/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:           "development",
		ServerAddr:    ":0",
		BaseURL:       "http://localhost:3000",
		SessionSecret: "test-secret",
		SiteTitle:     "Permitscope",
	}
}

// TestAPIErrorsUseJSONEnvelope verifies that errors under /api/ come back
// as the JSON envelope instead of the HTML error page.
func TestAPIErrorsUseJSONEnvelope(t *testing.T) {
	srv := New(testConfig())

	resp, err := srv.App.Test(httptest.NewRequest("GET", "/api/no-such-route", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body.Status != "error" {
		t.Errorf("status field = %q, want %q", body.Status, "error")
	}
	if body.Error == "" {
		t.Error("expected an error message")
	}
}

func TestDeriveEncryptionKey(t *testing.T) {
	k1 := deriveEncryptionKey("secret-one")
	k2 := deriveEncryptionKey("secret-two")

	if k1 == k2 {
		t.Error("different secrets must derive different keys")
	}
	if deriveEncryptionKey("secret-one") != k1 {
		t.Error("key derivation must be deterministic")
	}
}
