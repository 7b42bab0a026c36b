//go:build integration

package integration

import (
	"context"
	"net/http"
	"strconv"
	"testing"
)

func doGetWithHeaders(t *testing.T, method, path string, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, baseURL+path, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestRequestID(t *testing.T) {
	t.Run("generated when absent", func(t *testing.T) {
		resp := doGet(t, "/livez")
		defer resp.Body.Close()

		if resp.Header.Get("X-Request-ID") == "" {
			t.Fatal("X-Request-ID header not present")
		}
	})

	t.Run("echoed when supplied", func(t *testing.T) {
		resp := doGetWithHeaders(t, http.MethodGet, "/livez", map[string]string{
			"X-Request-ID": "custom-request-id-12345",
		})
		defer resp.Body.Close()

		if got := resp.Header.Get("X-Request-ID"); got != "custom-request-id-12345" {
			t.Errorf("X-Request-ID: got %q, want %q", got, "custom-request-id-12345")
		}
	})
}

func TestCORS(t *testing.T) {
	t.Run("preflight", func(t *testing.T) {
		resp := doGetWithHeaders(t, http.MethodOptions, "/api/products", map[string]string{
			"Origin":                        "http://example.com",
			"Access-Control-Request-Method": "GET",
		})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}
		if resp.Header.Get("Access-Control-Allow-Origin") == "" {
			t.Error("Access-Control-Allow-Origin header not present")
		}
		if resp.Header.Get("Access-Control-Allow-Methods") == "" {
			t.Error("Access-Control-Allow-Methods header not present")
		}
	})

	t.Run("simple request", func(t *testing.T) {
		resp := doGetWithHeaders(t, http.MethodGet, "/api/products", map[string]string{
			"Origin": "http://example.com",
		})
		defer resp.Body.Close()

		if resp.Header.Get("Access-Control-Allow-Origin") == "" {
			t.Error("Access-Control-Allow-Origin header not present")
		}
	})
}

func TestRateLimitHeaders(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	limit, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	if err != nil {
		t.Fatalf("X-RateLimit-Limit not a number: %v", err)
	}
	remaining, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	if err != nil {
		t.Fatalf("X-RateLimit-Remaining not a number: %v", err)
	}
	if remaining >= limit {
		t.Errorf("remaining %d not below limit %d", remaining, limit)
	}
	if resp.Header.Get("X-RateLimit-Reset") == "" {
		t.Error("X-RateLimit-Reset header not present")
	}
}
