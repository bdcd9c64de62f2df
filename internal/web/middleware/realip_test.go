package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func realIPSeen(t *testing.T, trusted []string, remoteAddr, realIPHeader string) string {
	t.Helper()
	var seen string
	handler := TrustedRealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
	}))

	req := httptest.NewRequest("GET", "/api/convert", nil)
	req.RemoteAddr = remoteAddr
	if realIPHeader != "" {
		req.Header.Set("X-Real-IP", realIPHeader)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return seen
}

func TestTrustedRealIP_AcceptsHeaderFromTrustedProxy(t *testing.T) {
	got := realIPSeen(t, []string{"10.0.0.0/8"}, "10.1.2.3:5000", "203.0.113.7")
	if got != "203.0.113.7" {
		t.Errorf("RemoteAddr = %q, want header IP", got)
	}
}

func TestTrustedRealIP_IgnoresHeaderFromUntrustedClient(t *testing.T) {
	got := realIPSeen(t, []string{"10.0.0.0/8"}, "198.51.100.9:5000", "203.0.113.7")
	if got != "198.51.100.9:5000" {
		t.Errorf("RemoteAddr = %q, want original address", got)
	}
}

func TestTrustedRealIP_RejectsInvalidHeaderValue(t *testing.T) {
	got := realIPSeen(t, []string{"10.0.0.0/8"}, "10.1.2.3:5000", "not-an-ip")
	if got != "10.1.2.3:5000" {
		t.Errorf("RemoteAddr = %q, want original address", got)
	}
}

func TestTrustedRealIP_SingleIPTrustEntry(t *testing.T) {
	// A bare IP in the trust list is treated as a /32
	got := realIPSeen(t, []string{"127.0.0.1"}, "127.0.0.1:9999", "203.0.113.7")
	if got != "203.0.113.7" {
		t.Errorf("RemoteAddr = %q, want header IP", got)
	}
}

func TestTrustedRealIP_ForwardedForFallback(t *testing.T) {
	var seen string
	handler := TrustedRealIP([]string{"10.0.0.0/8"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
	}))

	req := httptest.NewRequest("GET", "/api/convert", nil)
	req.RemoteAddr = "10.1.2.3:5000"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.1.2.3")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "203.0.113.7" {
		t.Errorf("RemoteAddr = %q, want first forwarded IP", seen)
	}
}
