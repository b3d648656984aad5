package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

const payload = `{"data":[{"id":"p1","name":"Awa Ndiaye","region":"Thies"}]}`

func compressed(t *testing.T, accept string) *httptest.ResponseRecorder {
	t.Helper()
	h := Compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", "999")
		_, _ = io.WriteString(w, payload)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/producers", nil)
	if accept != "" {
		req.Header.Set("Accept-Encoding", accept)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestNegotiateEncoding(t *testing.T) {
	tests := []struct {
		accept string
		want   string
	}{
		{"", ""},
		{"gzip", "gzip"},
		{"gzip, deflate, br", "br"},
		{"br;q=0, gzip", "gzip"},
		{"identity", ""},
		{"GZIP;q=0.5", "gzip"},
	}
	for _, tt := range tests {
		if got := negotiateEncoding(tt.accept); got != tt.want {
			t.Errorf("negotiateEncoding(%q) = %q, want %q", tt.accept, got, tt.want)
		}
	}
}

func TestCompress_Gzip(t *testing.T) {
	rr := compressed(t, "gzip")
	if rr.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q", rr.Header().Get("Content-Encoding"))
	}
	if rr.Header().Get("Content-Length") != "" {
		t.Error("Content-Length should be dropped")
	}
	zr, err := gzip.NewReader(rr.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	body, _ := io.ReadAll(zr)
	if string(body) != payload {
		t.Errorf("body = %q", body)
	}
}

func TestCompress_Brotli(t *testing.T) {
	rr := compressed(t, "gzip, br")
	if rr.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("Content-Encoding = %q", rr.Header().Get("Content-Encoding"))
	}
	body, err := io.ReadAll(brotli.NewReader(rr.Body))
	if err != nil {
		t.Fatalf("brotli read: %v", err)
	}
	if string(body) != payload {
		t.Errorf("body = %q", body)
	}
}

func TestCompress_Identity(t *testing.T) {
	rr := compressed(t, "")
	if rr.Header().Get("Content-Encoding") != "" {
		t.Errorf("unexpected encoding %q", rr.Header().Get("Content-Encoding"))
	}
	if rr.Body.String() != payload {
		t.Errorf("body = %q", rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("Vary"), "Accept-Encoding") {
		t.Error("Vary header missing")
	}
}
