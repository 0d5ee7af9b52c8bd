package r2s3

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type bucket struct {
	mu      sync.Mutex
	objects map[string]string
	headers map[string]http.Header
	fail    bool
}

func newBucket(t *testing.T) (*bucket, *httptest.Server) {
	t.Helper()
	b := &bucket{objects: map[string]string{}, headers: map[string]http.Header{}}
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.fail || r.Method != http.MethodPut {
			http.Error(rw, "nope", http.StatusInternalServerError)
			return
		}
		b.objects[r.URL.Path] = string(body)
		b.headers[r.URL.Path] = r.Header.Clone()
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *bucket) get(key string) (string, http.Header) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.objects[key], b.headers[key]
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestMirrorUploadsUnderPrefix(t *testing.T) {
	b, srv := newBucket(t)
	cl, err := New(Config{Endpoint: srv.URL, Bucket: "logs", AccessKeyID: "AK", SecretAccessKey: "SK"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dir := t.TempDir()
	local := filepath.Join(dir, "events", "events-2026-03-01-10.jsonl.zst")
	writeFile(t, local, "frame")

	m := NewMirror(cl, Options{DataDir: dir, Prefix: "/prod/"}, nil)
	m.Enqueue(local)
	m.Close()

	const key = "/logs/prod/events/events-2026-03-01-10.jsonl.zst"
	body, h := b.get(key)
	if body != "frame" {
		t.Fatalf("body=%q", body)
	}
	if !strings.HasPrefix(h.Get("Authorization"), "AWS4-HMAC-SHA256 Credential=AK/") ||
		!strings.Contains(h.Get("Authorization"), "/auto/s3/aws4_request") {
		t.Fatalf("authorization=%q", h.Get("Authorization"))
	}
	if h.Get("Content-Type") != "application/zstd" || h.Get("x-amz-content-sha256") == "" {
		t.Fatalf("headers=%v", h)
	}
	if s := m.Stats(); s.UploadSuccessTotal != 1 || s.UploadFailTotal != 0 {
		t.Fatalf("stats=%+v", s)
	}

	// Closed mirrors ignore late files.
	m.Enqueue(local)
	if s := m.Stats(); s.EnqueuedTotal != 1 {
		t.Fatalf("enqueued after close: %+v", s)
	}
}

func TestMirrorCountsFailures(t *testing.T) {
	b, srv := newBucket(t)
	b.mu.Lock()
	b.fail = true
	b.mu.Unlock()
	cl, err := New(Config{Endpoint: srv.URL, Bucket: "logs", AccessKeyID: "AK", SecretAccessKey: "SK"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dir := t.TempDir()
	local := filepath.Join(dir, "events", "a.jsonl.zst")
	writeFile(t, local, "x")

	m := NewMirror(cl, Options{DataDir: dir, Attempts: 2, RetryBackoff: time.Millisecond}, nil)
	m.Enqueue(local)
	m.Enqueue(filepath.Join(t.TempDir(), "outside.jsonl.zst"))
	m.Close()

	if s := m.Stats(); s.UploadFailTotal != 2 || s.UploadSuccessTotal != 0 || s.LastErrorUnix == 0 {
		t.Fatalf("stats=%+v", s)
	}
}

func TestSigningIsDeterministic(t *testing.T) {
	cl, err := New(Config{Endpoint: "r2.example.com", Bucket: "b", AccessKeyID: "AK", SecretAccessKey: "SK", Region: "eu"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cl.endpoint != "https://r2.example.com" {
		t.Fatalf("endpoint=%s", cl.endpoint)
	}
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sign := func() string {
		req, _ := http.NewRequest(http.MethodPut, cl.endpoint+"/b/k", nil)
		cl.sign(req, "/b/k", sha256Hex(nil), at)
		return req.Header.Get("Authorization")
	}
	a, b := sign(), sign()
	if a != b || !strings.Contains(a, "Credential=AK/20260301/eu/s3/aws4_request") {
		t.Fatalf("a=%q b=%q", a, b)
	}
}

func TestConfigValidation(t *testing.T) {
	env := map[string]string{"SR_ARCHIVE_ENDPOINT": " r2.example.com ", "SR_ARCHIVE_BUCKET": "b"}
	cfg := ConfigFromEnv(func(k string) string { return env[k] })
	if cfg.Endpoint != "r2.example.com" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if _, err := New(cfg); err == nil {
		t.Fatalf("missing credentials should fail")
	}
	if got := normalizeObjectKey("../../etc/passwd"); got != "etc/passwd" {
		t.Fatalf("normalize=%q", got)
	}
}
