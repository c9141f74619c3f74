package shield

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/ardoise/kit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func TestSecurityHeaders_AllSet(t *testing.T) {
	handler := SecurityHeaders(DefaultHeaders())(okHandler())
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	checks := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, want := range checks {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s: got %q, want %q", header, got, want)
		}
	}
	if csp := w.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "connect-src 'self' ws: wss:") {
		t.Errorf("CSP should allow websocket connections, got %q", csp)
	}
}

func TestSecurityHeaders_EmptyFieldSkipped(t *testing.T) {
	cfg := DefaultHeaders()
	cfg.CSP = ""
	handler := SecurityHeaders(cfg)(okHandler())
	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Content-Security-Policy"); got != "" {
		t.Errorf("empty CSP should not be set, got %q", got)
	}
}

func TestHeadToGet(t *testing.T) {
	var seenMethod string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenMethod = r.Method
		w.WriteHeader(http.StatusOK)
	})

	handler := HeadToGet(inner)
	req := httptest.NewRequest("HEAD", "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seenMethod != http.MethodGet {
		t.Errorf("expected inner handler to see GET, got %q", seenMethod)
	}
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestMaxJSONBody_LimitsJSON(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		if _, err := r.Body.Read(buf); err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	handler := MaxJSONBody(8)(inner)
	req := httptest.NewRequest("POST", "/restore", strings.NewReader(`[{"id":"a"},{"id":"b"}]`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized JSON body should be rejected, got %d", w.Code)
	}
}

func TestMaxJSONBody_IgnoresOtherTypes(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		r.Body.Read(buf)
		w.WriteHeader(http.StatusOK)
	})

	handler := MaxJSONBody(2)(inner)
	req := httptest.NewRequest("POST", "/", strings.NewReader("plain text body over limit"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("non-JSON body should pass through, got %d", w.Code)
	}
}

func TestTraceID_InjectsIDAndLogger(t *testing.T) {
	var gotTrace string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = kit.GetTraceID(r.Context())
		if GetLogger(r.Context()) == nil {
			t.Error("expected per-request logger in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	handler := TraceID(inner)
	req := httptest.NewRequest("GET", "/stats", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if gotTrace == "" {
		t.Fatal("expected trace ID in request context")
	}
	if len(gotTrace) != 8 {
		t.Errorf("trace ID should be 8 hex chars, got %q", gotTrace)
	}
	if hdr := w.Header().Get("X-Trace-ID"); hdr != gotTrace {
		t.Errorf("X-Trace-ID header %q should match context trace %q", hdr, gotTrace)
	}
}

func TestTraceID_UniquePerRequest(t *testing.T) {
	handler := TraceID(okHandler())

	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		id := w.Header().Get("X-Trace-ID")
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate trace ID %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestGetLogger_Fallback(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if GetLogger(req.Context()) == nil {
		t.Fatal("GetLogger should fall back to slog.Default")
	}
}
