package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	applog "analizador/internal/log"
)

type recordingObserver struct {
	method string
	status int
	calls  int
}

func (o *recordingObserver) ObserveRequest(method string, status int, _ time.Duration) {
	o.method, o.status = method, status
	o.calls++
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	obs := &recordingObserver{}
	var seen string
	h := NewMiddleware(nil, func(*http.Request) string { return "1.2.3.4" }, obs).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
			if applog.FromContext(r.Context()).Component() != applog.ComponentTrace {
				t.Errorf("request logger not installed")
			}
			w.WriteHeader(http.StatusTeapot)
		}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", seen, err)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header %q != context id %q", rr.Header().Get(HeaderRequestID), seen)
	}
	if obs.calls != 1 || obs.status != http.StatusTeapot || obs.method != http.MethodGet {
		t.Errorf("observer got %+v", obs)
	}
}

func TestMiddlewareKeepsIncomingID(t *testing.T) {
	incoming := uuid.NewString()
	var seen string
	h := NewMiddleware(nil, nil, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, incoming)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != incoming {
		t.Fatalf("got %q want %q", seen, incoming)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "not-a-uuid<script>")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "not-a-uuid<script>" {
		t.Fatal("malformed ids must be replaced")
	}
}

func TestStatusDefaultsToOK(t *testing.T) {
	obs := &recordingObserver{}
	h := NewMiddleware(nil, nil, obs).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if obs.status != http.StatusOK {
		t.Fatalf("expected 200, got %d", obs.status)
	}
}
