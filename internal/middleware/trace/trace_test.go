package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMiddlewareAssignsRequestIDAndObserves(t *testing.T) {
	var (
		gotRoute  string
		gotStatus int
		seenID    string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})
	m := NewMiddleware(nil, nil, func(method, route string, status int, d time.Duration) {
		gotRoute, gotStatus = route, status
	})

	rec := httptest.NewRecorder()
	m.Middleware(mux).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/things/7", nil))

	if _, err := uuid.Parse(seenID); err != nil {
		t.Fatalf("handler saw no request id: %q", seenID)
	}
	if rec.Header().Get(HeaderRequestID) != seenID {
		t.Fatal("request id not echoed in response")
	}
	if gotRoute != "GET /api/things/{id}" || gotStatus != http.StatusTeapot {
		t.Fatalf("observed route=%q status=%d", gotRoute, gotStatus)
	}
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	id := uuid.NewString()
	m := NewMiddleware(nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, id)
	rec := httptest.NewRecorder()
	m.Middleware(http.NotFoundHandler()).ServeHTTP(rec, req)
	if rec.Header().Get(HeaderRequestID) != id {
		t.Fatalf("incoming id replaced: %q", rec.Header().Get(HeaderRequestID))
	}

	req.Header.Set(HeaderRequestID, "not-a-uuid\n")
	rec = httptest.NewRecorder()
	m.Middleware(http.NotFoundHandler()).ServeHTTP(rec, req)
	if rec.Header().Get(HeaderRequestID) == "not-a-uuid\n" {
		t.Fatal("malformed incoming id should be replaced")
	}
}
