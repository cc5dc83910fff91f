package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cruddemo/modules/clock"
	rl "cruddemo/modules/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }
	mux.HandleFunc("GET /api/employees", ok)
	mux.HandleFunc("GET /api/employees/{id}", ok)
	mux.HandleFunc("POST /api/employees", ok)
	return mux
}

func newHandler(t *testing.T, cfg *RestHTTPConfig) http.Handler {
	t.Helper()
	mux := newMux()
	factory := rl.TokenBucketFactory(clock.NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	rtp, err := ParsePolicy(factory, cfg, ServeMuxRouteInfo(mux), map[KeyStrategyId]KeyFunc{
		"remote_ip": RemoteIpKeyFunc,
	})
	require.NoError(t, err)
	return NewRateLimitMiddleware(rtp)(mux)
}

func get(h http.Handler, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_RoutePolicy(t *testing.T) {
	t.Parallel()
	h := newHandler(t, &RestHTTPConfig{
		Routes: []Route{{
			Pattern:       "/api/employees/{id}",
			EndpointRules: []EndpointRule{{Method: "get", Limit: 2, Window: time.Minute, KeyStrategy: "remote_ip"}},
		}},
		AllowIfNoMatch: true,
	})

	for _, path := range []string{"/api/employees/1", "/api/employees/2"} {
		rec := get(h, path, "10.0.0.1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := get(h, "/api/employees/3", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusOK, get(h, "/api/employees/3", "10.0.0.2").Code)

	// no policy for the collection route
	rec = get(h, "/api/employees", "10.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestMiddleware_DefaultPolicy(t *testing.T) {
	t.Parallel()
	h := newHandler(t, &RestHTTPConfig{
		DefaultPolicy: EndpointRule{Limit: 1, Window: time.Hour, KeyStrategy: "remote_ip"},
	})

	assert.Equal(t, http.StatusOK, get(h, "/api/employees", "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(h, "/api/employees/1", "10.0.0.1").Code)
}

func TestMiddleware_DenyWithoutMatch(t *testing.T) {
	t.Parallel()
	h := newHandler(t, &RestHTTPConfig{AllowIfNoMatch: false})

	assert.Equal(t, http.StatusTooManyRequests, get(h, "/api/employees", "10.0.0.1").Code)
}

func TestParsePolicy_Errors(t *testing.T) {
	t.Parallel()
	factory := rl.TokenBucketFactory(clock.RealClockProvider())
	strategies := map[KeyStrategyId]KeyFunc{"remote_ip": RemoteIpKeyFunc}

	_, err := ParsePolicy(factory, &RestHTTPConfig{
		Routes: []Route{{Pattern: "/x", EndpointRules: []EndpointRule{
			{Method: "GET", KeyStrategy: "remote_ip"},
			{Method: "get", KeyStrategy: "remote_ip"},
		}}},
	}, nil, strategies)
	assert.Error(t, err)

	_, err = ParsePolicy(factory, &RestHTTPConfig{
		DefaultPolicy: EndpointRule{Window: time.Minute, KeyStrategy: "api_key"},
	}, nil, strategies)
	assert.Error(t, err)
}

func TestRemoteIpKeyFunc(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, rl.Key("192.0.2.1"), RemoteIpKeyFunc(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 198.51.100.7")
	assert.Equal(t, rl.Key("198.51.100.7"), RemoteIpKeyFunc(req))
}
