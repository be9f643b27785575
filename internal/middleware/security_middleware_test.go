package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
	"github.com/yasinhessnawi1/hideme-auth/internal/middleware"
	"github.com/yasinhessnawi1/hideme-auth/internal/utils/ratelimit"
)

// SecurityMockHandler is a simple HTTP handler for testing security middleware
type SecurityMockHandler struct {
	Calls int
}

// ServeHTTP implements the http.Handler interface
func (h *SecurityMockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Calls++
	w.WriteHeader(http.StatusOK)
}

func newTestStore(t *testing.T, burst int) *ratelimit.Store {
	t.Helper()
	// A very slow refill keeps the bucket empty for the length of the test
	store := ratelimit.NewStore(ratelimit.Rate{RequestsPerSecond: 0.01, Burst: burst}, 0, time.Minute)
	t.Cleanup(store.Stop)
	return store
}

func serve(handler http.Handler, path, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		requests       int
		expectedStatus int
		expectedCalls  int
	}{
		{
			name:           "Within burst",
			path:           "/api/v1/users/login",
			requests:       2,
			expectedStatus: http.StatusOK,
			expectedCalls:  2,
		},
		{
			name:           "Burst exhausted",
			path:           "/api/v1/users/login",
			requests:       3,
			expectedStatus: http.StatusTooManyRequests,
			expectedCalls:  2,
		},
		{
			name:           "Exempted path",
			path:           "/health",
			requests:       5,
			expectedStatus: http.StatusOK,
			expectedCalls:  5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockHandler := &SecurityMockHandler{}
			handler := middleware.RateLimit(newTestStore(t, 2), "api")(mockHandler)

			var rr *httptest.ResponseRecorder
			for i := 0; i < tt.requests; i++ {
				rr = serve(handler, tt.path, "192.168.1.1:12345", nil)
			}

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectedCalls, mockHandler.Calls)
		})
	}
}

func TestRateLimitResponse(t *testing.T) {
	handler := middleware.RateLimit(newTestStore(t, 1), "api")(&SecurityMockHandler{})

	serve(handler, "/api/v1/users/login", "192.168.1.1:12345", nil)
	rr := serve(handler, "/api/v1/users/login", "192.168.1.1:12345", nil)

	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(constants.HeaderRetryAfter))
	assert.NotEqual(t, "0", rr.Header().Get(constants.HeaderRetryAfter))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, constants.StatusFail, body["status"])
	assert.Equal(t, constants.MsgTooManyRequests, body["message"])
}

func TestRateLimitKeysByClientIP(t *testing.T) {
	mockHandler := &SecurityMockHandler{}
	handler := middleware.RateLimit(newTestStore(t, 1), "api")(mockHandler)

	assert.Equal(t, http.StatusOK, serve(handler, "/api/x", "10.0.0.1:1000", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "/api/x", "10.0.0.1:2000", nil).Code)

	// Another client behind the same proxy gets its own bucket
	assert.Equal(t, http.StatusOK, serve(handler, "/api/x", "10.0.0.1:3000", map[string]string{
		"X-Forwarded-For": "203.0.113.7, 10.0.0.1",
	}).Code)
	assert.Equal(t, http.StatusOK, serve(handler, "/api/x", "10.0.0.1:3000", map[string]string{
		"X-Real-IP": "203.0.113.8",
	}).Code)

	assert.Equal(t, 3, mockHandler.Calls)
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name string
		hsts bool
	}{
		{name: "Without HSTS", hsts: false},
		{name: "With HSTS", hsts: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.SecurityHeaders(tt.hsts)(&SecurityMockHandler{})
			rr := serve(handler, "/api/v1/users/me", "127.0.0.1:1", nil)

			assert.Equal(t, constants.ContentTypeOptionsNoSniff, rr.Header().Get(constants.HeaderXContentTypeOptions))
			assert.Equal(t, constants.FrameOptionsDeny, rr.Header().Get(constants.HeaderXFrameOptions))
			assert.Equal(t, constants.XSSProtectionModeBlock, rr.Header().Get(constants.HeaderXXSSProtection))
			assert.Equal(t, constants.ReferrerPolicyStrictOrigin, rr.Header().Get(constants.HeaderReferrerPolicy))
			assert.Equal(t, constants.CSPDefaultSrc, rr.Header().Get(constants.HeaderContentSecurityPolicy))

			if tt.hsts {
				assert.Equal(t, constants.HSTSMaxAge, rr.Header().Get(constants.HeaderStrictTransportSecurity))
			} else {
				assert.Empty(t, rr.Header().Get(constants.HeaderStrictTransportSecurity))
			}
		})
	}
}
