package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dim/pkg/requestcontext"
)

func TestMiddlewareHandler(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trusted    []string
		wantIP     string
	}{
		{
			name:       "ignores XFF from untrusted peers",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1"},
			remoteAddr: "192.168.1.1:12345",
			wantIP:     "192.168.1.1",
		},
		{
			name:       "uses left-most XFF entry from a trusted proxy",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.2"},
			remoteAddr: "10.0.0.1:12345",
			trusted:    []string{"10.0.0.0/8"},
			wantIP:     "203.0.113.1",
		},
		{
			name:       "uses X-Real-IP from a trusted proxy",
			headers:    map[string]string{"X-Real-IP": "198.51.100.7"},
			remoteAddr: "10.0.0.1:12345",
			trusted:    []string{"10.0.0.0/8"},
			wantIP:     "198.51.100.7",
		},
		{
			name:       "falls back on malformed XFF",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			remoteAddr: "10.0.0.1:12345",
			trusted:    []string{"10.0.0.0/8"},
			wantIP:     "10.0.0.1",
		},
		{
			name:       "strips ipv6 brackets and port",
			remoteAddr: "[2001:db8::1]:443",
			wantIP:     "2001:db8::1",
		},
		{
			name:   "unknown without a remote address",
			wantIP: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefixes, err := ParseTrustedProxies(tt.trusted)
			require.NoError(t, err)

			var gotIP, gotUA string
			handler := NewMiddleware(&Config{TrustedProxies: prefixes}).Handler(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				gotIP = requestcontext.ClientIP(r.Context())
				gotUA = requestcontext.UserAgent(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set("User-Agent", "curl/8.5.0")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.wantIP, gotIP)
			assert.Equal(t, "curl/8.5.0", gotUA)
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := ParseTrustedProxies([]string{" 10.0.0.0/8 ", "", "fd00::/8"})
	require.NoError(t, err)
	assert.Len(t, prefixes, 2)

	_, err = ParseTrustedProxies([]string{"10.0.0.1"})
	assert.Error(t, err)
}
