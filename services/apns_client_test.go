package services

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"venuehub/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSigningKeyPEM(t *testing.T) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, pem.Encode(&sb, &pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
	return sb.String()
}

func newTestAPNSClient(t *testing.T, server *httptest.Server) *APNSClient {
	t.Helper()

	client, err := NewAPNSClient(config.PushConfig{
		APNSKeyPEM:      testSigningKeyPEM(t),
		APNSKeyID:       "KEY123",
		APNSTeamID:      "TEAM456",
		APNSTopic:       "app.venuehub.member",
		APNSEndpoint:    server.URL,
		ProviderTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	// The test server negotiates h2 over TLS with its own certificate, so
	// the client needs the server's trust-configured transport.
	client.httpClient = server.Client()
	return client
}

func startAPNSServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewUnstartedServer(handler)
	server.EnableHTTP2 = true
	server.StartTLS()
	t.Cleanup(server.Close)
	return server
}

func TestAPNSClientSend(t *testing.T) {
	var (
		gotPath    string
		gotHeaders http.Header
		gotBody    map[string]interface{}
	)

	server := startAPNSServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusOK)
	})

	client := newTestAPNSClient(t, server)

	err := client.Send(context.Background(), "device-token-1", RenderedPayload{
		Title:          "Hi Ada",
		Body:           "Your table is ready",
		URL:            "https://venuehub.app/push/open?t=abc",
		Badge:          3,
		ClickToken:     "abc",
		NotificationID: "65f0c0ffee",
	})
	require.NoError(t, err)

	assert.Equal(t, "/3/device/device-token-1", gotPath)
	assert.Equal(t, "app.venuehub.member", gotHeaders.Get("apns-topic"))
	assert.Equal(t, "alert", gotHeaders.Get("apns-push-type"))
	assert.Equal(t, "10", gotHeaders.Get("apns-priority"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))

	aps, ok := gotBody["aps"].(map[string]interface{})
	require.True(t, ok, "body must carry an aps dictionary")
	alert, ok := aps["alert"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Hi Ada", alert["title"])
	assert.Equal(t, "Your table is ready", alert["body"])
	assert.Equal(t, float64(3), aps["badge"])
	assert.Equal(t, "default", aps["sound"])
	assert.Equal(t, float64(1), aps["mutable-content"])
	assert.Equal(t, "abc", gotBody["click_token"])
	assert.Equal(t, "65f0c0ffee", gotBody["notification_id"])
	assert.Equal(t, "https://venuehub.app/push/open?t=abc", gotBody["url"])
}

func TestAPNSClientProviderToken(t *testing.T) {
	var gotAuth string
	server := startAPNSServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	})

	client := newTestAPNSClient(t, server)
	require.NoError(t, client.Send(context.Background(), "tok", RenderedPayload{Title: "t", Body: "b"}))

	require.True(t, strings.HasPrefix(gotAuth, "bearer "), "authorization must use the lowercase bearer scheme")
	bearer := strings.TrimPrefix(gotAuth, "bearer ")

	parts := strings.Split(bearer, ".")
	require.Len(t, parts, 3, "bearer credential must be a compact JWT")

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	var header map[string]interface{}
	require.NoError(t, json.Unmarshal(headerJSON, &header))
	assert.Equal(t, "ES256", header["alg"])
	assert.Equal(t, "KEY123", header["kid"])

	claimsJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, json.Unmarshal(claimsJSON, &claims))
	assert.Equal(t, "TEAM456", claims["iss"])
	assert.InDelta(t, float64(time.Now().Unix()), claims["iat"], 60)

	// A second send within the reuse window must not mint a new token.
	first := bearer
	require.NoError(t, client.Send(context.Background(), "tok", RenderedPayload{Title: "t", Body: "b"}))
	assert.Equal(t, "bearer "+first, gotAuth)
}

func TestAPNSClientSendRejections(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason string
		permanent  bool
	}{
		{name: "gone device", status: http.StatusGone, body: `{"reason":"Unregistered"}`, wantReason: "Unregistered", permanent: true},
		{name: "bad token", status: http.StatusNotFound, body: `{"reason":"BadDeviceToken"}`, wantReason: "BadDeviceToken", permanent: true},
		{name: "throttled", status: http.StatusTooManyRequests, body: `{"reason":"TooManyRequests"}`, wantReason: "TooManyRequests", permanent: false},
		{name: "server error without body", status: http.StatusInternalServerError, body: "", permanent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startAPNSServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			client := newTestAPNSClient(t, server)
			err := client.Send(context.Background(), "tok", RenderedPayload{Title: "t", Body: "b"})
			require.Error(t, err)

			provErr, ok := err.(*ProviderError)
			require.True(t, ok)
			assert.Equal(t, "apns", provErr.Provider)
			assert.Equal(t, tt.status, provErr.StatusCode)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, provErr.Reason)
			}
			assert.Equal(t, tt.permanent, IsPermanentFailure(err))
		})
	}
}

func TestNewAPNSClientRejectsBadKey(t *testing.T) {
	_, err := NewAPNSClient(config.PushConfig{APNSKeyPEM: "not a pem"})
	assert.Error(t, err)
}
