package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"venuehub/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFCMClient(server *httptest.Server) *FCMClient {
	return NewFCMClient(config.PushConfig{
		FCMServerKey:    "server-key-1",
		FCMEndpoint:     server.URL,
		ProviderTimeout: 5 * time.Second,
	})
}

func TestFCMClientSend(t *testing.T) {
	var (
		gotAuth        string
		gotContentType string
		gotBody        map[string]interface{}
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestFCMClient(server)
	err := client.Send(context.Background(), "reg-token-1", RenderedPayload{
		Title:          "Hi Ada",
		Body:           "Happy hour starts now",
		URL:            "https://venuehub.app/push/open?t=abc",
		Icon:           "https://venuehub.app/icon.png",
		Badge:          2,
		ClickToken:     "abc",
		NotificationID: "65f0c0ffee",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer server-key-1", gotAuth)
	assert.Equal(t, "application/json", gotContentType)

	assert.Equal(t, "reg-token-1", gotBody["to"])
	assert.Equal(t, "high", gotBody["priority"])

	notification, ok := gotBody["notification"].(map[string]interface{})
	require.True(t, ok, "body must carry a notification block")
	assert.Equal(t, "Hi Ada", notification["title"])
	assert.Equal(t, "Happy hour starts now", notification["body"])
	assert.Equal(t, "https://venuehub.app/icon.png", notification["icon"])
	assert.Equal(t, "2", notification["badge"], "badge travels as a string on this API")
	assert.Equal(t, "https://venuehub.app/push/open?t=abc", notification["click_action"])
	assert.Equal(t, "65f0c0ffee", notification["tag"])

	data, ok := gotBody["data"].(map[string]interface{})
	require.True(t, ok, "body must carry a data block")
	assert.Equal(t, "abc", data["click_token"])
	assert.Equal(t, "65f0c0ffee", data["notification_id"])
	assert.Equal(t, "https://venuehub.app/push/open?t=abc", data["url"])
}

func TestFCMClientOmitsZeroBadge(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestFCMClient(server)
	require.NoError(t, client.Send(context.Background(), "tok", RenderedPayload{Title: "t", Body: "b"}))

	notification := gotBody["notification"].(map[string]interface{})
	_, present := notification["badge"]
	assert.False(t, present, "zero badge must not be sent")
}

func TestFCMClientSendErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		permanent bool
	}{
		{name: "not registered", status: http.StatusNotFound, body: "NotRegistered", permanent: true},
		{name: "gone", status: http.StatusGone, body: "Gone", permanent: true},
		{name: "unavailable", status: http.StatusServiceUnavailable, body: "Unavailable", permanent: false},
		{name: "bad auth", status: http.StatusUnauthorized, body: "", permanent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestFCMClient(server)
			err := client.Send(context.Background(), "tok", RenderedPayload{Title: "t", Body: "b"})
			require.Error(t, err)

			provErr, ok := err.(*ProviderError)
			require.True(t, ok)
			assert.Equal(t, "fcm", provErr.Provider)
			assert.Equal(t, tt.status, provErr.StatusCode)
			if tt.body != "" {
				assert.Equal(t, tt.body, provErr.Reason)
			}
			assert.Equal(t, tt.permanent, IsPermanentFailure(err))
		})
	}
}

func TestFCMClientTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse the connection

	client := newTestFCMClient(server)
	err := client.Send(context.Background(), "tok", RenderedPayload{Title: "t", Body: "b"})
	require.Error(t, err)

	provErr, ok := err.(*ProviderError)
	require.True(t, ok)
	assert.Zero(t, provErr.StatusCode)
	assert.False(t, IsPermanentFailure(err), "an unreachable provider must never kill a registration")
}
