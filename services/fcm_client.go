package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"venuehub/config"
)

// FCMClient sends pushes to the server-key provider over its legacy HTTP API.
// Completely stateless: one POST per device, authenticated with the static
// server key.
type FCMClient struct {
	httpClient *http.Client
	endpoint   string
	serverKey  string
}

type fcmNotification struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	Icon        string `json:"icon,omitempty"`
	Badge       string `json:"badge,omitempty"`
	ClickAction string `json:"click_action,omitempty"`
	Tag         string `json:"tag,omitempty"`
}

type fcmData struct {
	URL            string `json:"url,omitempty"`
	ClickToken     string `json:"click_token"`
	NotificationID string `json:"notification_id"`
}

type fcmRequestBody struct {
	To           string          `json:"to"`
	Priority     string          `json:"priority"`
	Notification fcmNotification `json:"notification"`
	Data         fcmData         `json:"data"`
}

func NewFCMClient(cfg config.PushConfig) *FCMClient {
	return &FCMClient{
		httpClient: &http.Client{Timeout: cfg.ProviderTimeout},
		endpoint:   cfg.FCMEndpoint,
		serverKey:  cfg.FCMServerKey,
	}
}

// Send delivers one notification to one registration token. Same contract as
// the APNs client: nil on 2xx, *ProviderError otherwise.
func (fc *FCMClient) Send(ctx context.Context, token string, payload RenderedPayload) error {
	badge := ""
	if payload.Badge > 0 {
		badge = fmt.Sprintf("%d", payload.Badge)
	}

	body := fcmRequestBody{
		To:       token,
		Priority: "high",
		Notification: fcmNotification{
			Title:       payload.Title,
			Body:        payload.Body,
			Icon:        payload.Icon,
			Badge:       badge,
			ClickAction: payload.URL,
			Tag:         payload.NotificationID,
		},
		Data: fcmData{
			URL:            payload.URL,
			ClickToken:     payload.ClickToken,
			NotificationID: payload.NotificationID,
		},
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return &ProviderError{Provider: "fcm", Reason: fmt.Sprintf("encode payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fc.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return &ProviderError{Provider: "fcm", Reason: fmt.Sprintf("build request: %v", err)}
	}

	req.Header.Set("Authorization", "Bearer "+fc.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := fc.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Provider: "fcm", Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	reason := resp.Status
	if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil && len(data) > 0 {
		reason = string(data)
	}

	return &ProviderError{Provider: "fcm", StatusCode: resp.StatusCode, Reason: reason}
}
