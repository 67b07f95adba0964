package services

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"venuehub/config"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/net/http2"
)

// apnsTokenLifetime is how long a signed provider token is reused before a
// fresh one is minted. Apple accepts tokens up to an hour old.
const apnsTokenLifetime = 50 * time.Minute

// APNSClient sends alert pushes to the token-based provider. The signing key
// is read-only after construction; the only mutable state is the cached
// provider token, guarded by its own mutex, so Send is safe to call
// concurrently.
type APNSClient struct {
	httpClient *http.Client
	endpoint   string
	topic      string
	keyID      string
	teamID     string
	signingKey *ecdsa.PrivateKey

	tokenMu       sync.Mutex
	bearerToken   string
	tokenIssuedAt time.Time
}

type apnsAlert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type apnsAps struct {
	Alert          apnsAlert `json:"alert"`
	Badge          int       `json:"badge,omitempty"`
	Sound          string    `json:"sound,omitempty"`
	MutableContent int       `json:"mutable-content"`
}

type apnsRequestBody struct {
	Aps            apnsAps `json:"aps"`
	URL            string  `json:"url,omitempty"`
	ClickToken     string  `json:"click_token"`
	NotificationID string  `json:"notification_id"`
}

type apnsErrorBody struct {
	Reason string `json:"reason"`
}

// NewAPNSClient parses the configured P8 key immediately so a bad credential
// fails at startup, not on the first delivery.
func NewAPNSClient(cfg config.PushConfig) (*APNSClient, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(cfg.APNSKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse APNs signing key: %w", err)
	}

	// The provider speaks HTTP/2 only.
	transport := &http2.Transport{}

	return &APNSClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.ProviderTimeout,
		},
		endpoint:   cfg.APNSEndpoint,
		topic:      cfg.APNSTopic,
		keyID:      cfg.APNSKeyID,
		teamID:     cfg.APNSTeamID,
		signingKey: key,
	}, nil
}

// Send delivers one alert to one device token. Returns nil on 2xx and a
// *ProviderError carrying the HTTP status otherwise; the caller classifies.
func (ac *APNSClient) Send(ctx context.Context, token string, payload RenderedPayload) error {
	bearer, err := ac.providerToken()
	if err != nil {
		return &ProviderError{Provider: "apns", Reason: fmt.Sprintf("sign provider token: %v", err)}
	}

	body := apnsRequestBody{
		Aps: apnsAps{
			Alert: apnsAlert{
				Title: payload.Title,
				Body:  payload.Body,
			},
			Badge:          payload.Badge,
			Sound:          "default",
			MutableContent: 1,
		},
		URL:            payload.URL,
		ClickToken:     payload.ClickToken,
		NotificationID: payload.NotificationID,
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return &ProviderError{Provider: "apns", Reason: fmt.Sprintf("encode payload: %v", err)}
	}

	url := fmt.Sprintf("%s/3/device/%s", ac.endpoint, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return &ProviderError{Provider: "apns", Reason: fmt.Sprintf("build request: %v", err)}
	}

	req.Header.Set("Authorization", "bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apns-topic", ac.topic)
	req.Header.Set("apns-push-type", "alert")
	req.Header.Set("apns-priority", "10")

	resp, err := ac.httpClient.Do(req)
	if err != nil {
		// Transport failure or timeout: the provider's state is unknown.
		return &ProviderError{Provider: "apns", Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	reason := resp.Status
	if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil {
		var errBody apnsErrorBody
		if json.Unmarshal(data, &errBody) == nil && errBody.Reason != "" {
			reason = errBody.Reason
		}
	}

	return &ProviderError{Provider: "apns", StatusCode: resp.StatusCode, Reason: reason}
}

// providerToken returns the cached bearer credential, re-signing when it is
// close to the provider's one-hour acceptance window.
func (ac *APNSClient) providerToken() (string, error) {
	ac.tokenMu.Lock()
	defer ac.tokenMu.Unlock()

	now := time.Now()
	if ac.bearerToken != "" && now.Sub(ac.tokenIssuedAt) < apnsTokenLifetime {
		return ac.bearerToken, nil
	}

	claims := jwt.MapClaims{
		"iss": ac.teamID,
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = ac.keyID

	signed, err := token.SignedString(ac.signingKey)
	if err != nil {
		return "", err
	}

	ac.bearerToken = signed
	ac.tokenIssuedAt = now
	return signed, nil
}
