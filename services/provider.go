package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"venuehub/models"
)

// RenderedPayload is the provider-agnostic form of one personalized delivery.
// Both provider clients are pure translators from this struct to their wire
// format; neither keeps state between calls.
type RenderedPayload struct {
	Title          string
	Body           string
	URL            string // deep link with the click token already embedded
	Icon           string
	Badge          int
	ClickToken     string
	NotificationID string
}

// ProviderSender is the shared contract of the two provider clients: nil on a
// 2xx response, *ProviderError otherwise.
type ProviderSender interface {
	Send(ctx context.Context, token string, payload RenderedPayload) error
}

// ProviderError is a non-2xx provider response. StatusCode zero means the
// request never completed (transport error or timeout).
type ProviderError struct {
	Provider   string
	StatusCode int
	Reason     string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Reason)
}

// IsPermanentFailure reports whether a provider error means the device
// address will never accept pushes again. Only an explicit 404/410 counts;
// a timeout or 5xx leaves the provider's true state unknown and must stay
// transient.
func IsPermanentFailure(err error) bool {
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		return false
	}
	return provErr.StatusCode == http.StatusNotFound || provErr.StatusCode == http.StatusGone
}

// ParseDeviceAddress splits a raw tagged address ("apns:<token>" or
// "fcm:<token>") into its platform and provider token. Registration calls
// this exactly once and stores the result discriminated; dispatch never
// sniffs prefixes.
func ParseDeviceAddress(address string) (platform, token string, err error) {
	parts := strings.SplitN(address, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("malformed device address")
	}

	switch parts[0] {
	case models.PlatformAPNS, models.PlatformFCM:
		return parts[0], parts[1], nil
	default:
		return "", "", fmt.Errorf("unknown push platform %q", parts[0])
	}
}
