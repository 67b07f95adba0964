package services

import (
	"errors"
	"net/http"
	"testing"

	"venuehub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceAddress(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		platform string
		token    string
		wantErr  bool
	}{
		{name: "apns address", address: "apns:a1b2c3", platform: models.PlatformAPNS, token: "a1b2c3"},
		{name: "fcm address", address: "fcm:reg-token-1", platform: models.PlatformFCM, token: "reg-token-1"},
		{name: "token containing colons", address: "fcm:part:with:colons", platform: models.PlatformFCM, token: "part:with:colons"},
		{name: "unknown platform", address: "web:whatever", wantErr: true},
		{name: "no separator", address: "a1b2c3", wantErr: true},
		{name: "empty token", address: "apns:", wantErr: true},
		{name: "empty address", address: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform, token, err := ParseDeviceAddress(tt.address)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.platform, platform)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestIsPermanentFailure(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{name: "404 is permanent", err: &ProviderError{Provider: "apns", StatusCode: http.StatusNotFound, Reason: "BadDeviceToken"}, permanent: true},
		{name: "410 is permanent", err: &ProviderError{Provider: "apns", StatusCode: http.StatusGone, Reason: "Unregistered"}, permanent: true},
		{name: "429 is transient", err: &ProviderError{Provider: "apns", StatusCode: http.StatusTooManyRequests, Reason: "TooManyRequests"}, permanent: false},
		{name: "500 is transient", err: &ProviderError{Provider: "fcm", StatusCode: http.StatusInternalServerError, Reason: "internal"}, permanent: false},
		{name: "transport error is transient", err: &ProviderError{Provider: "fcm", Reason: "connection refused"}, permanent: false},
		{name: "wrapped provider error", err: errors.Join(errors.New("outer"), &ProviderError{Provider: "apns", StatusCode: http.StatusGone}), permanent: true},
		{name: "plain error", err: errors.New("boom"), permanent: false},
		{name: "nil", err: nil, permanent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.permanent, IsPermanentFailure(tt.err))
		})
	}
}
