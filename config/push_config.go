package config

import (
	"os"
	"time"

	"venuehub/utils"
)

// PushConfig carries the provider credentials and the dispatcher tuning knobs.
// The signing material is read-only after load and safe to share across
// concurrent provider calls.
type PushConfig struct {
	// APNs (token-based provider)
	APNSKeyPEM   string // ES256 private key, PEM (.p8) content
	APNSKeyID    string
	APNSTeamID   string
	APNSTopic    string // app bundle id
	APNSEndpoint string

	// FCM (server-key provider)
	FCMServerKey string
	FCMEndpoint  string

	// Dispatcher tuning
	BatchSize         int
	PollInterval      time.Duration
	ProviderTimeout   time.Duration
	FanOutConcurrency int
}

func LoadPushConfig() PushConfig {
	keyPEM := getEnv("APNS_KEY_PEM", "")
	if keyPEM == "" {
		if path := getEnv("APNS_KEY_PATH", ""); path != "" {
			if data, err := os.ReadFile(path); err == nil {
				keyPEM = string(data)
			}
		}
	}

	return PushConfig{
		APNSKeyPEM:   keyPEM,
		APNSKeyID:    getEnv("APNS_KEY_ID", ""),
		APNSTeamID:   getEnv("APNS_TEAM_ID", ""),
		APNSTopic:    getEnv("APNS_TOPIC", "app.venuehub.member"),
		APNSEndpoint: getEnv("APNS_ENDPOINT", "https://api.push.apple.com"),

		FCMServerKey: getEnv("FCM_SERVER_KEY", ""),
		FCMEndpoint:  getEnv("FCM_ENDPOINT", "https://fcm.googleapis.com/fcm/send"),

		BatchSize:         getEnvAsInt("DISPATCH_BATCH_SIZE", 50),
		PollInterval:      time.Duration(getEnvAsInt("DISPATCH_POLL_SECONDS", 60)) * time.Second,
		ProviderTimeout:   time.Duration(getEnvAsInt("PROVIDER_TIMEOUT_SECONDS", 10)) * time.Second,
		FanOutConcurrency: getEnvAsInt("FANOUT_CONCURRENCY", 8),
	}
}

// Validate surfaces missing credentials before anything is sent. A broken
// push configuration is fatal for the whole invocation, not a per-delivery
// failure.
func (pc PushConfig) Validate() error {
	if pc.APNSKeyPEM == "" || pc.APNSKeyID == "" || pc.APNSTeamID == "" {
		return utils.NewConfigurationError("APNs signing key, key id and team id are required")
	}
	if pc.FCMServerKey == "" {
		return utils.NewConfigurationError("FCM server key is required")
	}
	return nil
}
