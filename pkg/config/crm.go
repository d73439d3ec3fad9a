package config

import "time"

// CRMConfig holds resolved CRM API client configuration.
type CRMConfig struct {
	// BaseURL is the CRM REST API root.
	BaseURL string

	// APIKeyEnv is the env var name holding the CRM bearer token.
	APIKeyEnv string

	// ConnectTimeout bounds connection establishment per request.
	ConnectTimeout time.Duration

	// RequestTimeout bounds a single CRM operation including retries.
	RequestTimeout time.Duration

	// MaxAttempts is the per-operation retry budget (initial try included).
	MaxAttempts int

	// RateLimit is the sustained outbound request rate (requests/second).
	RateLimit float64

	// RateBurst is the token bucket burst size.
	RateBurst int

	// LocationID identifies the CRM sub-account for appointment payloads.
	LocationID string

	// CalendarID is the default calendar for free-slot lookups and bookings.
	CalendarID string

	// AssignedUserID is the CRM user appointments are assigned to.
	AssignedUserID string
}

// DefaultCRMConfig returns the built-in CRM client defaults.
func DefaultCRMConfig() *CRMConfig {
	return &CRMConfig{
		BaseURL:        "https://services.leadconnectorhq.com",
		APIKeyEnv:      "CRM_API_KEY",
		ConnectTimeout: 5 * time.Second,
		RequestTimeout: 30 * time.Second,
		MaxAttempts:    5,
		RateLimit:      10,
		RateBurst:      20,
	}
}
