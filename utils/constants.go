package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Payment constants
const (
	// DefaultCurrency is the ISO 4217 code used when config leaves it unset
	DefaultCurrency = "USD"

	// CheckoutSessionTTL bounds how long a gateway session stays payable
	CheckoutSessionTTL = 30 * time.Minute
)
