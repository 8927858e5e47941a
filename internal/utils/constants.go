package utils

import "time"

// Application Constants
const (
	AppName    = "GoCab"
	AppVersion = "1.0.0"

	// Geo
	EarthRadiusKM = 6371.0

	// Authentication
	JWTAccessTokenTTL  = 24 * time.Hour
	JWTRefreshTokenTTL = 7 * 24 * time.Hour

	// Rating bounds
	MinRating = 1.0
	MaxRating = 5.0

	// Chat
	MaxMessageLength = 1000

	// Response statuses
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInternalServer   = "Internal server error"
	ErrUnauthorized     = "Unauthorized access"
	ErrForbidden        = "Access forbidden"
	ErrValidationFailed = "Validation failed"
)
