package utils

import "time"

// Application Constants
const (
	AppName    = "TrustedHands"
	AppVersion = "1.0.0"

	DefaultCurrency = "INR"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Support
	TicketNumberPrefix  = "TH"
	MaxEvidenceItems    = 10
	MaxEvidenceSize     = 10 * 1024 * 1024 // 10MB
	MinTicketRating     = 1
	MaxTicketRating     = 5
	StatisticsCacheTTL  = time.Minute
	NotificationTimeout = 30 * time.Second
	EscrowEventsChannel = "escrow_events"
	CacheStatisticsKey  = "support:statistics"
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrValidationFailed = "validation failed"
	ErrEscrowFrozen     = "payment is held by an open dispute"
)

// Allowed evidence uploads
var AllowedEvidenceTypes = []string{"jpg", "jpeg", "png", "webp", "pdf", "mp4"}
