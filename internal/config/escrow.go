package config

import (
	"time"
)

// EscrowConfig holds the operator account customers pay into and the
// limits applied to disputes.
type EscrowConfig struct {
	AdminUPIID         string        `yaml:"admin_upi_id"`
	AdminName          string        `yaml:"admin_name"`
	AdminQRCodeURL     string        `yaml:"admin_qr_code_url"`
	Currency           string        `yaml:"currency"`
	MaxEvidenceItems   int           `yaml:"max_evidence_items"`
	MaxEvidenceSize    int64         `yaml:"max_evidence_size"`
	StatisticsCacheTTL time.Duration `yaml:"statistics_cache_ttl"`
	ComplaintSMS       bool          `yaml:"complaint_sms"`
	NotifyTimeout      time.Duration `yaml:"notify_timeout"`
}

func loadEscrowConfig() *EscrowConfig {
	return &EscrowConfig{
		AdminUPIID:         getEnv("ESCROW_ADMIN_UPI_ID", "trustedhands@upi"),
		AdminName:          getEnv("ESCROW_ADMIN_NAME", "Trusted Hands Escrow"),
		AdminQRCodeURL:     getEnv("ESCROW_ADMIN_QR_URL", ""),
		Currency:           getEnv("ESCROW_CURRENCY", "INR"),
		MaxEvidenceItems:   getEnvAsInt("ESCROW_MAX_EVIDENCE_ITEMS", 10),
		MaxEvidenceSize:    int64(getEnvAsInt("ESCROW_MAX_EVIDENCE_SIZE", 10<<20)),
		StatisticsCacheTTL: getEnvAsDuration("ESCROW_STATS_CACHE_TTL", time.Minute),
		ComplaintSMS:       getEnvAsBool("ESCROW_COMPLAINT_SMS", true),
		NotifyTimeout:      getEnvAsDuration("ESCROW_NOTIFY_TIMEOUT", 30*time.Second),
	}
}
