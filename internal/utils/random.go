package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

func SecureRandomInt(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return int(n.Int64())
}

// GenerateTicketNumber returns a human-readable ticket number like TH-2026-4821.
// Numbers are informational and may collide.
func GenerateTicketNumber(now time.Time) string {
	return fmt.Sprintf("%s-%d-%04d", TicketNumberPrefix, now.Year(), 1000+SecureRandomInt(9000))
}
