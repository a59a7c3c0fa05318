package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewBookingCode mints a human-readable booking reference without a database
// round trip: BK-{roomID}-{10 hex chars}. The unique index on bookings.code
// remains the authoritative guard; a collision surfaces as a persistence
// conflict and the caller retries with a fresh code.
func NewBookingCode(roomID int64) (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate booking code: %w", err)
	}
	return fmt.Sprintf("BK-%d-%s", roomID, hex.EncodeToString(buf)), nil
}
