package utils

import (
	"fmt"
	"time"
)

// BookingReferencePrefix marks references issued by this service.
const BookingReferencePrefix = "HB"

// GenerateBookingReference formats HB-YYYYMMDD-NNNNNN from the creation time
// (UTC date) and a store-issued sequence number. The sequence is unique
// store-wide, which makes the reference unique even across days.
func GenerateBookingReference(createdAt time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%06d", BookingReferencePrefix, createdAt.UTC().Format("20060102"), seq)
}
