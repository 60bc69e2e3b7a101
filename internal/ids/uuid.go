// Package ids centralizes identifier generation: UUIDv7 for durable
// object identifiers (tables, snapshots, data files) and nanoid for the
// short, per-request ids that ride in the response envelope.
package ids

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// UUID represents a UUID.
type UUID = uuid.UUID

// NewUUID returns a new random (version 7) UUID. Panics only if the
// system's crypto/rand source is exhausted, which NewV7 itself treats as
// fatal.
func NewUUID() UUID {
	u, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return u
}

// ParseUUID parses a UUID string.
func ParseUUID(s string) (UUID, error) {
	return uuid.Parse(s)
}

// IsUUIDv7 checks if the given UUID is a valid UUIDv7.
func IsUUIDv7(id UUID) bool {
	return id.Version() == uuid.Version(7)
}

// TimestampOf extracts the embedded creation time from a UUIDv7.
func TimestampOf(u UUID) time.Time {
	tsMillis := binary.BigEndian.Uint64(u[0:8]) >> 16
	return time.UnixMilli(int64(tsMillis))
}

// Nil is the zero UUID.
var Nil = uuid.Nil
