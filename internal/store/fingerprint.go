package store

import (
	"strings"

	"github.com/google/uuid"
)

// fingerprintSpace is a fixed UUID namespace so fingerprints are stable
// across processes and restarts.
var fingerprintSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("feedcached/store"))

// Fingerprint derives the deterministic identity of a record from its stable
// fields (UUIDv5 over the joined field values). Two records with identical
// stable content yield the same fingerprint no matter when they were
// collected or what their volatile fields carried at the time.
func Fingerprint(rec Record) string {
	input := strings.Join(rec.Identity(), "\x1f")
	return uuid.NewSHA1(fingerprintSpace, []byte(input)).String()
}
