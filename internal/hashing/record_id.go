// Package hashing computes the deterministic _record_id for a newly
// written logical row (§4.3): a 16-hex-char digest over the RFC
// 8785 canonical JSON form of the row's user fields. Two WRITEs of an
// identical payload must produce identical ids (§8 "Deterministic
// _record_id"), which requires a canonicalization step — plain
// map-iteration order and raw float formatting are not stable across
// encodings.
package hashing

import (
	"encoding/hex"
	"encoding/json"

	"github.com/anand-gl/jsoncanonicalizer"
	"golang.org/x/crypto/blake2b"
)

// recordIDHexLen is the "16-char hex" length required by §3's
// _record_id column semantics.
const recordIDHexLen = 16

// CanonicalJSON renders v (anything json.Marshal accepts) into its RFC
// 8785 canonical form: object keys sorted, numbers in one normalized
// representation.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return CanonicalizeJSONBytes(raw)
}

// CanonicalizeJSONBytes canonicalizes an already-serialized JSON document.
func CanonicalizeJSONBytes(raw []byte) ([]byte, error) {
	return jsoncanonicalizer.Transform(raw)
}

// RecordID computes hash16(canonical_json(userFields)) (§4.3).
func RecordID(userFields any) (string, error) {
	canon, err := CanonicalJSON(userFields)
	if err != nil {
		return "", err
	}
	return Hash16(canon), nil
}

// Hash16 returns the first 16 hex characters of the blake2b-256 digest
// of data. blake2b is used (rather than crypto/sha256) because it's the
// hash primitive already carried by the teacher's golang.org/x/crypto
// dependency, and is faster for the short, high-frequency payloads this
// function sees on every WRITE.
func Hash16(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])[:recordIDHexLen]
}
