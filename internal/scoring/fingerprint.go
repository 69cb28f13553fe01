package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/gowebpki/jcs"
)

// Canonical returns the RFC 8785 canonical JSON encoding of r.
func Canonical(r Result) ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(raw)
}

// Fingerprint is the hex SHA-256 of the canonical encoding of r with its
// fingerprint field cleared. Equal fingerprints mean byte-identical results.
func Fingerprint(r Result) string {
	r.Fingerprint = ""
	data, err := Canonical(r)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
