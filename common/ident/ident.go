// Package ident derives and encodes content identifiers for stored images.
//
// An image id is the SHA-256 digest of the image bytes followed by the
// declared file name. Identical bytes under identical names therefore collide
// to the same id and writes become idempotent overwrites. The hex form of the
// digest is the externally visible id; the raw digest doubles as the store
// row key.
package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Size is the length in bytes of a raw content id.
const Size = sha256.Size

// MalformedIDError reports an image id that does not hex-decode to a byte
// string.
type MalformedIDError struct {
	ID     string
	Reason string
}

func (e *MalformedIDError) Error() string {
	return fmt.Sprintf("malformed image id %q: %s", e.ID, e.Reason)
}

// Hash computes the content id for an image: sha256(data || fileName).
func Hash(data []byte, fileName string) []byte {
	digest := sha256.New()
	digest.Write(data)
	digest.Write([]byte(fileName))
	return digest.Sum(nil)
}

// BytesToHex encodes a raw content id as uppercase hex.
func BytesToHex(id []byte) string {
	return strings.ToUpper(hex.EncodeToString(id))
}

// HexToBytes decodes a hex image id, accepting either case. Odd-length or
// non-hex input is a MalformedIDError.
func HexToBytes(id string) ([]byte, error) {
	if len(id)%2 != 0 {
		return nil, &MalformedIDError{ID: id, Reason: "odd number of hex digits"}
	}
	raw, err := hex.DecodeString(strings.ToLower(id))
	if err != nil {
		return nil, &MalformedIDError{ID: id, Reason: "not valid hexadecimal"}
	}
	return raw, nil
}
