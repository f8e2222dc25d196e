// Package chunk serializes arbitrarily large byte payloads into bounded-size
// cells of a row-oriented store and reconstructs them losslessly.
//
// The encoded form is one Length entry holding the 4-byte big-endian total
// byte count, followed by sequentially numbered Piece_0000, Piece_0001, ...
// entries each holding one fixed-size slice of the payload. The qualifier
// names sort the length entry first and the pieces in numeric order, so a
// family-restricted scan of the row replays the stream in exactly the order
// Decode expects.
package chunk

import (
	"encoding/binary"
	"fmt"
)

const (
	// LengthQualifier names the cell carrying the declared payload length.
	LengthQualifier = "Length"

	// PieceQualifierPrefix prefixes the numbered payload cells.
	PieceQualifierPrefix = "Piece_"

	// DefaultChunkSize keeps most images in a single piece.
	DefaultChunkSize = 5 * 1024 * 1024
)

// Entry is one (qualifier, payload) cell of an encoded stream.
type Entry struct {
	Qualifier string
	Value     []byte
}

// DecodeError reports a malformed chunk stream. It is fatal to the read that
// encountered it and is never retried.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "chunk decode: " + e.Reason
}

// Encode splits data into an ordered chunk stream. The final piece holds the
// remainder and may be shorter than chunkSize; when the length is an exact
// multiple no trailing empty piece is emitted.
func Encode(data []byte, chunkSize int) ([]Entry, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	entries := []Entry{{Qualifier: LengthQualifier, Value: length}}
	for offset := 0; offset < len(data); offset += chunkSize {
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}
		entries = append(entries, Entry{
			Qualifier: PieceQualifier(offset / chunkSize),
			Value:     data[offset:end],
		})
	}

	return entries, nil
}

// Decode reconstructs the payload from an ordered chunk stream. A declared
// length of zero yields nil so that callers can distinguish a logically empty
// row from a stored empty payload. Out-of-order or missing pieces and length
// mismatches are DecodeErrors.
func Decode(entries []Entry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	if entries[0].Qualifier != LengthQualifier {
		return nil, &DecodeError{
			Reason: fmt.Sprintf("first qualifier must be %s, got %q", LengthQualifier, entries[0].Qualifier),
		}
	}
	if len(entries[0].Value) != 4 {
		return nil, &DecodeError{Reason: "length cell must hold exactly 4 bytes"}
	}

	declared := int(binary.BigEndian.Uint32(entries[0].Value))
	if declared == 0 {
		return nil, nil
	}

	data := make([]byte, 0, declared)
	for i, entry := range entries[1:] {
		if want := PieceQualifier(i); entry.Qualifier != want {
			return nil, &DecodeError{
				Reason: fmt.Sprintf("qualifier out of order: want %s, got %q", want, entry.Qualifier),
			}
		}
		data = append(data, entry.Value...)
	}

	if len(data) != declared {
		return nil, &DecodeError{
			Reason: fmt.Sprintf("declared length %d but reassembled %d bytes", declared, len(data)),
		}
	}

	return data, nil
}

// PieceQualifier returns the qualifier naming the i-th payload piece.
func PieceQualifier(i int) string {
	return fmt.Sprintf("%s%04d", PieceQualifierPrefix, i)
}
