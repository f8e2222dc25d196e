package store

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// fieldSeparator joins family and qualifier into one cell address for
// backends that store a row as a flat field map. Visibility tokens and
// qualifiers never contain control characters, so the unit separator is safe.
const fieldSeparator = "\x1f"

func cellField(family, qualifier string) string {
	return family + fieldSeparator + qualifier
}

func splitCellField(field string) (family, qualifier string, err error) {
	idx := strings.Index(field, fieldSeparator)
	if idx < 0 {
		return "", "", fmt.Errorf("malformed cell field %q", field)
	}
	return field[:idx], field[idx+1:], nil
}

// encodeCellValue prepends the visibility label to the payload:
// 2-byte big-endian label length, label bytes, payload bytes.
func encodeCellValue(visibility string, value []byte) []byte {
	buf := make([]byte, 2+len(visibility)+len(value))
	binary.BigEndian.PutUint16(buf, uint16(len(visibility)))
	copy(buf[2:], visibility)
	copy(buf[2+len(visibility):], value)
	return buf
}

func decodeCellValue(raw []byte) (visibility string, value []byte, err error) {
	if len(raw) < 2 {
		return "", nil, fmt.Errorf("cell value too short: %d bytes", len(raw))
	}
	visLen := int(binary.BigEndian.Uint16(raw))
	if len(raw) < 2+visLen {
		return "", nil, fmt.Errorf("cell value truncated: label length %d exceeds %d bytes", visLen, len(raw)-2)
	}
	return string(raw[2 : 2+visLen]), raw[2+visLen:], nil
}
