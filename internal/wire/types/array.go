package types

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/elefant-tools/elefant-sync/internal/errs"
)

// Array is a 1-D PostgreSQL array of binary-codec elements.
// Multi-dimensional arrays are deliberately unsupported: encountering
// ndim != 1 is a structured UnsupportedFeature error, never a silent
// truncation.
type Array struct {
	ElementOID uint32
	Elements   [][]byte // nil entry = NULL element
	Valid      bool
}

func (Array) AcceptsOID(oid uint32) bool {
	switch oid {
	case OIDBoolArray, OIDInt2Array, OIDInt4Array, OIDInt8Array,
		OIDFloat4Array, OIDFloat8Array, OIDTextArray, OIDVarcharArray:
		return true
	}
	return false
}

// FromSqlBinary decodes the array header {ndim, has_nulls, element_oid,
// dim_len, lower_bound} then length-prefixed elements.
func (a *Array) FromSqlBinary(oid uint32, raw []byte) error {
	if len(raw) < 12 {
		return fmt.Errorf("array: payload too short (%d bytes)", len(raw))
	}
	ndim := int32(binary.BigEndian.Uint32(raw[0:4]))
	if ndim == 0 {
		a.Elements = nil
		a.Valid = true
		return nil
	}
	if ndim != 1 {
		return &errs.UnsupportedFeatureError{Feature: "multi-dimensional array", Identifiers: []string{fmt.Sprintf("ndim=%d", ndim)}}
	}
	elementOID := uint32(binary.BigEndian.Uint32(raw[8:12]))
	dimLen := int32(binary.BigEndian.Uint32(raw[12:16]))
	// lower_bound at raw[16:20] is read but not retained; PostgreSQL
	// always sends 1 for arrays this tool produces/consumes.

	pos := 20
	elements := make([][]byte, dimLen)
	for i := int32(0); i < dimLen; i++ {
		if pos+4 > len(raw) {
			return fmt.Errorf("array: truncated element header at index %d", i)
		}
		length := int32(binary.BigEndian.Uint32(raw[pos : pos+4]))
		pos += 4
		if length < 0 {
			elements[i] = nil
			continue
		}
		if pos+int(length) > len(raw) {
			return fmt.Errorf("array: truncated element data at index %d", i)
		}
		elements[i] = raw[pos : pos+int(length)]
		pos += int(length)
	}
	a.ElementOID = elementOID
	a.Elements = elements
	a.Valid = true
	return nil
}

func (a Array) ToSqlBinary() ([]byte, error) {
	hasNulls := int32(0)
	for _, e := range a.Elements {
		if e == nil {
			hasNulls = 1
			break
		}
	}
	buf := make([]byte, 0, 20+len(a.Elements)*8)
	buf = appendInt32(buf, 1) // ndim
	buf = appendInt32(buf, hasNulls)
	buf = appendInt32(buf, int32(a.ElementOID))
	buf = appendInt32(buf, int32(len(a.Elements)))
	buf = appendInt32(buf, 1) // lower_bound
	for _, e := range a.Elements {
		if e == nil {
			buf = appendInt32(buf, -1)
			continue
		}
		buf = appendInt32(buf, int32(len(e)))
		buf = append(buf, e...)
	}
	return buf, nil
}

func appendInt32(buf []byte, v int32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

// ParseTextArray splits a PostgreSQL text-format array literal
// (`{...}`) into its element strings, respecting double-quoting so an
// element containing the `,` delimiter (POINT's `(x,y)`) is not split.
func ParseTextArray(literal string) ([]string, error) {
	s := strings.TrimSpace(literal)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("array literal missing braces: %q", literal)
	}
	s = s[1 : len(s)-1]

	var elements []string
	var cur strings.Builder
	inQuote := false
	depth := 0

	flush := func() {
		v := cur.String()
		if !inQuote && v == "NULL" {
			elements = append(elements, "")
		} else {
			elements = append(elements, v)
		}
		cur.Reset()
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' && !inQuote:
			inQuote = true
		case c == '"' && inQuote:
			if i+1 < len(s) && s[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuote = false
			}
		case c == '\\' && inQuote && i+1 < len(s):
			cur.WriteByte(s[i+1])
			i++
		case c == '{' && !inQuote:
			depth++
			cur.WriteByte(c)
		case c == '}' && !inQuote:
			depth--
			cur.WriteByte(c)
		case c == ',' && !inQuote && depth == 0:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if s != "" {
		flush()
	}
	return elements, nil
}
