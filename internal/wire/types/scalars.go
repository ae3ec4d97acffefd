package types

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Bool codes BOOL as a single byte, 1=true/0=false.
type Bool struct {
	Value bool
	Valid bool
}

func (Bool) AcceptsOID(oid uint32) bool { return oid == OIDBool }
func (b *Bool) FromSqlBinary(oid uint32, raw []byte) error {
	if len(raw) != 1 {
		return fmt.Errorf("bool: expected 1 byte, got %d", len(raw))
	}
	b.Value = raw[0] != 0
	b.Valid = true
	return nil
}
func (b Bool) ToSqlBinary() ([]byte, error) {
	if b.Value {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}
func (b *Bool) FromSqlText(oid uint32, raw string) error {
	b.Value = raw == "t" || raw == "true"
	b.Valid = true
	return nil
}

// Int2 codes INT2 as a big-endian i16.
type Int2 struct {
	Value int16
	Valid bool
}

func (Int2) AcceptsOID(oid uint32) bool { return oid == OIDInt2 }
func (n *Int2) FromSqlBinary(oid uint32, raw []byte) error {
	if len(raw) != 2 {
		return fmt.Errorf("int2: expected 2 bytes, got %d", len(raw))
	}
	n.Value = int16(binary.BigEndian.Uint16(raw))
	n.Valid = true
	return nil
}
func (n Int2) ToSqlBinary() ([]byte, error) {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(n.Value))
	return buf, nil
}
func (n *Int2) FromSqlText(oid uint32, raw string) error {
	v, err := strconv.ParseInt(raw, 10, 16)
	if err != nil {
		return fmt.Errorf("int2: %w", err)
	}
	n.Value = int16(v)
	n.Valid = true
	return nil
}

// Int4 codes INT4/OID as a big-endian i32.
type Int4 struct {
	Value int32
	Valid bool
}

func (Int4) AcceptsOID(oid uint32) bool { return oid == OIDInt4 || oid == OIDOid }
func (n *Int4) FromSqlBinary(oid uint32, raw []byte) error {
	if len(raw) != 4 {
		return fmt.Errorf("int4: expected 4 bytes, got %d", len(raw))
	}
	n.Value = int32(binary.BigEndian.Uint32(raw))
	n.Valid = true
	return nil
}
func (n Int4) ToSqlBinary() ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(n.Value))
	return buf, nil
}
func (n *Int4) FromSqlText(oid uint32, raw string) error {
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return fmt.Errorf("int4: %w", err)
	}
	n.Value = int32(v)
	n.Valid = true
	return nil
}

// Int8 codes INT8 as a big-endian i64.
type Int8 struct {
	Value int64
	Valid bool
}

func (Int8) AcceptsOID(oid uint32) bool { return oid == OIDInt8 }
func (n *Int8) FromSqlBinary(oid uint32, raw []byte) error {
	if len(raw) != 8 {
		return fmt.Errorf("int8: expected 8 bytes, got %d", len(raw))
	}
	n.Value = int64(binary.BigEndian.Uint64(raw))
	n.Valid = true
	return nil
}
func (n Int8) ToSqlBinary() ([]byte, error) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n.Value))
	return buf, nil
}
func (n *Int8) FromSqlText(oid uint32, raw string) error {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("int8: %w", err)
	}
	n.Value = v
	n.Valid = true
	return nil
}

// Float4 codes FLOAT4 as a big-endian IEEE-754 binary32.
type Float4 struct {
	Value float32
	Valid bool
}

func (Float4) AcceptsOID(oid uint32) bool { return oid == OIDFloat4 }
func (f *Float4) FromSqlBinary(oid uint32, raw []byte) error {
	if len(raw) != 4 {
		return fmt.Errorf("float4: expected 4 bytes, got %d", len(raw))
	}
	f.Value = math.Float32frombits(binary.BigEndian.Uint32(raw))
	f.Valid = true
	return nil
}
func (f Float4) ToSqlBinary() ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, math.Float32bits(f.Value))
	return buf, nil
}

// Float8 codes FLOAT8 as a big-endian IEEE-754 binary64.
type Float8 struct {
	Value float64
	Valid bool
}

func (Float8) AcceptsOID(oid uint32) bool { return oid == OIDFloat8 }
func (f *Float8) FromSqlBinary(oid uint32, raw []byte) error {
	if len(raw) != 8 {
		return fmt.Errorf("float8: expected 8 bytes, got %d", len(raw))
	}
	f.Value = math.Float64frombits(binary.BigEndian.Uint64(raw))
	f.Valid = true
	return nil
}
func (f Float8) ToSqlBinary() ([]byte, error) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(f.Value))
	return buf, nil
}

// Text codes TEXT/VARCHAR/"char"/NAME as raw UTF-8 bytes (binary format
// for these types is the text bytes themselves, no extra framing).
type Text struct {
	Value string
	Valid bool
}

func (Text) AcceptsOID(oid uint32) bool {
	return oid == OIDText || oid == OIDVarchar || oid == OIDChar || oid == OIDName
}
func (t *Text) FromSqlBinary(oid uint32, raw []byte) error {
	t.Value = string(raw)
	t.Valid = true
	return nil
}
func (t Text) ToSqlBinary() ([]byte, error) { return []byte(t.Value), nil }
func (t *Text) FromSqlText(oid uint32, raw string) error {
	t.Value = raw
	t.Valid = true
	return nil
}

// Bytea wraps a byte slice; Borrowed implements only FromSqlBinary since
// the text format (`\x<hex>`) would require owning decoded bytes.
type Bytea struct {
	Value []byte
	Valid bool
}

func (Bytea) AcceptsOID(oid uint32) bool { return oid == OIDBytea }
func (b *Bytea) FromSqlBinary(oid uint32, raw []byte) error {
	b.Value = append([]byte(nil), raw...)
	b.Valid = true
	return nil
}
func (b Bytea) ToSqlBinary() ([]byte, error) { return b.Value, nil }

func (b *Bytea) FromSqlText(oid uint32, raw string) error {
	if len(raw) < 2 || raw[:2] != `\x` {
		return fmt.Errorf(`bytea: expected \x-prefixed hex, got %q`, raw)
	}
	decoded := make([]byte, (len(raw)-2)/2)
	for i := range decoded {
		hi := hexNibble(raw[2+i*2])
		lo := hexNibble(raw[3+i*2])
		if hi < 0 || lo < 0 {
			return fmt.Errorf("bytea: invalid hex digit in %q", raw)
		}
		decoded[i] = byte(hi<<4 | lo)
	}
	b.Value = decoded
	b.Valid = true
	return nil
}

func hexNibble(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return -1
	}
}

// BorrowedBytea implements only FromSqlBinary: it aliases the supplied
// wire buffer rather than copying, so callers must not retain it past
// the message's lifetime.
type BorrowedBytea struct {
	Value []byte
}

func (BorrowedBytea) AcceptsOID(oid uint32) bool { return oid == OIDBytea }
func (b *BorrowedBytea) FromSqlBinary(oid uint32, raw []byte) error {
	b.Value = raw
	return nil
}
