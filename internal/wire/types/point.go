package types

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point wraps PostgreSQL's POINT type: two float8 coordinates, wire
// format {x:f64, y:f64}.
type Point struct {
	X, Y  float64
	Valid bool
}

func (Point) AcceptsOID(oid uint32) bool { return oid == OIDPoint }

func (p *Point) FromSqlBinary(oid uint32, raw []byte) error {
	if len(raw) != 16 {
		return fmt.Errorf("point: expected 16 bytes, got %d", len(raw))
	}
	p.X = math.Float64frombits(binary.BigEndian.Uint64(raw[0:8]))
	p.Y = math.Float64frombits(binary.BigEndian.Uint64(raw[8:16]))
	p.Valid = true
	return nil
}

func (p Point) ToSqlBinary() ([]byte, error) {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], math.Float64bits(p.X))
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(p.Y))
	return buf, nil
}

// FromSqlText parses PostgreSQL's "(x,y)" point text representation.
func (p *Point) FromSqlText(oid uint32, raw string) error {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return fmt.Errorf("point: malformed text %q", raw)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return fmt.Errorf("point: parse x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return fmt.Errorf("point: parse y: %w", err)
	}
	p.X, p.Y = x, y
	p.Valid = true
	return nil
}

func (p Point) String() string {
	return fmt.Sprintf("(%s,%s)", strconv.FormatFloat(p.X, 'g', -1, 64), strconv.FormatFloat(p.Y, 'g', -1, 64))
}
