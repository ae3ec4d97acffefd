package types

import (
	"encoding/binary"
	"fmt"
	"time"
)

// postgresEpoch is 2000-01-01 00:00:00 UTC, the zero point for
// TIMESTAMP/TIMESTAMPTZ binary encoding.
var postgresEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Timestamp wraps time.Time for the TIMESTAMP/TIMESTAMPTZ wire format:
// microseconds since postgresEpoch, i64. TIMESTAMPTZ is always normalized
// to UTC on send.
type Timestamp struct {
	Time    time.Time
	WithTZ  bool
	Valid   bool
}

func (t Timestamp) AcceptsOID(oid uint32) bool {
	return oid == OIDTimestamp || oid == OIDTimestampTz
}

func (t *Timestamp) FromSqlBinary(oid uint32, raw []byte) error {
	if len(raw) != 8 {
		return fmt.Errorf("timestamp: expected 8 bytes, got %d", len(raw))
	}
	micros := int64(binary.BigEndian.Uint64(raw))
	t.Time = postgresEpoch.Add(time.Duration(micros) * time.Microsecond)
	t.WithTZ = oid == OIDTimestampTz
	t.Valid = true
	return nil
}

func (t Timestamp) ToSqlBinary() ([]byte, error) {
	tm := t.Time
	if t.WithTZ {
		tm = tm.UTC()
	}
	micros := tm.Sub(postgresEpoch).Microseconds()
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(micros))
	return buf, nil
}

// Date wraps time.Time for the DATE wire format: i32 days since
// postgresEpoch's date.
type Date struct {
	Time  time.Time
	Valid bool
}

func (Date) AcceptsOID(oid uint32) bool { return oid == OIDDate }

func (d *Date) FromSqlBinary(oid uint32, raw []byte) error {
	if len(raw) != 4 {
		return fmt.Errorf("date: expected 4 bytes, got %d", len(raw))
	}
	days := int32(binary.BigEndian.Uint32(raw))
	d.Time = postgresEpoch.AddDate(0, 0, int(days))
	d.Valid = true
	return nil
}

func (d Date) ToSqlBinary() ([]byte, error) {
	days := int32(d.Time.Sub(postgresEpoch).Hours() / 24)
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(days))
	return buf, nil
}

// Time wraps a time-of-day value for the TIME wire format: i64
// microseconds since midnight.
type Time struct {
	Duration time.Duration
	Valid    bool
}

func (Time) AcceptsOID(oid uint32) bool { return oid == OIDTime }

func (t *Time) FromSqlBinary(oid uint32, raw []byte) error {
	if len(raw) != 8 {
		return fmt.Errorf("time: expected 8 bytes, got %d", len(raw))
	}
	micros := int64(binary.BigEndian.Uint64(raw))
	t.Duration = time.Duration(micros) * time.Microsecond
	t.Valid = true
	return nil
}

func (t Time) ToSqlBinary() ([]byte, error) {
	micros := t.Duration.Microseconds()
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(micros))
	return buf, nil
}
