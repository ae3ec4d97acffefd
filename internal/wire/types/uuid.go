package types

import (
	"fmt"

	"github.com/google/uuid"
)

// UUID wraps github.com/google/uuid.UUID; the binary wire representation
// is identical to uuid.UUID's own 16-byte array, so encode/decode are
// direct copies.
type UUID struct {
	Value uuid.UUID
	Valid bool
}

func (UUID) AcceptsOID(oid uint32) bool { return oid == OIDUUID }

func (u *UUID) FromSqlBinary(oid uint32, raw []byte) error {
	if len(raw) != 16 {
		return fmt.Errorf("uuid: expected 16 bytes, got %d", len(raw))
	}
	copy(u.Value[:], raw)
	u.Valid = true
	return nil
}

func (u UUID) ToSqlBinary() ([]byte, error) {
	buf := make([]byte, 16)
	copy(buf, u.Value[:])
	return buf, nil
}

func (u *UUID) FromSqlText(oid uint32, raw string) error {
	v, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("uuid: %w", err)
	}
	u.Value = v
	u.Valid = true
	return nil
}
