package types

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDBinaryRoundTrip(t *testing.T) {
	in := UUID{Value: uuid.New(), Valid: true}
	raw, err := in.ToSqlBinary()
	if err != nil {
		t.Fatalf("ToSqlBinary() error: %v", err)
	}
	if len(raw) != 16 {
		t.Fatalf("ToSqlBinary() len = %d, want 16", len(raw))
	}
	var out UUID
	if err := out.FromSqlBinary(OIDUUID, raw); err != nil {
		t.Fatalf("FromSqlBinary() error: %v", err)
	}
	if out.Value != in.Value {
		t.Errorf("round trip = %s, want %s", out.Value, in.Value)
	}
}

func TestUUIDFromSqlText(t *testing.T) {
	want := uuid.New()
	var out UUID
	if err := out.FromSqlText(OIDUUID, want.String()); err != nil {
		t.Fatalf("FromSqlText() error: %v", err)
	}
	if out.Value != want {
		t.Errorf("FromSqlText() = %s, want %s", out.Value, want)
	}
}

func TestUUIDFromSqlText_Invalid(t *testing.T) {
	var out UUID
	if err := out.FromSqlText(OIDUUID, "not-a-uuid"); err == nil {
		t.Fatal("expected an error for a malformed UUID string, got nil")
	}
}
