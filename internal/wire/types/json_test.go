package types

import (
	"bytes"
	"testing"
)

func TestJSONRoundTrip_Plain(t *testing.T) {
	in := JSON{Raw: []byte(`{"a":1}`), Valid: true}
	raw, err := in.ToSqlBinary()
	if err != nil {
		t.Fatalf("ToSqlBinary() error: %v", err)
	}
	var out JSON
	if err := out.FromSqlBinary(OIDJSON, raw); err != nil {
		t.Fatalf("FromSqlBinary() error: %v", err)
	}
	if !bytes.Equal(out.Raw, in.Raw) {
		t.Errorf("Raw round trip = %s, want %s", out.Raw, in.Raw)
	}
	if out.IsJSONB {
		t.Errorf("IsJSONB = true, want false")
	}
}

func TestJSONRoundTrip_JSONB(t *testing.T) {
	in := JSON{Raw: []byte(`{"a":1}`), IsJSONB: true, Valid: true}
	raw, err := in.ToSqlBinary()
	if err != nil {
		t.Fatalf("ToSqlBinary() error: %v", err)
	}
	if raw[0] != jsonbVersion {
		t.Fatalf("ToSqlBinary()[0] = 0x%02x, want version byte 0x%02x", raw[0], jsonbVersion)
	}
	var out JSON
	if err := out.FromSqlBinary(OIDJSONB, raw); err != nil {
		t.Fatalf("FromSqlBinary() error: %v", err)
	}
	if !bytes.Equal(out.Raw, in.Raw) {
		t.Errorf("Raw round trip = %s, want %s", out.Raw, in.Raw)
	}
	if !out.IsJSONB {
		t.Errorf("IsJSONB = false, want true")
	}
}

func TestJSONBRejectsUnrecognizedVersion(t *testing.T) {
	var out JSON
	if err := out.FromSqlBinary(OIDJSONB, []byte{0x02, '{', '}'}); err == nil {
		t.Fatal("expected an error for an unrecognized jsonb version byte, got nil")
	}
}
