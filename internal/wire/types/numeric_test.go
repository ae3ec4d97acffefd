package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNumericRoundTrip(t *testing.T) {
	cases := []string{
		"0",
		"1",
		"-1",
		"123.456",
		"-123.456",
		"0.0001",
		"10000",
		"99999999999999999999999999",
		"-0.00000001",
	}
	for _, c := range cases {
		d, err := decimal.NewFromString(c)
		if err != nil {
			t.Fatalf("decimal.NewFromString(%q) error: %v", c, err)
		}
		in := Numeric{Decimal: d, Valid: true}
		raw, err := in.ToSqlBinary()
		if err != nil {
			t.Fatalf("ToSqlBinary(%q) error: %v", c, err)
		}
		var out Numeric
		if err := out.FromSqlBinary(OIDNumeric, raw); err != nil {
			t.Fatalf("FromSqlBinary(%q) error: %v", c, err)
		}
		if !out.Decimal.Equal(d) {
			t.Errorf("round trip %q = %s, want %s", c, out.Decimal.String(), d.String())
		}
	}
}

func TestNumericNaNRoundTrip(t *testing.T) {
	in := Numeric{IsNaN: true, Valid: true}
	raw, err := in.ToSqlBinary()
	if err != nil {
		t.Fatalf("ToSqlBinary() error: %v", err)
	}
	var out Numeric
	if err := out.FromSqlBinary(OIDNumeric, raw); err != nil {
		t.Fatalf("FromSqlBinary() error: %v", err)
	}
	if !out.IsNaN {
		t.Errorf("round trip IsNaN = false, want true")
	}
}

func TestNumericPrecisionOverflow(t *testing.T) {
	d, err := decimal.NewFromString("123456789012345678901234567890")
	if err != nil {
		t.Fatalf("decimal.NewFromString() error: %v", err)
	}
	in := Numeric{Decimal: d, Valid: true}
	if _, err := in.ToSqlBinary(); err == nil {
		t.Fatal("expected precision overflow error, got nil")
	}
}

func TestNumericRejectsUnknownSign(t *testing.T) {
	raw := make([]byte, 8)
	raw[4] = 0x80 // neither positive, negative, nor NaN sign word
	var out Numeric
	if err := out.FromSqlBinary(OIDNumeric, raw); err == nil {
		t.Fatal("expected error for unrecognized sign word, got nil")
	}
}
