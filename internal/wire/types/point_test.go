package types

import "testing"

func TestPointBinaryRoundTrip(t *testing.T) {
	in := Point{X: 12.5, Y: -3.25, Valid: true}
	raw, err := in.ToSqlBinary()
	if err != nil {
		t.Fatalf("ToSqlBinary() error: %v", err)
	}
	var out Point
	if err := out.FromSqlBinary(OIDPoint, raw); err != nil {
		t.Fatalf("FromSqlBinary() error: %v", err)
	}
	if out.X != in.X || out.Y != in.Y {
		t.Errorf("round trip = (%v,%v), want (%v,%v)", out.X, out.Y, in.X, in.Y)
	}
}

func TestPointFromSqlText(t *testing.T) {
	var p Point
	if err := p.FromSqlText(OIDPoint, "(1.5,2.5)"); err != nil {
		t.Fatalf("FromSqlText() error: %v", err)
	}
	if p.X != 1.5 || p.Y != 2.5 {
		t.Errorf("FromSqlText() = (%v,%v), want (1.5,2.5)", p.X, p.Y)
	}
}

func TestPointFromSqlText_Malformed(t *testing.T) {
	var p Point
	if err := p.FromSqlText(OIDPoint, "1.5"); err == nil {
		t.Fatal("expected an error for a point literal without a comma, got nil")
	}
}

func TestPointString(t *testing.T) {
	p := Point{X: 1, Y: 2}
	if got, want := p.String(), "(1,2)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
