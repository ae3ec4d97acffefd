package types

import (
	"reflect"
	"testing"
)

func TestArrayRoundTrip(t *testing.T) {
	in := Array{
		ElementOID: OIDInt4,
		Elements:   [][]byte{{0, 0, 0, 1}, nil, {0, 0, 0, 3}},
		Valid:      true,
	}
	raw, err := in.ToSqlBinary()
	if err != nil {
		t.Fatalf("ToSqlBinary() error: %v", err)
	}
	var out Array
	if err := out.FromSqlBinary(OIDInt4Array, raw); err != nil {
		t.Fatalf("FromSqlBinary() error: %v", err)
	}
	if out.ElementOID != in.ElementOID {
		t.Errorf("ElementOID = %d, want %d", out.ElementOID, in.ElementOID)
	}
	if !reflect.DeepEqual(out.Elements, in.Elements) {
		t.Errorf("Elements = %v, want %v", out.Elements, in.Elements)
	}
}

func TestArrayEmptyRoundTrip(t *testing.T) {
	in := Array{ElementOID: OIDText, Elements: nil, Valid: true}
	raw, err := in.ToSqlBinary()
	if err != nil {
		t.Fatalf("ToSqlBinary() error: %v", err)
	}
	// zero-length array still carries ndim=1 (not the empty-array ndim=0
	// short circuit), matching what this codec produces for Go nil slices.
	var out Array
	if err := out.FromSqlBinary(OIDTextArray, raw); err != nil {
		t.Fatalf("FromSqlBinary() error: %v", err)
	}
	if len(out.Elements) != 0 {
		t.Errorf("Elements = %v, want empty", out.Elements)
	}
}

func TestArrayRejectsMultiDimensional(t *testing.T) {
	raw := make([]byte, 20)
	raw[3] = 2 // ndim = 2
	var out Array
	if err := out.FromSqlBinary(OIDInt4Array, raw); err == nil {
		t.Fatal("expected an unsupported-feature error for ndim=2, got nil")
	}
}

func TestParseTextArray(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"{1,2,3}", []string{"1", "2", "3"}},
		{"{}", []string{}},
		{`{hello,"with, comma",NULL}`, []string{"hello", "with, comma", ""}},
		{`{"a""b"}`, []string{`a"b`}},
	}
	for _, c := range cases {
		got, err := ParseTextArray(c.in)
		if err != nil {
			t.Fatalf("ParseTextArray(%q) error: %v", c.in, err)
		}
		if len(got) != len(c.want) {
			t.Fatalf("ParseTextArray(%q) = %v, want %v", c.in, got, c.want)
		}
		for i := range c.want {
			if got[i] != c.want[i] {
				t.Errorf("ParseTextArray(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

func TestParseTextArray_MissingBraces(t *testing.T) {
	if _, err := ParseTextArray("1,2,3"); err == nil {
		t.Fatal("expected an error for a literal missing braces, got nil")
	}
}
