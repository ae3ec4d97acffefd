package types

import (
	"net"
	"testing"
)

func TestInetRoundTrip_IPv4(t *testing.T) {
	in := Inet{Net: net.IPNet{IP: net.ParseIP("192.168.1.0").To4(), Mask: net.CIDRMask(24, 32)}, Valid: true}
	raw, err := in.ToSqlBinary()
	if err != nil {
		t.Fatalf("ToSqlBinary() error: %v", err)
	}
	var out Inet
	if err := out.FromSqlBinary(OIDInet, raw); err != nil {
		t.Fatalf("FromSqlBinary() error: %v", err)
	}
	if !out.Net.IP.Equal(in.Net.IP) {
		t.Errorf("IP round trip = %v, want %v", out.Net.IP, in.Net.IP)
	}
	ones, _ := out.Net.Mask.Size()
	wantOnes, _ := in.Net.Mask.Size()
	if ones != wantOnes {
		t.Errorf("mask bits = %d, want %d", ones, wantOnes)
	}
	if out.IsCidr {
		t.Errorf("IsCidr = true, want false (always 0 on the wire)")
	}
}

func TestInetRoundTrip_IPv6(t *testing.T) {
	in := Inet{Net: net.IPNet{IP: net.ParseIP("2001:db8::1"), Mask: net.CIDRMask(64, 128)}, Valid: true}
	raw, err := in.ToSqlBinary()
	if err != nil {
		t.Fatalf("ToSqlBinary() error: %v", err)
	}
	var out Inet
	if err := out.FromSqlBinary(OIDCidr, raw); err != nil {
		t.Fatalf("FromSqlBinary() error: %v", err)
	}
	if !out.Net.IP.Equal(in.Net.IP) {
		t.Errorf("IP round trip = %v, want %v", out.Net.IP, in.Net.IP)
	}
}

func TestInetRejectsUnrecognizedFamily(t *testing.T) {
	raw := []byte{9, 32, 0, 4, 1, 2, 3, 4}
	var out Inet
	if err := out.FromSqlBinary(OIDInet, raw); err == nil {
		t.Fatal("expected an error for an unrecognized family byte, got nil")
	}
}
