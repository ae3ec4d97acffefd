package types

import (
	"testing"
	"time"
)

func TestTimestampRoundTrip(t *testing.T) {
	in := Timestamp{Time: time.Date(2024, 3, 15, 12, 30, 45, 123000000, time.UTC), WithTZ: true, Valid: true}
	raw, err := in.ToSqlBinary()
	if err != nil {
		t.Fatalf("ToSqlBinary() error: %v", err)
	}
	var out Timestamp
	if err := out.FromSqlBinary(OIDTimestampTz, raw); err != nil {
		t.Fatalf("FromSqlBinary() error: %v", err)
	}
	if !out.Time.Equal(in.Time) {
		t.Errorf("round trip = %v, want %v", out.Time, in.Time)
	}
	if !out.WithTZ {
		t.Errorf("round trip WithTZ = false, want true")
	}
}

func TestTimestampBeforeEpoch(t *testing.T) {
	in := Timestamp{Time: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)}
	raw, _ := in.ToSqlBinary()
	var out Timestamp
	if err := out.FromSqlBinary(OIDTimestamp, raw); err != nil {
		t.Fatalf("FromSqlBinary() error: %v", err)
	}
	if !out.Time.Equal(in.Time) {
		t.Errorf("round trip = %v, want %v", out.Time, in.Time)
	}
}

func TestDateRoundTrip(t *testing.T) {
	in := Date{Time: time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)}
	raw, err := in.ToSqlBinary()
	if err != nil {
		t.Fatalf("ToSqlBinary() error: %v", err)
	}
	var out Date
	if err := out.FromSqlBinary(OIDDate, raw); err != nil {
		t.Fatalf("FromSqlBinary() error: %v", err)
	}
	if !out.Time.Equal(in.Time) {
		t.Errorf("round trip = %v, want %v", out.Time, in.Time)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	in := Time{Duration: 13*time.Hour + 45*time.Minute + 30*time.Second}
	raw, err := in.ToSqlBinary()
	if err != nil {
		t.Fatalf("ToSqlBinary() error: %v", err)
	}
	var out Time
	if err := out.FromSqlBinary(OIDTime, raw); err != nil {
		t.Fatalf("FromSqlBinary() error: %v", err)
	}
	if out.Duration != in.Duration {
		t.Errorf("round trip = %v, want %v", out.Duration, in.Duration)
	}
}
