package cmd

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
)

func newTestCommand() *cobra.Command {
	c := &cobra.Command{Use: "test"}
	c.Flags().String("host", "localhost", "")
	c.Flags().Int("port", 5432, "")
	c.Flags().Bool("differential", false, "")
	return c
}

func TestEnvOrFlag_ExplicitFlagWins(t *testing.T) {
	c := newTestCommand()
	c.Flags().Set("host", "flag-host")
	t.Setenv("TEST_HOST", "env-host")
	if got := envOrFlag(c, "host", "TEST_HOST", "fallback"); got != "flag-host" {
		t.Errorf("envOrFlag() = %q, want %q", got, "flag-host")
	}
}

func TestEnvOrFlag_EnvWinsOverFallback(t *testing.T) {
	c := newTestCommand()
	t.Setenv("TEST_HOST", "env-host")
	if got := envOrFlag(c, "host", "TEST_HOST", "fallback"); got != "env-host" {
		t.Errorf("envOrFlag() = %q, want %q", got, "env-host")
	}
}

func TestEnvOrFlag_FallsBackWhenNeitherSet(t *testing.T) {
	c := newTestCommand()
	if got := envOrFlag(c, "host", "TEST_HOST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("envOrFlag() = %q, want %q", got, "fallback")
	}
}

func TestEnvOrFlagInt_ParsesEnvValue(t *testing.T) {
	c := newTestCommand()
	t.Setenv("TEST_PORT", "6543")
	got, err := envOrFlagInt(c, "port", "TEST_PORT", 1)
	if err != nil {
		t.Fatalf("envOrFlagInt() error: %v", err)
	}
	if got != 6543 {
		t.Errorf("envOrFlagInt() = %d, want 6543", got)
	}
}

func TestEnvOrFlagInt_RejectsMalformedEnvValue(t *testing.T) {
	c := newTestCommand()
	t.Setenv("TEST_PORT", "not-a-number")
	if _, err := envOrFlagInt(c, "port", "TEST_PORT", 1); err == nil {
		t.Fatal("expected an error for a non-numeric env value, got nil")
	}
}

func TestEnvOrFlagBool_ParsesEnvValue(t *testing.T) {
	c := newTestCommand()
	t.Setenv("TEST_DIFF", "true")
	got, err := envOrFlagBool(c, "differential", "TEST_DIFF", false)
	if err != nil {
		t.Fatalf("envOrFlagBool() error: %v", err)
	}
	if !got {
		t.Error("envOrFlagBool() = false, want true")
	}
}

func TestExitCode_SuccessForNilError(t *testing.T) {
	if got := ExitCode(nil); got != ExitSuccess {
		t.Errorf("ExitCode(nil) = %d, want %d", got, ExitSuccess)
	}
}

func TestExitCode_ExtractsWrappedExitError(t *testing.T) {
	err := newExitError(ExitDDLFailure, errors.New("boom"))
	if got := ExitCode(err); got != ExitDDLFailure {
		t.Errorf("ExitCode() = %d, want %d", got, ExitDDLFailure)
	}
}

func TestExitCode_DefaultsToUsageErrorForUnclassified(t *testing.T) {
	if got := ExitCode(errors.New("plain error")); got != ExitUsageError {
		t.Errorf("ExitCode() = %d, want %d", got, ExitUsageError)
	}
}

func TestConnFlags_Endpoint(t *testing.T) {
	f := ConnFlags{Host: "db.internal", Port: 5433}
	if got, want := f.endpoint(), "db.internal:5433"; got != want {
		t.Errorf("endpoint() = %q, want %q", got, want)
	}
}
