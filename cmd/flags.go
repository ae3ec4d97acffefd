// Package cmd implements the export, import, and copy subcommands,
// sharing connection flags via cobra's PersistentFlags across all three.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/elefant-tools/elefant-sync/internal/wire"
)

// Exit codes.
const (
	ExitSuccess              = 0
	ExitUsageError           = 1
	ExitConnectionFailure    = 2
	ExitIntrospectionFailure = 3
	ExitDDLFailure           = 4
	ExitDataPhaseFailure     = 5
	ExitCancelled            = 6
)

// configPath is shared across subcommands (only one RunE executes per
// invocation), mirroring single configPath flag variable.
var configPath string

// ConnFlags holds one side's (source or target) connection options.
type ConnFlags struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// CommonFlags holds the options every subcommand shares.
type CommonFlags struct {
	Source         ConnFlags
	Target         ConnFlags
	MaxParallelism int
	Differential   bool
}

// registerCommonFlags wires --source-db-*/--target-db-*/--max-parallelism/
// --differential onto cmd's persistent flag set.
func registerCommonFlags(cmd *cobra.Command, f *CommonFlags) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a TOML config file (explicit flags and env vars take precedence over it)")
	flags.StringVar(&f.Source.Host, "source-db-host", "localhost", "source database host")
	flags.IntVar(&f.Source.Port, "source-db-port", 5432, "source database port")
	flags.StringVar(&f.Source.User, "source-db-user", "", "source database user")
	flags.StringVar(&f.Source.Password, "source-db-password", "", "source database password")
	flags.StringVar(&f.Source.Name, "source-db-name", "", "source database name")

	flags.StringVar(&f.Target.Host, "target-db-host", "localhost", "target database host")
	flags.IntVar(&f.Target.Port, "target-db-port", 5432, "target database port")
	flags.StringVar(&f.Target.User, "target-db-user", "", "target database user")
	flags.StringVar(&f.Target.Password, "target-db-password", "", "target database password")
	flags.StringVar(&f.Target.Name, "target-db-name", "", "target database name")

	flags.IntVar(&f.MaxParallelism, "max-parallelism", 4, "maximum number of data-phase workers")
	flags.BoolVar(&f.Differential, "differential", false, "skip objects already completed in a prior run")
}

// envOrFlag resolves one value with precedence explicit-flag > env var >
// fallback (the file-config value, or the flag default when there is no
// file config).
func envOrFlag(cmd *cobra.Command, flagName, envName, fallback string) string {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetString(flagName)
		return v
	}
	if v, ok := os.LookupEnv(envName); ok {
		return v
	}
	return fallback
}

func envOrFlagInt(cmd *cobra.Command, flagName, envName string, fallback int) (int, error) {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetInt(flagName)
		return v, nil
	}
	if v, ok := os.LookupEnv(envName); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("env %s: %w", envName, err)
		}
		return n, nil
	}
	return fallback, nil
}

func envOrFlagBool(cmd *cobra.Command, flagName, envName string, fallback bool) (bool, error) {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetBool(flagName)
		return v, nil
	}
	if v, ok := os.LookupEnv(envName); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("env %s: %w", envName, err)
		}
		return b, nil
	}
	return fallback, nil
}

// resolveCommonFlags re-resolves every common flag through envOrFlag so
// environment variables take effect even though registerCommonFlags bound
// them directly to struct fields via cobra's StringVar/IntVar/BoolVar.
// Precedence: explicit CLI flag > env var > TOML config file (--config) >
// flag default.
func resolveCommonFlags(cmd *cobra.Command, f *CommonFlags) error {
	if configPath != "" {
		fileCfg, err := loadFileConfig(configPath)
		if err != nil {
			return err
		}
		*f = fileCfg
	}

	f.Source.Host = envOrFlag(cmd, "source-db-host", "SOURCE_DB_HOST", f.Source.Host)
	f.Source.User = envOrFlag(cmd, "source-db-user", "SOURCE_DB_USER", f.Source.User)
	f.Source.Password = envOrFlag(cmd, "source-db-password", "SOURCE_DB_PASSWORD", f.Source.Password)
	f.Source.Name = envOrFlag(cmd, "source-db-name", "SOURCE_DB_NAME", f.Source.Name)
	port, err := envOrFlagInt(cmd, "source-db-port", "SOURCE_DB_PORT", f.Source.Port)
	if err != nil {
		return err
	}
	f.Source.Port = port

	f.Target.Host = envOrFlag(cmd, "target-db-host", "TARGET_DB_HOST", f.Target.Host)
	f.Target.User = envOrFlag(cmd, "target-db-user", "TARGET_DB_USER", f.Target.User)
	f.Target.Password = envOrFlag(cmd, "target-db-password", "TARGET_DB_PASSWORD", f.Target.Password)
	f.Target.Name = envOrFlag(cmd, "target-db-name", "TARGET_DB_NAME", f.Target.Name)
	tport, err := envOrFlagInt(cmd, "target-db-port", "TARGET_DB_PORT", f.Target.Port)
	if err != nil {
		return err
	}
	f.Target.Port = tport

	mp, err := envOrFlagInt(cmd, "max-parallelism", "MAX_PARALLELISM", f.MaxParallelism)
	if err != nil {
		return err
	}
	f.MaxParallelism = mp

	diff, err := envOrFlagBool(cmd, "differential", "DIFFERENTIAL", f.Differential)
	if err != nil {
		return err
	}
	f.Differential = diff

	if f.Source.User == "" {
		return fmt.Errorf("source-db-user is required")
	}
	if f.Source.Name == "" {
		return fmt.Errorf("source-db-name is required")
	}
	if f.Target.User == "" {
		return fmt.Errorf("target-db-user is required")
	}
	if f.Target.Name == "" {
		return fmt.Errorf("target-db-name is required")
	}
	return nil
}

func (c ConnFlags) endpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c ConnFlags) credentials() wire.Credentials {
	return wire.Credentials{User: c.User, Password: c.Password, Database: c.Name}
}

// exitError pairs an error with the process exit code it should produce.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func newExitError(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// ExitCode extracts the process exit code from an error returned by a
// subcommand's RunE, defaulting to ExitUsageError for anything
// unclassified.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitUsageError
}
