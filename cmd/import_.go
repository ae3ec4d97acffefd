package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/elefant-tools/elefant-sync/internal/sqlfile"
	"github.com/elefant-tools/elefant-sync/internal/wire"
)

type importFlags struct {
	common CommonFlags
	path   string
}

func newImportCommand() *cobra.Command {
	var f importFlags
	cmd := &cobra.Command{
		Use:   "import sql-file",
		Short: "import a flat SQL file into the target database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "sql-file" {
				return newExitError(ExitUsageError, fmt.Errorf("unknown import source %q, expected \"sql-file\"", args[0]))
			}
			return runImport(cmd, &f)
		},
	}
	registerCommonFlags(cmd, &f.common)
	cmd.Flags().StringVar(&f.path, "path", "", "input file path")
	return cmd
}

func runImport(cmd *cobra.Command, f *importFlags) error {
	if err := resolveCommonFlags(cmd, &f.common); err != nil {
		return newExitError(ExitUsageError, err)
	}
	if f.path == "" {
		return newExitError(ExitUsageError, fmt.Errorf("--path is required"))
	}

	in, err := os.Open(f.path)
	if err != nil {
		return newExitError(ExitUsageError, fmt.Errorf("open input file: %w", err))
	}
	defer in.Close()

	parsed, err := sqlfile.Sniff(in)
	if err != nil {
		return newExitError(ExitUsageError, err)
	}
	log.Printf("input file: format=%s version=%d sections=%d", parsed.Format, parsed.Version, len(parsed.Sections))

	ctx := context.Background()
	start := time.Now()

	log.Printf("connecting to target %s...", f.common.Target.endpoint())
	tgt, err := wire.Connect(ctx, f.common.Target.endpoint(), f.common.Target.credentials(), wire.Options{})
	if err != nil {
		return newExitError(ExitConnectionFailure, fmt.Errorf("connect target: %w", err))
	}
	defer tgt.Close(ctx)

	if pre := parsed.Section("pre-data"); pre != "" {
		log.Printf("applying pre-data DDL...")
		if _, err := tgt.QuerySimple(pre); err != nil {
			return newExitError(ExitDDLFailure, fmt.Errorf("pre-data: %w", err))
		}
	}

	if data := parsed.Section("data"); data != "" {
		log.Printf("loading data...")
		if err := replayData(tgt, parsed.Format, data); err != nil {
			return newExitError(ExitDataPhaseFailure, fmt.Errorf("data: %w", err))
		}
	}

	if post := parsed.Section("post-data"); post != "" {
		log.Printf("applying post-data DDL...")
		if _, err := tgt.QuerySimple(post); err != nil {
			return newExitError(ExitDDLFailure, fmt.Errorf("post-data: %w", err))
		}
	}

	log.Printf("import completed in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

// replayData drives the data section through the sink: InsertStatements
// is plain SQL replayed verbatim; CopyStatements requires splitting
// "COPY ... FROM stdin;" blocks out and feeding each one through CopyIn
// since that command has no simple-query equivalent carrying row data.
func replayData(conn *wire.Connection, format sqlfile.Format, body string) error {
	if format == sqlfile.FormatInsertStatements {
		_, err := conn.QuerySimple(body)
		return err
	}
	return replayCopyBlocks(conn, body)
}

func replayCopyBlocks(conn *wire.Connection, body string) error {
	lines := strings.Split(body, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if !strings.HasPrefix(line, "COPY ") {
			continue
		}
		query := strings.TrimSuffix(line, ";")
		i++
		var rows []string
		for i < len(lines) && lines[i] != `\.` {
			rows = append(rows, lines[i])
			i++
		}
		payload := strings.NewReader(strings.Join(rows, "\n") + "\n")
		if _, err := conn.CopyIn(query, payload); err != nil {
			return fmt.Errorf("copy block %q: %w", query, err)
		}
	}
	return nil
}
