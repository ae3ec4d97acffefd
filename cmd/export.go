package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/elefant-tools/elefant-sync/internal/introspect"
	"github.com/elefant-tools/elefant-sync/internal/ir"
	"github.com/elefant-tools/elefant-sync/internal/sqlfile"
	"github.com/elefant-tools/elefant-sync/internal/wire"
)

type exportFlags struct {
	common              CommonFlags
	path                string
	format              string
	maxRowsPerInsert    int
	maxCommandsPerChunk int
}

func newExportCommand() *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "export sql-file",
		Short: "export the source database to a flat SQL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "sql-file" {
				return newExitError(ExitUsageError, fmt.Errorf("unknown export target %q, expected \"sql-file\"", args[0]))
			}
			return runExport(cmd, &f)
		},
	}
	registerCommonFlags(cmd, &f.common)
	cmd.Flags().StringVar(&f.path, "path", "", "output file path")
	cmd.Flags().StringVar(&f.format, "format", string(sqlfile.FormatCopyStatements), "InsertStatements or CopyStatements")
	cmd.Flags().IntVar(&f.maxRowsPerInsert, "max-rows-per-insert", 500, "rows per INSERT statement (InsertStatements format)")
	cmd.Flags().IntVar(&f.maxCommandsPerChunk, "max-commands-per-chunk", 1000, "commands per data section before starting a fresh one")
	return cmd
}

func runExport(cmd *cobra.Command, f *exportFlags) error {
	if err := resolveCommonFlags(cmd, &f.common); err != nil {
		return newExitError(ExitUsageError, err)
	}
	if f.path == "" {
		return newExitError(ExitUsageError, fmt.Errorf("--path is required"))
	}
	format := sqlfile.Format(f.format)
	switch format {
	case sqlfile.FormatInsertStatements, sqlfile.FormatCopyStatements:
	default:
		return newExitError(ExitUsageError, fmt.Errorf("--format must be InsertStatements or CopyStatements"))
	}

	ctx := context.Background()
	start := time.Now()

	log.Printf("connecting to source %s...", f.common.Source.endpoint())
	src, err := wire.Connect(ctx, f.common.Source.endpoint(), f.common.Source.credentials(), wire.Options{})
	if err != nil {
		return newExitError(ExitConnectionFailure, fmt.Errorf("connect source: %w", err))
	}
	defer src.Close(ctx)

	log.Printf("introspecting source schema...")
	in := introspect.New(src, src.ServerVersion())
	db, err := in.Introspect(introspect.Options{})
	if err != nil {
		return newExitError(ExitIntrospectionFailure, fmt.Errorf("introspect: %w", err))
	}
	order, err := ir.EmitOrder(db)
	if err != nil {
		return newExitError(ExitIntrospectionFailure, err)
	}
	log.Printf("found %d objects across %d schemas", len(order), len(db.Schemas))

	out, err := os.Create(f.path)
	if err != nil {
		return newExitError(ExitUsageError, fmt.Errorf("create output file: %w", err))
	}
	defer out.Close()

	w := sqlfile.NewWriter(out, sqlfile.WriterOptions{
		Format:              format,
		MaxRowsPerInsert:    f.maxRowsPerInsert,
		MaxCommandsPerChunk: f.maxCommandsPerChunk,
	})

	if err := w.WritePreData(order); err != nil {
		return newExitError(ExitDDLFailure, err)
	}

	if err := w.BeginData(); err != nil {
		return newExitError(ExitDataPhaseFailure, err)
	}
	for _, sch := range db.Schemas {
		for _, t := range sch.Tables {
			if err := exportTable(src, w, sch.Name, t, format); err != nil {
				return newExitError(ExitDataPhaseFailure, fmt.Errorf("export %s: %w", t.Qualified, err))
			}
		}
	}

	if err := w.WritePostData(order); err != nil {
		return newExitError(ExitDDLFailure, err)
	}
	if err := w.Flush(); err != nil {
		return newExitError(ExitDataPhaseFailure, err)
	}

	log.Printf("export completed in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

// exportTable issues a text-format COPY TO STDOUT so the already-text-
// encoded row lines can be written straight into a CopyStatements block,
// or split and re-quoted as literal values for InsertStatements.
func exportTable(conn *wire.Connection, w *sqlfile.Writer, schemaName string, t *ir.Table, format sqlfile.Format) error {
	qualified := ir.QualifiedName(schemaName, t.Name)
	columns := columnNames(t)
	query := fmt.Sprintf("COPY %s (%s) TO STDOUT", qualified, ir.QuoteIdentList(columns))
	stream, err := conn.CopyOut(query)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(stream)
	var textRows []string
	var valueRows [][]string
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSuffix(line, "\n")
			switch format {
			case sqlfile.FormatCopyStatements:
				textRows = append(textRows, line)
			case sqlfile.FormatInsertStatements:
				valueRows = append(valueRows, textRowToLiterals(line))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	switch format {
	case sqlfile.FormatCopyStatements:
		if len(textRows) == 0 {
			return nil
		}
		return w.WriteCopyBlock(qualified, columns, textRows)
	case sqlfile.FormatInsertStatements:
		if len(valueRows) == 0 {
			return nil
		}
		return w.WriteInsertBatch(qualified, columns, valueRows)
	}
	return nil
}

func columnNames(t *ir.Table) []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// textRowToLiterals turns one tab-separated COPY text line into SQL
// literals, translating the text format's "\N" null marker and its
// backslash escapes into PostgreSQL string literal syntax.
func textRowToLiterals(line string) []string {
	fields := strings.Split(line, "\t")
	out := make([]string, len(fields))
	for i, f := range fields {
		if f == `\N` {
			out[i] = "NULL"
			continue
		}
		out[i] = ir.QuoteStringLiteral(unescapeCopyText(f))
	}
	return out
}

func unescapeCopyText(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'N':
			b.WriteString(`\N`)
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
