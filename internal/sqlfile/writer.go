// Package sqlfile implements two flat-file output formats:
// InsertStatements (plain SQL replayable by psql) and
// CopyStatements (COPY ... FROM stdin; blocks framed by ELEFANT_SYNC
// markers), both driven off the same ir.Object order and the transfer
// layer's data stream.
package sqlfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/elefant-tools/elefant-sync/internal/ir"
)

type Format string

const (
	FormatInsertStatements Format = "InsertStatements"
	FormatCopyStatements   Format = "CopyStatements"

	formatVersion = 1
)

// WriterOptions configures the emitters.
type WriterOptions struct {
	Format              Format
	MaxRowsPerInsert    int
	MaxCommandsPerChunk int
}

func (o WriterOptions) withDefaults() WriterOptions {
	if o.MaxRowsPerInsert <= 0 {
		o.MaxRowsPerInsert = 500
	}
	if o.MaxCommandsPerChunk <= 0 {
		o.MaxCommandsPerChunk = 1000
	}
	return o
}

// Writer emits one section at a time: header first, then pre-data,
// data, post-data in order, matching the ELEFANT_SYNC marker grammar.
type Writer struct {
	w            *bufio.Writer
	opts         WriterOptions
	headerWritten bool
	commandsInChunk int
}

func NewWriter(w io.Writer, opts WriterOptions) *Writer {
	return &Writer{w: bufio.NewWriter(w), opts: opts.withDefaults()}
}

func (w *Writer) writeHeader() error {
	if w.headerWritten {
		return nil
	}
	if _, err := fmt.Fprintf(w.w, "-- ELEFANT_SYNC format=%s version=%d\n", w.opts.Format, formatVersion); err != nil {
		return err
	}
	w.headerWritten = true
	return nil
}

func (w *Writer) section(name string) error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w.w, "-- ELEFANT_SYNC:section=%s\n", name)
	return err
}

// WritePreData emits the pre-data DDL section.
func (w *Writer) WritePreData(order []ir.Object) error {
	if err := w.section("pre-data"); err != nil {
		return err
	}
	return ir.EmitPreData(w.w, order)
}

// WritePostData emits the post-data DDL section.
func (w *Writer) WritePostData(order []ir.Object) error {
	if err := w.section("post-data"); err != nil {
		return err
	}
	return ir.EmitPostData(w.w, order)
}

// BeginData marks the start of the data section; callers then call
// WriteInsertBatch or WriteCopyBlock per table, respecting
// max_commands_per_chunk by starting a new section when it's exceeded.
func (w *Writer) BeginData() error {
	w.commandsInChunk = 0
	return w.section("data")
}

// maybeRollChunk is called before each data command: it starts a new
// "data" section when the current one already holds MaxCommandsPerChunk
// commands, then counts the command about to be written.
func (w *Writer) maybeRollChunk() error {
	if w.commandsInChunk >= w.opts.MaxCommandsPerChunk {
		w.commandsInChunk = 0
		if err := w.section("data"); err != nil {
			return err
		}
	}
	w.commandsInChunk++
	return nil
}

// WriteInsertBatch emits rows as INSERT INTO ... VALUES (...), (...);
// batches of at most MaxRowsPerInsert rows, values rendered as literals.
func (w *Writer) WriteInsertBatch(qualifiedTable string, columns []string, rows [][]string) error {
	colList := ir.QuoteIdentList(columns)
	for i := 0; i < len(rows); i += w.opts.MaxRowsPerInsert {
		end := i + w.opts.MaxRowsPerInsert
		if end > len(rows) {
			end = len(rows)
		}
		if err := w.maybeRollChunk(); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w.w, "INSERT INTO %s (%s) VALUES\n", qualifiedTable, colList); err != nil {
			return err
		}
		for j := i; j < end; j++ {
			if _, err := fmt.Fprintf(w.w, "  (%s)%s\n", strings.Join(rows[j], ", "), terminator(j, end-1)); err != nil {
				return err
			}
		}
	}
	return w.w.Flush()
}

func terminator(i, last int) string {
	if i == last {
		return ";"
	}
	return ","
}

// WriteCopyBlock emits a COPY ... FROM stdin; block, writing
// already-text-encoded row lines (tab-separated, per PostgreSQL's text
// COPY format) verbatim and terminating with "\.".
func (w *Writer) WriteCopyBlock(qualifiedTable string, columns []string, textRows []string) error {
	if err := w.maybeRollChunk(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.w, "COPY %s (%s) FROM stdin;\n", qualifiedTable, ir.QuoteIdentList(columns)); err != nil {
		return err
	}
	for _, line := range textRows {
		if _, err := fmt.Fprintf(w.w, "%s\n", line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w.w, "\\.\n"); err != nil {
		return err
	}
	return nil
}

func (w *Writer) Flush() error { return w.w.Flush() }
