package transfer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/elefant-tools/elefant-sync/internal/errs"
	"github.com/elefant-tools/elefant-sync/internal/ir"
	"github.com/elefant-tools/elefant-sync/internal/wire"
)

// copySink is the subset of *wire.Connection the sink side needs.
type copySink interface {
	QuerySimple(text string) ([]wire.SimpleQueryResult, error)
	CopyIn(query string, src io.Reader) (int64, error)
}

// Sink adapts one target wire connection into prepare/write/finalize.
type Sink struct {
	conn copySink
}

func NewSink(conn copySink) *Sink {
	return &Sink{conn: conn}
}

// PrepareTarget applies pre-data DDL in the order EmitOrder already
// produced (the orchestrator is responsible for that ordering; the sink
// just executes what it is handed, statement by statement).
func (s *Sink) PrepareTarget(order []ir.Object) error {
	var buf bytes.Buffer
	if err := ir.EmitPreData(&buf, order); err != nil {
		return err
	}
	return s.execBatch(buf.String(), "pre-data")
}

// Finalize applies post-data DDL the same way.
func (s *Sink) Finalize(order []ir.Object) error {
	var buf bytes.Buffer
	if err := ir.EmitPostData(&buf, order); err != nil {
		return err
	}
	return s.execBatch(buf.String(), "post-data")
}

// DropChanged tears down objects a prior run already created under a
// definition that no longer matches, ahead of PrepareTarget/Finalize
// recreating them under the current one.
func (s *Sink) DropChanged(order []ir.Object) error {
	var buf bytes.Buffer
	if err := ir.EmitDrop(&buf, order); err != nil {
		return err
	}
	return s.execBatch(buf.String(), "drop-changed")
}

// TruncateTables empties tables ahead of a differential re-copy, so a
// table that crashed partway through its last run doesn't end up with
// the prior attempt's rows duplicated alongside the new ones. Safe to
// call unconditionally at this point in a run: foreign keys are always
// created in post-data, so no already-completed table can yet hold a
// constraint that would force a cascading truncate of its rows too.
func (s *Sink) TruncateTables(tables []*ir.Table) error {
	if len(tables) == 0 {
		return nil
	}
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Qualified
	}
	sql := fmt.Sprintf("TRUNCATE TABLE %s;", strings.Join(names, ", "))
	return s.execBatch(sql, "data-truncate")
}

func (s *Sink) execBatch(sql, phase string) error {
	if sql == "" {
		return nil
	}
	if _, err := s.conn.QuerySimple(sql); err != nil {
		return errs.New(errs.KindServerError, "", phase, err)
	}
	return nil
}

// WriteChunk issues COPY ... FROM STDIN (FORMAT BINARY) against the
// matching slice predicate, streaming directly from the chunk's source
// reader. The sink does not de-duplicate rows itself; differential resume
// relies on the orchestrator truncating a table before its chunks are
// re-copied (see TruncateTables).
func (s *Sink) WriteChunk(slice TableSlice, stream io.Reader) (int64, error) {
	query := fmt.Sprintf("COPY %s FROM STDIN (FORMAT BINARY)", ir.QualifiedName(schemaOf(slice.Table), slice.Table.Name))
	n, err := s.conn.CopyIn(query, stream)
	if err != nil {
		return n, errs.New(errs.KindNetwork, slice.Table.Qualified, "data", err)
	}
	return n, nil
}
