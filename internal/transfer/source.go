package transfer

import (
	"context"
	"fmt"

	"github.com/elefant-tools/elefant-sync/internal/errs"
	"github.com/elefant-tools/elefant-sync/internal/ir"
	"github.com/elefant-tools/elefant-sync/internal/wire"
)

// copySource is the subset of *wire.Connection the transfer layer needs,
// kept narrow so tests can supply a fake.
type copySource interface {
	QuerySimple(text string) ([]wire.SimpleQueryResult, error)
	CopyOut(query string) (*wire.CopyOutStream, error)
}

// Source adapts one wire connection into the chunked read side of the
// copy orchestrator. A Source must not be shared across goroutines: it
// holds exactly one connection, consistent with a connection's strictly
// sequential query discipline.
type Source struct {
	conn copySource
}

func NewSource(conn copySource) *Source {
	return &Source{conn: conn}
}

// ListChunks reads the table's pg_class.relpages for ctid partitioning
// and returns its partition plan. It opens no transaction; each chunk
// read is a separate COPY statement, so the slices of one table are not
// read from one shared snapshot.
func (s *Source) ListChunks(t *ir.Table, workers int) ([]TableSlice, error) {
	relPages, err := s.relationPages(t)
	if err != nil {
		return nil, fmt.Errorf("estimate relation size for %s: %w", t.Qualified, err)
	}
	return planChunks(t, workers, relPages), nil
}

func (s *Source) relationPages(t *ir.Table) (int64, error) {
	qualified := ir.QualifiedName(schemaOf(t), t.Name)
	query := fmt.Sprintf(`SELECT relpages FROM pg_class WHERE oid = %s::regclass`, ir.QuoteStringLiteral(qualified))
	results, err := s.conn.QuerySimple(query)
	if err != nil {
		return 0, err
	}
	if len(results) == 0 || len(results[0].Rows) == 0 {
		return 0, nil
	}
	row := results[0].Rows[0]
	if len(row.Values) == 0 || row.Values[0] == nil {
		return 0, nil
	}
	var pages int64
	if _, err := fmt.Sscanf(string(row.Values[0]), "%d", &pages); err != nil {
		return 0, nil
	}
	return pages, nil
}

// ChunkStream is a binary-format COPY OUT stream for one TableSlice.
type ChunkStream struct {
	Slice  TableSlice
	Stream *wire.CopyOutStream
}

// ReadChunk issues COPY (SELECT ... WHERE <pred>) TO STDOUT (FORMAT
// BINARY) for the slice and returns the streaming reader. The caller
// drains Stream fully (or closes the underlying connection) before
// issuing another query on the same connection.
func (s *Source) ReadChunk(ctx context.Context, slice TableSlice) (*ChunkStream, error) {
	query := fmt.Sprintf("COPY (%s) TO STDOUT (FORMAT BINARY)", selectBody(slice))
	stream, err := s.conn.CopyOut(query)
	if err != nil {
		return nil, errs.New(errs.KindNetwork, slice.Table.Qualified, "read_chunk", err)
	}
	return &ChunkStream{Slice: slice, Stream: stream}, nil
}

func selectBody(s TableSlice) string {
	full := s.CopySelect()
	// CopySelect already produced "SELECT * FROM ..."; COPY (...) needs the
	// bare SELECT, so strip the leading "SELECT " is unnecessary — COPY
	// accepts a full SELECT statement as its parenthesized query.
	return full
}
