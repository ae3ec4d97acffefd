package transfer

import (
	"testing"

	"github.com/elefant-tools/elefant-sync/internal/ir"
	"github.com/elefant-tools/elefant-sync/internal/wire"
)

type fakeCopySource struct {
	queryResults []wire.SimpleQueryResult
	queryErr     error
	lastQuery    string
}

func (f *fakeCopySource) QuerySimple(text string) ([]wire.SimpleQueryResult, error) {
	f.lastQuery = text
	return f.queryResults, f.queryErr
}

func (f *fakeCopySource) CopyOut(query string) (*wire.CopyOutStream, error) {
	f.lastQuery = query
	return nil, nil
}

func TestSource_ListChunks_UsesRelPagesForCtidFallback(t *testing.T) {
	fake := &fakeCopySource{
		queryResults: []wire.SimpleQueryResult{
			{Rows: []wire.Row{{Values: [][]byte{[]byte("500")}}}},
		},
	}
	tbl := &ir.Table{Name: "logs", Columns: []ir.Column{{Name: "msg", TypeName: "text"}}}

	src := NewSource(fake)
	slices, err := src.ListChunks(tbl, 3)
	if err != nil {
		t.Fatalf("ListChunks() error: %v", err)
	}
	if len(slices) != 3 {
		t.Fatalf("len(slices) = %d, want 3", len(slices))
	}
}

func TestSource_ListChunks_ZeroPagesWhenRelationUnknown(t *testing.T) {
	fake := &fakeCopySource{queryResults: []wire.SimpleQueryResult{{Rows: nil}}}
	tbl := &ir.Table{Name: "logs", Columns: []ir.Column{{Name: "msg", TypeName: "text"}}}

	src := NewSource(fake)
	slices, err := src.ListChunks(tbl, 4)
	if err != nil {
		t.Fatalf("ListChunks() error: %v", err)
	}
	if len(slices) != 1 {
		t.Fatalf("len(slices) = %d, want 1 (whole-table fallback)", len(slices))
	}
}

func TestSource_ListChunks_SingleIntegerPKTakesPriority(t *testing.T) {
	fake := &fakeCopySource{
		queryResults: []wire.SimpleQueryResult{
			{Rows: []wire.Row{{Values: [][]byte{[]byte("1000")}}}},
		},
	}
	tbl := &ir.Table{
		Name:       "items",
		PrimaryKey: &ir.PrimaryKey{Name: "items_pkey", Columns: []string{"id"}},
		Columns:    []ir.Column{{Name: "id", TypeName: "int8"}},
	}

	src := NewSource(fake)
	slices, err := src.ListChunks(tbl, 5)
	if err != nil {
		t.Fatalf("ListChunks() error: %v", err)
	}
	if len(slices) != 5 {
		t.Fatalf("len(slices) = %d, want 5", len(slices))
	}
	for _, s := range slices {
		if s.Predicate == "" {
			t.Errorf("slice predicate empty, want a modulo-bucket predicate")
		}
	}
}

func TestSource_ReadChunk_IssuesBinaryCopyOut(t *testing.T) {
	fake := &fakeCopySource{}
	tbl := &ir.Table{Name: "items"}
	src := NewSource(fake)

	if _, err := src.ReadChunk(nil, TableSlice{Table: tbl}); err != nil {
		t.Fatalf("ReadChunk() error: %v", err)
	}
	if fake.lastQuery != `COPY (SELECT * FROM "public"."items") TO STDOUT (FORMAT BINARY)` {
		t.Errorf("lastQuery = %q", fake.lastQuery)
	}
}
