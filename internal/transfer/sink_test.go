package transfer

import (
	"io"
	"strings"
	"testing"

	"github.com/elefant-tools/elefant-sync/internal/ir"
	"github.com/elefant-tools/elefant-sync/internal/wire"
)

type fakeCopySink struct {
	execQueries []string
	execErr     error
	copyInN     int64
	copyInErr   error
	lastCopyQ   string
}

func (f *fakeCopySink) QuerySimple(text string) ([]wire.SimpleQueryResult, error) {
	f.execQueries = append(f.execQueries, text)
	return nil, f.execErr
}

func (f *fakeCopySink) CopyIn(query string, src io.Reader) (int64, error) {
	f.lastCopyQ = query
	io.Copy(io.Discard, src)
	return f.copyInN, f.copyInErr
}

func TestSink_PrepareTarget_SkipsEmptyBatch(t *testing.T) {
	fake := &fakeCopySink{}
	sink := NewSink(fake)
	if err := sink.PrepareTarget(nil); err != nil {
		t.Fatalf("PrepareTarget() error: %v", err)
	}
	if len(fake.execQueries) != 0 {
		t.Errorf("execQueries = %v, want none for an empty order", fake.execQueries)
	}
}

func TestSink_PrepareTarget_EmitsCreateTable(t *testing.T) {
	fake := &fakeCopySink{}
	sink := NewSink(fake)
	tbl := &ir.Table{Name: "users", Columns: []ir.Column{{Name: "id", TypeName: "integer", Nullable: false}}}

	if err := sink.PrepareTarget([]ir.Object{tbl}); err != nil {
		t.Fatalf("PrepareTarget() error: %v", err)
	}
	if len(fake.execQueries) != 1 || !strings.Contains(fake.execQueries[0], "CREATE TABLE") {
		t.Errorf("execQueries = %v, want a CREATE TABLE statement", fake.execQueries)
	}
}

func TestSink_DropChanged(t *testing.T) {
	fake := &fakeCopySink{}
	sink := NewSink(fake)
	tbl := &ir.Table{Name: "users"}
	tbl.Qualified = `"public"."users"`

	if err := sink.DropChanged([]ir.Object{tbl}); err != nil {
		t.Fatalf("DropChanged() error: %v", err)
	}
	if len(fake.execQueries) != 1 || !strings.Contains(fake.execQueries[0], `DROP TABLE IF EXISTS "public"."users" CASCADE`) {
		t.Errorf("execQueries = %v, want a DROP TABLE statement", fake.execQueries)
	}
}

func TestSink_DropChanged_SkipsEmptyBatch(t *testing.T) {
	fake := &fakeCopySink{}
	sink := NewSink(fake)
	if err := sink.DropChanged(nil); err != nil {
		t.Fatalf("DropChanged() error: %v", err)
	}
	if len(fake.execQueries) != 0 {
		t.Errorf("execQueries = %v, want none for an empty order", fake.execQueries)
	}
}

func TestSink_TruncateTables(t *testing.T) {
	fake := &fakeCopySink{}
	sink := NewSink(fake)
	a := &ir.Table{Name: "a"}
	a.Qualified = `"public"."a"`
	b := &ir.Table{Name: "b"}
	b.Qualified = `"public"."b"`

	if err := sink.TruncateTables([]*ir.Table{a, b}); err != nil {
		t.Fatalf("TruncateTables() error: %v", err)
	}
	if len(fake.execQueries) != 1 {
		t.Fatalf("execQueries = %v, want exactly one TRUNCATE statement", fake.execQueries)
	}
	got := fake.execQueries[0]
	if !strings.HasPrefix(got, "TRUNCATE TABLE ") || !strings.Contains(got, `"public"."a"`) || !strings.Contains(got, `"public"."b"`) {
		t.Errorf("execQueries[0] = %q, want a TRUNCATE of both tables", got)
	}
}

func TestSink_TruncateTables_SkipsEmptyList(t *testing.T) {
	fake := &fakeCopySink{}
	sink := NewSink(fake)
	if err := sink.TruncateTables(nil); err != nil {
		t.Fatalf("TruncateTables() error: %v", err)
	}
	if len(fake.execQueries) != 0 {
		t.Errorf("execQueries = %v, want none for an empty list", fake.execQueries)
	}
}

func TestSink_WriteChunk(t *testing.T) {
	fake := &fakeCopySink{copyInN: 42}
	sink := NewSink(fake)
	tbl := &ir.Table{Name: "items"}

	n, err := sink.WriteChunk(TableSlice{Table: tbl}, strings.NewReader("binary-payload"))
	if err != nil {
		t.Fatalf("WriteChunk() error: %v", err)
	}
	if n != 42 {
		t.Errorf("n = %d, want 42", n)
	}
	if fake.lastCopyQ != `COPY "public"."items" FROM STDIN (FORMAT BINARY)` {
		t.Errorf("lastCopyQ = %q", fake.lastCopyQ)
	}
}
