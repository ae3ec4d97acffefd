package transfer

import (
	"strings"
	"testing"

	"github.com/elefant-tools/elefant-sync/internal/ir"
)

func tableWithIntPK(qualified, name string) *ir.Table {
	return &ir.Table{
		Name:       name,
		PrimaryKey: &ir.PrimaryKey{Name: name + "_pkey", Columns: []string{"id"}},
		Columns:    []ir.Column{{Name: "id", TypeName: "int4"}, {Name: "val", TypeName: "text"}},
	}
}

func TestPlanChunks_SingleChunkWhenCountIsOne(t *testing.T) {
	tbl := tableWithIntPK("public.items", "items")
	slices := planChunks(tbl, 1, 1000)
	if len(slices) != 1 {
		t.Fatalf("len(slices) = %d, want 1", len(slices))
	}
	if slices[0].Predicate != "" {
		t.Errorf("Predicate = %q, want empty", slices[0].Predicate)
	}
}

func TestPlanChunks_IntegerPKUsesModuloBuckets(t *testing.T) {
	tbl := tableWithIntPK("public.items", "items")
	slices := planChunks(tbl, 4, 1000)
	if len(slices) != 4 {
		t.Fatalf("len(slices) = %d, want 4", len(slices))
	}
	for i, s := range slices {
		if !strings.Contains(s.Predicate, "% 4") {
			t.Errorf("slice %d predicate = %q, want a modulo-4 bucket", i, s.Predicate)
		}
	}
}

func TestPlanChunks_FallsBackToCtidWithoutIntegerPK(t *testing.T) {
	tbl := &ir.Table{Name: "logs", Columns: []ir.Column{{Name: "msg", TypeName: "text"}}}
	slices := planChunks(tbl, 3, 300)
	if len(slices) != 3 {
		t.Fatalf("len(slices) = %d, want 3", len(slices))
	}
	for _, s := range slices {
		if !strings.Contains(s.Predicate, "ctid") {
			t.Errorf("predicate = %q, want a ctid range", s.Predicate)
		}
	}
}

func TestPlanChunks_WholeTableWhenNoPagesKnown(t *testing.T) {
	tbl := &ir.Table{Name: "logs", Columns: []ir.Column{{Name: "msg", TypeName: "text"}}}
	slices := planChunks(tbl, 4, 0)
	if len(slices) != 1 {
		t.Fatalf("len(slices) = %d, want 1", len(slices))
	}
	if slices[0].Predicate != "" {
		t.Errorf("Predicate = %q, want empty", slices[0].Predicate)
	}
}

func TestSingleIntegerPK(t *testing.T) {
	tbl := tableWithIntPK("public.items", "items")
	col, ok := singleIntegerPK(tbl)
	if !ok || col != "id" {
		t.Errorf("singleIntegerPK() = (%q, %v), want (id, true)", col, ok)
	}
}

func TestSingleIntegerPK_RejectsCompositeKey(t *testing.T) {
	tbl := &ir.Table{
		PrimaryKey: &ir.PrimaryKey{Name: "pk", Columns: []string{"a", "b"}},
		Columns:    []ir.Column{{Name: "a", TypeName: "int4"}, {Name: "b", TypeName: "int4"}},
	}
	if _, ok := singleIntegerPK(tbl); ok {
		t.Error("singleIntegerPK() = true for a composite key, want false")
	}
}

func TestSingleIntegerPK_RejectsNonIntegerType(t *testing.T) {
	tbl := &ir.Table{
		PrimaryKey: &ir.PrimaryKey{Name: "pk", Columns: []string{"id"}},
		Columns:    []ir.Column{{Name: "id", TypeName: "uuid"}},
	}
	if _, ok := singleIntegerPK(tbl); ok {
		t.Error("singleIntegerPK() = true for a uuid key, want false")
	}
}

func TestCtidRangeSlices_LastBucketIsOpenEnded(t *testing.T) {
	tbl := &ir.Table{Name: "logs"}
	slices := ctidRangeSlices(tbl, 2, 100)
	last := slices[len(slices)-1]
	if strings.Contains(last.Predicate, "AND") {
		t.Errorf("last bucket predicate = %q, want open-ended (no upper bound)", last.Predicate)
	}
}

func TestTableSlice_CopySelect(t *testing.T) {
	tbl := &ir.Table{Name: "items"}
	s := TableSlice{Table: tbl, Predicate: "id % 2 = 0"}
	got := s.CopySelect()
	want := `SELECT * FROM "public"."items" WHERE id % 2 = 0`
	if got != want {
		t.Errorf("CopySelect() = %q, want %q", got, want)
	}
}

func TestTableSlice_CopySelect_NoPredicate(t *testing.T) {
	tbl := &ir.Table{Name: "items"}
	s := TableSlice{Table: tbl}
	got := s.CopySelect()
	want := `SELECT * FROM "public"."items"`
	if got != want {
		t.Errorf("CopySelect() = %q, want %q", got, want)
	}
}
