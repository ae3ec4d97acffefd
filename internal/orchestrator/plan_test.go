package orchestrator

import (
	"testing"

	"github.com/elefant-tools/elefant-sync/internal/ir"
)

func TestBuildPlan_ClampsToMaxParallelism(t *testing.T) {
	db := &ir.Database{Schemas: []*ir.Schema{{Name: "public"}}}
	plan, err := BuildPlan(db, 1)
	if err != nil {
		t.Fatalf("BuildPlan() error: %v", err)
	}
	if plan.Workers != 1 {
		t.Errorf("Workers = %d, want 1", plan.Workers)
	}
}

func TestBuildPlan_AtLeastOneWorker(t *testing.T) {
	db := &ir.Database{Schemas: []*ir.Schema{{Name: "public"}}}
	plan, err := BuildPlan(db, 0)
	if err != nil {
		t.Fatalf("BuildPlan() error: %v", err)
	}
	if plan.Workers < 1 {
		t.Errorf("Workers = %d, want >= 1", plan.Workers)
	}
}

func TestBuildPlan_FlattensTablesAcrossSchemas(t *testing.T) {
	t1 := &ir.Table{Name: "a"}
	t2 := &ir.Table{Name: "b"}
	t1.Qualified = `"public"."a"`
	t2.Qualified = `"other"."b"`
	public := &ir.Schema{Name: "public", Tables: []*ir.Table{t1}}
	other := &ir.Schema{Name: "other", Tables: []*ir.Table{t2}}
	public.Qualified = "schema:public"
	other.Qualified = "schema:other"
	db := &ir.Database{Schemas: []*ir.Schema{public, other}}
	plan, err := BuildPlan(db, 2)
	if err != nil {
		t.Fatalf("BuildPlan() error: %v", err)
	}
	if len(plan.Tables) != 2 {
		t.Fatalf("len(Tables) = %d, want 2", len(plan.Tables))
	}
}

func TestBuildPlan_DisablesTriggersByDefault(t *testing.T) {
	db := &ir.Database{Schemas: []*ir.Schema{{Name: "public"}}}
	plan, err := BuildPlan(db, 2)
	if err != nil {
		t.Fatalf("BuildPlan() error: %v", err)
	}
	if !plan.DisableTrigs {
		t.Error("DisableTrigs = false, want true")
	}
}
