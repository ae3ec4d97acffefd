package orchestrator

import (
	"testing"

	"github.com/elefant-tools/elefant-sync/internal/ir"
	"github.com/elefant-tools/elefant-sync/internal/wire"
	"github.com/google/uuid"
)

func TestFilterPendingTables_SkipsCompletedTables(t *testing.T) {
	users := &ir.Table{Name: "users"}
	orders := &ir.Table{Name: "orders"}
	users.Qualified = `"public"."users"`
	orders.Qualified = `"public"."orders"`

	done := map[string]bool{`"public"."users"`: true}
	pending := filterPendingTables([]*ir.Table{users, orders}, done)

	if len(pending) != 1 || pending[0] != orders {
		t.Errorf("filterPendingTables() = %v, want only orders", pending)
	}
}

func TestFilterPendingTables_NoneCompletedReturnsAll(t *testing.T) {
	users := &ir.Table{Name: "users"}
	pending := filterPendingTables([]*ir.Table{users}, map[string]bool{})
	if len(pending) != 1 {
		t.Errorf("filterPendingTables() = %v, want all tables returned", pending)
	}
}

func TestFilterPendingTables_AllCompletedReturnsEmpty(t *testing.T) {
	users := &ir.Table{Name: "users"}
	users.Qualified = `"public"."users"`
	pending := filterPendingTables([]*ir.Table{users}, map[string]bool{`"public"."users"`: true})
	if len(pending) != 0 {
		t.Errorf("filterPendingTables() = %v, want empty", pending)
	}
}

func TestReconcileChangedObjects_NothingAppliedYetKeepsEverything(t *testing.T) {
	users := &ir.Table{Name: "users"}
	users.Qualified = `"public"."users"`
	fake := &fakeStateExecutor{}
	o := &Orchestrator{state: newRunState(fake, uuid.New())}

	pending, err := o.reconcileChangedObjects([]ir.Object{users}, "pre-data")
	if err != nil {
		t.Fatalf("reconcileChangedObjects() error: %v", err)
	}
	if len(pending) != 1 || pending[0] != users {
		t.Errorf("reconcileChangedObjects() = %v, want [users]", pending)
	}
}

func TestReconcileChangedObjects_UnchangedObjectIsSkipped(t *testing.T) {
	users := &ir.Table{Name: "users"}
	users.Qualified = `"public"."users"`
	sig := ir.Signature(users)

	fake := &fakeStateExecutor{
		results: []wire.SimpleQueryResult{
			{Rows: []wire.Row{{Values: [][]byte{[]byte(`"public"."users"`), []byte(sig)}}}},
		},
	}
	o := &Orchestrator{state: newRunState(fake, uuid.New())}

	pending, err := o.reconcileChangedObjects([]ir.Object{users}, "pre-data")
	if err != nil {
		t.Fatalf("reconcileChangedObjects() error: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("reconcileChangedObjects() = %v, want nothing pending for an unchanged object", pending)
	}
}
