package ir

import "testing"

func newTable(qualified string, deps ...string) *Table {
	return &Table{base: base{Qualified: qualified, Deps: deps}, Name: qualified}
}

func TestEmitOrder_RespectsDependencies(t *testing.T) {
	child := newTable("public.orders", "public.users")
	parent := newTable("public.users")
	db := &Database{Schemas: []*Schema{
		{base: base{Qualified: "public"}, Name: "public", Tables: []*Table{child, parent}},
	}}

	order, err := EmitOrder(db)
	if err != nil {
		t.Fatalf("EmitOrder() error: %v", err)
	}

	pos := make(map[string]int, len(order))
	for i, o := range order {
		pos[o.QualifiedIdentifier()] = i
	}
	if pos["public.users"] >= pos["public.orders"] {
		t.Errorf("expected public.users before public.orders, got order %v", order)
	}
}

func TestEmitOrder_DanglingDependencyIsIgnored(t *testing.T) {
	t1 := newTable("public.events", "public.does_not_exist")
	db := &Database{Schemas: []*Schema{
		{base: base{Qualified: "public"}, Name: "public", Tables: []*Table{t1}},
	}}

	order, err := EmitOrder(db)
	if err != nil {
		t.Fatalf("EmitOrder() error: %v", err)
	}
	if len(order) != 2 { // schema object + table
		t.Fatalf("len(order) = %d, want 2", len(order))
	}
}

func TestEmitOrder_CycleIsUnsupported(t *testing.T) {
	a := newTable("public.a", "public.b")
	b := newTable("public.b", "public.a")
	db := &Database{Schemas: []*Schema{
		{base: base{Qualified: "public"}, Name: "public", Tables: []*Table{a, b}},
	}}

	_, err := EmitOrder(db)
	if err == nil {
		t.Fatal("expected a cycle error, got nil")
	}
}

func TestAllObjects_IncludesIndexes(t *testing.T) {
	tbl := newTable("public.users")
	tbl.Indexes = []*Index{{base: base{Qualified: "public.users_pkey"}, Name: "users_pkey", Table: "public.users"}}
	db := &Database{Schemas: []*Schema{
		{base: base{Qualified: "public"}, Name: "public", Tables: []*Table{tbl}},
	}}

	objects := db.AllObjects()
	var foundIndex bool
	for _, o := range objects {
		if o.QualifiedIdentifier() == "public.users_pkey" {
			foundIndex = true
		}
	}
	if !foundIndex {
		t.Errorf("AllObjects() did not include the table's index, got %v", objects)
	}
}
