package ir

import (
	"sort"

	"github.com/elefant-tools/elefant-sync/internal/errs"
)

// AllObjects flattens every object kind across every schema into a
// single slice, in a stable declaration order, for graph construction
// and pre-data emission.
func (d *Database) AllObjects() []Object {
	var out []Object
	for _, s := range d.Schemas {
		out = append(out, s)
		for _, t := range s.Tables {
			out = append(out, t)
		}
		for _, sq := range s.Sequences {
			out = append(out, sq)
		}
		for _, v := range s.Views {
			out = append(out, v)
		}
		for _, mv := range s.MatViews {
			out = append(out, mv)
		}
		for _, f := range s.Functions {
			out = append(out, f)
		}
		for _, tg := range s.Triggers {
			out = append(out, tg)
		}
		for _, e := range s.Enums {
			out = append(out, e)
		}
		for _, dm := range s.Domains {
			out = append(out, dm)
		}
		for _, ex := range s.Extensions {
			out = append(out, ex)
		}
		for _, idx := range indexesOf(s.Tables) {
			out = append(out, idx)
		}
		for _, h := range s.Hypertables {
			out = append(out, h)
		}
	}
	return out
}

func indexesOf(tables []*Table) []*Index {
	var out []*Index
	for _, t := range tables {
		out = append(out, t.Indexes...)
	}
	return out
}

// EmitOrder computes a topological order over the dependency graph using
// iterative Kahn's algorithm. A dependency cycle is reported as an
// UnsupportedFeatureError naming every participant, since a cyclic
// dependency graph cannot be emitted as a linear sequence of DDL.
func EmitOrder(d *Database) ([]Object, error) {
	objects := d.AllObjects()

	byID := make(map[string]Object, len(objects))
	for _, o := range objects {
		byID[o.QualifiedIdentifier()] = o
	}

	indegree := make(map[string]int, len(objects))
	dependents := make(map[string][]string, len(objects))
	for _, o := range objects {
		id := o.QualifiedIdentifier()
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for _, dep := range o.Dependencies() {
			if _, ok := byID[dep]; !ok {
				// Treat a dangling edge as satisfied rather
				// than fatal — it most often means a catalog-only dependency
				// (e.g. a built-in type) the introspector never materializes.
				continue
			}
			dependents[dep] = append(dependents[dep], id)
			indegree[id]++
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	var order []Object
	for len(ready) > 0 {
		sort.Strings(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, byID[id])

		next := append([]string(nil), dependents[id]...)
		sort.Strings(next)
		for _, child := range next {
			indegree[child]--
			if indegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(order) != len(objects) {
		var cycle []string
		for id, deg := range indegree {
			if deg > 0 {
				cycle = append(cycle, id)
			}
		}
		sort.Strings(cycle)
		return nil, &errs.UnsupportedFeatureError{Feature: "dependency cycle", Identifiers: cycle}
	}

	return order, nil
}
