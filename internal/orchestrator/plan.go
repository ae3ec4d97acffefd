package orchestrator

import (
	"runtime"

	"github.com/elefant-tools/elefant-sync/internal/ir"
)

// Plan is the output of the Plan phase: a dependency-ordered DDL emission
// list plus the per-table worker decision.
type Plan struct {
	Order        []ir.Object
	Tables       []*ir.Table
	Workers      int
	DisableTrigs bool
}

// BuildPlan computes the DAG emit order and the worker count (min of
// configured max_parallelism and CPU count), and defaults to disabling
// triggers during load to avoid spurious fires.
func BuildPlan(db *ir.Database, maxParallelism int) (*Plan, error) {
	order, err := ir.EmitOrder(db)
	if err != nil {
		return nil, err
	}

	workers := runtime.NumCPU()
	if maxParallelism > 0 && maxParallelism < workers {
		workers = maxParallelism
	}
	if workers < 1 {
		workers = 1
	}

	var tables []*ir.Table
	for _, s := range db.Schemas {
		tables = append(tables, s.Tables...)
	}

	return &Plan{
		Order:        order,
		Tables:       tables,
		Workers:      workers,
		DisableTrigs: true,
	}, nil
}
