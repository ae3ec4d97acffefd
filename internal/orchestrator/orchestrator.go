// Package orchestrator drives the Plan/Pre-data/Data/Post-data phases of
// a migration run: a single DDL connection owned by the orchestrator
// itself, and up to max_parallelism data workers each owning one source
// and one sink connection, pulling chunks from a shared queue.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/elefant-tools/elefant-sync/internal/errs"
	"github.com/elefant-tools/elefant-sync/internal/ir"
	"github.com/elefant-tools/elefant-sync/internal/transfer"
	"github.com/elefant-tools/elefant-sync/internal/wire"
)

// WorkerConn is one worker's private connection pair.
type WorkerConn struct {
	Source *wire.Connection
	Sink   *wire.Connection
}

// Options configures one orchestrator run.
type Options struct {
	MaxParallelism int
	Differential   bool
	Retry          RetryPolicy
}

// Orchestrator ties the IR, a DDL sink connection, and a worker-connection
// factory together into the four phases of a migration run: plan,
// pre-data, data, post-data.
type Orchestrator struct {
	ddlConn   *wire.Connection
	newWorker func(ctx context.Context) (*WorkerConn, error)
	opts      Options
	runID     uuid.UUID
	state     *runState
}

func New(ddlConn *wire.Connection, newWorker func(ctx context.Context) (*WorkerConn, error), opts Options) *Orchestrator {
	if opts.Retry == (RetryPolicy{}) {
		opts.Retry = DefaultRetryPolicy()
	}
	runID := uuid.New()
	return &Orchestrator{
		ddlConn:   ddlConn,
		newWorker: newWorker,
		opts:      opts,
		runID:     runID,
		state:     newRunState(ddlConn, runID),
	}
}

// Run executes Plan → Pre-data → Data → Post-data against db, returning
// the first fatal error encountered. A DDL failure aborts before the data
// phase begins; a non-transient data-phase failure cancels remaining
// workers and leaves the target in partial state for later differential
// resume.
func (o *Orchestrator) Run(ctx context.Context, db *ir.Database) error {
	plan, err := BuildPlan(db, o.opts.MaxParallelism)
	if err != nil {
		return errs.New(errs.KindPlanError, "", "plan", err)
	}
	log.Printf("plan: %d objects, %d tables, %d workers", len(plan.Order), len(plan.Tables), plan.Workers)

	if err := o.state.ensureTable(); err != nil {
		return errs.New(errs.KindServerError, "_elefant_sync_state", "plan", err)
	}

	if err := o.preData(plan); err != nil {
		return err
	}

	if err := o.data(ctx, plan); err != nil {
		return err
	}

	if err := o.postData(plan); err != nil {
		return err
	}

	return nil
}

func (o *Orchestrator) preData(plan *Plan) error {
	order := plan.Order
	if o.opts.Differential {
		var err error
		order, err = o.reconcileChangedObjects(plan.Order, "pre-data")
		if err != nil {
			return err
		}
	}
	if len(order) == 0 {
		log.Printf("pre-data: nothing changed")
		return nil
	}
	log.Printf("pre-data: applying %d of %d objects", len(order), len(plan.Order))
	sink := transfer.NewSink(o.ddlConn)
	if err := sink.PrepareTarget(order); err != nil {
		return errs.New(errs.KindServerError, "", "pre-data", err)
	}
	return o.markObjectsApplied(order, "pre-data")
}

func (o *Orchestrator) postData(plan *Plan) error {
	order := plan.Order
	if o.opts.Differential {
		var err error
		order, err = o.reconcileChangedObjects(plan.Order, "post-data")
		if err != nil {
			return err
		}
	}
	if len(order) == 0 {
		log.Printf("post-data: nothing changed")
		return nil
	}
	log.Printf("post-data: applying %d of %d objects", len(order), len(plan.Order))
	sink := transfer.NewSink(o.ddlConn)
	if err := sink.Finalize(order); err != nil {
		return errs.New(errs.KindServerError, "", "post-data", err)
	}
	return o.markObjectsApplied(order, "post-data")
}

// reconcileChangedObjects diffs each object's current signature against
// what a prior run last applied under the given phase. Unchanged objects
// are dropped from the returned order entirely so their DDL never
// replays against something that already exists; objects whose
// signature changed are dropped on the target first (via DropChanged)
// so their recreate does not collide with the stale definition.
func (o *Orchestrator) reconcileChangedObjects(order []ir.Object, phase string) ([]ir.Object, error) {
	applied, err := o.state.objectSignatures(phase)
	if err != nil {
		return nil, errs.New(errs.KindServerError, "", phase, err)
	}

	var pending, changed []ir.Object
	for _, obj := range order {
		sig := ir.Signature(obj)
		prev, ok := applied[obj.QualifiedIdentifier()]
		if ok && prev == sig {
			continue
		}
		pending = append(pending, obj)
		if ok {
			changed = append(changed, obj)
		}
	}
	if len(changed) == 0 {
		return pending, nil
	}

	log.Printf("%s: recreating %d changed objects", phase, len(changed))
	sink := transfer.NewSink(o.ddlConn)
	if err := sink.DropChanged(changed); err != nil {
		return nil, errs.New(errs.KindServerError, "", phase, err)
	}
	return pending, nil
}

// markObjectsApplied records each object's current signature under
// phase, so a later differential run can tell it apart from one that
// has since changed.
func (o *Orchestrator) markObjectsApplied(order []ir.Object, phase string) error {
	for _, obj := range order {
		sig := ir.Signature(obj)
		if err := o.state.markComplete(phase, obj.QualifiedIdentifier(), phase, sig); err != nil {
			return errs.New(errs.KindServerError, obj.QualifiedIdentifier(), phase, err)
		}
	}
	return nil
}

// chunkJob is one unit of work pulled off the shared queue: a single
// table slice, plus a shared counter so the last worker to finish a
// table's slices is the one that marks it complete.
type chunkJob struct {
	table     *ir.Table
	slice     transfer.TableSlice
	remaining *atomic.Int64
}

// data plans every table's chunks up front (using the DDL connection,
// which never touches COPY), then runs a fixed pool of plan.Workers
// goroutines, each opening exactly one source/sink connection pair and
// draining chunkJobs from a shared channel until it's closed. A table is
// marked complete once its last outstanding chunk finishes, regardless
// of which worker happened to process it.
func (o *Orchestrator) data(ctx context.Context, plan *Plan) error {
	if o.opts.Differential {
		done, err := o.state.completedIdentifiers("table")
		if err != nil {
			return errs.New(errs.KindServerError, "", "data", err)
		}
		plan.Tables = filterPendingTables(plan.Tables, done)
		if len(plan.Tables) > 0 {
			// A table left pending may be one that was never started, or
			// one a prior run copied partway before crashing — since only
			// whole-table completion is tracked, not individual chunks,
			// the only way to tell those apart is to wipe it and recopy
			// every chunk, exactly as if it were starting fresh.
			sink := transfer.NewSink(o.ddlConn)
			if err := sink.TruncateTables(plan.Tables); err != nil {
				return errs.New(errs.KindServerError, "", "data", err)
			}
		}
	}
	if len(plan.Tables) == 0 {
		log.Printf("data: nothing to copy")
		return nil
	}

	lister := transfer.NewSource(o.ddlConn)
	var jobs []chunkJob
	for _, table := range plan.Tables {
		slices, err := lister.ListChunks(table, plan.Workers)
		if err != nil {
			return errs.New(errs.KindNetwork, table.Qualified, "data", err)
		}
		remaining := &atomic.Int64{}
		remaining.Store(int64(len(slices)))
		for _, slice := range slices {
			jobs = append(jobs, chunkJob{table: table, slice: slice, remaining: remaining})
		}
	}
	log.Printf("data: %d chunks across %d tables", len(jobs), len(plan.Tables))

	jobCh := make(chan chunkJob)
	group, gctx := errgroup.WithContext(ctx)
	var totalRows atomic.Int64

	for i := 0; i < plan.Workers; i++ {
		group.Go(func() error {
			return o.runDataWorker(gctx, jobCh, &totalRows)
		})
	}
	group.Go(func() error {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case jobCh <- job:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}
	log.Printf("data: copied %s rows", humanize.Comma(totalRows.Load()))
	return nil
}

// runDataWorker opens one source/sink connection pair, processes jobs
// until jobCh closes or ctx is cancelled, and closes its connections on
// the way out regardless of which happened.
func (o *Orchestrator) runDataWorker(ctx context.Context, jobCh <-chan chunkJob, totalRows *atomic.Int64) error {
	wc, err := o.newWorker(ctx)
	if err != nil {
		return errs.New(errs.KindNetwork, "", "data", err)
	}
	defer wc.Source.Close(ctx)
	defer wc.Sink.Close(ctx)

	done := make(chan struct{})
	defer close(done)
	go watchCancellation(ctx, done, wc)

	source := transfer.NewSource(wc.Source)
	sink := transfer.NewSink(wc.Sink)

	for {
		select {
		case job, ok := <-jobCh:
			if !ok {
				return nil
			}
			n, err := o.copyChunk(ctx, source, sink, job)
			if err != nil {
				return err
			}
			totalRows.Add(n)
			if job.remaining.Add(-1) == 0 {
				if err := o.state.markComplete("table", job.table.Qualified, "data", ""); err != nil {
					return errs.New(errs.KindServerError, job.table.Qualified, "data", err)
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// watchCancellation issues a protocol-level CancelRequest against a
// worker's source connection as soon as ctx is done, so a chunk already
// blocked inside a wire read (which carries no context of its own) gets
// unstuck rather than waiting out the TCP timeout. Cancelling the source
// is enough: streamCopyIn's read loop treats the resulting read error as
// local I/O failure and sends CopyFail to the sink itself, so the sink
// connection never needs its own cancel. done closes when the worker
// returns from runDataWorker, whether or not ctx was ever cancelled.
func watchCancellation(ctx context.Context, done <-chan struct{}, wc *WorkerConn) {
	select {
	case <-done:
		return
	case <-ctx.Done():
	}
	cancelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wc.Source.Cancel(cancelCtx); err != nil {
		log.Printf("cancel source connection: %v", err)
	}
}

func (o *Orchestrator) copyChunk(ctx context.Context, source *transfer.Source, sink *transfer.Sink, job chunkJob) (int64, error) {
	var rows int64
	err := withRetry(ctx, o.opts.Retry, func() error {
		chunk, err := source.ReadChunk(ctx, job.slice)
		if err != nil {
			return err
		}
		n, err := sink.WriteChunk(job.slice, chunk.Stream)
		rows = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("copy %s slice %d/%d: %w", job.table.Qualified, job.slice.Ordinal+1, job.slice.Total, err)
	}
	return rows, nil
}

func filterPendingTables(tables []*ir.Table, done map[string]bool) []*ir.Table {
	var out []*ir.Table
	for _, t := range tables {
		if !done[t.Qualified] {
			out = append(out, t)
		}
	}
	return out
}
