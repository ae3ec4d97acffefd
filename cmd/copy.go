package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/elefant-tools/elefant-sync/internal/errs"
	"github.com/elefant-tools/elefant-sync/internal/introspect"
	"github.com/elefant-tools/elefant-sync/internal/orchestrator"
	"github.com/elefant-tools/elefant-sync/internal/wire"
)

func newCopyCommand() *cobra.Command {
	var f CommonFlags
	cmd := &cobra.Command{
		Use:   "copy",
		Short: "copy the source database directly into the target database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(cmd, &f)
		},
	}
	registerCommonFlags(cmd, &f)
	return cmd
}

func runCopy(cmd *cobra.Command, f *CommonFlags) error {
	if err := resolveCommonFlags(cmd, f); err != nil {
		return newExitError(ExitUsageError, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	start := time.Now()

	log.Printf("connecting to source %s and target %s...", f.Source.endpoint(), f.Target.endpoint())
	srcConn, err := wire.Connect(ctx, f.Source.endpoint(), f.Source.credentials(), wire.Options{})
	if err != nil {
		return newExitError(ExitConnectionFailure, fmt.Errorf("connect source: %w", err))
	}
	defer srcConn.Close(ctx)

	ddlConn, err := wire.Connect(ctx, f.Target.endpoint(), f.Target.credentials(), wire.Options{})
	if err != nil {
		return newExitError(ExitConnectionFailure, fmt.Errorf("connect target: %w", err))
	}
	defer ddlConn.Close(ctx)

	log.Printf("introspecting source schema...")
	in := introspect.New(srcConn, srcConn.ServerVersion())
	db, err := in.Introspect(introspect.Options{})
	if err != nil {
		return newExitError(ExitIntrospectionFailure, fmt.Errorf("introspect: %w", err))
	}

	newWorker := func(ctx context.Context) (*orchestrator.WorkerConn, error) {
		ws, err := wire.Connect(ctx, f.Source.endpoint(), f.Source.credentials(), wire.Options{})
		if err != nil {
			return nil, fmt.Errorf("worker source connect: %w", err)
		}
		wt, err := wire.Connect(ctx, f.Target.endpoint(), f.Target.credentials(), wire.Options{})
		if err != nil {
			ws.Close(ctx)
			return nil, fmt.Errorf("worker target connect: %w", err)
		}
		return &orchestrator.WorkerConn{Source: ws, Sink: wt}, nil
	}

	orch := orchestrator.New(ddlConn, newWorker, orchestrator.Options{
		MaxParallelism: f.MaxParallelism,
		Differential:   f.Differential,
	})

	if err := orch.Run(ctx, db); err != nil {
		return newExitError(exitCodeForPhase(err), err)
	}

	log.Printf("copy completed in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

func exitCodeForPhase(err error) int {
	var e *errs.Error
	if errors.As(err, &e) {
		switch e.Kind {
		case errs.KindNetwork, errs.KindTls, errs.KindAuthFailed:
			return ExitConnectionFailure
		case errs.KindIntrospectionMiss:
			return ExitIntrospectionFailure
		case errs.KindPlanError, errs.KindUnsupportedFeature:
			return ExitDDLFailure
		case errs.KindCancelled:
			return ExitCancelled
		}
		if e.Phase == "pre-data" || e.Phase == "post-data" {
			return ExitDDLFailure
		}
	}
	return ExitDataPhaseFailure
}
