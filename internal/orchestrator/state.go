package orchestrator

import (
	"fmt"

	"github.com/elefant-tools/elefant-sync/internal/ir"
	"github.com/elefant-tools/elefant-sync/internal/wire"
	"github.com/google/uuid"
)

const stateTableDDL = `CREATE TABLE IF NOT EXISTS public._elefant_sync_state (
	run_id uuid NOT NULL,
	object_kind text NOT NULL,
	object_identifier text NOT NULL,
	phase text NOT NULL,
	signature text NOT NULL DEFAULT '',
	completed_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, object_kind, object_identifier)
)`

// stateExecutor is the subset of *wire.Connection state.go needs.
type stateExecutor interface {
	QuerySimple(text string) ([]wire.SimpleQueryResult, error)
}

// runState tracks what this (or a prior) run has already completed on
// the target, backing differential resume.
type runState struct {
	conn  stateExecutor
	runID uuid.UUID
}

func newRunState(conn stateExecutor, runID uuid.UUID) *runState {
	return &runState{conn: conn, runID: runID}
}

func (s *runState) ensureTable() error {
	_, err := s.conn.QuerySimple(stateTableDDL)
	return err
}

// completedIdentifiers returns the object_identifier set marked done for
// the given kind across ALL run_ids, since a resumed run should skip
// whatever any prior attempt finished, not just this run's own id.
func (s *runState) completedIdentifiers(kind string) (map[string]bool, error) {
	query := fmt.Sprintf(`SELECT DISTINCT object_identifier FROM public._elefant_sync_state WHERE object_kind = %s`, ir.QuoteStringLiteral(kind))
	results, err := s.conn.QuerySimple(query)
	if err != nil {
		// Table may not exist yet on a never-run target; treat as empty.
		return map[string]bool{}, nil
	}
	out := map[string]bool{}
	if len(results) == 0 {
		return out, nil
	}
	for _, row := range results[0].Rows {
		if len(row.Values) > 0 && row.Values[0] != nil {
			out[string(row.Values[0])] = true
		}
	}
	return out, nil
}

// objectSignatures returns the most recently applied signature for each
// object_identifier of the given kind, across ALL run_ids, the same
// cross-run scope completedIdentifiers uses: a later run must compare
// against whatever signature any prior attempt actually left behind.
func (s *runState) objectSignatures(kind string) (map[string]string, error) {
	query := fmt.Sprintf(
		`SELECT DISTINCT ON (object_identifier) object_identifier, signature
		 FROM public._elefant_sync_state WHERE object_kind = %s
		 ORDER BY object_identifier, completed_at DESC`,
		ir.QuoteStringLiteral(kind))
	results, err := s.conn.QuerySimple(query)
	if err != nil {
		// Table may not exist yet on a never-run target; treat as empty.
		return map[string]string{}, nil
	}
	out := map[string]string{}
	if len(results) == 0 {
		return out, nil
	}
	for _, row := range results[0].Rows {
		if len(row.Values) < 2 || row.Values[0] == nil {
			continue
		}
		sig := ""
		if row.Values[1] != nil {
			sig = string(row.Values[1])
		}
		out[string(row.Values[0])] = sig
	}
	return out, nil
}

// markComplete records a completion marker, with an optional signature
// recording the DDL the object was applied under. It runs as its own
// statement on the orchestrator's DDL connection, not inside the
// transaction of a table's final chunk write: a crash between the two
// leaves a copied table without its marker, and a differential run then
// truncates and recopies that table.
func (s *runState) markComplete(kind, identifier, phase, signature string) error {
	query := fmt.Sprintf(
		`INSERT INTO public._elefant_sync_state (run_id, object_kind, object_identifier, phase, signature)
		 VALUES (%s, %s, %s, %s, %s)
		 ON CONFLICT (run_id, object_kind, object_identifier) DO UPDATE SET phase = EXCLUDED.phase, signature = EXCLUDED.signature, completed_at = now()`,
		ir.QuoteStringLiteral(s.runID.String()), ir.QuoteStringLiteral(kind), ir.QuoteStringLiteral(identifier),
		ir.QuoteStringLiteral(phase), ir.QuoteStringLiteral(signature))
	_, err := s.conn.QuerySimple(query)
	return err
}
