package introspect

import (
	"fmt"

	"github.com/elefant-tools/elefant-sync/internal/ir"
)

// loadSequences populates standalone sequences (identity- and
// serial-owned sequences are reachable through their owning column's
// dependency edge already; this only adds them as IR objects so
// emit-order and pre-data DDL see them).
func (in *Introspector) loadSequences(sch *ir.Schema, nspOID uint32) error {
	query := fmt.Sprintf(`
		SELECT c.oid, c.relname, s.seqstart, s.seqmin, s.seqmax, s.seqincrement,
		       s.seqcache, s.seqcycle
		FROM pg_class c
		JOIN pg_sequence s ON s.seqrelid = c.oid
		WHERE c.relnamespace = %d AND c.relkind = 'S'
		ORDER BY c.relname`, nspOID)
	rows, err := queryRows(in.conn, "pg_sequence", query)
	if err != nil {
		return err
	}
	for _, row := range rows {
		name := colString(row, 1)
		seq := &ir.Sequence{
			Name:      name,
			Start:     colInt64(row, 2),
			Min:       colInt64(row, 3),
			Max:       colInt64(row, 4),
			Increment: colInt64(row, 5),
			Cache:     colInt64(row, 6),
			Cycle:     colBool(row, 7),
		}
		seq.Qualified = ir.QualifiedName(sch.Name, name)
		seq.SourceCatalogOID = colUint32(row, 0)
		if lv, err := in.sequenceLastValue(seq.Qualified); err == nil {
			seq.LastValue = lv
		}
		sch.Sequences = append(sch.Sequences, seq)
	}
	return nil
}

func (in *Introspector) sequenceLastValue(qualified string) (int64, error) {
	query := fmt.Sprintf(`SELECT last_value FROM %s`, qualified)
	rows, err := queryRows(in.conn, "sequence last_value", query)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	return colInt64(rows[0], 0), nil
}
