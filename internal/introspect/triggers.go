package introspect

import (
	"fmt"

	"github.com/elefant-tools/elefant-sync/internal/ir"
)

var triggerEventBits = []struct {
	bit  int
	name string
}{
	{4, "INSERT"},
	{8, "DELETE"},
	{16, "UPDATE"},
	{32, "TRUNCATE"},
}

// loadTriggers populates sch.Triggers from pg_trigger, skipping
// internal triggers (tgisinternal) backing constraints like foreign
// keys, which this tool emits its own DDL for instead.
func (in *Introspector) loadTriggers(sch *ir.Schema, tables []*ir.Table) error {
	for _, t := range tables {
		query := fmt.Sprintf(`
			SELECT tg.tgname, tg.tgtype, p.proname, pn.nspname,
			       COALESCE(pg_get_expr(tg.tgqual, tg.tgrelid), '')
			FROM pg_trigger tg
			JOIN pg_proc p ON p.oid = tg.tgfoid
			JOIN pg_namespace pn ON pn.oid = p.pronamespace
			WHERE tg.tgrelid = %d AND NOT tg.tgisinternal
			ORDER BY tg.tgname`, t.SourceCatalogOID)
		rows, err := queryRows(in.conn, "pg_trigger", query)
		if err != nil {
			return err
		}
		for _, row := range rows {
			name := colString(row, 0)
			tgtype := colInt(row, 1)
			funcName := colString(row, 2)
			funcSchema := colString(row, 3)
			condition := colString(row, 4)

			tg := &ir.Trigger{
				Name:       name,
				Table:      t.Qualified,
				Timing:     triggerTiming(tgtype),
				Events:     triggerEvents(tgtype),
				Function:   ir.QualifiedName(funcSchema, funcName),
				Condition:  condition,
				ForEachRow: tgtype&1 != 0,
			}
			tg.Qualified = t.Qualified + "." + ir.QuoteIdentifier(name)
			tg.Deps = []string{t.Qualified, tg.Function}
			sch.Triggers = append(sch.Triggers, tg)
		}
	}
	return nil
}

func triggerTiming(tgtype int) string {
	switch {
	case tgtype&2 != 0:
		return "BEFORE"
	case tgtype&64 != 0:
		return "INSTEAD OF"
	default:
		return "AFTER"
	}
}

func triggerEvents(tgtype int) []string {
	var events []string
	for _, e := range triggerEventBits {
		if tgtype&e.bit != 0 {
			events = append(events, e.name)
		}
	}
	return events
}
