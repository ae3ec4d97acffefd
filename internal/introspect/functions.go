package introspect

import (
	"fmt"

	"github.com/elefant-tools/elefant-sync/internal/ir"
)

// loadFunctions populates sch.Functions from pg_proc, capturing
// composite-type dependencies of a function body only at the coarse
// "depends on these schema objects" level via pg_depend — never by
// parsing the body "never attempt SQL parsing" rule.
func (in *Introspector) loadFunctions(sch *ir.Schema, nspOID uint32) error {
	query := fmt.Sprintf(`
		SELECT p.oid, p.proname, pg_get_function_identity_arguments(p.oid),
		       l.lanname, p.prosrc, p.provolatile, p.proisstrict,
		       pg_get_function_result(p.oid), p.prokind, p.proargtypes
		FROM pg_proc p
		JOIN pg_language l ON l.oid = p.prolang
		WHERE p.pronamespace = %d
		ORDER BY p.proname`, nspOID)
	rows, err := queryRows(in.conn, "pg_proc", query)
	if err != nil {
		return err
	}
	for _, row := range rows {
		oid := colUint32(row, 0)
		name := colString(row, 1)
		sig := colString(row, 2)
		lang := colString(row, 3)
		body := colString(row, 4)
		volatility := map[string]string{"i": "IMMUTABLE", "s": "STABLE", "v": "VOLATILE"}[colString(row, 5)]
		strict := colBool(row, 6)
		retType := colString(row, 7)
		prokind := colString(row, 8)

		f := &ir.Function{
			Name:        name,
			Signature:   sig,
			Language:    lang,
			Body:        body,
			Volatility:  volatility,
			IsStrict:    strict,
			ReturnType:  retType,
			IsProcedure: prokind == "p",
			IsAggregate: prokind == "a",
		}
		f.Qualified = ir.QualifiedName(sch.Name, name)
		f.SourceCatalogOID = oid

		deps, err := in.functionDependencies(oid)
		if err != nil {
			return err
		}
		f.Deps = deps

		if f.IsAggregate {
			if err := in.loadAggregateSpecifics(f, oid); err != nil {
				return err
			}
		}

		sch.Functions = append(sch.Functions, f)
	}
	return nil
}

func (in *Introspector) functionDependencies(funcOID uint32) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT rn.nspname, rt.typname
		FROM pg_depend d
		JOIN pg_type rt ON rt.oid = d.refobjid AND d.refclassid = 'pg_type'::regclass
		JOIN pg_namespace rn ON rn.oid = rt.typnamespace
		WHERE d.objid = %d AND d.classid = 'pg_proc'::regclass AND d.deptype = 'n'
		ORDER BY 1, 2`, funcOID)
	rows, err := queryRows(in.conn, "pg_depend (function)", query)
	if err != nil {
		return nil, err
	}
	deps := make([]string, len(rows))
	for i, row := range rows {
		deps[i] = ir.QualifiedName(colString(row, 0), colString(row, 1))
	}
	return deps, nil
}

func (in *Introspector) loadAggregateSpecifics(f *ir.Function, funcOID uint32) error {
	query := fmt.Sprintf(`
		SELECT sf.proname, format_type(a.aggtranstype, NULL), COALESCE(a.agginitval, '')
		FROM pg_aggregate a
		JOIN pg_proc sf ON sf.oid = a.aggtransfn
		WHERE a.aggfnoid = %d`, funcOID)
	rows, err := queryRows(in.conn, "pg_aggregate", query)
	if err != nil || len(rows) == 0 {
		return err
	}
	f.AggregateSFunc = colString(rows[0], 0)
	f.AggregateStype = colString(rows[0], 1)
	f.AggregateInitVal = colString(rows[0], 2)
	return nil
}
