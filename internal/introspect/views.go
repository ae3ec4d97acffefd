package introspect

import (
	"fmt"

	"github.com/elefant-tools/elefant-sync/internal/ir"
)

// loadViews populates sch.Views and sch.MatViews from pg_class
// (relkind 'v'/'m'), recording best-effort owner-table dependencies via
// pg_depend so a view always sorts after the tables it selects from.
func (in *Introspector) loadViews(sch *ir.Schema, nspOID uint32) error {
	query := fmt.Sprintf(`
		SELECT c.oid, c.relname, c.relkind, pg_get_viewdef(c.oid, true)
		FROM pg_class c
		WHERE c.relnamespace = %d AND c.relkind IN ('v', 'm')
		ORDER BY c.relname`, nspOID)
	rows, err := queryRows(in.conn, "pg_class (views)", query)
	if err != nil {
		return err
	}
	for _, row := range rows {
		oid := colUint32(row, 0)
		name := colString(row, 1)
		relkind := colString(row, 2)
		def := colString(row, 3)

		owners, err := in.viewDependencies(oid)
		if err != nil {
			return err
		}

		if relkind == "m" {
			mv := &ir.MaterializedView{Name: name, Definition: def, OwnerTables: owners}
			mv.Qualified = ir.QualifiedName(sch.Name, name)
			mv.SourceCatalogOID = oid
			mv.Deps = owners
			sch.MatViews = append(sch.MatViews, mv)
			continue
		}
		v := &ir.View{Name: name, Definition: def, OwnerTables: owners}
		v.Qualified = ir.QualifiedName(sch.Name, name)
		v.SourceCatalogOID = oid
		v.Deps = owners
		sch.Views = append(sch.Views, v)
	}
	return nil
}

// viewDependencies returns the qualified identifiers of tables/views a
// view reads from, via pg_depend's normal (non-internal) dependencies —
// best-effort, coarse-grained, same "depends on these schema objects"
// level used for function bodies too.
func (in *Introspector) viewDependencies(viewOID uint32) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT rn.nspname, rc.relname
		FROM pg_depend d
		JOIN pg_rewrite rw ON rw.oid = d.objid
		JOIN pg_class rc ON rc.oid = d.refobjid
		JOIN pg_namespace rn ON rn.oid = rc.relnamespace
		WHERE rw.ev_class = %d AND d.refobjid <> %d AND rc.relkind IN ('r', 'v', 'm', 'p')
		ORDER BY 1, 2`, viewOID, viewOID)
	rows, err := queryRows(in.conn, "pg_depend (view)", query)
	if err != nil {
		return nil, err
	}
	owners := make([]string, len(rows))
	for i, row := range rows {
		owners[i] = ir.QualifiedName(colString(row, 0), colString(row, 1))
	}
	return owners, nil
}
