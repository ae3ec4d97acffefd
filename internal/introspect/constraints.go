package introspect

import (
	"fmt"

	"github.com/elefant-tools/elefant-sync/internal/ir"
)

// loadPrimaryKeyAndConstraints reads pg_constraint for PRIMARY KEY,
// UNIQUE, CHECK and FOREIGN KEY constraints on one table. Referenced
// tables become dependency edges so FK-carrying tables always sort
// after what they reference ( dependency invariant; post-data
// placement of the FK itself is separate, see ir/emit.go).
func (in *Introspector) loadPrimaryKeyAndConstraints(t *ir.Table, tableOID uint32, schemaName string) error {
	query := fmt.Sprintf(`
		SELECT con.conname, con.contype, con.oid,
		       COALESCE(pg_get_constraintdef(con.oid), ''),
		       con.confupdtype, con.confdeltype,
		       rn.nspname, rc.relname
		FROM pg_constraint con
		LEFT JOIN pg_class rc ON rc.oid = con.confrelid
		LEFT JOIN pg_namespace rn ON rn.oid = rc.relnamespace
		WHERE con.conrelid = %d
		ORDER BY con.conname`, tableOID)
	rows, err := queryRows(in.conn, "pg_constraint", query)
	if err != nil {
		return err
	}

	for _, row := range rows {
		name := colString(row, 0)
		contype := colString(row, 1)
		def := colString(row, 3)

		switch contype {
		case "p":
			cols, err := in.constraintColumns(colUint32(row, 2))
			if err != nil {
				return err
			}
			t.PrimaryKey = &ir.PrimaryKey{Name: name, Columns: cols}
		case "u":
			cols, err := in.constraintColumns(colUint32(row, 2))
			if err != nil {
				return err
			}
			t.UniqueConstraints = append(t.UniqueConstraints, ir.UniqueConstraint{Name: name, Columns: cols})
		case "c":
			t.CheckConstraints = append(t.CheckConstraints, ir.CheckConstraint{
				Name:       name,
				Expression: extractCheckExpr(def),
			})
		case "f":
			cols, err := in.constraintColumns(colUint32(row, 2))
			if err != nil {
				return err
			}
			refSchema := colString(row, 6)
			refTable := colString(row, 7)
			refCols, err := in.foreignConstraintRefColumns(colUint32(row, 2))
			if err != nil {
				return err
			}
			fk := ir.ForeignKey{
				Name:       name,
				Columns:    cols,
				RefTable:   ir.QualifiedName(refSchema, refTable),
				RefColumns: refCols,
				OnUpdate:   actionName(colString(row, 4)),
				OnDelete:   actionName(colString(row, 5)),
			}
			t.ForeignKeys = append(t.ForeignKeys, fk)
			t.Deps = append(t.Deps, fk.RefTable)
		}
	}
	return nil
}

func actionName(code string) string {
	switch code {
	case "a":
		return "NO ACTION"
	case "r":
		return "RESTRICT"
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}

// extractCheckExpr strips the "CHECK (...)" wrapper pg_get_constraintdef
// returns, since ir/emit.go's emitTableConstraints supplies its own.
func extractCheckExpr(def string) string {
	const prefix = "CHECK ("
	if len(def) > len(prefix)+1 && def[:len(prefix)] == prefix {
		return def[len(prefix) : len(def)-1]
	}
	return def
}

func (in *Introspector) constraintColumns(conOID uint32) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT a.attname
		FROM pg_constraint con
		JOIN unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord) ON true
		JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		WHERE con.oid = %d
		ORDER BY k.ord`, conOID)
	rows, err := queryRows(in.conn, "pg_constraint columns", query)
	if err != nil {
		return nil, err
	}
	cols := make([]string, len(rows))
	for i, row := range rows {
		cols[i] = colString(row, 0)
	}
	return cols, nil
}

func (in *Introspector) foreignConstraintRefColumns(conOID uint32) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT a.attname
		FROM pg_constraint con
		JOIN unnest(con.confkey) WITH ORDINALITY AS k(attnum, ord) ON true
		JOIN pg_attribute a ON a.attrelid = con.confrelid AND a.attnum = k.attnum
		WHERE con.oid = %d
		ORDER BY k.ord`, conOID)
	rows, err := queryRows(in.conn, "pg_constraint confkey", query)
	if err != nil {
		return nil, err
	}
	cols := make([]string, len(rows))
	for i, row := range rows {
		cols[i] = colString(row, 0)
	}
	return cols, nil
}
