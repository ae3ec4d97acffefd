package introspect

import (
	"fmt"

	"github.com/elefant-tools/elefant-sync/internal/ir"
)

// loadEnums populates sch.Enums from pg_type/pg_enum, one entry per enum
// type in typname order with its labels in enumsortorder. Introspect then
// makes every table with a column of an enum type depend on that enum, so
// the enum comes before the table in the emit order.
func (in *Introspector) loadEnums(sch *ir.Schema, nspOID uint32) error {
	query := fmt.Sprintf(`
		SELECT t.oid, t.typname
		FROM pg_type t
		WHERE t.typnamespace = %d AND t.typtype = 'e'
		ORDER BY t.typname`, nspOID)
	rows, err := queryRows(in.conn, "pg_type (enum)", query)
	if err != nil {
		return err
	}
	for _, row := range rows {
		oid := colUint32(row, 0)
		name := colString(row, 1)
		labels, err := in.enumLabels(oid)
		if err != nil {
			return err
		}
		e := &ir.Enum{Name: name, Labels: labels}
		e.Qualified = ir.QualifiedName(sch.Name, name)
		e.SourceCatalogOID = oid
		sch.Enums = append(sch.Enums, e)
	}
	return nil
}

func (in *Introspector) enumLabels(typeOID uint32) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT enumlabel FROM pg_enum WHERE enumtypid = %d ORDER BY enumsortorder`, typeOID)
	rows, err := queryRows(in.conn, "pg_enum", query)
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(rows))
	for i, row := range rows {
		labels[i] = colString(row, 0)
	}
	return labels, nil
}

// loadDomains populates sch.Domains from pg_type (typtype 'd').
func (in *Introspector) loadDomains(sch *ir.Schema, nspOID uint32) error {
	query := fmt.Sprintf(`
		SELECT t.oid, t.typname, format_type(t.typbasetype, t.typtypmod),
		       t.typnotnull, COALESCE(t.typdefault, '')
		FROM pg_type t
		WHERE t.typnamespace = %d AND t.typtype = 'd'
		ORDER BY t.typname`, nspOID)
	rows, err := queryRows(in.conn, "pg_type (domain)", query)
	if err != nil {
		return err
	}
	for _, row := range rows {
		oid := colUint32(row, 0)
		name := colString(row, 1)
		baseType := colString(row, 2)
		notNull := colBool(row, 3)
		def := colString(row, 4)

		d := &ir.Domain{
			Name:     name,
			BaseType: baseType,
			NotNull:  notNull,
			Default:  def,
		}
		d.Qualified = ir.QualifiedName(sch.Name, name)
		d.SourceCatalogOID = oid

		constraints, err := in.domainConstraints(oid)
		if err != nil {
			return err
		}
		d.Constraints = constraints

		sch.Domains = append(sch.Domains, d)
	}
	return nil
}

func (in *Introspector) domainConstraints(typeOID uint32) ([]ir.CheckConstraint, error) {
	query := fmt.Sprintf(`
		SELECT conname, COALESCE(pg_get_constraintdef(oid), '')
		FROM pg_constraint WHERE contypid = %d ORDER BY conname`, typeOID)
	rows, err := queryRows(in.conn, "pg_constraint (domain)", query)
	if err != nil {
		return nil, err
	}
	out := make([]ir.CheckConstraint, len(rows))
	for i, row := range rows {
		out[i] = ir.CheckConstraint{Name: colString(row, 0), Expression: extractCheckExpr(colString(row, 1))}
	}
	return out, nil
}
