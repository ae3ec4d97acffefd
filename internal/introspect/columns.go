package introspect

import (
	"fmt"

	"github.com/elefant-tools/elefant-sync/internal/ir"
)

// loadColumns reads pg_attribute joined to pg_type/pg_attrdef, in
// attnum order so column ordering is preserved from source ( // invariant). Recognizes identity columns (attidentity) versus
// serial-with-owned-sequence (pg_depend's DEPENDENCY_AUTO on a sequence),
// explicit recognition requirement.
func (in *Introspector) loadColumns(t *ir.Table, tableOID uint32) error {
	identityCol, generatedCol := "a.attidentity", "a.attgenerated"
	if !in.dialect.HasIdentityColumns {
		identityCol = "''"
	}
	if !in.dialect.HasGeneratedColumns {
		generatedCol = "''"
	}
	query := fmt.Sprintf(`
		SELECT a.attname, a.atttypid, a.atttypmod, format_type(a.atttypid, a.atttypmod),
		       NOT a.attnotnull, %s, %s,
		       COALESCE(pg_get_expr(ad.adbin, ad.adrelid), ''),
		       COALESCE(co.collname, ''), a.attnum
		FROM pg_attribute a
		LEFT JOIN pg_attrdef ad ON ad.adrelid = a.attrelid AND ad.adnum = a.attnum
		LEFT JOIN pg_collation co ON co.oid = a.attcollation AND co.collname <> 'default'
		WHERE a.attrelid = %d AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum`, identityCol, generatedCol, tableOID)
	rows, err := queryRows(in.conn, "pg_attribute", query)
	if err != nil {
		return err
	}

	for _, row := range rows {
		name := colString(row, 0)
		typeOID := colUint32(row, 1)
		typeMod := int32(colInt64(row, 2))
		typeName := colString(row, 3)
		nullable := colBool(row, 4)
		identity := colString(row, 5) // '', 'a' (always), 'd' (by default)
		generated := colString(row, 6) // '', 's' (stored)
		defaultExpr := colString(row, 7)
		collation := colString(row, 8)
		ordinal := colInt(row, 9)

		col := ir.Column{
			Name:            name,
			TypeOID:         typeOID,
			TypeModifier:    typeMod,
			TypeName:        typeName,
			Nullable:        nullable,
			Collation:       collation,
			OrdinalPosition: ordinal,
		}

		switch generated {
		case "s":
			col.GeneratedExpression = defaultExpr
		default:
			switch identity {
			case "a":
				col.IsIdentity = true
				col.IdentityAlways = true
			case "d":
				col.IsIdentity = true
				col.IdentityAlways = false
			default:
				col.Default = defaultExpr
			}
		}

		if seq, err := in.ownedSequenceOf(tableOID, ordinal); err == nil && seq != "" {
			col.OwnedSequence = seq
		}

		t.Columns = append(t.Columns, col)
	}
	return nil
}

// ownedSequenceOf finds a sequence the column owns via pg_depend
// (DEPENDENCY_AUTO, 'a'), the pattern that distinguishes a
// serial-with-owned-sequence column from a plain identity column.
func (in *Introspector) ownedSequenceOf(tableOID uint32, attnum int) (string, error) {
	query := fmt.Sprintf(`
		SELECT sn.nspname, sc.relname
		FROM pg_depend d
		JOIN pg_class sc ON sc.oid = d.objid AND sc.relkind = 'S'
		JOIN pg_namespace sn ON sn.oid = sc.relnamespace
		WHERE d.refobjid = %d AND d.refobjsubid = %d AND d.deptype = 'a'`, tableOID, attnum)
	rows, err := queryRows(in.conn, "pg_depend", query)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return ir.QualifiedName(colString(rows[0], 0), colString(rows[0], 1)), nil
}
