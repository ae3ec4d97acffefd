package introspect

import (
	"fmt"
	"strings"

	"github.com/elefant-tools/elefant-sync/internal/ir"
)

// loadIndexes populates t.Indexes from pg_index/pg_class, excluding the
// primary key's backing index (already captured as PrimaryKey in
// loadPrimaryKeyAndConstraints). Column expressions vs plain names are
// distinguished via pg_get_indexdef per-column, since pg_index.indkey
// entries of 0 mean "expression, see indexprs".
func (in *Introspector) loadIndexes(t *ir.Table, tableOID uint32, schemaName string) error {
	query := fmt.Sprintf(`
		SELECT ic.oid, ic.relname, am.amname, ix.indisunique, ix.indisprimary,
		       COALESCE(pg_get_expr(ix.indpred, ix.indrelid), ''),
		       ic.reloptions, ix.indnkeyatts, ix.indnatts
		FROM pg_index ix
		JOIN pg_class ic ON ic.oid = ix.indexrelid
		JOIN pg_am am ON am.oid = ic.relam
		WHERE ix.indrelid = %d
		ORDER BY ic.relname`, tableOID)
	rows, err := queryRows(in.conn, "pg_index", query)
	if err != nil {
		return err
	}

	for _, row := range rows {
		isPrimary := colBool(row, 4)
		if isPrimary {
			continue
		}
		indexOID := colUint32(row, 0)
		name := colString(row, 1)
		method := colString(row, 2)
		unique := colBool(row, 3)
		predicate := colString(row, 5)
		nkeyAtts := colInt(row, 7)
		natts := colInt(row, 8)

		idx := &ir.Index{
			Name:            name,
			Table:           t.Qualified,
			Method:          method,
			Unique:          unique,
			FilterPredicate: predicate,
			StorageParams:   map[string]string{},
		}
		idx.Qualified = ir.QualifiedName(schemaName, name)
		idx.Deps = []string{t.Qualified}
		idx.SourceCatalogOID = indexOID

		cols, included, err := in.indexColumns(indexOID, nkeyAtts, natts)
		if err != nil {
			return err
		}
		idx.Columns = cols
		idx.IncludedColumns = included

		t.Indexes = append(t.Indexes, idx)
	}
	return nil
}

func (in *Introspector) indexColumns(indexOID uint32, nkeyAtts, natts int) ([]ir.IndexColumn, []string, error) {
	query := fmt.Sprintf(`
		SELECT ia.attnum, COALESCE(a.attname, ''),
		       COALESCE(pg_get_indexdef(ia.indexrelid, ia.attnum, false), ''),
		       (ia.indoption & 1) <> 0 AS is_desc,
		       (ia.indoption & 2) <> 0 AS nulls_first
		FROM (
		  SELECT indexrelid, generate_series(1, %d) AS attnum,
		         unnest(indoption) AS indoption
		  FROM pg_index WHERE indexrelid = %d
		) ia
		LEFT JOIN pg_attribute a ON a.attrelid = (
		  SELECT indrelid FROM pg_index WHERE indexrelid = %d
		) AND a.attnum = (
		  SELECT indkey[ia.attnum - 1] FROM pg_index WHERE indexrelid = %d
		)
		ORDER BY ia.attnum`, natts, indexOID, indexOID, indexOID)
	rows, err := queryRows(in.conn, "pg_index columns", query)
	if err != nil {
		return nil, nil, err
	}

	var cols []ir.IndexColumn
	var included []string
	for _, row := range rows {
		attnum := colInt(row, 0)
		name := colString(row, 1)
		exprOrName := colString(row, 2)
		desc := colBool(row, 3)
		nullsFirst := colBool(row, 4)

		if attnum > nkeyAtts {
			if name != "" {
				included = append(included, name)
			}
			continue
		}

		c := ir.IndexColumn{Desc: desc, NullsFirst: nullsFirst}
		if name == "" {
			c.Expression = strings.TrimSpace(exprOrName)
		} else {
			c.Name = name
		}
		cols = append(cols, c)
	}
	return cols, included, nil
}
