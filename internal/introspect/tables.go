package introspect

import (
	"fmt"

	"github.com/elefant-tools/elefant-sync/internal/ir"
)

// systemSchemas are skipped unless explicitly requested.
var systemSchemas = map[string]bool{
	"pg_catalog":         true,
	"information_schema": true,
	"pg_toast":           true,
}

func isSystemSchema(name string) bool {
	if systemSchemas[name] {
		return true
	}
	return len(name) > 3 && name[:3] == "pg_"
}

// loadTables populates sch.Tables from pg_class/pg_namespace, one row
// per ordinary or partitioned table (relkind 'r' or 'p'), and records
// inheritance/partition-parent edges via pg_inherits so a partitioned
// table's children always depend on it in the emit order.
func (in *Introspector) loadTables(sch *ir.Schema, nspOID uint32) error {
	query := fmt.Sprintf(`
		SELECT c.oid, c.relname, c.relkind, c.reloptions
		FROM pg_class c
		WHERE c.relnamespace = %d AND c.relkind IN ('r', 'p')
		ORDER BY c.relname`, nspOID)
	rows, err := queryRows(in.conn, "pg_class", query)
	if err != nil {
		return err
	}

	for _, row := range rows {
		oid := colUint32(row, 0)
		name := colString(row, 1)
		relkind := colString(row, 2)

		t := &ir.Table{
			Name:          name,
			StorageParams: map[string]string{},
		}
		t.Qualified = ir.QualifiedName(sch.Name, name)
		t.SourceCatalogOID = oid

		if err := in.loadColumns(t, oid); err != nil {
			return fmt.Errorf("columns of %s: %w", t.Qualified, err)
		}
		if err := in.loadInheritance(t, oid, sch.Name); err != nil {
			return fmt.Errorf("inheritance of %s: %w", t.Qualified, err)
		}
		if relkind == "p" {
			if err := in.loadPartitionClause(t, oid); err != nil {
				return fmt.Errorf("partition clause of %s: %w", t.Qualified, err)
			}
		}
		if err := in.loadPrimaryKeyAndConstraints(t, oid, sch.Name); err != nil {
			return fmt.Errorf("constraints of %s: %w", t.Qualified, err)
		}
		if err := in.loadIndexes(t, oid, sch.Name); err != nil {
			return fmt.Errorf("indexes of %s: %w", t.Qualified, err)
		}

		for _, dep := range t.InheritsFrom {
			t.Deps = append(t.Deps, dep)
		}
		if t.PartitionOf != "" {
			t.Deps = append(t.Deps, t.PartitionOf)
		}
		for _, col := range t.Columns {
			if col.OwnedSequence != "" {
				t.Deps = append(t.Deps, col.OwnedSequence)
			}
		}

		sch.Tables = append(sch.Tables, t)
	}
	return nil
}

// loadInheritance walks pg_inherits to find this table's parents, used
// both for plain table inheritance and for partition-child relationships
// (a child whose own pg_class.relispartition is set is recorded as
// PartitionOf its parent; its partition bound, relpartbound, is not read).
func (in *Introspector) loadInheritance(t *ir.Table, oid uint32, schemaName string) error {
	query := fmt.Sprintf(`
		SELECT p.relname, pn.nspname, c.relispartition AS is_partition
		FROM pg_inherits i
		JOIN pg_class p ON p.oid = i.inhparent
		JOIN pg_namespace pn ON pn.oid = p.relnamespace
		JOIN pg_class c ON c.oid = i.inhrelid
		WHERE i.inhrelid = %d
		ORDER BY i.inhseqno`, oid)
	rows, err := queryRows(in.conn, "pg_inherits", query)
	if err != nil {
		return err
	}
	for _, row := range rows {
		parentName := colString(row, 0)
		parentSchema := colString(row, 1)
		isPartition := colBool(row, 2)
		qualified := ir.QualifiedName(parentSchema, parentName)
		if isPartition {
			t.PartitionOf = qualified
		} else {
			t.InheritsFrom = append(t.InheritsFrom, qualified)
		}
	}
	return nil
}

func (in *Introspector) loadPartitionClause(t *ir.Table, oid uint32) error {
	query := fmt.Sprintf(`
		SELECT pg_get_partkeydef(%d)`, oid)
	rows, err := queryRows(in.conn, "pg_partitioned_table", query)
	if err != nil {
		return err
	}
	if len(rows) == 1 {
		t.PartitionClause = colString(rows[0], 0)
	}
	return nil
}
