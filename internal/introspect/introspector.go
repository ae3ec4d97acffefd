package introspect

import (
	"fmt"

	"github.com/elefant-tools/elefant-sync/internal/ir"
)

// Options controls which schemas are introspected.
type Options struct {
	// IncludeSystemSchemas introspects pg_catalog/information_schema too,
	// normally skipped.
	IncludeSystemSchemas bool
	// OnlySchemas, if non-empty, restricts introspection to these schema
	// names (an empty set means "every non-system schema").
	OnlySchemas []string
}

// Introspector drives the catalog queries against a wire
// connection, in this order: server version → schemas → per-schema
// tables/columns/constraints/indexes → sequences/views/functions/
// triggers/enums/domains → table-to-enum dependency edges → extensions →
// TimescaleDB → comments.
type Introspector struct {
	conn    queryExecutor
	dialect Dialect
}

// New wraps a query-capable connection (normally *wire.Connection) with
// the dialect chosen from its already-observed server version.
func New(conn queryExecutor, serverVersion int) *Introspector {
	return &Introspector{conn: conn, dialect: DialectFor(serverVersion)}
}

// Introspect runs the full sequence and returns an immutable IR Database,
// ready for ir.EmitOrder / ir.EmitPreData / ir.EmitPostData. Any catalog
// query failure aborts with a structured error naming the missing
// catalog failure semantics.
func (in *Introspector) Introspect(opts Options) (*ir.Database, error) {
	nspRows, err := in.listSchemas(opts)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}

	db := &ir.Database{}
	for _, nsp := range nspRows {
		sch := &ir.Schema{Name: nsp.name}
		sch.Qualified = "schema:" + nsp.name
		sch.SourceCatalogOID = nsp.oid

		if err := in.loadTables(sch, nsp.oid); err != nil {
			return nil, fmt.Errorf("schema %s: %w", nsp.name, err)
		}
		if err := in.loadSequences(sch, nsp.oid); err != nil {
			return nil, fmt.Errorf("schema %s: %w", nsp.name, err)
		}
		if err := in.loadViews(sch, nsp.oid); err != nil {
			return nil, fmt.Errorf("schema %s: %w", nsp.name, err)
		}
		if err := in.loadFunctions(sch, nsp.oid); err != nil {
			return nil, fmt.Errorf("schema %s: %w", nsp.name, err)
		}
		if err := in.loadTriggers(sch, sch.Tables); err != nil {
			return nil, fmt.Errorf("schema %s: %w", nsp.name, err)
		}
		if err := in.loadEnums(sch, nsp.oid); err != nil {
			return nil, fmt.Errorf("schema %s: %w", nsp.name, err)
		}
		if err := in.loadDomains(sch, nsp.oid); err != nil {
			return nil, fmt.Errorf("schema %s: %w", nsp.name, err)
		}

		db.Schemas = append(db.Schemas, sch)
	}

	enumByOID := make(map[uint32]string)
	for _, sch := range db.Schemas {
		for _, e := range sch.Enums {
			enumByOID[e.SourceCatalogOID] = e.Qualified
		}
	}
	for _, sch := range db.Schemas {
		for _, t := range sch.Tables {
			for _, col := range t.Columns {
				if q, ok := enumByOID[col.TypeOID]; ok {
					t.Deps = append(t.Deps, q)
				}
			}
		}
	}

	extensions, err := in.loadExtensions()
	if err != nil {
		return nil, fmt.Errorf("extensions: %w", err)
	}
	for _, sch := range db.Schemas {
		for _, ex := range extensions {
			if ex.Schema == sch.Name {
				sch.Extensions = append(sch.Extensions, ex)
			}
		}
		if err := in.loadHypertables(sch, extensions); err != nil {
			return nil, fmt.Errorf("schema %s: timescaledb: %w", sch.Name, err)
		}
	}

	comments, err := in.loadComments()
	if err != nil {
		return nil, fmt.Errorf("comments: %w", err)
	}
	regclassOIDs, err := in.regclassOIDs()
	if err != nil {
		return nil, fmt.Errorf("regclass oids: %w", err)
	}
	applyComments(db, comments, regclassOIDs)

	return db, nil
}

type namespaceRow struct {
	oid  uint32
	name string
}

func (in *Introspector) listSchemas(opts Options) ([]namespaceRow, error) {
	query := `SELECT oid, nspname FROM pg_namespace ORDER BY nspname`
	rows, err := queryRows(in.conn, "pg_namespace", query)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(opts.OnlySchemas))
	for _, s := range opts.OnlySchemas {
		allowed[s] = true
	}

	var out []namespaceRow
	for _, row := range rows {
		name := colString(row, 1)
		if !opts.IncludeSystemSchemas && isSystemSchema(name) {
			continue
		}
		if len(allowed) > 0 && !allowed[name] {
			continue
		}
		out = append(out, namespaceRow{oid: colUint32(row, 0), name: name})
	}
	return out, nil
}

// regclassOIDs resolves a handful of catalog relation names to their own
// pg_class OIDs, needed to interpret pg_description.classoid.
func (in *Introspector) regclassOIDs() (map[string]uint32, error) {
	query := `
		SELECT relname, oid FROM pg_class
		WHERE relname IN ('pg_class', 'pg_proc', 'pg_type', 'pg_namespace')`
	rows, err := queryRows(in.conn, "pg_class (regclass)", query)
	if err != nil {
		return nil, err
	}
	out := make(map[string]uint32, len(rows))
	for _, row := range rows {
		out[colString(row, 0)] = colUint32(row, 1)
	}
	return out, nil
}
