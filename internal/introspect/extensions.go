package introspect

import (
	"github.com/elefant-tools/elefant-sync/internal/ir"
)

// loadExtensions populates the database-wide extension list (extensions
// are not namespaced to one schema in pg_extension, but each names the
// schema it was installed into). Tolerates a source with no extensions
// installed at all "tolerates absence of extensions" rule.
func (in *Introspector) loadExtensions() ([]*ir.Extension, error) {
	query := `
		SELECT e.extname, e.extversion, n.nspname
		FROM pg_extension e
		JOIN pg_namespace n ON n.oid = e.extnamespace
		ORDER BY e.extname`
	rows, err := queryRows(in.conn, "pg_extension", query)
	if err != nil {
		return nil, err
	}
	out := make([]*ir.Extension, len(rows))
	for i, row := range rows {
		ex := &ir.Extension{
			Name:    colString(row, 0),
			Version: colString(row, 1),
			Schema:  colString(row, 2),
		}
		ex.Qualified = "extension:" + ex.Name
		out[i] = ex
	}
	return out, nil
}

// hasExtension reports whether the named extension is installed,
// gating TimescaleDB-specific catalog queries.
func (in *Introspector) hasExtension(name string, extensions []*ir.Extension) bool {
	for _, e := range extensions {
		if e.Name == name {
			return true
		}
	}
	return false
}
