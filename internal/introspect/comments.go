package introspect

import (
	"github.com/elefant-tools/elefant-sync/internal/ir"
)

// commentKey identifies one pg_description row by (classoid, objoid,
// objsubid) "assemble comments via pg_description keyed by
// (classoid, objoid, objsubid)" rule. objsubid is the column number for
// column comments, 0 for the object itself.
type commentKey struct {
	classOID uint32
	objOID   uint32
	objSubID int
}

// loadComments reads every pg_description row up front into a map, since
// comments are sparse and cheaper to batch-load than to query per object.
func (in *Introspector) loadComments() (map[commentKey]string, error) {
	query := `SELECT classoid, objoid, objsubid, description FROM pg_description`
	rows, err := queryRows(in.conn, "pg_description", query)
	if err != nil {
		return nil, err
	}
	out := make(map[commentKey]string, len(rows))
	for _, row := range rows {
		key := commentKey{
			classOID: colUint32(row, 0),
			objOID:   colUint32(row, 1),
			objSubID: colInt(row, 2),
		}
		out[key] = colString(row, 3)
	}
	return out, nil
}

// applyComments sets Comment() text on tables (pg_class) and functions
// (pg_proc) whose catalog OID has a matching pg_description row with
// objsubid 0; comments on other object kinds and on columns are not
// applied. regclassOIDFor resolves a class
// name ('pg_class', 'pg_proc', ...) to its own OID in pg_class.
func applyComments(d *ir.Database, comments map[commentKey]string, regclassOIDFor map[string]uint32) {
	for _, sch := range d.Schemas {
		for _, t := range sch.Tables {
			if c, ok := comments[commentKey{regclassOIDFor["pg_class"], t.SourceCatalogOID, 0}]; ok {
				t.CommentText = c
			}
		}
		for _, f := range sch.Functions {
			if c, ok := comments[commentKey{regclassOIDFor["pg_proc"], f.SourceCatalogOID, 0}]; ok {
				f.CommentText = c
			}
		}
	}
}
