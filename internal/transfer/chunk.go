package transfer

import (
	"fmt"
	"strings"

	"github.com/elefant-tools/elefant-sync/internal/ir"
)

// TableSlice names one partition of a table's rows to copy. An empty
// Predicate means "the whole table", used both for unchunked tables and
// as the sole slice when no partition key exists.
type TableSlice struct {
	Table     *ir.Table
	Predicate string // SQL boolean expression, empty for "no filter"
	Ordinal   int
	Total     int
}

// CopySelect returns the SELECT list wrapped for COPY ... TO STDOUT.
func (s TableSlice) CopySelect() string {
	qualified := ir.QualifiedName(s.schemaName(), s.Table.Name)
	if s.Predicate == "" {
		return fmt.Sprintf("SELECT * FROM %s", qualified)
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE %s", qualified, s.Predicate)
}

func (s TableSlice) schemaName() string {
	// Table.Qualified is schema-prefixed (`"schema"."table"`); Deps/Qualified
	// construction in introspect always sets it via ir.QualifiedName, so
	// splitting on the first dot outside double quotes and unquoting the
	// left part recovers the schema name. Tables built directly in tests
	// may leave Qualified empty; fall back to "public" like the server
	// does for an unqualified name.
	return schemaOf(s.Table)
}

func schemaOf(t *ir.Table) string {
	inQuotes := false
	for i := 0; i < len(t.Qualified); i++ {
		switch c := t.Qualified[i]; {
		case c == '"':
			inQuotes = !inQuotes
		case c == '.' && !inQuotes:
			schema := t.Qualified[:i]
			if len(schema) >= 2 && schema[0] == '"' {
				schema = strings.ReplaceAll(schema[1:len(schema)-1], `""`, `"`)
			}
			return schema
		}
	}
	return "public"
}

// planChunks implements the three-tier chunking fallback: a single
// integer-like primary key column partitions into count modulo buckets;
// lacking that, ctid ranges estimated from relation size; lacking both,
// the whole table as one slice.
func planChunks(t *ir.Table, count int, relPages int64) []TableSlice {
	if count <= 1 {
		return []TableSlice{{Table: t, Ordinal: 0, Total: 1}}
	}

	if col, ok := singleIntegerPK(t); ok {
		return pkRangeSlices(t, col, count)
	}

	if relPages > 0 {
		return ctidRangeSlices(t, count, relPages)
	}

	return []TableSlice{{Table: t, Ordinal: 0, Total: 1}}
}

func singleIntegerPK(t *ir.Table) (string, bool) {
	if t.PrimaryKey == nil || len(t.PrimaryKey.Columns) != 1 {
		return "", false
	}
	name := t.PrimaryKey.Columns[0]
	for _, c := range t.Columns {
		if c.Name != name {
			continue
		}
		switch c.TypeName {
		case "int2", "int4", "int8", "smallint", "integer", "bigint", "serial", "bigserial":
			return name, true
		}
	}
	return "", false
}

// pkRangeSlices splits the PK domain into count open-ended buckets using
// NTILE-style modular bucketing pushed down as a WHERE predicate, avoiding
// a separate min/max probe query per chunk.
func pkRangeSlices(t *ir.Table, col string, count int) []TableSlice {
	slices := make([]TableSlice, count)
	quoted := ir.QuoteIdentifier(col)
	for i := 0; i < count; i++ {
		pred := fmt.Sprintf("(%s %% %d) = %d", quoted, count, i)
		slices[i] = TableSlice{Table: t, Predicate: pred, Ordinal: i, Total: count}
	}
	return slices
}

// ctidRangeSlices partitions by physical block ranges derived from the
// relation's page count, falling back to ctid comparisons since ctid has
// no arithmetic operators of its own.
func ctidRangeSlices(t *ir.Table, count int, relPages int64) []TableSlice {
	pagesPerChunk := relPages / int64(count)
	if pagesPerChunk < 1 {
		pagesPerChunk = 1
	}
	qualified := ir.QualifiedName(schemaOf(t), t.Name)
	slices := make([]TableSlice, 0, count)
	for i := 0; i < count; i++ {
		lo := int64(i) * pagesPerChunk
		hi := lo + pagesPerChunk
		var pred string
		if i == count-1 {
			pred = fmt.Sprintf("%s.ctid >= '(%d,0)'::tid", qualified, lo)
		} else {
			pred = fmt.Sprintf("%s.ctid >= '(%d,0)'::tid AND %s.ctid < '(%d,0)'::tid", qualified, lo, qualified, hi)
		}
		slices = append(slices, TableSlice{Table: t, Predicate: pred, Ordinal: i, Total: count})
	}
	return slices
}
