package introspect

import (
	"strconv"

	"github.com/elefant-tools/elefant-sync/internal/errs"
	"github.com/elefant-tools/elefant-sync/internal/wire"
)

// queryExecutor is the narrow slice of wire.Connection introspection
// needs — simple text-format queries only, since catalog introspection
// never binds parameters ( does not require it, and simple-query
// string interpolation of identifiers is safe here because every value
// substituted in is either a literal from a prior catalog row or an
// OID, never untrusted external input).
type queryExecutor interface {
	QuerySimple(text string) ([]wire.SimpleQueryResult, error)
}

// queryRows runs a single-statement query and returns its rows, erroring
// with errs.IntrospectionMissingError context if the catalog shape looks
// unexpected (fewer groupings than one).
func queryRows(conn queryExecutor, catalog, query string) ([]wire.Row, error) {
	results, err := conn.QuerySimple(query)
	if err != nil {
		return nil, &errs.IntrospectionMissingError{Catalog: catalog}
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0].Rows, nil
}

func colString(row wire.Row, i int) string {
	if i >= len(row.Values) || row.Values[i] == nil {
		return ""
	}
	return string(row.Values[i])
}

func colStringPtr(row wire.Row, i int) *string {
	if i >= len(row.Values) || row.Values[i] == nil {
		return nil
	}
	s := string(row.Values[i])
	return &s
}

func colBool(row wire.Row, i int) bool {
	s := colString(row, i)
	return s == "t" || s == "true"
}

func colInt64(row wire.Row, i int) int64 {
	s := colString(row, i)
	if s == "" {
		return 0
	}
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func colInt(row wire.Row, i int) int {
	return int(colInt64(row, i))
}

func colUint32(row wire.Row, i int) uint32 {
	return uint32(colInt64(row, i))
}
