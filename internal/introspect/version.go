// Package introspect reads a live database's catalog tables through the
// wire client (internal/wire) and populates a Schema IR (internal/ir).
// Queries are grouped one file per catalog concern — tables.go,
// columns.go, indexes.go, and so on.
package introspect

// Dialect names the catalog-query variant chosen from the server's
// major version.
type Dialect struct {
	Major int
	// HasGeneratedColumns is false on servers older than PG12, where
	// pg_attribute.attgenerated does not exist yet.
	HasGeneratedColumns bool
	// HasIdentityColumns is false before PG10's GENERATED ... AS IDENTITY.
	HasIdentityColumns bool
}

// DialectFor derives a Dialect from a wire.Connection.ServerVersion()
// value (major*10000 + minor*100, see internal/wire/conn.go).
func DialectFor(serverVersion int) Dialect {
	major := serverVersion / 10000
	return Dialect{
		Major:               major,
		HasGeneratedColumns: major >= 12,
		HasIdentityColumns:  major >= 10,
	}
}
