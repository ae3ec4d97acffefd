// Package types implements the per-value codec layer: FromSqlBase
// declares which type OIDs a decoder accepts (it says nothing about SQL
// NULL); FromSqlBinary/FromSqlText decode from the respective
// wire formats; ToSql encodes a bound parameter to binary.
//
// The split is expressed as three narrow interfaces per value kind
// rather than one; a type that can only be produced from binary (e.g.
// a borrowed byte slice) simply never implements FromSqlText.
package types

import "fmt"

// Postgres well-known type OIDs this codec covers (pg_type.oid).
const (
	OIDBool        = 16
	OIDBytea       = 17
	OIDChar        = 18
	OIDName        = 19
	OIDInt8        = 20
	OIDInt2        = 21
	OIDInt4        = 23
	OIDText        = 25
	OIDJSON        = 114
	OIDPoint       = 600
	OIDFloat4      = 700
	OIDFloat8      = 701
	OIDInet        = 869
	OIDBoolArray   = 1000
	OIDInt2Array   = 1005
	OIDInt4Array   = 1007
	OIDTextArray   = 1009
	OIDVarcharArray = 1015
	OIDInt8Array   = 1016
	OIDFloat4Array = 1021
	OIDFloat8Array = 1022
	OIDVarchar     = 1043
	OIDDate        = 1082
	OIDTime        = 1083
	OIDTimestamp   = 1114
	OIDTimestampTz = 1184
	OIDNumeric     = 1700
	OIDUUID        = 2950
	OIDJSONB       = 3802
	OIDCidr        = 650
	OIDOid         = 26
)

// FromSqlBase declares the set of OIDs a decoder accepts. It has no method
// for SQL NULL; how NULL is handled is not part of this interface.
type FromSqlBase interface {
	AcceptsOID(oid uint32) bool
}

// FromSqlBinary decodes a value from the binary wire representation for
// a given type OID.
type FromSqlBinary interface {
	FromSqlBinary(oid uint32, raw []byte) error
}

// FromSqlText decodes a value from the text wire representation.
type FromSqlText interface {
	FromSqlText(oid uint32, raw string) error
}

// ErrNullNotAllowed is the error value for a SQL NULL decoded into a type
// that has no NULL representation; no decoder in this package returns it.
var ErrNullNotAllowed = fmt.Errorf("NULL not allowed for this type")

// Nullable pairs a T with a Valid flag, where the zero T with Valid=false
// stands for SQL NULL, expressed generically with a type parameter instead
// of one wrapper type per base type. It has no codec methods of its own.
type Nullable[T any] struct {
	Value T
	Valid bool
}
