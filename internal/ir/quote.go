package ir

import "strings"

// pgKeywords are reserved words that always require quoting regardless
// of case or character content. An identifier is quoted unless it is
// all lowercase, starts with a letter or underscore, and is not one of
// these reserved keywords.
var pgKeywords = map[string]bool{
	"all": true, "analyse": true, "analyze": true, "and": true, "any": true,
	"array": true, "as": true, "asc": true, "asymmetric": true, "authorization": true,
	"between": true, "binary": true, "both": true, "case": true, "cast": true,
	"check": true, "collate": true, "column": true, "constraint": true, "create": true,
	"cross": true, "current_date": true, "current_role": true, "current_time": true,
	"current_timestamp": true, "current_user": true, "default": true, "deferrable": true,
	"desc": true, "distinct": true, "do": true, "else": true, "end": true, "except": true,
	"false": true, "fetch": true, "for": true, "foreign": true, "freeze": true,
	"from": true, "full": true, "grant": true, "group": true, "having": true,
	"ilike": true, "in": true, "initially": true, "inner": true, "intersect": true,
	"into": true, "is": true, "isnull": true, "join": true, "lateral": true,
	"leading": true, "left": true, "like": true, "limit": true, "localtime": true,
	"localtimestamp": true, "natural": true, "not": true, "notnull": true, "null": true,
	"offset": true, "on": true, "only": true, "or": true, "order": true, "outer": true,
	"overlaps": true, "placing": true, "primary": true, "references": true,
	"returning": true, "right": true, "select": true, "session_user": true,
	"similar": true, "some": true, "symmetric": true, "table": true, "then": true,
	"to": true, "trailing": true, "true": true, "union": true, "unique": true,
	"user": true, "using": true, "variadic": true, "verbose": true, "when": true,
	"where": true, "window": true, "with": true,
}

// QuoteIdentifier quotes identifier as needed: an empty string becomes
// `""`, and a reserved word or anything outside [a-z_][a-z0-9_]* is
// double-quoted with embedded quotes doubled.
func QuoteIdentifier(identifier string) string {
	if identifier == "" {
		return `""`
	}
	if !pgKeywords[identifier] && isSafeUnquoted(identifier) {
		return identifier
	}
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func isSafeUnquoted(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// QualifiedName joins a schema and object name into a quoted
// "schema"."name" identifier. Both parts are always double-quoted, with
// embedded quotes doubled, even where QuoteIdentifier would leave them bare.
func QualifiedName(schema, name string) string {
	return `"` + strings.ReplaceAll(schema, `"`, `""`) + `"."` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteStringLiteral quotes s as a SQL string literal, doubling embedded
// single quotes.
func QuoteStringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteIdentList quotes and joins a list of plain column names.
func QuoteIdentList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}
