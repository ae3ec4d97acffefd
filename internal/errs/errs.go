// Package errs defines the typed error kinds used across the module,
// each matchable with errors.As so the orchestrator can classify
// failures into transient and fatal without string-sniffing.
package errs

import (
	"errors"
	"fmt"
)

// Kind names one of the error categories the module classifies failures into.
type Kind string

const (
	KindNetwork            Kind = "network"
	KindTls                Kind = "tls"
	KindAuthFailed         Kind = "auth_failed"
	KindProtocolViolation  Kind = "protocol_violation"
	KindServerError        Kind = "server_error"
	KindEncoding           Kind = "encoding"
	KindPrecisionOverflow  Kind = "precision_overflow"
	KindUnsupportedFeature Kind = "unsupported_feature"
	KindIntrospectionMiss  Kind = "introspection_missing"
	KindPlanError          Kind = "plan_error"
	KindTransient          Kind = "transient"
	KindCancelled          Kind = "cancelled"
)

// Error is the common typed-error shape. Object names the offending
// identifier and Phase the pipeline stage that failed.
type Error struct {
	Kind   Kind
	Object string
	Phase  string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Object != "" && e.Phase != "":
		return fmt.Sprintf("%s: %s (phase=%s, object=%s)", e.Kind, e.Err, e.Phase, e.Object)
	case e.Object != "":
		return fmt.Sprintf("%s: %s (object=%s)", e.Kind, e.Err, e.Object)
	case e.Phase != "":
		return fmt.Sprintf("%s: %s (phase=%s)", e.Kind, e.Err, e.Phase)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind alone so callers can do errors.Is(err, &errs.Error{Kind: errs.KindTransient}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, object, phase string, err error) *Error {
	return &Error{Kind: kind, Object: object, Phase: phase, Err: err}
}

func Network(err error) error            { return New(KindNetwork, "", "", err) }
func Tls(err error) error                { return New(KindTls, "", "", err) }
func AuthFailed(err error) error         { return New(KindAuthFailed, "", "", err) }
func ProtocolViolation(err error) error  { return New(KindProtocolViolation, "", "", err) }
func Cancelled(err error) error          { return New(KindCancelled, "", "", err) }

// ServerError wraps a PostgreSQL ErrorResponse, carrying its SQLSTATE.
type ServerError struct {
	SQLState string
	Message  string
	Detail   string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server error %s: %s (%s)", e.SQLState, e.Message, e.Detail)
	}
	return fmt.Sprintf("server error %s: %s", e.SQLState, e.Message)
}

// EncodingError names the column and type OID that failed to decode/encode.
type EncodingError struct {
	Column string
	OID    uint32
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error on column %q (oid %d): %v", e.Column, e.OID, e.Err)
}
func (e *EncodingError) Unwrap() error { return e.Err }

// PrecisionOverflowError is raised when a NUMERIC value's precision
// exceeds the 28 decimal digits the wire codec supports.
type PrecisionOverflowError struct {
	Column string
	Value  string
}

func (e *PrecisionOverflowError) Error() string {
	return fmt.Sprintf("numeric value %q for column %q exceeds 28 digits of precision", e.Value, e.Column)
}

// UnsupportedFeatureError names an object kind or construct the tool
// refuses to handle (multi-dimensional arrays, dependency cycles, ...).
type UnsupportedFeatureError struct {
	Feature     string
	Identifiers []string
}

func (e *UnsupportedFeatureError) Error() string {
	if len(e.Identifiers) == 0 {
		return fmt.Sprintf("unsupported feature: %s", e.Feature)
	}
	return fmt.Sprintf("unsupported feature: %s (%v)", e.Feature, e.Identifiers)
}

// IntrospectionMissingError names a catalog column/table the introspector
// expected but did not find (dialect mismatch, missing extension).
type IntrospectionMissingError struct {
	Catalog string
	Column  string
}

func (e *IntrospectionMissingError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("introspection: catalog %q not available", e.Catalog)
	}
	return fmt.Sprintf("introspection: catalog %q missing expected column %q", e.Catalog, e.Column)
}

// PlanErrorDetail names a dependency cycle found while ordering the IR.
type PlanErrorDetail struct {
	Cycle []string
}

func (e *PlanErrorDetail) Error() string {
	return fmt.Sprintf("dependency cycle: %v", e.Cycle)
}

// IsTransient reports whether err should be retried by the orchestrator
// (network errors and explicitly-marked Transient errors).
func IsTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindNetwork || e.Kind == KindTransient
	}
	return false
}
