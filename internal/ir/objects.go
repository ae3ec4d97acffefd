// Package ir implements the schema intermediate representation: a forest
// of schemas, each owning typed object lists, every object carrying a
// qualified identifier, optional comment, a dependency set, and the
// source catalog OID (kept for cross-reference only, never emitted).
package ir

// Object is implemented by every IR node kind so graph.go's emit-order
// computation has one uniform input.
type Object interface {
	QualifiedIdentifier() string
	Dependencies() []string
	Comment() string
}

// base carries the fields every object kind shares.
type base struct {
	Qualified      string
	CommentText    string
	Deps           []string
	SourceCatalogOID uint32
}

func (b base) QualifiedIdentifier() string { return b.Qualified }
func (b base) Dependencies() []string      { return b.Deps }
func (b base) Comment() string             { return b.CommentText }

// Database is the root of the IR forest: a set of schemas.
type Database struct {
	Schemas []*Schema
}

// Schema owns typed object lists keyed by name.
type Schema struct {
	base
	Name           string
	Tables         []*Table
	Sequences      []*Sequence
	Views          []*View
	MatViews       []*MaterializedView
	Functions      []*Function
	Triggers       []*Trigger
	Enums          []*Enum
	Domains        []*Domain
	Extensions     []*Extension
	Hypertables    []*Hypertable
}

// Column is one table column.
type Column struct {
	Name                string
	TypeOID             uint32
	TypeModifier         int32
	TypeName            string // rendered PG type name, e.g. "numeric(10,2)"
	Nullable            bool
	Default             string // raw DEFAULT expression, empty if none
	IsIdentity          bool
	IdentityAlways      bool
	OwnedSequence       string // qualified identifier of a serial-owned sequence, if any
	GeneratedExpression string // STORED generated-column expression, empty if none
	Collation           string
	OrdinalPosition     int
}

// CheckConstraint is a table-level CHECK (...) constraint.
type CheckConstraint struct {
	Name       string
	Expression string
}

// ForeignKey is a table-level FOREIGN KEY constraint with referential actions.
type ForeignKey struct {
	Name          string
	Columns       []string
	RefTable      string // qualified identifier of the referenced table
	RefColumns    []string
	OnUpdate      string // NO ACTION|RESTRICT|CASCADE|SET NULL|SET DEFAULT
	OnDelete      string
}

// UniqueConstraint is a table-level UNIQUE (...) constraint.
type UniqueConstraint struct {
	Name    string
	Columns []string
}

// PrimaryKey is a table's primary key constraint.
type PrimaryKey struct {
	Name    string
	Columns []string
}

// Table is the central IR object.
type Table struct {
	base
	Name              string
	Columns           []Column
	PrimaryKey        *PrimaryKey
	CheckConstraints  []CheckConstraint
	ForeignKeys       []ForeignKey
	UniqueConstraints []UniqueConstraint
	Indexes           []*Index
	StorageParams     map[string]string
	PartitionClause   string // e.g. "RANGE (created_at)", empty if not partitioned
	PartitionOf       string // qualified identifier of the parent, for partition children
	InheritsFrom      []string // qualified identifiers of inheritance parents
}

// IndexColumn is one column (or expression) of an index.
type IndexColumn struct {
	Expression string // non-empty for expression indexes; Name is empty in that case
	Name       string
	Desc       bool
	NullsFirst bool
}

// Index is a table index.
type Index struct {
	base
	Name            string
	Table           string // qualified identifier of the owning table
	Method          string // btree, gin, gist, hash, brin, ...
	Columns         []IndexColumn
	IncludedColumns []string
	FilterPredicate string
	Unique          bool
	StorageParams   map[string]string
}

// Sequence is a standalone or identity-backing sequence.
type Sequence struct {
	base
	Name      string
	Start     int64
	Min       int64
	Max       int64
	Increment int64
	Cache     int64
	Cycle     bool
	LastValue int64
}

// View is a non-materialized view.
type View struct {
	base
	Name       string
	Definition string
	OwnerTables []string // qualified identifiers this view reads from, best-effort
}

// RefreshPolicy describes a materialized view's scheduled refresh, if any.
type RefreshPolicy struct {
	Schedule string // cron-like expression, empty if none configured
}

// MaterializedView is a matview, refreshed in the post-data phase.
type MaterializedView struct {
	base
	Name        string
	Definition  string
	OwnerTables []string
	Refresh     *RefreshPolicy
}

// Function is a function or procedure.
type Function struct {
	base
	Name            string
	Signature       string // argument type list, rendered
	Language        string
	Body            string
	Volatility      string // IMMUTABLE|STABLE|VOLATILE
	IsStrict        bool
	ReturnType      string
	IsProcedure     bool
	IsAggregate     bool
	AggregateSFunc  string
	AggregateStype  string
	AggregateInitVal string
}

// Trigger fires a function on a table for given events/timing.
type Trigger struct {
	base
	Name      string
	Table     string // qualified identifier
	Timing    string // BEFORE|AFTER|INSTEAD OF
	Events    []string // INSERT|UPDATE|DELETE|TRUNCATE
	Function  string // qualified identifier
	Condition string // WHEN (...) clause, empty if none
	ForEachRow bool
}

// Enum is an ordered-label enum type.
type Enum struct {
	base
	Name   string
	Labels []string
}

// Domain is a base type plus constraints and default.
type Domain struct {
	base
	Name        string
	BaseType    string
	NotNull     bool
	Default     string
	Constraints []CheckConstraint
}

// Extension is an installed Postgres extension.
type Extension struct {
	base
	Name    string
	Version string
	Schema  string
}

// Dimension is one TimescaleDB hypertable partitioning dimension.
type Dimension struct {
	Column       string
	Type         string // "time" or "space"
	Interval     string // time-partitioning interval, e.g. "7 days"
	NumPartitions int   // space-partitioning partition count
}

// CompressionConfig is a hypertable's compression settings.
type CompressionConfig struct {
	Enabled       bool
	SegmentBy     []string
	OrderBy       []string
	CompressAfter string // interval literal, e.g. "30 days"
}

// RetentionPolicy drops chunks older than the given interval.
type RetentionPolicy struct {
	DropAfter string
}

// ContinuousAggregateJob describes a hypertable's cagg refresh schedule.
type ContinuousAggregateJob struct {
	ViewName    string // qualified identifier of the continuous aggregate
	StartOffset string
	EndOffset   string
	ScheduleInterval string
}

// Hypertable is TimescaleDB's time-partitioned logical table. It
// augments an existing Table IR node rather than replacing it, so the
// pre-data table DDL stays identical and hypertable creation is purely
// a post-data add-on.
type Hypertable struct {
	base
	BaseTable         string // qualified identifier of the underlying Table
	Dimensions        []Dimension
	Compression       *CompressionConfig
	Retention         *RetentionPolicy
	ContinuousAggJobs []ContinuousAggregateJob
}
