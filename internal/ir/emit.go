package ir

import (
	"fmt"
	"io"
	"strings"
)

// EmitPreData writes the pre-data DDL half of schemas, types
// (enum/domain), tables with columns and defaults, sequences, views,
// matviews (no refresh), functions, extensions — in the topological
// order EmitOrder produced.
func EmitPreData(w io.Writer, order []Object) error {
	for _, o := range order {
		var err error
		switch t := o.(type) {
		case *Schema:
			err = emitCreateSchema(w, t)
		case *Extension:
			err = emitCreateExtension(w, t)
		case *Enum:
			err = emitCreateEnum(w, t)
		case *Domain:
			err = emitCreateDomain(w, t)
		case *Sequence:
			err = emitCreateSequence(w, t)
		case *Table:
			err = emitCreateTable(w, t)
		case *View:
			err = emitCreateView(w, t)
		case *MaterializedView:
			err = emitCreateMatView(w, t)
		case *Function:
			err = emitCreateFunction(w, t)
		}
		if err != nil {
			return fmt.Errorf("emit pre-data %s: %w", o.QualifiedIdentifier(), err)
		}
	}
	return nil
}

// EmitPostData writes the post-data DDL half of primary keys,
// unique constraints, foreign keys, check constraints, non-PK indexes,
// triggers, comments, matview REFRESH, TimescaleDB policies.
func EmitPostData(w io.Writer, order []Object) error {
	for _, o := range order {
		switch t := o.(type) {
		case *Table:
			if err := emitTableConstraints(w, t); err != nil {
				return fmt.Errorf("emit post-data constraints %s: %w", t.Qualified, err)
			}
		case *Index:
			if err := emitCreateIndex(w, t); err != nil {
				return fmt.Errorf("emit post-data index %s: %w", t.Qualified, err)
			}
		case *Trigger:
			if err := emitCreateTrigger(w, t); err != nil {
				return fmt.Errorf("emit post-data trigger %s: %w", t.Qualified, err)
			}
		case *MaterializedView:
			if _, err := fmt.Fprintf(w, "REFRESH MATERIALIZED VIEW %s;\n", t.Qualified); err != nil {
				return err
			}
		case *Hypertable:
			if err := emitHypertablePolicies(w, t); err != nil {
				return fmt.Errorf("emit post-data hypertable %s: %w", t.Qualified, err)
			}
		}
		if c := o.Comment(); c != "" {
			if err := emitComment(w, o); err != nil {
				return err
			}
		}
	}
	return nil
}

// EmitDrop writes DROP statements for objects whose signature no longer
// matches what was previously applied to the target, so a differential
// recreate doesn't run CREATE against something that already exists
// under a stale definition. Schemas and extensions are never dropped
// here: both guard their CREATE with IF NOT EXISTS. A changed comment is
// reapplied by the post-data COMMENT statement; a changed extension
// version is not applied, since CREATE EXTENSION IF NOT EXISTS leaves an
// existing extension as it is.
func EmitDrop(w io.Writer, order []Object) error {
	for _, o := range order {
		var err error
		switch t := o.(type) {
		case *Table:
			_, err = fmt.Fprintf(w, "DROP TABLE IF EXISTS %s CASCADE;\n", t.Qualified)
		case *View:
			_, err = fmt.Fprintf(w, "DROP VIEW IF EXISTS %s CASCADE;\n", t.Qualified)
		case *MaterializedView:
			_, err = fmt.Fprintf(w, "DROP MATERIALIZED VIEW IF EXISTS %s CASCADE;\n", t.Qualified)
		case *Enum:
			_, err = fmt.Fprintf(w, "DROP TYPE IF EXISTS %s CASCADE;\n", t.Qualified)
		case *Domain:
			_, err = fmt.Fprintf(w, "DROP DOMAIN IF EXISTS %s CASCADE;\n", t.Qualified)
		case *Sequence:
			_, err = fmt.Fprintf(w, "DROP SEQUENCE IF EXISTS %s CASCADE;\n", t.Qualified)
		case *Function:
			kind := "FUNCTION"
			if t.IsProcedure {
				kind = "PROCEDURE"
			}
			_, err = fmt.Fprintf(w, "DROP %s IF EXISTS %s(%s) CASCADE;\n", kind, t.Qualified, t.Signature)
		case *Index:
			_, err = fmt.Fprintf(w, "DROP INDEX IF EXISTS %s;\n", t.Qualified)
		case *Trigger:
			_, err = fmt.Fprintf(w, "DROP TRIGGER IF EXISTS %s ON %s;\n", QuoteIdentifier(t.Name), t.Table)
		}
		if err != nil {
			return fmt.Errorf("emit drop %s: %w", o.QualifiedIdentifier(), err)
		}
	}
	return nil
}

func emitComment(w io.Writer, o Object) error {
	_, err := fmt.Fprintf(w, "COMMENT ON %s IS %s;\n", o.QualifiedIdentifier(), QuoteStringLiteral(o.Comment()))
	return err
}

func emitCreateSchema(w io.Writer, s *Schema) error {
	_, err := fmt.Fprintf(w, "CREATE SCHEMA IF NOT EXISTS %s;\n", QuoteIdentifier(s.Name))
	return err
}

func emitCreateExtension(w io.Writer, e *Extension) error {
	_, err := fmt.Fprintf(w, "CREATE EXTENSION IF NOT EXISTS %s WITH SCHEMA %s VERSION %s;\n",
		QuoteIdentifier(e.Name), QuoteIdentifier(e.Schema), QuoteStringLiteral(e.Version))
	return err
}

func emitCreateEnum(w io.Writer, e *Enum) error {
	labels := make([]string, len(e.Labels))
	for i, l := range e.Labels {
		labels[i] = QuoteStringLiteral(l)
	}
	_, err := fmt.Fprintf(w, "CREATE TYPE %s AS ENUM (%s);\n", e.Qualified, strings.Join(labels, ", "))
	return err
}

func emitCreateDomain(w io.Writer, d *Domain) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE DOMAIN %s AS %s", d.Qualified, d.BaseType)
	if d.Default != "" {
		fmt.Fprintf(&b, " DEFAULT %s", d.Default)
	}
	if d.NotNull {
		b.WriteString(" NOT NULL")
	}
	for _, c := range d.Constraints {
		fmt.Fprintf(&b, " CONSTRAINT %s CHECK (%s)", QuoteIdentifier(c.Name), c.Expression)
	}
	b.WriteString(";\n")
	_, err := w.Write([]byte(b.String()))
	return err
}

func emitCreateSequence(w io.Writer, s *Sequence) error {
	_, err := fmt.Fprintf(w,
		"CREATE SEQUENCE %s START WITH %d INCREMENT BY %d MINVALUE %d MAXVALUE %d CACHE %d%s;\n",
		s.Qualified, s.Start, s.Increment, s.Min, s.Max, s.Cache, cycleClause(s.Cycle))
	return err
}

func cycleClause(cycle bool) string {
	if cycle {
		return " CYCLE"
	}
	return " NO CYCLE"
}

// emitCreateTable renders columns, defaults and generated expressions.
// Constraints, indexes, and triggers are deferred to post-data.
func emitCreateTable(w io.Writer, t *Table) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", t.Qualified)
	for i, col := range t.Columns {
		fmt.Fprintf(&b, "  %s %s", QuoteIdentifier(col.Name), col.TypeName)
		switch {
		case col.GeneratedExpression != "":
			fmt.Fprintf(&b, " GENERATED ALWAYS AS (%s) STORED", col.GeneratedExpression)
		case col.IsIdentity:
			always := "BY DEFAULT"
			if col.IdentityAlways {
				always = "ALWAYS"
			}
			fmt.Fprintf(&b, " GENERATED %s AS IDENTITY", always)
		case col.Default != "":
			fmt.Fprintf(&b, " DEFAULT %s", col.Default)
		}
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		if col.Collation != "" {
			fmt.Fprintf(&b, " COLLATE %s", QuoteIdentifier(col.Collation))
		}
		if i < len(t.Columns)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(")")
	if len(t.InheritsFrom) > 0 {
		fmt.Fprintf(&b, " INHERITS (%s)", strings.Join(t.InheritsFrom, ", "))
	}
	if t.PartitionClause != "" {
		fmt.Fprintf(&b, " PARTITION BY %s", t.PartitionClause)
	}
	if t.PartitionOf != "" {
		b.Reset()
		fmt.Fprintf(&b, "CREATE TABLE %s PARTITION OF %s", t.Qualified, t.PartitionOf)
	}
	if len(t.StorageParams) > 0 {
		fmt.Fprintf(&b, " WITH (%s)", formatStorageParams(t.StorageParams))
	}
	b.WriteString(";\n")
	_, err := w.Write([]byte(b.String()))
	return err
}

func formatStorageParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	// deterministic output: sort lexically
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, params[k])
	}
	return strings.Join(parts, ", ")
}

func emitCreateView(w io.Writer, v *View) error {
	_, err := fmt.Fprintf(w, "CREATE VIEW %s AS\n%s;\n", v.Qualified, v.Definition)
	return err
}

func emitCreateMatView(w io.Writer, v *MaterializedView) error {
	_, err := fmt.Fprintf(w, "CREATE MATERIALIZED VIEW %s AS\n%s\nWITH NO DATA;\n", v.Qualified, v.Definition)
	return err
}

func emitCreateFunction(w io.Writer, f *Function) error {
	kind := "FUNCTION"
	if f.IsProcedure {
		kind = "PROCEDURE"
	}
	if f.IsAggregate {
		_, err := fmt.Fprintf(w, "CREATE AGGREGATE %s(%s) (SFUNC = %s, STYPE = %s, INITCOND = %s);\n",
			f.Qualified, f.Signature, f.AggregateSFunc, f.AggregateStype, f.AggregateInitVal)
		return err
	}
	var ret string
	if !f.IsProcedure {
		ret = fmt.Sprintf(" RETURNS %s", f.ReturnType)
	}
	strict := ""
	if f.IsStrict {
		strict = " STRICT"
	}
	_, err := fmt.Fprintf(w, "CREATE OR REPLACE %s %s(%s)%s %s%s LANGUAGE %s AS $body$\n%s\n$body$;\n",
		kind, f.Qualified, f.Signature, ret, f.Volatility, strict, f.Language, f.Body)
	return err
}

func emitTableConstraints(w io.Writer, t *Table) error {
	if t.PrimaryKey != nil {
		if _, err := fmt.Fprintf(w, "ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s);\n",
			t.Qualified, QuoteIdentifier(t.PrimaryKey.Name), QuoteIdentList(t.PrimaryKey.Columns)); err != nil {
			return err
		}
	}
	for _, u := range t.UniqueConstraints {
		if _, err := fmt.Fprintf(w, "ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s);\n",
			t.Qualified, QuoteIdentifier(u.Name), QuoteIdentList(u.Columns)); err != nil {
			return err
		}
	}
	for _, c := range t.CheckConstraints {
		if _, err := fmt.Fprintf(w, "ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);\n",
			t.Qualified, QuoteIdentifier(c.Name), c.Expression); err != nil {
			return err
		}
	}
	for _, fk := range t.ForeignKeys {
		if _, err := fmt.Fprintf(w, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON UPDATE %s ON DELETE %s;\n",
			t.Qualified, QuoteIdentifier(fk.Name), QuoteIdentList(fk.Columns), fk.RefTable, QuoteIdentList(fk.RefColumns),
			fk.OnUpdate, fk.OnDelete); err != nil {
			return err
		}
	}
	return nil
}

func emitCreateIndex(w io.Writer, idx *Index) error {
	var b strings.Builder
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	fmt.Fprintf(&b, "CREATE %sINDEX %s ON %s USING %s (", unique, QuoteIdentifier(idx.Name), idx.Table, idx.Method)
	for i, c := range idx.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		if c.Expression != "" {
			fmt.Fprintf(&b, "(%s)", c.Expression)
		} else {
			b.WriteString(QuoteIdentifier(c.Name))
		}
		if c.Desc {
			b.WriteString(" DESC")
		}
		if c.NullsFirst {
			b.WriteString(" NULLS FIRST")
		}
	}
	b.WriteString(")")
	if len(idx.IncludedColumns) > 0 {
		fmt.Fprintf(&b, " INCLUDE (%s)", QuoteIdentList(idx.IncludedColumns))
	}
	if len(idx.StorageParams) > 0 {
		fmt.Fprintf(&b, " WITH (%s)", formatStorageParams(idx.StorageParams))
	}
	if idx.FilterPredicate != "" {
		fmt.Fprintf(&b, " WHERE %s", idx.FilterPredicate)
	}
	b.WriteString(";\n")
	_, err := w.Write([]byte(b.String()))
	return err
}

func emitCreateTrigger(w io.Writer, t *Trigger) error {
	each := ""
	if t.ForEachRow {
		each = " FOR EACH ROW"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TRIGGER %s %s %s ON %s%s", QuoteIdentifier(t.Name), t.Timing, strings.Join(t.Events, " OR "), t.Table, each)
	if t.Condition != "" {
		fmt.Fprintf(&b, " WHEN (%s)", t.Condition)
	}
	fmt.Fprintf(&b, " EXECUTE FUNCTION %s();\n", t.Function)
	_, err := w.Write([]byte(b.String()))
	return err
}

func emitHypertablePolicies(w io.Writer, h *Hypertable) error {
	if len(h.Dimensions) == 0 {
		return nil
	}
	primary := h.Dimensions[0]
	if _, err := fmt.Fprintf(w, "SELECT create_hypertable(%s, by_range(%s));\n",
		QuoteStringLiteral(h.BaseTable), QuoteStringLiteral(primary.Column)); err != nil {
		return err
	}
	for _, d := range h.Dimensions[1:] {
		if d.Type == "space" {
			if _, err := fmt.Fprintf(w, "SELECT add_dimension(%s, by_hash(%s, %d));\n",
				QuoteStringLiteral(h.BaseTable), QuoteStringLiteral(d.Column), d.NumPartitions); err != nil {
				return err
			}
		}
	}
	if h.Compression != nil && h.Compression.Enabled {
		if _, err := fmt.Fprintf(w, "ALTER TABLE %s SET (timescaledb.compress, timescaledb.compress_segmentby = %s, timescaledb.compress_orderby = %s);\n",
			h.BaseTable, QuoteStringLiteral(strings.Join(h.Compression.SegmentBy, ", ")), QuoteStringLiteral(strings.Join(h.Compression.OrderBy, ", "))); err != nil {
			return err
		}
		if h.Compression.CompressAfter != "" {
			if _, err := fmt.Fprintf(w, "SELECT add_compression_policy(%s, INTERVAL %s);\n",
				QuoteStringLiteral(h.BaseTable), QuoteStringLiteral(h.Compression.CompressAfter)); err != nil {
				return err
			}
		}
	}
	if h.Retention != nil && h.Retention.DropAfter != "" {
		if _, err := fmt.Fprintf(w, "SELECT add_retention_policy(%s, INTERVAL %s);\n",
			QuoteStringLiteral(h.BaseTable), QuoteStringLiteral(h.Retention.DropAfter)); err != nil {
			return err
		}
	}
	for _, job := range h.ContinuousAggJobs {
		if _, err := fmt.Fprintf(w, "SELECT add_continuous_aggregate_policy(%s, start_offset => INTERVAL %s, end_offset => INTERVAL %s, schedule_interval => INTERVAL %s);\n",
			QuoteStringLiteral(job.ViewName), QuoteStringLiteral(job.StartOffset), QuoteStringLiteral(job.EndOffset), QuoteStringLiteral(job.ScheduleInterval)); err != nil {
			return err
		}
	}
	return nil
}
