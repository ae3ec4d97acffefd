package ir

// NewHypertable constructs a Hypertable IR node that depends on its base
// table, so EmitOrder always places the table before the hypertable's
// post-data SELECT create_hypertable(...) call.
func NewHypertable(baseTable *Table, dims []Dimension) *Hypertable {
	return &Hypertable{
		base: base{
			Qualified: baseTable.Qualified + "::hypertable",
			Deps:      []string{baseTable.Qualified},
		},
		BaseTable:  baseTable.Qualified,
		Dimensions: dims,
	}
}

// AddHypertable appends h to the owning schema's Hypertables list.
func (s *Schema) AddHypertable(h *Hypertable) {
	s.Hypertables = append(s.Hypertables, h)
}
