package classifier

import (
	"fmt"

	"github.com/shopspring/decimal"

	"circularity-gap/core/types"
	cgerrors "circularity-gap/internal/errors"
)

// Domain is a family of table rows sharing one category ordering
type Domain string

const (
	Resource Domain = "resource"
	Waste    Domain = "waste"
	Emission Domain = "emission"
)

// Domains lists the row domains
func Domains() []Domain {
	return []Domain{Resource, Waste, Emission}
}

// Conversion rescales the value of one row, e.g. CO2 mass to carbon mass
type Conversion struct {
	Name        string
	Row         int
	Numerator   int64
	Denominator int64
}

// Apply converts v
func (c Conversion) Apply(v float64) float64 {
	return v * float64(c.Numerator) / float64(c.Denominator)
}

// Factor is the exact conversion ratio
func (c Conversion) Factor() decimal.Decimal {
	return decimal.NewFromInt(c.Numerator).Div(decimal.NewFromInt(c.Denominator))
}

// String renders the conversion for reports
func (c Conversion) String() string {
	return fmt.Sprintf("%s: row %d × %d/%d (%s)", c.Name, c.Row, c.Numerator, c.Denominator, c.Factor().StringFixed(6))
}

// ClassRows is the row selection of one material class in one domain
type ClassRows struct {
	Rows []int

	// FinalDemand adds the final-demand counterpart table (resource and emission domains)
	FinalDemand bool

	Conversions []Conversion
}

// ConversionFor returns the conversion registered for row r, if any
func (c ClassRows) ConversionFor(r int) (Conversion, bool) {
	for _, conv := range c.Conversions {
		if conv.Row == r {
			return conv, true
		}
	}
	return Conversion{}, false
}

func (c ClassRows) clone() ClassRows {
	return ClassRows{
		Rows:        append([]int(nil), c.Rows...),
		FinalDemand: c.FinalDemand,
		Conversions: append([]Conversion(nil), c.Conversions...),
	}
}

// Region is a named group of countries
type Region struct {
	Name    string
	Members []string
	All     bool
}

// Schema is the validated, immutable classifier
type Schema struct {
	version            string
	domainRows         map[Domain]int
	classes            map[Domain]map[types.MaterialClass]ClassRows
	recovery           ActivityBlocks
	countryConversions []Conversion
	regions            []Region
}

// New validates a spec and builds a Schema from a deep copy of it
func New(spec Spec) (*Schema, error) {
	s := &Schema{
		version: spec.Version,
		domainRows: map[Domain]int{
			Resource: spec.ResourceRows,
			Waste:    spec.WasteRows,
			Emission: spec.EmissionRows,
		},
		classes: make(map[Domain]map[types.MaterialClass]ClassRows),
	}

	for d, n := range s.domainRows {
		if n <= 0 {
			return nil, cgerrors.Newf(cgerrors.TypeConfig, "schema %s: %s row count must be positive", spec.Version, d)
		}
	}

	recovery, err := NewActivityBlocks(spec.Recovery.BlockWidth, spec.Recovery.Offsets)
	if err != nil {
		return nil, err
	}
	s.recovery = recovery

	for _, cs := range spec.Classes {
		domain := Domain(cs.Domain)
		class := types.MaterialClass(cs.Class)
		limit, ok := s.domainRows[domain]
		if !ok {
			return nil, cgerrors.Newf(cgerrors.TypeConfig, "schema %s: unknown domain %q", spec.Version, cs.Domain)
		}
		if !class.Valid() {
			return nil, cgerrors.Newf(cgerrors.TypeConfig, "schema %s: unknown material class %q", spec.Version, cs.Class)
		}
		if s.classes[domain] == nil {
			s.classes[domain] = make(map[types.MaterialClass]ClassRows)
		}
		if _, dup := s.classes[domain][class]; dup {
			return nil, cgerrors.Newf(cgerrors.TypeConfig, "schema %s: class %s/%s declared twice", spec.Version, domain, class)
		}

		rows := ClassRows{Rows: append([]int(nil), cs.Rows...), FinalDemand: cs.FinalDemand}
		for _, r := range rows.Rows {
			if r < 0 || r >= limit {
				return nil, cgerrors.Newf(cgerrors.TypeConfig, "schema %s: %s/%s row %d outside [0,%d)", spec.Version, domain, class, r, limit)
			}
		}
		for _, conv := range cs.Conversions {
			c, err := newConversion(conv)
			if err != nil {
				return nil, err
			}
			if !contains(rows.Rows, c.Row) {
				return nil, cgerrors.Newf(cgerrors.TypeConfig, "schema %s: conversion %s targets row %d which is not in %s/%s", spec.Version, c.Name, c.Row, domain, class)
			}
			rows.Conversions = append(rows.Conversions, c)
		}
		s.classes[domain][class] = rows
	}

	for _, d := range Domains() {
		if err := s.checkDisjoint(d); err != nil {
			return nil, err
		}
	}

	for _, conv := range spec.CountryConversions {
		c, err := newConversion(conv)
		if err != nil {
			return nil, err
		}
		if c.Row < 0 || c.Row >= spec.ResourceRows {
			return nil, cgerrors.Newf(cgerrors.TypeConfig, "schema %s: country conversion %s row %d outside resource rows", spec.Version, c.Name, c.Row)
		}
		s.countryConversions = append(s.countryConversions, c)
	}

	seen := make(map[string]bool)
	for _, rs := range spec.Regions {
		if rs.Name == "" || seen[rs.Name] {
			return nil, cgerrors.Newf(cgerrors.TypeConfig, "schema %s: region name %q empty or duplicated", spec.Version, rs.Name)
		}
		seen[rs.Name] = true
		if !rs.All && len(rs.Members) == 0 {
			return nil, cgerrors.Newf(cgerrors.TypeConfig, "schema %s: region %q has no members", spec.Version, rs.Name)
		}
		s.regions = append(s.regions, Region{
			Name:    rs.Name,
			Members: append([]string(nil), rs.Members...),
			All:     rs.All,
		})
	}

	return s, nil
}

// MustNew is New for specs known to be valid
func MustNew(spec Spec) *Schema {
	s, err := New(spec)
	if err != nil {
		panic(err)
	}
	return s
}

// Default returns the built-in EXIOBASE 3.3.15 schema
func Default() *Schema {
	return MustNew(DefaultSpec())
}

func newConversion(c ConversionSpec) (Conversion, error) {
	if c.Numerator <= 0 || c.Denominator <= 0 {
		return Conversion{}, cgerrors.Newf(cgerrors.TypeConfig, "conversion %s must have positive numerator and denominator", c.Name)
	}
	return Conversion{Name: c.Name, Row: c.Row, Numerator: c.Numerator, Denominator: c.Denominator}, nil
}

func (s *Schema) checkDisjoint(d Domain) error {
	owner := make(map[int]types.MaterialClass)
	for _, class := range types.MaterialClasses() {
		for _, r := range s.classes[d][class].Rows {
			if prev, taken := owner[r]; taken {
				return cgerrors.Newf(cgerrors.TypeConfig, "schema %s: %s row %d is in both %s and %s", s.version, d, r, prev, class)
			}
			owner[r] = class
		}
	}
	return nil
}

// Version returns the schema version label
func (s *Schema) Version() string { return s.version }

// DomainRows returns the expected number of classified rows in a domain
func (s *Schema) DomainRows(d Domain) int { return s.domainRows[d] }

// Rows returns the row indices of a class in a domain, or nil
func (s *Schema) Rows(d Domain, class types.MaterialClass) []int {
	return append([]int(nil), s.classes[d][class].Rows...)
}

// Class returns the full row selection of a class in a domain
func (s *Schema) Class(d Domain, class types.MaterialClass) ClassRows {
	return s.classes[d][class].clone()
}

// RecoveryOffsets returns the recovery-activity offsets within a country block
func (s *Schema) RecoveryOffsets() []int {
	return append([]int(nil), s.recovery.offsets...)
}

// Recovery returns the recovery-activity selection
func (s *Schema) Recovery() ActivityBlocks {
	return s.recovery
}

// CountryConversions returns the conversions applied to country-level extraction
func (s *Schema) CountryConversions() []Conversion {
	return append([]Conversion(nil), s.countryConversions...)
}

// CountryConversionFor returns the country-level conversion for resource row r
func (s *Schema) CountryConversionFor(r int) (Conversion, bool) {
	for _, c := range s.countryConversions {
		if c.Row == r {
			return c, true
		}
	}
	return Conversion{}, false
}

// Regions returns the region definitions in report order
func (s *Schema) Regions() []Region {
	out := make([]Region, len(s.regions))
	for i, r := range s.regions {
		out[i] = Region{Name: r.Name, Members: append([]string(nil), r.Members...), All: r.All}
	}
	return out
}

// Unclassified returns the rows of a domain that belong to no class
func (s *Schema) Unclassified(d Domain) []int {
	used := make(map[int]bool)
	for _, c := range s.classes[d] {
		for _, r := range c.Rows {
			used[r] = true
		}
	}
	var out []int
	for r := 0; r < s.domainRows[d]; r++ {
		if !used[r] {
			out = append(out, r)
		}
	}
	return out
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
