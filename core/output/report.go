package output

import (
	"time"

	"circularity-gap/core/types"
	cgerrors "circularity-gap/internal/errors"
)

// Report sections, named after the sheets of the workbook
const (
	SectionWorld   = "data_glo"
	SectionCountry = "data_cou"
	SectionRegion  = "data_reg"
)

// Sections returns the section names in write order
func Sections() []string {
	return []string{SectionWorld, SectionCountry, SectionRegion}
}

// Report is the complete output of one run
type Report struct {
	// World holds the global totals in Gt
	World *types.WorldResult `json:"world"`

	// Countries holds per-country results in t
	Countries *types.CountryResultTable `json:"-"`

	// Regions holds regional sums in t
	Regions *types.RegionResultTable `json:"regions"`

	// Metadata contains execution context
	Metadata Metadata `json:"metadata"`
}

// Metadata contains execution context
type Metadata struct {
	// RunID uniquely identifies the run
	RunID string `json:"run_id"`

	// Timestamp is when the run started
	Timestamp time.Time `json:"timestamp"`

	// Duration is how long the computation took
	Duration time.Duration `json:"duration"`

	// Source describes where the dataset came from
	Source string `json:"source"`

	// SchemaVersion names the classifier used
	SchemaVersion string `json:"schema_version"`

	// Conversions lists the carbon-equivalent conversions applied
	Conversions []string `json:"conversions,omitempty"`

	// Version is the tool version
	Version string `json:"version"`
}

// Validate checks that every section is present and complete
func (r *Report) Validate() error {
	if r == nil {
		return cgerrors.Internal("report is nil", nil)
	}
	if r.World == nil {
		return cgerrors.Internal("report has no world section", nil)
	}
	for _, c := range types.MaterialClasses() {
		if _, ok := r.World.Classes[c]; !ok {
			return cgerrors.Newf(cgerrors.TypeInternal, "world section lacks class %s", c)
		}
	}
	if r.Countries == nil {
		return cgerrors.Internal("report has no country section", nil)
	}
	if r.Regions == nil {
		return cgerrors.Internal("report has no region section", nil)
	}
	return nil
}

// CountryRows returns the country rows, or nil
func (r *Report) CountryRows() []types.CountryResultRow {
	if r.Countries == nil {
		return nil
	}
	return r.Countries.Rows()
}

// GlobalGap sums the world circularity gap over every class, in Gt
func (r *Report) GlobalGap() float64 {
	var total float64
	for _, c := range types.MaterialClasses() {
		total += r.World.Classes[c].CircularityGap
	}
	return total
}
