// Package classifier maps raw dataset rows to material classes.
//
// A Spec is the decodable description (built in, or read from an HCL file);
// a Schema is the validated, immutable form handed to every aggregator.
package classifier

// Spec is the serialisable form of a classifier schema
type Spec struct {
	Version      string `hcl:"version"`
	ResourceRows int    `hcl:"resource_rows"`
	WasteRows    int    `hcl:"waste_rows"`
	EmissionRows int    `hcl:"emission_rows"`

	Recovery           RecoverySpec     `hcl:"recovery,block"`
	Classes            []ClassSpec      `hcl:"class,block"`
	CountryConversions []ConversionSpec `hcl:"country_conversion,block"`
	Regions            []RegionSpec     `hcl:"region,block"`
}

// RecoverySpec selects recovery activities inside each country block
type RecoverySpec struct {
	BlockWidth int   `hcl:"block_width"`
	Offsets    []int `hcl:"offsets"`
}

// ClassSpec lists the rows of one material class in one domain
type ClassSpec struct {
	Domain      string           `hcl:"domain,label"`
	Class       string           `hcl:"class,label"`
	Rows        []int            `hcl:"rows"`
	FinalDemand bool             `hcl:"final_demand,optional"`
	Conversions []ConversionSpec `hcl:"conversion,block"`
}

// ConversionSpec rescales one row by numerator/denominator
type ConversionSpec struct {
	Name        string `hcl:"name,label"`
	Row         int    `hcl:"row"`
	Numerator   int64  `hcl:"numerator"`
	Denominator int64  `hcl:"denominator"`
}

// RegionSpec names a group of countries. All selects every country.
type RegionSpec struct {
	Name    string   `hcl:"name,label"`
	Members []string `hcl:"members,optional"`
	All     bool     `hcl:"all,optional"`
}

// Molar masses used by the carbon-equivalent conversions
const (
	molarC   = 12
	molarCO  = 28
	molarCO2 = 44
)

func span(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func concat(parts ...[]int) []int {
	var out []int
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// DefaultSpec returns the EXIOBASE MR-HIOT v3.3.15 classification
func DefaultSpec() Spec {
	co2ToC := func(row int) ConversionSpec {
		return ConversionSpec{Name: "co2_to_c", Row: row, Numerator: molarC, Denominator: molarCO2}
	}

	return Spec{
		Version:      "exiobase-mr-hiot-3.3.15",
		ResourceRows: 35,
		WasteRows:    17,
		EmissionRows: 66,
		Recovery: RecoverySpec{
			BlockWidth: 164,
			Offsets: []int{15, 16, 50, 52, 59, 65, 69, 72, 74, 76,
				78, 80, 82, 93, 94, 101, 114, 146, 147,
				148, 149, 150},
		},
		Classes: []ClassSpec{
			{Domain: "resource", Class: "fossil", Rows: span(24, 32)},
			{Domain: "resource", Class: "biomass", Rows: []int{0, 3, 8, 12, 14, 33},
				Conversions: []ConversionSpec{co2ToC(33)}},
			{Domain: "resource", Class: "metal", Rows: []int{1, 5, 6, 9, 10, 13, 16, 17, 19, 21, 22, 23}},
			{Domain: "resource", Class: "non-metal", Rows: []int{2, 4, 7, 11, 15, 18, 20, 34}, FinalDemand: true},

			{Domain: "waste", Class: "fossil", Rows: []int{5, 7, 15}},
			{Domain: "waste", Class: "biomass", Rows: []int{0, 1, 2, 3, 4, 16}},
			{Domain: "waste", Class: "metal", Rows: span(8, 13)},
			{Domain: "waste", Class: "non-metal", Rows: []int{6, 14}},

			{Domain: "emission", Class: "fossil", Rows: concat(span(0, 12), span(22, 49), []int{63, 65}), FinalDemand: true,
				Conversions: []ConversionSpec{
					co2ToC(0),
					{Name: "co_to_c", Row: 10, Numerator: molarC, Denominator: molarCO},
				}},
			{Domain: "emission", Class: "biomass", Rows: []int{52, 64}, FinalDemand: true,
				Conversions: []ConversionSpec{co2ToC(64)}},
			{Domain: "emission", Class: "metal", Rows: concat(span(13, 21), span(55, 61)), FinalDemand: true},
			{Domain: "emission", Class: "non-metal", Rows: []int{50, 51, 53, 54, 62}, FinalDemand: true},
		},
		CountryConversions: []ConversionSpec{co2ToC(33)},
		Regions: []RegionSpec{
			{Name: "World", All: true},
			{Name: "Europe", Members: []string{"AT", "BE", "BG", "CY", "CZ", "DE", "DK", "EE", "ES", "FI",
				"FR", "GR", "HU", "HR", "IE", "IT", "LT", "LU", "LV", "MT",
				"NL", "PL", "PT", "RO", "SE", "SI", "SK", "GB", "NO", "CH",
				"WE"}},
			{Name: "North America", Members: []string{"US", "CA"}},
			{Name: "China", Members: []string{"CN"}},
			{Name: "Russia", Members: []string{"RU"}},
			{Name: "India", Members: []string{"IN"}},
			{Name: "Australia", Members: []string{"AU"}},
			{Name: "Japan", Members: []string{"JP"}},
			{Name: "Latin America", Members: []string{"BR", "MX", "WL"}},
			{Name: "Middle East", Members: []string{"TR", "WM"}},
			{Name: "Africa", Members: []string{"ZA", "WF"}},
			{Name: "Asia and Pacific", Members: []string{"KR", "ID", "WA"}},
		},
	}
}
