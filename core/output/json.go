package output

import (
	"encoding/json"
	"io"

	"circularity-gap/core/types"
)

// JSONFormatter renders the report as indented JSON
type JSONFormatter struct{}

// Format returns FormatJSON
func (JSONFormatter) Format() Format { return FormatJSON }

type jsonReport struct {
	Metadata  Metadata                 `json:"metadata"`
	World     jsonWorld                `json:"data_glo"`
	Countries []types.CountryResultRow `json:"data_cou"`
	Regions   []types.RegionResultRow  `json:"data_reg"`
}

type jsonWorld struct {
	Unit string               `json:"unit"`
	Rows []types.LabeledValue `json:"rows"`
}

// Render writes the three sections keyed by their sheet names
func (JSONFormatter) Render(w io.Writer, report *Report) error {
	if err := report.Validate(); err != nil {
		return err
	}
	out := jsonReport{
		Metadata:  report.Metadata,
		World:     jsonWorld{Unit: report.World.Unit, Rows: report.World.Rows()},
		Countries: report.CountryRows(),
		Regions:   report.Regions.Rows,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
