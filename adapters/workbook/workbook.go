// Package workbook writes reports as an xlsx workbook with one sheet per
// section: data_glo (world, Gt), data_cou (countries, t) and data_reg
// (regions, t). Each sheet has an index column and a header row.
package workbook

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"circularity-gap/core/output"
	"circularity-gap/core/types"
)

const (
	indexWidth = 22
	valueWidth = 26
)

// Formatter renders reports as xlsx
type Formatter struct{}

// Format returns FormatXLSX
func (Formatter) Format() output.Format { return output.FormatXLSX }

// Render writes the workbook to w
func (Formatter) Render(w io.Writer, report *output.Report) error {
	f, err := Build(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Build lays the three sections out in a new workbook
func Build(report *output.Report) (*excelize.File, error) {
	if err := report.Validate(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	s := &sheetWriter{f: f, header: bold}

	if err := f.SetSheetName("Sheet1", output.SectionWorld); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range output.Sections()[1:] {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	world := report.World.Rows()
	worldIndex := make([]string, len(world))
	worldValues := make([][]float64, len(world))
	for i, row := range world {
		worldIndex[i] = row.Label
		worldValues[i] = []float64{row.Value}
	}
	s.write(output.SectionWorld, []string{types.WorldColumn}, worldIndex, worldValues)

	countries := report.CountryRows()
	countryIndex := make([]string, len(countries))
	countryValues := make([][]float64, len(countries))
	for i, row := range countries {
		countryIndex[i] = row.Country
		countryValues[i] = row.Values()
	}
	s.write(output.SectionCountry, types.FlowColumns, countryIndex, countryValues)

	regionIndex := make([]string, len(report.Regions.Rows))
	regionValues := make([][]float64, len(report.Regions.Rows))
	for i, row := range report.Regions.Rows {
		regionIndex[i] = row.Region
		regionValues[i] = row.Values()
	}
	s.write(output.SectionRegion, types.FlowColumns, regionIndex, regionValues)

	if s.err != nil {
		f.Close()
		return nil, s.err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// sheetWriter keeps the first error so the layout code reads straight through
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (s *sheetWriter) set(sheet string, col, row int, value interface{}) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetCellValue(sheet, cell, value)
}

func (s *sheetWriter) write(sheet string, headers, index []string, values [][]float64) {
	for i, h := range headers {
		s.set(sheet, i+2, 1, h)
	}
	for r, label := range index {
		s.set(sheet, 1, r+2, label)
		for c, v := range values[r] {
			s.set(sheet, c+2, r+2, v)
		}
	}
	if s.err != nil {
		return
	}

	last, err := excelize.ColumnNumberToName(len(headers) + 1)
	if err != nil {
		s.err = err
		return
	}
	if err := s.f.SetCellStyle(sheet, "A1", last+"1", s.header); err != nil {
		s.err = err
		return
	}
	if err := s.f.SetColWidth(sheet, "A", "A", indexWidth); err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetColWidth(sheet, "B", last, valueWidth)
}
