// Package exiobase reads EXIOBASE MR-HIOT text exports.
//
// Each table is a tab-separated file with two header lines (country, then
// sector), an optional index-names line, and one line per row holding two or
// three row labels followed by the values. Values use a comma as decimal
// separator.
package exiobase

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"circularity-gap/core/types"
	cgerrors "circularity-gap/internal/errors"
)

// ParseTable reads one flow table
func ParseTable(name types.TableName, r io.Reader) (*types.FlowTable, error) {
	depth := name.LabelDepth()
	cr := newReader(r)

	countries, err := cr.Read()
	if err != nil {
		return nil, headerError(string(name), "country", err)
	}
	sectors, err := cr.Read()
	if err != nil {
		return nil, headerError(string(name), "sector", err)
	}
	if len(countries) <= depth {
		return nil, cgerrors.DataShape(string(name), "header has %d cells, need more than %d label columns", len(countries), depth)
	}
	if len(sectors) != len(countries) {
		return nil, cgerrors.DataShape(string(name), "country header has %d cells, sector header %d", len(countries), len(sectors))
	}

	columns := make([]types.ColumnLabel, 0, len(countries)-depth)
	var last string
	for i := depth; i < len(countries); i++ {
		// merged header cells arrive blank after the first one
		if countries[i] != "" {
			last = countries[i]
		}
		columns = append(columns, types.ColumnLabel{Country: last, Sector: sectors[i]})
	}

	var (
		labels [][]string
		values [][]float64
	)
	for line := 3; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, cgerrors.Parsing("read "+string(name), err).WithContext("line", line)
		}
		if len(record) != depth+len(columns) {
			return nil, cgerrors.DataShape(string(name), "line %d has %d cells, expected %d", line, len(record), depth+len(columns)).
				WithContext("line", line)
		}
		if len(values) == 0 && blank(record[depth:]) {
			continue // index names
		}

		row := make([]float64, len(columns))
		for c, cell := range record[depth:] {
			v, err := ParseNumber(cell)
			if err != nil {
				return nil, cgerrors.Parsing("parse "+string(name), err).
					WithContext("line", line).
					WithContext("column", c+depth)
			}
			row[c] = v
		}
		labels = append(labels, append([]string(nil), record[:depth]...))
		values = append(values, row)
	}

	return types.NewFlowTable(string(name), labels, columns, values)
}

// ParsePopulation reads the population vector: a header line, then one
// line per country whose numeric cells are summed
func ParsePopulation(r io.Reader) (*types.PopulationVector, error) {
	cr := newReader(r)
	if _, err := cr.Read(); err != nil {
		return nil, headerError(types.PopulationFile, "population", err)
	}

	var (
		countries []string
		totals    []float64
	)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, cgerrors.Parsing("read "+types.PopulationFile, err).WithContext("line", line)
		}
		if len(record) < 2 {
			return nil, cgerrors.DataShape(types.PopulationFile, "line %d has no value", line).WithContext("line", line)
		}

		var total float64
		for _, cell := range record[1:] {
			v, err := ParseNumber(cell)
			if err != nil {
				return nil, cgerrors.Parsing("parse "+types.PopulationFile, err).WithContext("line", line)
			}
			total += v
		}
		countries = append(countries, record[0])
		totals = append(totals, total)
	}

	return types.NewPopulationVector(countries, totals)
}

// ParseNumber reads a comma-decimal number; blank cells are zero
func ParseNumber(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.Replace(cell, ",", ".", 1), 64)
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	return cr
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func headerError(table, header string, err error) error {
	if errors.Is(err, io.EOF) {
		return cgerrors.DataShape(table, "missing %s header", header)
	}
	return cgerrors.Parsing("read "+table+" "+header+" header", err)
}
