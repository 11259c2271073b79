package classifier

import (
	cgerrors "circularity-gap/internal/errors"
)

// ActivityBlocks selects activities from a column layout made of
// equal-width country blocks. Each offset names an activity position
// inside every block.
type ActivityBlocks struct {
	width   int
	offsets []int
}

// NewActivityBlocks validates a block width and offset list
func NewActivityBlocks(width int, offsets []int) (ActivityBlocks, error) {
	if width <= 0 {
		return ActivityBlocks{}, cgerrors.Newf(cgerrors.TypeConfig, "activity block width must be positive, got %d", width)
	}
	seen := make(map[int]bool, len(offsets))
	for _, o := range offsets {
		if o < 0 || o >= width {
			return ActivityBlocks{}, cgerrors.Newf(cgerrors.TypeConfig, "activity offset %d outside block of width %d", o, width)
		}
		if seen[o] {
			return ActivityBlocks{}, cgerrors.Newf(cgerrors.TypeConfig, "activity offset %d listed twice", o)
		}
		seen[o] = true
	}
	return ActivityBlocks{width: width, offsets: append([]int(nil), offsets...)}, nil
}

// Width is the number of activities per country block
func (a ActivityBlocks) Width() int { return a.width }

// Offsets returns the selected positions inside a block
func (a ActivityBlocks) Offsets() []int { return append([]int(nil), a.offsets...) }

// Select returns the selected columns across a table of totalCols columns,
// grouped by offset: offset o yields o, o+width, o+2*width, ...
func (a ActivityBlocks) Select(totalCols int) ([]int, error) {
	if totalCols%a.width != 0 {
		return nil, cgerrors.Newf(cgerrors.TypeSchemaMismatch, "%d columns do not divide into blocks of %d activities", totalCols, a.width).
			WithContext("columns", totalCols)
	}
	cols := make([]int, 0, len(a.offsets)*(totalCols/a.width))
	for _, o := range a.offsets {
		for c := o; c < totalCols; c += a.width {
			cols = append(cols, c)
		}
	}
	return cols, nil
}

// Within maps the offsets onto one country's column block
func (a ActivityBlocks) Within(block []int) ([]int, error) {
	if len(block) != a.width {
		return nil, cgerrors.Newf(cgerrors.TypeDataShape, "country block has %d columns, expected %d activities", len(block), a.width).
			WithContext("columns", len(block))
	}
	cols := make([]int, len(a.offsets))
	for i, o := range a.offsets {
		cols[i] = block[o]
	}
	return cols, nil
}
