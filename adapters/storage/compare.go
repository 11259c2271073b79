package storage

import (
	"context"
	"fmt"

	"circularity-gap/core/types"
)

// Delta is the change of one quantity between two runs
type Delta struct {
	Label        string  `json:"label"`
	Old          float64 `json:"old"`
	New          float64 `json:"new"`
	Delta        float64 `json:"delta"`
	DeltaPercent float64 `json:"delta_percent"`
}

func newDelta(label string, before, after float64) Delta {
	d := Delta{Label: label, Old: before, New: after, Delta: after - before}
	if before != 0 {
		d.DeltaPercent = d.Delta / before * 100
	}
	return d
}

// CompareResult is a comparison between two runs
type CompareResult struct {
	OldID string `json:"old_id"`
	NewID string `json:"new_id"`

	// Total is the global gap in Gt
	Total Delta `json:"total"`

	// Classes holds the world gap per material class in Gt
	Classes []Delta `json:"classes"`

	// Regions holds the regional gap in t, in the new run's order followed
	// by regions only the old run has
	Regions []Delta `json:"regions"`

	// SchemaChanged is set when the runs used different classifiers
	SchemaChanged bool `json:"schema_changed"`
}

// Compare diffs two stored runs
func Compare(oldRun, newRun *StoredRun) *CompareResult {
	res := &CompareResult{
		OldID:         oldRun.ID,
		NewID:         newRun.ID,
		Total:         newDelta("total", oldRun.GlobalGap, newRun.GlobalGap),
		SchemaChanged: oldRun.SchemaVersion != newRun.SchemaVersion,
	}
	for _, c := range types.MaterialClasses() {
		res.Classes = append(res.Classes, newDelta(string(c), oldRun.ClassGaps[c], newRun.ClassGaps[c]))
	}

	oldGap := make(map[string]float64, len(oldRun.Regions))
	for _, r := range oldRun.Regions {
		oldGap[r.Region] = r.CircularityGap
	}
	seen := make(map[string]bool, len(newRun.Regions))
	for _, r := range newRun.Regions {
		seen[r.Region] = true
		res.Regions = append(res.Regions, newDelta(r.Region, oldGap[r.Region], r.CircularityGap))
	}
	for _, r := range oldRun.Regions {
		if !seen[r.Region] {
			res.Regions = append(res.Regions, newDelta(r.Region, r.CircularityGap, 0))
		}
	}
	return res
}

// CompareIDs loads two runs from a store and diffs them
func CompareIDs(ctx context.Context, s Store, oldID, newID string) (*CompareResult, error) {
	oldRun, err := s.Get(ctx, oldID)
	if err != nil {
		return nil, fmt.Errorf("failed to get old run: %w", err)
	}
	newRun, err := s.Get(ctx, newID)
	if err != nil {
		return nil, fmt.Errorf("failed to get new run: %w", err)
	}
	return Compare(oldRun, newRun), nil
}
