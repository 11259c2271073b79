// Package engine provides the API-primary circularity gap engine.
// CLI is a thin wrapper around this engine.
//
// A run moves through fixed phases: load, validate, world, countries,
// regions. No report exists until every phase has succeeded, so sinks never
// see partial results.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"circularity-gap/core/classifier"
	"circularity-gap/core/country"
	"circularity-gap/core/dataset"
	"circularity-gap/core/output"
	"circularity-gap/core/region"
	"circularity-gap/core/types"
	"circularity-gap/core/world"
	"circularity-gap/internal/logging"
)

// Phase is one step of a run
type Phase int

const (
	PhaseLoad Phase = iota
	PhaseValidate
	PhaseWorld
	PhaseCountries
	PhaseRegions
	PhaseComplete
)

// String returns the phase name
func (p Phase) String() string {
	names := []string{"load", "validate", "world", "countries", "regions", "complete"}
	if int(p) < len(names) {
		return names[p]
	}
	return "unknown"
}

// PhaseError records the phase a run failed in
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

// Unwrap exposes the typed cause
func (e *PhaseError) Unwrap() error { return e.Err }

// Config configures the engine
type Config struct {
	// Workers bounds the per-country pool; 0 means unbounded
	Workers int

	// LoadWorkers bounds concurrent table reads; 0 means one per table
	LoadWorkers int

	// Version is recorded in report metadata
	Version string

	// Now returns the current time; tests pin it
	Now func() time.Time
}

// Engine computes circularity gap reports
type Engine struct {
	schema   *classifier.Schema
	provider dataset.Provider
	config   Config
}

// NewEngine creates an engine for one schema and data provider
func NewEngine(schema *classifier.Schema, provider dataset.Provider, config Config) *Engine {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Engine{schema: schema, provider: provider, config: config}
}

// Schema returns the classifier in use
func (e *Engine) Schema() *classifier.Schema { return e.schema }

// Run loads the dataset and computes every section of the report
func (e *Engine) Run(ctx context.Context) (*output.Report, error) {
	start := e.config.Now()
	runID := uuid.New().String()
	ctx, log := logging.ForRun(ctx, runID)
	log.Info("run started",
		zap.String("source", e.provider.Source()),
		zap.String("schema", e.schema.Version()),
	)

	finish := logging.Phase(ctx, PhaseLoad.String())
	ds, err := dataset.Load(ctx, e.provider, e.config.LoadWorkers)
	finish(err)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseLoad, Err: err}
	}

	report, err := e.Compute(ctx, ds)
	if err != nil {
		return nil, err
	}

	report.Metadata.RunID = runID
	report.Metadata.Timestamp = start
	report.Metadata.Duration = e.config.Now().Sub(start)
	log.Info("run finished",
		zap.Int("countries", report.Countries.Len()),
		zap.Int("regions", len(report.Regions.Rows)),
		zap.Duration("duration", report.Metadata.Duration),
	)
	return report, nil
}

// Compute runs every phase after loading on an in-memory dataset
func (e *Engine) Compute(ctx context.Context, ds *types.Dataset) (*output.Report, error) {
	var (
		worldResult *types.WorldResult
		countries   *types.CountryResultTable
		regions     *types.RegionResultTable
	)

	phases := []struct {
		phase Phase
		run   func() error
	}{
		{PhaseValidate, func() error {
			return classifier.Validate(e.schema, ds)
		}},
		{PhaseWorld, func() (err error) {
			worldResult, err = world.Compute(e.schema, ds)
			return err
		}},
		{PhaseCountries, func() (err error) {
			countries, err = country.ComputeTable(ctx, e.schema, ds, e.config.Workers)
			return err
		}},
		{PhaseRegions, func() (err error) {
			regions, err = region.Aggregate(e.schema.Regions(), countries)
			return err
		}},
	}

	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			return nil, &PhaseError{Phase: p.phase, Err: err}
		}
		finish := logging.Phase(ctx, p.phase.String())
		err := p.run()
		finish(err)
		if err != nil {
			return nil, &PhaseError{Phase: p.phase, Err: err}
		}
	}

	return &output.Report{
		World:     worldResult,
		Countries: countries,
		Regions:   regions,
		Metadata: output.Metadata{
			Source:        ds.Source,
			SchemaVersion: e.schema.Version(),
			Conversions:   e.conversions(),
			Version:       e.config.Version,
		},
	}, nil
}

func (e *Engine) conversions() []string {
	var out []string
	for _, d := range classifier.Domains() {
		for _, c := range types.MaterialClasses() {
			for _, conv := range e.schema.Class(d, c).Conversions {
				out = append(out, fmt.Sprintf("%s/%s %s", d, c, conv))
			}
		}
	}
	for _, conv := range e.schema.CountryConversions() {
		out = append(out, fmt.Sprintf("country/extraction %s", conv))
	}
	return out
}
