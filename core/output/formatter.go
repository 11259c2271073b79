// Package output provides output formatting interfaces.
// This package produces human and machine-readable reports of a run.
package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	cgerrors "circularity-gap/internal/errors"
	"circularity-gap/internal/logging"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable CLI table
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"

	// FormatXLSX is the three-sheet workbook
	FormatXLSX Format = "xlsx"

	// FormatPNG is a bar chart of the regional circularity gap
	FormatPNG Format = "png"
)

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render produces output for the given report
	Render(w io.Writer, report *Report) error
}

// Registry holds formatters by format
type Registry struct {
	mu         sync.RWMutex
	formatters map[Format]Formatter
}

// NewRegistry creates a registry preloaded with the given formatters
func NewRegistry(formatters ...Formatter) *Registry {
	r := &Registry{formatters: make(map[Format]Formatter)}
	for _, f := range formatters {
		r.formatters[f.Format()] = f
	}
	return r
}

// Register adds a formatter to the registry
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.formatters[f.Format()]; exists {
		return cgerrors.Newf(cgerrors.TypeConfig, "formatter %q already registered", f.Format())
	}
	r.formatters[f.Format()] = f
	return nil
}

// Get returns a formatter for a format type
func (r *Registry) Get(format Format) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formatters[format]
	return f, ok
}

// Formats lists the registered formats in name order
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, 0, len(r.formatters))
	for f := range r.formatters {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Sink is a destination for a finished report
type Sink interface {
	// Name identifies the sink in logs
	Name() string

	// Write delivers the report
	Write(ctx context.Context, report *Report) error
}

// StagedSink can render a report without publishing it, so WriteAll can
// publish every sink or none
type StagedSink interface {
	Sink

	// Stage renders the report and returns the pending result
	Stage(ctx context.Context, report *Report) (Staged, error)
}

// Staged is a rendered report waiting to be published
type Staged interface {
	// Commit publishes the rendered report
	Commit() error

	// Discard drops the rendered report; it is a no-op after Commit
	Discard()
}

// StreamSink renders a report to a writer such as stdout
type StreamSink struct {
	Formatter Formatter
	Out       io.Writer
}

// Name returns the format name
func (s *StreamSink) Name() string { return string(s.Formatter.Format()) }

// Write renders the report
func (s *StreamSink) Write(ctx context.Context, report *Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Formatter.Render(s.Out, report)
}

// FileSink renders a report into a file
type FileSink struct {
	Formatter Formatter
	Path      string
}

// Name returns the target path
func (s *FileSink) Name() string { return s.Path }

// Stage creates the parent directory and renders into a temporary file
// beside Path. A failed render leaves nothing behind.
func (s *FileSink) Stage(ctx context.Context, report *Report) (Staged, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	staged := &stagedFile{tmp: tmp.Name(), path: s.Path}

	if err := s.Formatter.Render(tmp, report); err != nil {
		tmp.Close()
		staged.Discard()
		return nil, fmt.Errorf("render %s: %w", s.Formatter.Format(), err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		staged.Discard()
		return nil, fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		staged.Discard()
		return nil, fmt.Errorf("failed to write output file: %w", err)
	}
	return staged, nil
}

// Write stages the report and renames it into place
func (s *FileSink) Write(ctx context.Context, report *Report) error {
	staged, err := s.Stage(ctx, report)
	if err != nil {
		return err
	}
	return staged.Commit()
}

type stagedFile struct {
	tmp  string
	path string
	done bool
}

func (f *stagedFile) Commit() error {
	if err := os.Rename(f.tmp, f.path); err != nil {
		f.Discard()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	f.done = true
	return nil
}

func (f *stagedFile) Discard() {
	if !f.done {
		_ = os.Remove(f.tmp)
		f.done = true
	}
}

// WriteAll validates the report, stages every StagedSink, and only when all
// of them rendered publishes them and writes the other sinks, in order.
// An invalid report or a failed render reaches no destination.
func WriteAll(ctx context.Context, report *Report, sinks ...Sink) error {
	if err := report.Validate(); err != nil {
		return err
	}

	staged := make([]Staged, len(sinks))
	discard := func() {
		for _, st := range staged {
			if st != nil {
				st.Discard()
			}
		}
	}

	for i, s := range sinks {
		ss, ok := s.(StagedSink)
		if !ok {
			continue
		}
		finish := logging.Phase(ctx, "render", zap.String("sink", s.Name()))
		st, err := ss.Stage(ctx, report)
		finish(err)
		if err != nil {
			discard()
			return fmt.Errorf("sink %s: %w", s.Name(), err)
		}
		staged[i] = st
	}

	for i, s := range sinks {
		finish := logging.Phase(ctx, "write", zap.String("sink", s.Name()))
		var err error
		if staged[i] != nil {
			err = staged[i].Commit()
		} else {
			err = s.Write(ctx, report)
		}
		finish(err)
		if err != nil {
			discard()
			return fmt.Errorf("sink %s: %w", s.Name(), err)
		}
	}
	return nil
}

var _ StagedSink = (*FileSink)(nil)
