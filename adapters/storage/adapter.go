// Package storage keeps a history of run summaries so two runs can be
// compared. FileStore backs the run archive with one JSON document per run;
// MemoryStore holds runs that are compared without being archived.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"circularity-gap/core/output"
	"circularity-gap/core/types"
	cgerrors "circularity-gap/internal/errors"
)

// Store is the storage interface
type Store interface {
	// Save stores a run summary
	Save(ctx context.Context, run *StoredRun) error

	// Get retrieves a run by ID or unique ID prefix
	Get(ctx context.Context, id string) (*StoredRun, error)

	// List lists runs newest first
	List(ctx context.Context, filter *ListFilter) ([]*StoredRun, error)

	// Delete removes a run
	Delete(ctx context.Context, id string) error

	// Close closes the store
	Close() error
}

// StoredRun is the archived summary of one report
type StoredRun struct {
	// ID is the run id of the report
	ID string `json:"id"`

	CreatedAt     time.Time     `json:"created_at"`
	Duration      time.Duration `json:"duration"`
	Source        string        `json:"source"`
	SchemaVersion string        `json:"schema_version"`
	Version       string        `json:"version,omitempty"`

	// GlobalGap is the world circularity gap in Gt
	GlobalGap float64 `json:"global_gap"`

	// ClassGaps is the world gap per material class in Gt
	ClassGaps map[types.MaterialClass]float64 `json:"class_gaps"`

	// Regions holds the regional rows in t
	Regions []types.RegionResultRow `json:"regions"`

	Countries int `json:"countries"`
}

// FromReport summarizes a report for the archive
func FromReport(report *output.Report) (*StoredRun, error) {
	if err := report.Validate(); err != nil {
		return nil, err
	}
	m := report.Metadata
	run := &StoredRun{
		ID:            m.RunID,
		CreatedAt:     m.Timestamp,
		Duration:      m.Duration,
		Source:        m.Source,
		SchemaVersion: m.SchemaVersion,
		Version:       m.Version,
		GlobalGap:     report.GlobalGap(),
		ClassGaps:     make(map[types.MaterialClass]float64, 4),
		Regions:       append([]types.RegionResultRow(nil), report.Regions.Rows...),
		Countries:     report.Countries.Len(),
	}
	for _, c := range types.MaterialClasses() {
		run.ClassGaps[c] = report.World.Classes[c].CircularityGap
	}
	return run, nil
}

// ListFilter filters run listing
type ListFilter struct {
	SchemaVersion string
	Since         time.Time
	Until         time.Time
	Limit         int
}

func (f *ListFilter) match(run *StoredRun) bool {
	if f == nil {
		return true
	}
	if f.SchemaVersion != "" && run.SchemaVersion != f.SchemaVersion {
		return false
	}
	if !f.Since.IsZero() && run.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && run.CreatedAt.After(f.Until) {
		return false
	}
	return true
}

// sortAndLimit orders runs newest first and applies the filter limit
func sortAndLimit(runs []*StoredRun, filter *ListFilter) []*StoredRun {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if filter != nil && filter.Limit > 0 && filter.Limit < len(runs) {
		runs = runs[:filter.Limit]
	}
	return runs
}

func notFound(id string) error {
	return cgerrors.Newf(cgerrors.TypeInput, "run not found: %s", id).WithContext("run_id", id)
}

func prepare(run *StoredRun) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
}

// FileStore is a file-based storage backend
type FileStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStore creates a file store
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, cgerrors.Wrap(cgerrors.TypeConfig, "create archive directory", err).
			WithContext("path", basePath)
	}
	return &FileStore{basePath: basePath}, nil
}

// Path returns the archive directory
func (s *FileStore) Path() string { return s.basePath }

func (s *FileStore) Save(ctx context.Context, run *StoredRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(run)
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	path := filepath.Join(s.basePath, run.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*StoredRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if run, err := s.read(filepath.Join(s.basePath, id+".json")); err == nil {
		return run, nil
	}

	runs, err := s.readAll()
	if err != nil {
		return nil, err
	}
	return byPrefix(runs, id)
}

func (s *FileStore) List(ctx context.Context, filter *ListFilter) ([]*StoredRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.readAll()
	if err != nil {
		return nil, err
	}
	var runs []*StoredRun
	for _, run := range all {
		if filter.match(run) {
			runs = append(runs, run)
		}
	}
	return sortAndLimit(runs, filter), nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.basePath, id+".json")
	if _, err := os.Stat(path); err != nil {
		return notFound(id)
	}
	return os.Remove(path)
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read(path string) (*StoredRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var run StoredRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, cgerrors.Parsing("decode "+filepath.Base(path), err)
	}
	return &run, nil
}

// readAll skips files that are not run documents
func (s *FileStore) readAll() ([]*StoredRun, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	var runs []*StoredRun
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		run, err := s.read(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func byPrefix(runs []*StoredRun, prefix string) (*StoredRun, error) {
	var found *StoredRun
	for _, run := range runs {
		if !strings.HasPrefix(run.ID, prefix) {
			continue
		}
		if found != nil {
			return nil, cgerrors.Newf(cgerrors.TypeInput, "run id prefix %q is ambiguous", prefix)
		}
		found = run
	}
	if found == nil || prefix == "" {
		return nil, notFound(prefix)
	}
	return found, nil
}

// MemoryStore keeps runs for the lifetime of the process
type MemoryStore struct {
	runs map[string]*StoredRun
	mu   sync.RWMutex
}

// NewMemoryStore creates a memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*StoredRun),
	}
}

func (s *MemoryStore) Save(ctx context.Context, run *StoredRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(run)
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*StoredRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if run, ok := s.runs[id]; ok {
		return run, nil
	}
	runs := make([]*StoredRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	return byPrefix(runs, id)
}

func (s *MemoryStore) List(ctx context.Context, filter *ListFilter) ([]*StoredRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var runs []*StoredRun
	for _, run := range s.runs {
		if filter.match(run) {
			runs = append(runs, run)
		}
	}
	return sortAndLimit(runs, filter), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return notFound(id)
	}
	delete(s.runs, id)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Ensure interfaces are implemented
var _ io.Closer = (*FileStore)(nil)
var _ io.Closer = (*MemoryStore)(nil)
var _ Store = (*FileStore)(nil)
var _ Store = (*MemoryStore)(nil)
