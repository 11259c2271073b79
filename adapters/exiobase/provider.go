package exiobase

import (
	"bufio"
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"circularity-gap/core/types"
	cgerrors "circularity-gap/internal/errors"
	"circularity-gap/internal/logging"
)

// Extension of every table file
const Extension = ".txt"

// FileName returns the file name of a table, e.g. RE_ACT.txt
func FileName(name string) string {
	return name + Extension
}

// DirProvider reads tables from a local directory
type DirProvider struct {
	dir string
}

// NewDirProvider checks that dir exists and is a directory
func NewDirProvider(dir string) (*DirProvider, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, cgerrors.Wrap(cgerrors.TypeInput, "dataset directory "+dir, err)
	}
	if !info.IsDir() {
		return nil, cgerrors.Input("dataset path is not a directory: " + dir)
	}
	return &DirProvider{dir: dir}, nil
}

// Load parses one table file
func (p *DirProvider) Load(ctx context.Context, name types.TableName) (*types.FlowTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(p.dir, FileName(string(name)))
	logging.FromContext(ctx).Debug("reading table", zap.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, cgerrors.Wrap(cgerrors.TypeInput, "open "+path, err).
			WithContext("table", string(name))
	}
	defer f.Close()

	return ParseTable(name, bufio.NewReaderSize(f, 1<<20))
}

// LoadPopulation parses POP.txt
func (p *DirProvider) LoadPopulation(ctx context.Context) (*types.PopulationVector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(p.dir, FileName(types.PopulationFile))

	f, err := os.Open(path)
	if err != nil {
		return nil, cgerrors.Wrap(cgerrors.TypeInput, "open "+path, err)
	}
	defer f.Close()

	return ParsePopulation(bufio.NewReader(f))
}

// Source is the directory path
func (p *DirProvider) Source() string { return p.dir }
