// Package workdir manages the process-scoped working directory shared by the
// ingestion stages.
//
// Files are namespaced by a stage prefix so a later stage can select exactly
// the files produced by its input stage. Ownership of a file moves with its
// path through the queues; no file is ever written by two workers.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bastiangx/codewords/internal/logger"
	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"
)

// Stage is a file name prefix identifying the stage that wrote a file.
type Stage string

const (
	StageRaw   Stage = "0-raw-"
	StageClean Stage = "1-clean-"
	StageShard Stage = "2-shard-"
)

// Suffix is appended to the temp directory name.
const Suffix = "-wordlist-build"

// Dir is a process-scoped working directory.
type Dir struct {
	path string
	keep bool
	log  *log.Logger
}

// New creates a fresh directory under parent (os.TempDir() when empty).
// With keep set, Cleanup leaves the directory in place for inspection.
func New(parent string, keep bool, l *log.Logger) (*Dir, error) {
	path, err := os.MkdirTemp(parent, "*"+Suffix)
	if err != nil {
		return nil, fmt.Errorf("create workdir: %w", err)
	}
	d := &Dir{path: path, keep: keep, log: logger.OrDiscard(l)}
	d.log.Debug("workdir ready", "path", path, "keep", keep)
	return d, nil
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// Create opens a new, uniquely named file for stage.
func (d *Dir) Create(stage Stage) (*os.File, error) {
	name := filepath.Join(d.path, string(stage)+ulid.Make().String())
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("create %s file: %w", stage, err)
	}
	return f, nil
}

// Glob lists the files written by stage, sorted by name.
func (d *Dir) Glob(stage Stage) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.path, string(stage)+"*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// Remove deletes a consumed file.
func (d *Dir) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Cleanup removes the directory and everything in it unless retention was
// requested. Safe to call more than once.
func (d *Dir) Cleanup() error {
	if d.keep {
		d.log.Info("keeping workdir", "path", d.path)
		return nil
	}
	d.log.Debug("cleaning workdir", "path", d.path)
	return os.RemoveAll(d.path)
}
