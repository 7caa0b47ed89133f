// Package source abstracts where raw corpus text comes from.
//
// A Provider yields a lazy stream of raw lines: a local wordlist, standard
// input, a shell pipeline around an external dictionary tool, or a remote
// file. Every provider is checked before the pipeline schedules any work so
// a missing tool or unreadable path fails the run up front.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

// ErrConfig marks configuration problems detected before any work starts:
// a missing executable, an unreadable path or an unknown descriptor.
var ErrConfig = errors.New("configuration error")

// Provider produces raw corpus text. Open is called once per run.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string
	// Check validates external prerequisites. Errors wrap ErrConfig.
	Check() error
	// Open starts producing text. The caller must Close the stream.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Options tune how descriptors are resolved.
type Options struct {
	// HunspellDir holds <lang>.dic and <lang>.aff files.
	HunspellDir string
	// Stdin backs the "-" descriptor. Defaults to os.Stdin.
	Stdin io.Reader
}

// DefaultHunspellDir is where distributions install hunspell dictionaries.
const DefaultHunspellDir = "/usr/share/hunspell"

// Parse resolves a descriptor into a Provider:
//
//	aspell:<lang>      aspell dump + expand pipeline
//	hunspell:<lang>    unmunch over <HunspellDir>/<lang>.{dic,aff}
//	-                  standard input
//	http(s)://...      remote wordlist
//	file:<path>, path  local wordlist
func Parse(descriptor string, opts Options) (Provider, error) {
	descriptor = strings.TrimSpace(descriptor)
	if descriptor == "" {
		return nil, fmt.Errorf("%w: empty source descriptor", ErrConfig)
	}

	kind, arg, found := strings.Cut(descriptor, ":")
	switch {
	case descriptor == "-":
		stdin := opts.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}
		return NewReader("stdin", stdin), nil
	case found && kind == "aspell":
		return Aspell(arg)
	case found && kind == "hunspell":
		dir := opts.HunspellDir
		if dir == "" {
			dir = DefaultHunspellDir
		}
		return Hunspell(arg, dir)
	case found && (kind == "http" || kind == "https"):
		return NewHTTP(descriptor, nil), nil
	case found && kind == "file":
		return NewFile(arg), nil
	default:
		return NewFile(descriptor), nil
	}
}

// CheckAll runs Check on every provider and joins the failures.
func CheckAll(providers []Provider) error {
	var errs []error
	for _, p := range providers {
		if err := p.Check(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// FileProvider reads a local wordlist.
type FileProvider struct {
	Path string
}

// NewFile creates a provider for a local file.
func NewFile(path string) *FileProvider {
	return &FileProvider{Path: path}
}

func (p *FileProvider) Name() string { return "wordlist " + p.Path }

func (p *FileProvider) Check() error {
	f, err := os.Open(p.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrConfig, p.Path)
	}
	return nil
}

func (p *FileProvider) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(p.Path)
}

// ReaderProvider streams an already open reader, typically standard input.
// It can be opened once; later calls to Open fail.
type ReaderProvider struct {
	label  string
	r      io.Reader
	opened atomic.Bool
}

// NewReader wraps r. The reader is never closed by the pipeline.
func NewReader(label string, r io.Reader) *ReaderProvider {
	return &ReaderProvider{label: label, r: r}
}

func (p *ReaderProvider) Name() string { return p.label }

func (p *ReaderProvider) Check() error {
	if p.r == nil {
		return fmt.Errorf("%w: %s has no reader", ErrConfig, p.label)
	}
	return nil
}

func (p *ReaderProvider) Open(context.Context) (io.ReadCloser, error) {
	if p.opened.Swap(true) {
		return nil, fmt.Errorf("%s: already consumed", p.label)
	}
	return io.NopCloser(p.r), nil
}
