package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// CommandProvider runs a shell pipeline and streams its standard output.
type CommandProvider struct {
	Label    string
	Pipeline string
	// Requires lists executables that must be on PATH.
	Requires []string
	// Files lists inputs the pipeline reads directly.
	Files []string
	// Encoding decodes the pipeline output to UTF-8. Nil means UTF-8 already.
	Encoding encoding.Encoding
}

// Aspell dumps and expands the master dictionary for lang, one word per line.
func Aspell(lang string) (*CommandProvider, error) {
	if !validLang(lang) {
		return nil, fmt.Errorf("%w: invalid aspell language %q", ErrConfig, lang)
	}
	return &CommandProvider{
		Label: "aspell " + lang,
		Pipeline: fmt.Sprintf("aspell -d %s dump master | aspell -l %s expand | sed 's/ /\\n/g'",
			lang, lang),
		Requires: []string{"aspell", "sed"},
	}, nil
}

// Hunspell expands <dir>/<lang>.dic with its affix file. unmunch emits
// ISO-8859-15.
func Hunspell(lang, dir string) (*CommandProvider, error) {
	if !validLang(lang) {
		return nil, fmt.Errorf("%w: invalid hunspell language %q", ErrConfig, lang)
	}
	dic := filepath.Join(dir, lang+".dic")
	aff := filepath.Join(dir, lang+".aff")
	return &CommandProvider{
		Label:    "hunspell " + lang,
		Pipeline: fmt.Sprintf("unmunch %s %s", shellQuote(dic), shellQuote(aff)),
		Requires: []string{"unmunch"},
		Files:    []string{dic, aff},
		Encoding: charmap.ISO8859_15,
	}, nil
}

func (p *CommandProvider) Name() string { return p.Label }

func (p *CommandProvider) Check() error {
	for _, bin := range append([]string{"sh"}, p.Requires...) {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%w: required %s command not found in path", ErrConfig, bin)
		}
	}
	for _, f := range p.Files {
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("%w: %v", ErrConfig, err)
		}
	}
	return nil
}

func (p *CommandProvider) Open(ctx context.Context) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", p.Pipeline)
	cmd.Stderr = io.Discard
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", p.Label, err)
	}

	var r io.Reader = stdout
	if p.Encoding != nil {
		r = p.Encoding.NewDecoder().Reader(stdout)
	}
	return &commandStream{cmd: cmd, pipe: stdout, r: r, label: p.Label}, nil
}

// commandStream reaps the process on Close. A non-zero exit is only an
// error when the output was read to the end; an early Close kills the
// pipeline on purpose.
type commandStream struct {
	cmd   *exec.Cmd
	pipe  io.ReadCloser
	r     io.Reader
	label string
	eof   bool
}

func (s *commandStream) Read(b []byte) (int, error) {
	n, err := s.r.Read(b)
	if err == io.EOF {
		s.eof = true
	}
	return n, err
}

func (s *commandStream) Close() error {
	if !s.eof && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.pipe.Close()
	err := s.cmd.Wait()
	if s.eof && err != nil {
		return fmt.Errorf("%s pipeline: %w", s.label, err)
	}
	return nil
}

func validLang(lang string) bool {
	if lang == "" {
		return false
	}
	for _, r := range lang {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '@':
		default:
			return false
		}
	}
	return true
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
