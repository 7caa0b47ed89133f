// Package codes loads a reference code set from a URL.
//
// Supported locations:
//
//	/path/codes.txt, file:///path/codes.txt   one code per line
//	http(s)://host/codes.txt                   same format, fetched
//	sqlite://<path>?table=&field=              documents written by docingest
//	postgres://...?table=&field=               same, in postgres
//
// For document stores an empty field means the document id is the code.
package codes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bastiangx/codewords/internal/logger"
	"github.com/bastiangx/codewords/pkg/docstore"
	"github.com/bastiangx/codewords/pkg/segment"
	"github.com/charmbracelet/log"
)

// ErrScheme is returned for code list URLs with an unsupported scheme.
var ErrScheme = errors.New("codes: unsupported url scheme")

// Loader resolves code list URLs.
type Loader struct {
	Client *http.Client
	log    *log.Logger
}

// NewLoader creates a Loader with a default HTTP client.
func NewLoader(l *log.Logger) *Loader {
	return &Loader{
		Client: &http.Client{Timeout: 60 * time.Second},
		log:    logger.OrDiscard(l),
	}
}

// Open loads the code set at rawURL with codes of length codeLen.
func Open(ctx context.Context, rawURL string, codeLen int, l *log.Logger) (*segment.CodeSet, error) {
	return NewLoader(l).Open(ctx, rawURL, codeLen)
}

// Open loads the code set at rawURL with codes of length codeLen.
func (ld *Loader) Open(ctx context.Context, rawURL string, codeLen int) (*segment.CodeSet, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("codes: empty url")
	}
	scheme, _, hasScheme := strings.Cut(rawURL, "://")
	if !hasScheme {
		return ld.fromFile(rawURL, codeLen)
	}

	var (
		cs  *segment.CodeSet
		err error
	)
	switch scheme {
	case "file":
		u, perr := url.Parse(rawURL)
		if perr != nil {
			return nil, fmt.Errorf("codes: %w", perr)
		}
		cs, err = ld.fromFile(u.Path, codeLen)
	case "http", "https":
		cs, err = ld.fromHTTP(ctx, rawURL, codeLen)
	case "sqlite", "postgres", "postgresql":
		cs, err = ld.fromStore(ctx, rawURL, codeLen)
	default:
		return nil, fmt.Errorf("%w: %q", ErrScheme, scheme)
	}
	if err != nil {
		return nil, err
	}
	ld.log.Info("code set loaded", "codes", cs.Len(), "from", scheme)
	return cs, nil
}

func (ld *Loader) fromFile(path string, codeLen int) (*segment.CodeSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("codes: %w", err)
	}
	defer f.Close()
	return segment.ReadCodeSet(f, codeLen, ld.log)
}

func (ld *Loader) fromHTTP(ctx context.Context, rawURL string, codeLen int) (*segment.CodeSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := ld.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("codes: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("codes: fetch %s: status %d: %s", rawURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return segment.ReadCodeSet(resp.Body, codeLen, ld.log)
}

func (ld *Loader) fromStore(ctx context.Context, rawURL string, codeLen int) (*segment.CodeSet, error) {
	loc, err := docstore.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	store, err := docstore.Open(ctx, loc, false)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	var list []string
	err = store.Walk(ctx, func(d docstore.Document) error {
		if loc.Field == "" {
			list = append(list, d.ID)
			return nil
		}
		if v, ok := d.Fields[loc.Field].(string); ok {
			list = append(list, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("codes: read %s: %w", loc.Table, err)
	}
	return segment.FromStrings(list, codeLen, ld.log)
}
