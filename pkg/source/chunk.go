package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bastiangx/codewords/pkg/rotate"
)

// Chunk streams every line of p into r, which splits the text into raw
// chunks and publishes them downstream. It returns the number of lines read.
// The rotator is closed on success and aborted on failure.
func Chunk(ctx context.Context, p Provider, r *rotate.Rotator) (int64, error) {
	stream, err := p.Open(ctx)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", p.Name(), err)
	}

	lines, err := copyLines(ctx, stream, r)
	if cerr := stream.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		r.Abort()
		return lines, fmt.Errorf("read %s: %w", p.Name(), err)
	}
	if err := r.Close(ctx); err != nil {
		return lines, err
	}
	return lines, nil
}

func copyLines(ctx context.Context, src io.Reader, r *rotate.Rotator) (int64, error) {
	br := bufio.NewReaderSize(src, 256*1024)
	var lines int64
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\r\n")
			if werr := r.WriteLine(ctx, line); werr != nil {
				return lines, werr
			}
			lines++
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
	}
}
