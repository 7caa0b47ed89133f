package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bastiangx/codewords/internal/logger"
	"github.com/bastiangx/codewords/pkg/index"
	"github.com/bastiangx/codewords/pkg/segment"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	defaultLimit = 10
	maxLimit     = 500
	maxQueryLen  = 256
)

// Server answers queries against one index. A nil segmenter disables the
// segment action.
type Server struct {
	ix  *index.Index
	seg *segment.Segmenter
	log *log.Logger
}

// New creates a server.
func New(ix *index.Index, seg *segment.Segmenter, l *log.Logger) *Server {
	return &Server{ix: ix, seg: seg, log: logger.OrDiscard(l)}
}

// Handle answers req. It never fails; problems are reported in the response.
func (s *Server) Handle(req Request) Response {
	start := time.Now()
	resp := s.handle(req)
	resp.ID = req.ID
	resp.TimeTaken = time.Since(start).Microseconds()
	return resp
}

func (s *Server) handle(req Request) Response {
	q := strings.ToUpper(strings.TrimSpace(req.Query))
	if len(q) > maxQueryLen {
		return errorResponse(fmt.Sprintf("query exceeds maximum length of %d characters", maxQueryLen), http.StatusBadRequest)
	}

	switch req.Action {
	case ActionInfo:
		return Response{Status: StatusOK, Keys: s.ix.Len(), RunID: s.ix.Header().RunID}

	case ActionContains:
		if q == "" {
			return errorResponse("missing query", http.StatusBadRequest)
		}
		return Response{Status: StatusOK, Query: q, Found: s.ix.Contains(q)}

	case ActionPrefix:
		if q == "" {
			return errorResponse("missing query", http.StatusBadRequest)
		}
		limit := req.Limit
		if limit < 1 {
			limit = defaultLimit
		}
		limit = min(limit, maxLimit)
		words := s.ix.WithPrefix(q, limit)
		return Response{Status: StatusOK, Query: q, Words: words, Count: len(words)}

	case ActionSegment:
		if s.seg == nil {
			return errorResponse("no code set loaded", http.StatusServiceUnavailable)
		}
		if q == "" {
			return errorResponse("missing query", http.StatusBadRequest)
		}
		resp := Response{Status: StatusOK, Query: q, Found: s.ix.Contains(q)}
		if !resp.Found {
			return resp
		}
		if seg, ok := s.seg.Split(q); ok {
			resp.Segments = seg
			resp.Count = len(seg)
		}
		return resp

	default:
		return errorResponse(fmt.Sprintf("unknown action: %q", req.Action), http.StatusBadRequest)
	}
}

func errorResponse(msg string, code int) Response {
	return Response{Status: StatusError, Error: msg, Code: code}
}

// Serve runs the msgpack IPC loop until r is exhausted or ctx is done.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.log.Debug("starting IPC server", "keys", s.ix.Len())

	dec := msgpack.NewDecoder(bufio.NewReader(r))
	bw := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(bw)
	send := func(resp Response) error {
		if err := enc.Encode(&resp); err != nil {
			return err
		}
		return bw.Flush()
	}

	if err := send(Response{Status: StatusReady, Keys: s.ix.Len()}); err != nil {
		return err
	}

	requests := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debug("IPC input closed", "requests", requests)
				return nil
			}
			s.log.Error("decoding request", "err", err)
			_ = send(errorResponse("invalid msgpack request", http.StatusBadRequest))
			return fmt.Errorf("decode request: %w", err)
		}
		requests++
		if err := send(s.Handle(req)); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}
