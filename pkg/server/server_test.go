package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bastiangx/codewords/pkg/index"
	"github.com/bastiangx/codewords/pkg/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	b := index.NewBuilder()
	b.SetRunID("run-42")
	for _, w := range []string{"ROMMIA", "ROMXYZ", "ROMA", "ROMANO", "MILANO"} {
		b.Add(w)
	}
	codes, err := segment.NewCodeSet(3, "ROM", "MIA", "FCO")
	require.NoError(t, err)
	return New(b.Index(), segment.New(codes, segment.Unbounded, nil), nil)
}

func TestHandle(t *testing.T) {
	s := newTestServer(t)

	resp := s.Handle(Request{ID: "1", Action: ActionContains, Query: " rommia "})
	assert.Equal(t, "1", resp.ID)
	assert.Equal(t, StatusOK, resp.Status)
	assert.True(t, resp.Found)
	assert.Equal(t, "ROMMIA", resp.Query)

	resp = s.Handle(Request{ID: "2", Action: ActionPrefix, Query: "ROM", Limit: 2})
	assert.Equal(t, []string{"ROMA", "ROMANO"}, resp.Words)
	assert.Equal(t, 2, resp.Count)

	resp = s.Handle(Request{ID: "3", Action: ActionSegment, Query: "ROMMIA"})
	assert.Equal(t, []string{"ROM", "MIA"}, resp.Segments)

	resp = s.Handle(Request{ID: "4", Action: ActionSegment, Query: "ROMXYZ"})
	assert.True(t, resp.Found)
	assert.Empty(t, resp.Segments)

	resp = s.Handle(Request{ID: "5", Action: ActionInfo})
	assert.Equal(t, 5, resp.Keys)
	assert.Equal(t, "run-42", resp.RunID)

	resp = s.Handle(Request{ID: "6", Action: "explode"})
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = s.Handle(Request{ID: "7", Action: ActionPrefix})
	assert.Equal(t, StatusError, resp.Status)
}

func TestSegmentWithoutCodes(t *testing.T) {
	b := index.NewBuilder()
	b.Add("ROMMIA")
	s := New(b.Index(), nil, nil)
	resp := s.Handle(Request{Action: ActionSegment, Query: "ROMMIA"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestServeIPC(t *testing.T) {
	s := newTestServer(t)

	var in bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	require.NoError(t, enc.Encode(&Request{ID: "a", Action: ActionContains, Query: "ROMA"}))
	require.NoError(t, enc.Encode(&Request{ID: "b", Action: ActionPrefix, Query: "MIL"}))

	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), &in, &out))

	dec := msgpack.NewDecoder(&out)
	var ready, first, second Response
	require.NoError(t, dec.Decode(&ready))
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))

	assert.Equal(t, StatusReady, ready.Status)
	assert.Equal(t, "a", first.ID)
	assert.True(t, first.Found)
	assert.Equal(t, "b", second.ID)
	assert.Equal(t, []string{"MILANO"}, second.Words)
}

func TestServeIPCRejectsGarbage(t *testing.T) {
	s := newTestServer(t)
	var out bytes.Buffer
	err := s.Serve(context.Background(), bytes.NewReader([]byte{0xc1}), &out)
	assert.Error(t, err)

	dec := msgpack.NewDecoder(&out)
	var ready, failure Response
	require.NoError(t, dec.Decode(&ready))
	require.NoError(t, dec.Decode(&failure))
	assert.Equal(t, StatusError, failure.Status)
}

func TestRouter(t *testing.T) {
	h := NewRouter(newTestServer(t))

	get := func(path string) (*httptest.ResponseRecorder, Response) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		var resp Response
		if w.Code != http.StatusNotFound {
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		}
		return w, resp
	}

	w, _ := get("/health")
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := get("/v1/contains/rommia")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Found)

	w, resp = get("/v1/contains/nope")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, resp.Found)

	_, resp = get("/v1/prefix/ROM?limit=3")
	assert.Equal(t, []string{"ROMA", "ROMANO", "ROMMIA"}, resp.Words)

	w, _ = get("/v1/prefix/ROM?limit=many")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, resp = get("/v1/segment/ROMMIA")
	assert.Equal(t, []string{"ROM", "MIA"}, resp.Segments)

	_, resp = get("/v1/info")
	assert.Equal(t, 5, resp.Keys)

	w, _ = get("/v2/whatever")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
