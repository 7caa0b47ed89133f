package codes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bastiangx/codewords/pkg/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iata.txt")
	require.NoError(t, os.WriteFile(path, []byte("ROM\nMIA \n\nFCO\nLONG\n"), 0644))

	for _, u := range []string{path, "file://" + path} {
		cs, err := Open(context.Background(), u, 3, nil)
		require.NoError(t, err, u)
		assert.Equal(t, 3, cs.Len())
		assert.True(t, cs.Contains("MIA"))
	}
}

func TestOpenHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/codes.txt" {
			io.WriteString(w, "ROM\nMIA\n")
			return
		}
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	cs, err := Open(context.Background(), srv.URL+"/codes.txt", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cs.Len())

	_, err = Open(context.Background(), srv.URL+"/missing", 3, nil)
	assert.ErrorContains(t, err, "status 404")
}

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "codes.db")
	db, err := docstore.OpenSQLite(ctx, path, "airports", true)
	require.NoError(t, err)
	require.NoError(t, db.Put(ctx, []docstore.Document{
		{ID: "FCO", Fields: map[string]any{"iata": "FCO", "name": "Fiumicino"}},
		{ID: "MIA", Fields: map[string]any{"iata": "MIA"}},
		{ID: "XXXX", Fields: map[string]any{"name": "no code"}},
	}))
	require.NoError(t, db.Close())

	byField, err := Open(ctx, "sqlite://"+path+"?table=airports&field=iata", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, byField.Len())
	assert.True(t, byField.Contains("FCO"))

	byID, err := Open(ctx, "sqlite://"+path+"?table=airports", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, byID.Len(), "XXXX has the wrong length")
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "couchdb://localhost/iata", 3, nil)
	assert.ErrorIs(t, err, ErrScheme)

	_, err = Open(context.Background(), "", 3, nil)
	assert.Error(t, err)
}
