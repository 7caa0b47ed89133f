package docstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "docs.db"), "airports", true)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestParsePolicy(t *testing.T) {
	tests := map[string]Policy{
		"ignore":    PolicyIgnore,
		"":          PolicyIgnore,
		"overwrite": PolicyOverwrite,
		"merge":     PolicyMerge,
		"update":    PolicyMerge,
		"MERGE":     PolicyMerge,
	}
	for in, want := range tests {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePolicy("append")
	assert.ErrorIs(t, err, ErrPolicy)
}

func TestResolve(t *testing.T) {
	stored := &Document{ID: "FCO", Fields: map[string]any{"name": "Fiumicino", "city": "Roma"}}

	t.Run("new document", func(t *testing.T) {
		in := Document{ID: "MIA", Fields: map[string]any{"name": "Miami"}}
		out, write := Resolve(nil, in, PolicyIgnore)
		assert.True(t, write)
		assert.Equal(t, in, out)
	})

	t.Run("subset is skipped for every policy", func(t *testing.T) {
		in := Document{ID: "FCO", Fields: map[string]any{"city": "Roma"}}
		for _, p := range []Policy{PolicyIgnore, PolicyOverwrite, PolicyMerge} {
			_, write := Resolve(stored, in, p)
			assert.False(t, write, p.String())
		}
	})

	in := Document{ID: "FCO", Fields: map[string]any{"name": "Leonardo da Vinci"}}

	t.Run("ignore", func(t *testing.T) {
		out, write := Resolve(stored, in, PolicyIgnore)
		assert.False(t, write)
		assert.Equal(t, *stored, out)
	})

	t.Run("overwrite", func(t *testing.T) {
		out, write := Resolve(stored, in, PolicyOverwrite)
		assert.True(t, write)
		assert.Equal(t, map[string]any{"name": "Leonardo da Vinci"}, out.Fields)
	})

	t.Run("merge", func(t *testing.T) {
		out, write := Resolve(stored, in, PolicyMerge)
		assert.True(t, write)
		assert.Equal(t, map[string]any{"name": "Leonardo da Vinci", "city": "Roma"}, out.Fields)
		assert.Equal(t, "Fiumicino", stored.Fields["name"], "stored document must not be mutated")
	})
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)

	require.NoError(t, db.Put(ctx, []Document{
		{ID: "MIA", Fields: map[string]any{"name": "Miami", "rank": float64(2)}},
		{ID: "FCO", Fields: map[string]any{"name": "Fiumicino"}},
	}))

	got, err := db.Get(ctx, []string{"FCO", "MIA", "XXX"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, float64(2), got["MIA"].Fields["rank"])

	var ids []string
	require.NoError(t, db.Walk(ctx, func(d Document) error {
		ids = append(ids, d.ID)
		return nil
	}))
	assert.Equal(t, []string{"FCO", "MIA"}, ids)
}

func TestOpenSQLiteWithoutCreateNeedsTable(t *testing.T) {
	_, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "empty.db"), "airports", false)
	assert.Error(t, err)

	_, err = OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "x.db"), "bad name; drop", true)
	assert.Error(t, err)
}

type countingBackend struct {
	Backend
	puts int
}

func (c *countingBackend) Put(ctx context.Context, docs []Document) error {
	c.puts++
	return c.Backend.Put(ctx, docs)
}

func TestSinkBatchesAndAppliesPolicy(t *testing.T) {
	ctx := context.Background()
	db := &countingBackend{Backend: openTestSQLite(t)}
	require.NoError(t, db.Backend.Put(ctx, []Document{
		{ID: "FCO", Fields: map[string]any{"name": "Fiumicino", "city": "Roma"}},
	}))

	s := NewSink(db, PolicyMerge, 2, nil)
	require.NoError(t, s.Add(ctx, Document{ID: "MIA", Fields: map[string]any{"name": "Miami"}}))
	assert.Equal(t, 0, db.puts, "batch not full yet")
	require.NoError(t, s.Add(ctx, Document{ID: "FCO", Fields: map[string]any{"name": "Leonardo da Vinci"}}))
	assert.Equal(t, 1, db.puts)

	require.NoError(t, s.Add(ctx, Document{ID: "FCO", Fields: map[string]any{"city": "Roma"}}))
	require.NoError(t, s.Close(ctx))

	got, err := db.Get(ctx, []string{"FCO", "MIA"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Leonardo da Vinci", "city": "Roma"}, got["FCO"].Fields)
	assert.Equal(t, "Miami", got["MIA"].Fields["name"])

	st := s.Stats()
	assert.EqualValues(t, 2, st.Written)
	assert.EqualValues(t, 1, st.Unchanged)
}

func TestSinkIgnoreKeepsStored(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)
	require.NoError(t, db.Put(ctx, []Document{{ID: "FCO", Fields: map[string]any{"name": "Fiumicino"}}}))

	s := NewSink(db, PolicyIgnore, 0, nil)
	require.NoError(t, s.Add(ctx, Document{ID: "FCO", Fields: map[string]any{"name": "Other"}}))
	require.NoError(t, s.Close(ctx))

	got, err := db.Get(ctx, []string{"FCO"})
	require.NoError(t, err)
	assert.Equal(t, "Fiumicino", got["FCO"].Fields["name"])
	assert.EqualValues(t, 1, s.Stats().Ignored)
}

func TestSinkCollapsesRepeatedIDsInBatch(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)

	s := NewSink(db, PolicyMerge, 10, nil)
	require.NoError(t, s.Add(ctx, Document{ID: "ROM", Fields: map[string]any{"a": "1"}}))
	require.NoError(t, s.Add(ctx, Document{ID: "ROM", Fields: map[string]any{"b": "2"}}))
	require.NoError(t, s.Flush(ctx))

	got, err := db.Get(ctx, []string{"ROM"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "1", "b": "2"}, got["ROM"].Fields)
	assert.EqualValues(t, 1, s.Stats().Written)
}

func TestParseURL(t *testing.T) {
	loc, err := ParseURL("sqlite:///var/lib/codes.db?table=airports&field=iata")
	require.NoError(t, err)
	assert.Equal(t, Location{Scheme: "sqlite", DSN: "/var/lib/codes.db", Table: "airports", Field: "iata"}, loc)

	loc, err = ParseURL("postgres://u:p@db:5432/codes?sslmode=disable&table=airports")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/codes?sslmode=disable", loc.DSN)
	assert.Equal(t, "airports", loc.Table)
	assert.Empty(t, loc.Field)

	loc, err = ParseURL("sqlite://codes.db")
	require.NoError(t, err)
	assert.Equal(t, DefaultTable, loc.Table)

	for _, bad := range []string{"codes.db", "couchdb://host/db", "sqlite://"} {
		_, err := ParseURL(bad)
		assert.Error(t, err, bad)
	}
}
