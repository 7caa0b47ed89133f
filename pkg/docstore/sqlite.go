package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLite stores documents as JSON text in a single table.
type SQLite struct {
	db    *sql.DB
	table string
}

// OpenSQLite opens the database at path with WAL enabled. With create set
// the table is created when missing; otherwise it must exist.
func OpenSQLite(ctx context.Context, path, table string, create bool) (*SQLite, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serializes writes anyway
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if create {
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, doc TEXT NOT NULL)`, table)
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("create table %s: %w", table, err)
		}
	} else {
		var name string
		err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("table %s not found: %w", table, err)
		}
	}
	return &SQLite{db: db, table: table}, nil
}

func (s *SQLite) Get(ctx context.Context, ids []string) (map[string]Document, error) {
	out := make(map[string]Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := fmt.Sprintf(`SELECT id, doc FROM %s WHERE id IN (%s)`, s.table, strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		doc, err := scanDoc(rows)
		if err != nil {
			return nil, err
		}
		out[doc.ID] = doc
	}
	return out, rows.Err()
}

func (s *SQLite) Put(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, doc) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`, s.table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range docs {
		data, err := json.Marshal(d.Fields)
		if err != nil {
			return fmt.Errorf("encode %s: %w", d.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, d.ID, string(data)); err != nil {
			return fmt.Errorf("put %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Walk(ctx context.Context, fn func(Document) error) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, doc FROM %s ORDER BY id`, s.table))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		doc, err := scanDoc(rows)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func scanDoc(rows *sql.Rows) (Document, error) {
	var (
		doc  Document
		data string
	)
	if err := rows.Scan(&doc.ID, &data); err != nil {
		return doc, err
	}
	if err := json.Unmarshal([]byte(data), &doc.Fields); err != nil {
		return doc, fmt.Errorf("decode %s: %w", doc.ID, err)
	}
	return doc, nil
}
