package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores documents as JSONB in a single table.
type Postgres struct {
	pool  *pgxpool.Pool
	table string
}

// OpenPostgres connects to databaseURL. With create set the table is created
// when missing.
func OpenPostgres(ctx context.Context, databaseURL, table string, create bool) (*Postgres, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if create {
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, doc JSONB NOT NULL)`, table)
		if _, err := pool.Exec(ctx, ddl); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create table %s: %w", table, err)
		}
	}
	return &Postgres{pool: pool, table: table}, nil
}

func (p *Postgres) Get(ctx context.Context, ids []string) (map[string]Document, error) {
	out := make(map[string]Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := p.pool.Query(ctx, fmt.Sprintf(`SELECT id, doc FROM %s WHERE id = ANY($1)`, p.table), ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		doc, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out[doc.ID] = doc
	}
	return out, rows.Err()
}

func (p *Postgres) Put(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`, p.table)

	batch := &pgx.Batch{}
	for _, d := range docs {
		data, err := json.Marshal(d.Fields)
		if err != nil {
			return fmt.Errorf("encode %s: %w", d.ID, err)
		}
		batch.Queue(q, d.ID, string(data))
	}
	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("put batch: %w", err)
	}
	return nil
}

func (p *Postgres) Walk(ctx context.Context, fn func(Document) error) error {
	rows, err := p.pool.Query(ctx, fmt.Sprintf(`SELECT id, doc FROM %s ORDER BY id`, p.table))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		doc, err := scanRow(rows)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func scanRow(rows pgx.Rows) (Document, error) {
	var (
		doc  Document
		data []byte
	)
	if err := rows.Scan(&doc.ID, &data); err != nil {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc.Fields); err != nil {
		return doc, fmt.Errorf("decode %s: %w", doc.ID, err)
	}
	return doc, nil
}
