package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/qgl-content/pkg/qcproj"
)

// Schema creates the access list table. Paths are unique per list.
const Schema = `
CREATE SCHEMA IF NOT EXISTS qcproj;

CREATE TABLE IF NOT EXISTS qcproj.access_entry (
	token      UUID PRIMARY KEY,
	list       VARCHAR(16) NOT NULL,
	path       VARCHAR(4096) NOT NULL,
	name       VARCHAR(1024) NOT NULL DEFAULT '',
	checksum   BIGINT NOT NULL DEFAULT 0,
	seq        BIGSERIAL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT access_entry_list_path UNIQUE (list, path)
);

CREATE INDEX IF NOT EXISTS access_entry_recent_idx
	ON qcproj.access_entry (list, updated_at DESC, seq DESC);
`

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements qcproj.AccessRepository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// EnsureSchema applies Schema
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return r.handlePostgresError("ensure schema", err)
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("access entry already exists")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return qcproj.ErrAccessEntryNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const entryColumns = `token, list, path, name, checksum, created_at, updated_at`

func scanEntry(row pgx.Row) (*qcproj.AccessEntry, error) {
	var entry qcproj.AccessEntry
	var list string
	var checksum int64
	if err := row.Scan(&entry.Token, &list, &entry.Path, &entry.Name, &checksum,
		&entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return nil, err
	}
	entry.List = qcproj.AccessListKind(list)
	entry.Checksum = uint64(checksum)
	return &entry, nil
}

func (r *Repository) Upsert(ctx context.Context, entry *qcproj.AccessEntry) error {
	query := `
		INSERT INTO qcproj.access_entry (token, list, path, name, checksum, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (list, path) DO UPDATE SET
			token = EXCLUDED.token,
			name = EXCLUDED.name,
			checksum = EXCLUDED.checksum,
			updated_at = EXCLUDED.updated_at,
			seq = DEFAULT`

	_, err := r.db.Exec(ctx, query,
		entry.Token, string(entry.List), entry.Path, entry.Name, int64(entry.Checksum),
		entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("upsert access entry", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, list qcproj.AccessListKind, path string) (*qcproj.AccessEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM qcproj.access_entry WHERE list = $1 AND path = $2`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, string(list), path))
	if err != nil {
		return nil, r.handlePostgresError("get access entry", err)
	}
	return entry, nil
}

func (r *Repository) List(ctx context.Context, list qcproj.AccessListKind) ([]*qcproj.AccessEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM qcproj.access_entry
		WHERE list = $1 ORDER BY updated_at DESC, seq DESC`

	rows, err := r.db.Query(ctx, query, string(list))
	if err != nil {
		return nil, r.handlePostgresError("list access entries", err)
	}
	defer rows.Close()

	var entries []*qcproj.AccessEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan access entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate access entry rows", err)
	}
	return entries, nil
}

func (r *Repository) Remove(ctx context.Context, list qcproj.AccessListKind, token uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM qcproj.access_entry WHERE list = $1 AND token = $2`, string(list), token)
	if err != nil {
		return r.handlePostgresError("remove access entry", err)
	}
	if tag.RowsAffected() == 0 {
		return qcproj.ErrAccessEntryNotFound
	}
	return nil
}

func (r *Repository) Clear(ctx context.Context, list qcproj.AccessListKind) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM qcproj.access_entry WHERE list = $1`, string(list)); err != nil {
		return r.handlePostgresError("clear access entries", err)
	}
	return nil
}
