// Package postgres is the relational record store. Addresses live in the "address" table
// whose schema is applied by the embedded goose migrations.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/Masterminds/squirrel"
	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/store"
	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for goose
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const table = "address"

var columns = []string{"id", "node_id", "localy", "street", "number", "building", "structure", "lon", "lat"}

// Querier is implemented by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Options configures Open.
type Options struct {
	DSN      string
	MaxConns int32
	Migrate  bool
}

// Store reads and writes the address table.
type Store struct {
	q        Querier
	pool     *pgxpool.Pool
	locality string
	sb       squirrel.StatementBuilderType
}

var _ store.Store = (*Store)(nil)

// New wraps an existing querier. The caller owns its lifetime.
func New(q Querier, locality string) *Store {
	return &Store{
		q:        q,
		locality: locality,
		sb:       squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Open connects a pool, pings it and applies migrations when opts.Migrate is set.
func Open(ctx context.Context, opts Options, locality string) (*Store, error) {
	if opts.Migrate {
		if err := Migrate(ctx, opts.DSN); err != nil {
			return nil, err
		}
	}

	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse DSN: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := New(pool, locality)
	s.pool = pool
	return s, nil
}

// Migrate applies every pending migration to the database at dsn.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("postgres: open for migrations: %w", err)
	}
	defer db.Close()

	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, sub)
	if err != nil {
		return fmt.Errorf("postgres: goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("postgres: goose up: %w", err)
	}
	for _, r := range results {
		log.Infof("Applied migration %s in %v", r.Source.Path, r.Duration)
	}
	return nil
}

// Records implements store.Reader.
func (s *Store) Records(ctx context.Context) ([]index.Record, error) {
	query, args, err := s.sb.Select(columns...).From(table).OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build select: %w", err)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: select addresses: %w", err)
	}
	defer rows.Close()

	var records []index.Record
	for rows.Next() {
		var rec index.Record
		if err := rows.Scan(&rec.ID, &rec.NodeID, &rec.Locality, &rec.Street, &rec.House,
			&rec.Building, &rec.Structure, &rec.Lon, &rec.Lat); err != nil {
			return nil, fmt.Errorf("postgres: scan address: %w", err)
		}
		if rec.Locality == "" {
			rec.Locality = s.locality
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read addresses: %w", err)
	}
	return records, nil
}

// Create implements store.Writer.
func (s *Store) Create(ctx context.Context, addr store.NewAddress) (index.Record, error) {
	if err := addr.Validate(s.locality); err != nil {
		return index.Record{}, err
	}

	query, args, err := s.sb.Insert(table).
		Columns(columns[1:]...).
		Values(addr.NodeID, addr.Locality, addr.Street, addr.House, addr.Building, addr.Structure, addr.Lon, addr.Lat).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return index.Record{}, fmt.Errorf("postgres: build insert: %w", err)
	}

	var id int64
	if err := s.q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return index.Record{}, mapError(err, addr.Street)
	}
	return addr.Record(id), nil
}

// Close releases the pool opened by Open.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func mapError(err error, street string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("postgres: insert %q: %w", street, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502", "23514": // not_null_violation, check_violation
			return fmt.Errorf("postgres: insert %q: %w: %s", street, store.ErrInvalidRecord, pgErr.Message)
		}
	}
	return fmt.Errorf("postgres: insert %q: %w", street, err)
}
