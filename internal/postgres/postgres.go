// Package postgres implements the remote store driver on PostgreSQL with a
// pgx connection pool, and applies the remote schema with golang-migrate.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Driver implements types.RemoteDriver on a pgx pool.
type Driver struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ types.RemoteDriver = (*Driver)(nil)

// Connect creates a pool for dsn and pings it. Only a malformed dsn is an
// error; an unreachable server is logged.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*Driver, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	logger = logger.With(slog.String("component", "postgres"))
	attrs := []any{
		slog.String("host", cfg.ConnConfig.Host),
		slog.Int("port", int(cfg.ConnConfig.Port)),
		slog.String("database", cfg.ConnConfig.Database),
	}
	// The pool dials lazily, so an unreachable server is not fatal here.
	if err := pool.Ping(ctx); err != nil {
		logger.Warn("postgres not reachable, calls will retry", append(attrs, slog.String("error", err.Error()))...)
	} else {
		logger.Info("connected to postgres", attrs...)
	}
	return &Driver{pool: pool, logger: logger}, nil
}

// MigrationURL turns a postgres:// DSN into the pgx5:// URL golang-migrate
// expects.
func MigrationURL(dsn string) (string, error) {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, scheme); ok {
			return "pgx5://" + rest, nil
		}
	}
	if strings.HasPrefix(dsn, "pgx5://") {
		return dsn, nil
	}
	return "", fmt.Errorf("migrations need a URL dsn (postgres://...), got %q", redact(dsn))
}

// Migrate applies the embedded migrations to the database at dsn.
func Migrate(dsn string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	url, err := MigrationURL(dsn)
	if err != nil {
		return err
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("migrations applied",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// FetchOwned returns the rows of table owned by ownerID, newest first.
func (d *Driver) FetchOwned(ctx context.Context, table, ownerID string) ([]types.Row, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE %s = $1 ORDER BY %s DESC`,
		ident(table), ident(types.ColumnOwnerID), ident(types.ColumnCreatedAt))
	rows, err := d.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", table, err)
	}
	out := make([]types.Row, 0, len(maps))
	for _, m := range maps {
		out = append(out, types.Row(m))
	}
	return out, nil
}

// FetchByID returns the row with the given id.
// Returns ErrNotFound if no row exists.
func (d *Driver) FetchByID(ctx context.Context, table, id string) (types.Row, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE %s = $1`, ident(table), ident(types.ColumnID))
	rows, err := d.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query %s/%s: %w", table, id, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("collect %s/%s: %w", table, id, err)
	}
	return types.Row(m), nil
}

// Upsert inserts row or updates the given columns of the row with the same
// id, and returns the stored row.
func (d *Driver) Upsert(ctx context.Context, table string, row types.Row) (types.Row, error) {
	query, args, err := buildUpsert(table, row)
	if err != nil {
		return nil, err
	}
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("upsert %s: %w", table, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("upsert %s: %w", table, err)
	}
	d.logger.Debug("row upserted", slog.String("table", table), slog.Any("id", row[types.ColumnID]))
	return types.Row(m), nil
}

// Delete removes the row with the given id and reports whether a row was
// removed.
func (d *Driver) Delete(ctx context.Context, table, id string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, ident(table), ident(types.ColumnID))
	tag, err := d.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", table, id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Ping checks the pool.
func (d *Driver) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Close closes the pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

// buildUpsert renders INSERT ... ON CONFLICT (id) DO UPDATE ... RETURNING *
// with columns in sorted order. Nested maps and slices are sent as JSON text.
func buildUpsert(table string, row types.Row) (string, []any, error) {
	id, ok := row[types.ColumnID].(string)
	if !ok || id == "" {
		return "", nil, types.ErrInvalidID
	}

	columns := make([]string, 0, len(row))
	for c := range row {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	names := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	var updates []string
	for i, c := range columns {
		names[i] = ident(c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		v, err := encodeValue(row[c])
		if err != nil {
			return "", nil, fmt.Errorf("%w: column %s: %v", types.ErrInvalidData, c, err)
		}
		args[i] = v
		if c != types.ColumnID {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", ident(c), ident(c)))
		}
	}
	if len(updates) == 0 {
		// Still touch the row so RETURNING yields it.
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", ident(types.ColumnID), ident(types.ColumnID)))
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING *`,
		ident(table),
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
		ident(types.ColumnID),
		strings.Join(updates, ", "),
	)
	return query, args, nil
}

func encodeValue(v any) (any, error) {
	switch v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return v, nil
	}
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// redact hides the password of a key=value dsn.
func redact(dsn string) string {
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=***"
		}
	}
	return strings.Join(fields, " ")
}
