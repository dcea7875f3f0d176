// Package postgres is a core.Store backed by PostgreSQL through pgx.
//
// Batches are stored as one JSONB document per row with the columns needed
// for filtering alongside. Saved addresses and packages keep is_default in
// its own column; a partial unique index allows one default per owner (and
// type, for addresses), and SetDefault switches it inside one transaction.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/shipbatch/internal/config"
	"github.com/JonMunkholm/shipbatch/internal/core"
)

//go:embed schema.sql
var schema string

// Store implements core.Store on a connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// New wraps an open pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects using cfg, applies the pool limits, and verifies the
// connection.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool), nil
}

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// ----------------------------------------------------------------------------
// Batches
// ----------------------------------------------------------------------------

func (s *Store) CreateBatch(ctx context.Context, b *core.Batch) error {
	b.Version = 1
	doc, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO batches (batch_id, user_id, status, version, uploaded_at, last_modified_at, doc)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.BatchID, b.UserID, string(b.Status), b.Version, b.UploadedAt, b.LastModifiedAt, doc)
	return err
}

func (s *Store) GetBatch(ctx context.Context, batchID string) (*core.Batch, error) {
	var (
		doc     []byte
		version int
	)
	err := s.pool.QueryRow(ctx,
		`SELECT doc, version FROM batches WHERE batch_id = $1`, batchID,
	).Scan(&doc, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}

	var b core.Batch
	if err := json.Unmarshal(doc, &b); err != nil {
		return nil, fmt.Errorf("decode batch %s: %w", batchID, err)
	}
	b.Version = version
	return &b, nil
}

func (s *Store) SaveBatch(ctx context.Context, b *core.Batch) error {
	loaded := b.Version
	b.Version = loaded + 1
	doc, err := json.Marshal(b)
	if err != nil {
		b.Version = loaded
		return fmt.Errorf("encode batch: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE batches
		SET user_id = $2, status = $3, version = $4, last_modified_at = $5, doc = $6
		WHERE batch_id = $1 AND version = $7`,
		b.BatchID, b.UserID, string(b.Status), b.Version, b.LastModifiedAt, doc, loaded)
	if err == nil && tag.RowsAffected() == 1 {
		return nil
	}
	b.Version = loaded
	if err != nil {
		return err
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM batches WHERE batch_id = $1)`, b.BatchID,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return core.ErrBatchNotFound
	}
	return core.ErrVersionConflict
}

func (s *Store) DeleteBatch(ctx context.Context, batchID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM batches WHERE batch_id = $1`, batchID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrBatchNotFound
	}
	return nil
}

func (s *Store) ListBatches(ctx context.Context, opts core.ListOptions) ([]core.BatchSummary, int, error) {
	wb := NewWhereBuilder()
	wb.Add("status", string(opts.Status))
	wb.AddOwner("user_id", opts.UserID)
	whereClause, args := wb.Build()

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM batches"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT doc - 'rows' FROM batches` + whereClause +
		fmt.Sprintf(` ORDER BY uploaded_at DESC, batch_id LIMIT $%d OFFSET $%d`, wb.NextArgIndex(), wb.NextArgIndex()+1)
	args = append(args, opts.Limit, (opts.Page-1)*opts.Limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]core.BatchSummary, 0, opts.Limit)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, 0, err
		}
		var sum core.BatchSummary
		if err := json.Unmarshal(doc, &sum); err != nil {
			return nil, 0, fmt.Errorf("decode batch summary: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) DeleteStaleBatches(ctx context.Context, statuses []core.BatchStatus, cutoff time.Time) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}

	wb := NewWhereBuilder()
	wb.AddIn("status", names)
	wb.AddBefore("last_modified_at", cutoff)
	whereClause, args := wb.Build()

	tag, err := s.pool.Exec(ctx, "DELETE FROM batches"+whereClause, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ----------------------------------------------------------------------------
// Saved addresses
// ----------------------------------------------------------------------------

const addressColumns = `doc, is_default`

func scanAddress(row pgx.Row) (*core.SavedAddress, error) {
	var (
		doc       []byte
		isDefault bool
	)
	if err := row.Scan(&doc, &isDefault); err != nil {
		return nil, err
	}
	var a core.SavedAddress
	if err := json.Unmarshal(doc, &a); err != nil {
		return nil, fmt.Errorf("decode saved address: %w", err)
	}
	a.IsDefault = isDefault
	return &a, nil
}

func (s *Store) CreateAddress(ctx context.Context, a *core.SavedAddress) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode saved address: %w", err)
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if a.IsDefault {
			if err := clearAddressDefaults(ctx, tx, a.Type, a.UserID); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO saved_addresses (id, user_id, type, label, is_default, doc, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			a.ID, a.UserID, string(a.Type), a.Label, a.IsDefault, doc, a.CreatedAt, a.UpdatedAt)
		return err
	})
}

func (s *Store) GetAddress(ctx context.Context, id string) (*core.SavedAddress, error) {
	a, err := scanAddress(s.pool.QueryRow(ctx,
		`SELECT `+addressColumns+` FROM saved_addresses WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrAddressNotFound
	}
	return a, err
}

func (s *Store) UpdateAddress(ctx context.Context, a *core.SavedAddress) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode saved address: %w", err)
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if a.IsDefault {
			if err := clearAddressDefaults(ctx, tx, a.Type, a.UserID); err != nil {
				return err
			}
		}
		tag, err := tx.Exec(ctx,
			`UPDATE saved_addresses
			SET type = $2, label = $3, is_default = $4, doc = $5, updated_at = $6
			WHERE id = $1`,
			a.ID, string(a.Type), a.Label, a.IsDefault, doc, a.UpdatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return core.ErrAddressNotFound
		}
		return nil
	})
}

func (s *Store) DeleteAddress(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM saved_addresses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrAddressNotFound
	}
	return nil
}

func (s *Store) ListAddresses(ctx context.Context, f core.SavedFilter) ([]core.SavedAddress, error) {
	wb := NewWhereBuilder()
	wb.Add("type", string(f.Type))
	wb.AddOwner("user_id", f.UserID)
	wb.AddSearch(f.Search, "label", "doc->>'name'", "doc->>'company'", "doc->>'city'")
	whereClause, args := wb.Build()

	rows, err := s.pool.Query(ctx,
		`SELECT `+addressColumns+` FROM saved_addresses`+whereClause+` ORDER BY is_default DESC, label`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]core.SavedAddress, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) SetDefaultAddress(ctx context.Context, id string) (*core.SavedAddress, error) {
	var out *core.SavedAddress
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var addrType, userID string
		err := tx.QueryRow(ctx,
			`SELECT type, user_id FROM saved_addresses WHERE id = $1 FOR UPDATE`, id,
		).Scan(&addrType, &userID)
		if errors.Is(err, pgx.ErrNoRows) {
			return core.ErrAddressNotFound
		}
		if err != nil {
			return err
		}
		if err := clearAddressDefaults(ctx, tx, core.AddressType(addrType), userID); err != nil {
			return err
		}
		out, err = scanAddress(tx.QueryRow(ctx,
			`UPDATE saved_addresses SET is_default = TRUE WHERE id = $1 RETURNING `+addressColumns, id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DefaultAddress(ctx context.Context, userID string, t core.AddressType) (*core.SavedAddress, error) {
	a, err := scanAddress(s.pool.QueryRow(ctx,
		`SELECT `+addressColumns+` FROM saved_addresses
		WHERE type = $1 AND user_id = $2 AND is_default`,
		string(t), userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrAddressNotFound
	}
	return a, err
}

func clearAddressDefaults(ctx context.Context, tx pgx.Tx, t core.AddressType, userID string) error {
	_, err := tx.Exec(ctx,
		`UPDATE saved_addresses SET is_default = FALSE
		WHERE type = $1 AND user_id = $2 AND is_default`,
		string(t), userID)
	return err
}

// ----------------------------------------------------------------------------
// Saved packages
// ----------------------------------------------------------------------------

const packageColumns = `doc, is_default`

func scanPackage(row pgx.Row) (*core.SavedPackage, error) {
	var (
		doc       []byte
		isDefault bool
	)
	if err := row.Scan(&doc, &isDefault); err != nil {
		return nil, err
	}
	var p core.SavedPackage
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode saved package: %w", err)
	}
	p.IsDefault = isDefault
	return &p, nil
}

func (s *Store) CreatePackage(ctx context.Context, p *core.SavedPackage) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode saved package: %w", err)
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if p.IsDefault {
			if err := clearPackageDefaults(ctx, tx, p.UserID); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO saved_packages (id, user_id, label, is_default, doc, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, p.UserID, p.Label, p.IsDefault, doc, p.CreatedAt, p.UpdatedAt)
		return err
	})
}

func (s *Store) GetPackage(ctx context.Context, id string) (*core.SavedPackage, error) {
	p, err := scanPackage(s.pool.QueryRow(ctx,
		`SELECT `+packageColumns+` FROM saved_packages WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrPackageNotFound
	}
	return p, err
}

func (s *Store) UpdatePackage(ctx context.Context, p *core.SavedPackage) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode saved package: %w", err)
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if p.IsDefault {
			if err := clearPackageDefaults(ctx, tx, p.UserID); err != nil {
				return err
			}
		}
		tag, err := tx.Exec(ctx,
			`UPDATE saved_packages
			SET label = $2, is_default = $3, doc = $4, updated_at = $5
			WHERE id = $1`,
			p.ID, p.Label, p.IsDefault, doc, p.UpdatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return core.ErrPackageNotFound
		}
		return nil
	})
}

func (s *Store) DeletePackage(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM saved_packages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrPackageNotFound
	}
	return nil
}

func (s *Store) ListPackages(ctx context.Context, f core.SavedFilter) ([]core.SavedPackage, error) {
	wb := NewWhereBuilder()
	wb.AddOwner("user_id", f.UserID)
	whereClause, args := wb.Build()

	rows, err := s.pool.Query(ctx,
		`SELECT `+packageColumns+` FROM saved_packages`+whereClause+` ORDER BY is_default DESC, label`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]core.SavedPackage, 0)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) SetDefaultPackage(ctx context.Context, id string) (*core.SavedPackage, error) {
	var out *core.SavedPackage
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var userID string
		err := tx.QueryRow(ctx,
			`SELECT user_id FROM saved_packages WHERE id = $1 FOR UPDATE`, id,
		).Scan(&userID)
		if errors.Is(err, pgx.ErrNoRows) {
			return core.ErrPackageNotFound
		}
		if err != nil {
			return err
		}
		if err := clearPackageDefaults(ctx, tx, userID); err != nil {
			return err
		}
		out, err = scanPackage(tx.QueryRow(ctx,
			`UPDATE saved_packages SET is_default = TRUE WHERE id = $1 RETURNING `+packageColumns, id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func clearPackageDefaults(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx,
		`UPDATE saved_packages SET is_default = FALSE WHERE user_id = $1 AND is_default`,
		userID)
	return err
}

// inTx runs fn in a transaction, committing only if fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
