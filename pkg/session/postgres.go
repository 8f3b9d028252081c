package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore keeps session values in the console_sessions table
// created by the dbinit migrations.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore returns a store using db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Get implements Store.
func (p *PostgresStore) Get(ctx context.Context, sid, key string) (string, bool, error) {
	var value string
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM console_sessions
		 WHERE sid = $1 AND key = $2 AND (expires_at IS NULL OR expires_at > $3)`,
		sid, key, p.now()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query session value: %w", err)
	}
	return value, true, nil
}

func (p *PostgresStore) expiry(ttl time.Duration) sql.NullTime {
	if ttl <= 0 {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: p.now().Add(ttl), Valid: true}
}

// Set implements Store. Every row of the session takes the new expiry.
func (p *PostgresStore) Set(ctx context.Context, sid, key, value string, ttl time.Duration) (err error) {
	now := p.now()
	expiresAt := p.expiry(ttl)

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// rows of an expired session must not come back to life
	_, err = tx.ExecContext(ctx,
		`DELETE FROM console_sessions WHERE sid = $1 AND expires_at IS NOT NULL AND expires_at <= $2`,
		sid, now)
	if err != nil {
		return fmt.Errorf("failed to drop expired session values: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO console_sessions (sid, key, value, expires_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (sid, key) DO UPDATE
		 SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`,
		sid, key, value, expiresAt, now)
	if err != nil {
		return fmt.Errorf("failed to upsert session value: %w", err)
	}
	if _, err = p.extend(ctx, tx, sid, expiresAt, now); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session value: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// extend moves the expiry of every live row of sid and returns how many moved.
func (p *PostgresStore) extend(ctx context.Context, db execer, sid string, expiresAt sql.NullTime, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE console_sessions
		 SET expires_at = COALESCE($2, expires_at), updated_at = $3
		 WHERE sid = $1 AND (expires_at IS NULL OR expires_at > $3)`,
		sid, expiresAt, now)
	if err != nil {
		return 0, fmt.Errorf("failed to extend session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count extended session values: %w", err)
	}
	return n, nil
}

// Touch implements Store.
func (p *PostgresStore) Touch(ctx context.Context, sid string, ttl time.Duration) (bool, error) {
	n, err := p.extend(ctx, p.db, sid, p.expiry(ttl), p.now())
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete implements Store.
func (p *PostgresStore) Delete(ctx context.Context, sid string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM console_sessions WHERE sid = $1 AND key = ANY($2)`,
		sid, pq.Array(keys))
	if err != nil {
		return fmt.Errorf("failed to delete session values: %w", err)
	}
	return nil
}

// Purge implements Store.
func (p *PostgresStore) Purge(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM console_sessions WHERE expires_at IS NOT NULL AND expires_at <= $1`, p.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged sessions: %w", err)
	}
	return n, nil
}

// Ping implements Store.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
