package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Postgres persists values in a postgres kv table. Schema is managed by
// golang-migrate at startup (see cmd/server).
type Postgres struct {
	db  *sql.DB
	log *zap.Logger
}

func NewPostgres(db *sql.DB, log *zap.Logger) *Postgres {
	return &Postgres{db: db, log: log}
}

func (p *Postgres) Get(ctx context.Context, key string) (string, bool) {
	var value string
	err := p.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			p.log.Debug("kv get failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return value, true
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Remove(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM kv WHERE key = $1`, key)
	return err
}

func (p *Postgres) Clear(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM kv`)
	return err
}

var _ Store = (*Postgres)(nil)
