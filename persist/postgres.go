package persist

import (
	"context"
	"errors"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Twynzen/dymensisCDA-sub002/entity"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS entities (
    id          TEXT PRIMARY KEY,
    target      TEXT NOT NULL,
    name        TEXT NOT NULL DEFAULT '',
    document    JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_entities_target ON entities (target);
`

// PostgresRepository stores each entity as one JSONB document.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) CreateEntity(ctx context.Context, draft *entity.Draft) (string, error) {
	if draft == nil {
		return "", errors.New("draft is required")
	}
	doc, err := draft.Document()
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = r.pool.Exec(ctx,
		`INSERT INTO entities (id, target, name, document) VALUES ($1, $2, $3, $4)`,
		id, string(draft.Target), draft.Name(), doc,
	)
	if err != nil {
		return "", fmt.Errorf("inserting entity: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) UpdateEntity(ctx context.Context, id string, patch []byte) error {
	if IsEmptyPatch(patch) {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var doc []byte
	err = tx.QueryRow(ctx, `SELECT document FROM entities WHERE id = $1 FOR UPDATE`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("loading entity %s: %w", id, err)
	}
	merged, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return fmt.Errorf("apply merge patch to %s: %w", id, err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE entities SET document = $2, name = COALESCE($2::jsonb->>'name', name), updated_at = now() WHERE id = $1`,
		id, merged,
	)
	if err != nil {
		return fmt.Errorf("updating entity %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing entity %s: %w", id, err)
	}
	return nil
}

func (r *PostgresRepository) GetUniverse(ctx context.Context, id string) (*entity.Universe, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx,
		`SELECT document FROM entities WHERE id = $1 AND target = $2`,
		id, string(types.TargetUniverse),
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: universe %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting universe %s: %w", id, err)
	}
	return decodeUniverse(id, doc)
}

func (r *PostgresRepository) ListUniverses(ctx context.Context) ([]*entity.Universe, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, document FROM entities WHERE target = $1 ORDER BY created_at, id`,
		string(types.TargetUniverse),
	)
	if err != nil {
		return nil, fmt.Errorf("listing universes: %w", err)
	}
	defer rows.Close()

	var out []*entity.Universe
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scanning universe: %w", err)
		}
		u, err := decodeUniverse(id, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating universe rows: %w", err)
	}
	return out, nil
}

var _ Repository = (*PostgresRepository)(nil)
