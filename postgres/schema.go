package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS funnels (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS funnel_stages (
    funnel_id   TEXT NOT NULL REFERENCES funnels(id) ON DELETE CASCADE,
    stage_id    TEXT NOT NULL,
    order_index INTEGER NOT NULL,
    body        JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (funnel_id, order_index)
);

CREATE TABLE IF NOT EXISTS funnel_sessions (
    id          TEXT NOT NULL,
    funnel_id   TEXT NOT NULL REFERENCES funnels(id) ON DELETE CASCADE,
    visited     JSONB NOT NULL DEFAULT '[]',
    completed   BOOLEAN NOT NULL DEFAULT FALSE,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (funnel_id, id)
);

CREATE INDEX IF NOT EXISTS idx_funnel_stages_funnel_id   ON funnel_stages(funnel_id);
CREATE INDEX IF NOT EXISTS idx_funnel_sessions_funnel_id ON funnel_sessions(funnel_id);
`

// CreateSchema creates the funnel tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the funnel tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS funnel_sessions, funnel_stages, funnels CASCADE;`)
	return err
}
