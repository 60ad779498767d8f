package postgres

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
    id           UUID PRIMARY KEY,
    category     TEXT NOT NULL,
    candidacy_id UUID NOT NULL,
    action       TEXT NOT NULL,
    actor        TEXT NOT NULL,
    actor_role   TEXT NOT NULL,
    detail       TEXT NOT NULL DEFAULT '',
    request_id   TEXT NOT NULL DEFAULT '',
    client_ip    TEXT NOT NULL DEFAULT '',
    user_agent   TEXT NOT NULL DEFAULT '',
    occurred_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_candidacy ON audit_events (candidacy_id, occurred_at);
`

// RunMigrations creates the audit_events table if missing.
func (s *Store) RunMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate audit_events: %w", err)
	}
	return nil
}
