package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "talentgate/pkg/domain"
	audit "talentgate/pkg/platform/audit"
)

// Store persists audit events in PostgreSQL. Inserts are append-only;
// events are never updated or deleted by this subsystem.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes one audit event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	// Always derive category from action so the map stays the source of truth
	category := audit.AuditEvent(event.Action).Category()

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query := `
		INSERT INTO audit_events (id, category, candidacy_id, action, actor, actor_role, detail, request_id, client_ip, user_agent, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		string(category),
		uuid.UUID(event.CandidacyID),
		event.Action,
		event.Actor,
		string(event.ActorRole),
		event.Detail,
		event.RequestID,
		event.ClientIP,
		event.UserAgent,
		ts,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByCandidacy returns the trail for one candidacy, oldest first.
func (s *Store) ListByCandidacy(ctx context.Context, candidacyID id.CandidacyID) ([]audit.Event, error) {
	query := `
		SELECT category, candidacy_id, action, actor, actor_role, detail, request_id, client_ip, user_agent, occurred_at
		FROM audit_events
		WHERE candidacy_id = $1
		ORDER BY occurred_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(candidacyID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var (
			e     audit.Event
			rawID uuid.UUID
			role  string
		)
		if err := rows.Scan(&e.Category, &rawID, &e.Action, &e.Actor, &role, &e.Detail, &e.RequestID, &e.ClientIP, &e.UserAgent, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.CandidacyID = id.CandidacyID(rawID)
		e.ActorRole = id.ActorRole(role)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}
