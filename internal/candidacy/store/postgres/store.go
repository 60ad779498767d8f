// Package postgres persists candidacies in PostgreSQL. The ledger is a
// single JSONB document per row; atomicity of Merge comes from optimistic
// version compare-and-set with bounded retry, never from row locks held
// across patch computation.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"talentgate/internal/candidacy/models"
	"talentgate/internal/candidacy/ports"
	id "talentgate/pkg/domain"
	"talentgate/pkg/platform/sentinel"
)

const defaultMergeRetries = 5

// Store implements ports.LedgerStore over database/sql.
type Store struct {
	db           *sql.DB
	clock        func() time.Time
	mergeRetries int
}

// Option configures a Store instance.
type Option func(*Store)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMergeRetries bounds optimistic-concurrency retries per Merge call.
func WithMergeRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.mergeRetries = n
		}
	}
}

// New constructs a PostgreSQL-backed ledger store.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:           db,
		clock:        time.Now,
		mergeRetries: defaultMergeRetries,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) Create(ctx context.Context, vacancyID id.VacancyID, candidateID id.CandidateID, companyID id.CompanyID) (*models.Candidacy, error) {
	now := s.clock().UTC()
	c := &models.Candidacy{
		ID:          id.NewCandidacyID(),
		VacancyID:   vacancyID,
		CandidateID: candidateID,
		CompanyID:   companyID,
		Ledger:      models.NewLedger(),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ledgerJSON, err := json.Marshal(c.Ledger)
	if err != nil {
		return nil, fmt.Errorf("marshal ledger: %w", err)
	}

	query := `
		INSERT INTO candidacies (id, vacancy_id, candidate_id, company_id, ledger, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(c.ID), uuid.UUID(c.VacancyID), uuid.UUID(c.CandidateID), uuid.UUID(c.CompanyID),
		ledgerJSON, c.Version, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert candidacy: %w", err)
	}
	return c, nil
}

func (s *Store) Get(ctx context.Context, candidacyID id.CandidacyID) (*models.Candidacy, error) {
	query := `
		SELECT id, vacancy_id, candidate_id, company_id, ledger, version, created_at, updated_at
		FROM candidacies
		WHERE id = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(candidacyID)))
}

// Merge reads the current row, applies patch, and writes conditioned on the
// version being unchanged. A lost race re-reads and retries against the
// winner's committed state; exhaustion surfaces ErrVersionConflict so the
// caller can retry the whole operation with a fresh read.
func (s *Store) Merge(ctx context.Context, candidacyID id.CandidacyID, patch ports.PatchFn) (*models.Candidacy, error) {
	for attempt := 0; attempt < s.mergeRetries; attempt++ {
		current, err := s.Get(ctx, candidacyID)
		if err != nil {
			return nil, err
		}

		next := current.Ledger.Clone()
		if err := patch(&next); err != nil {
			return nil, err
		}

		ledgerJSON, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("marshal ledger: %w", err)
		}

		now := s.clock().UTC()
		query := `
			UPDATE candidacies
			SET ledger = $2, version = version + 1, updated_at = $3
			WHERE id = $1 AND version = $4
		`
		res, err := s.db.ExecContext(ctx, query, uuid.UUID(candidacyID), ledgerJSON, now, current.Version)
		if err != nil {
			return nil, fmt.Errorf("update candidacy: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 1 {
			current.Ledger = next
			current.Version++
			current.UpdatedAt = now
			return current, nil
		}
		// another merge committed between our read and write; retry from
		// the winner's state
	}
	return nil, sentinel.ErrVersionConflict
}

func (s *Store) ListByCompany(ctx context.Context, companyID id.CompanyID) ([]*models.Candidacy, error) {
	query := `
		SELECT id, vacancy_id, candidate_id, company_id, ledger, version, created_at, updated_at
		FROM candidacies
		WHERE company_id = $1
		ORDER BY created_at DESC
	`
	return s.scanMany(ctx, query, uuid.UUID(companyID))
}

func (s *Store) ListByCandidate(ctx context.Context, candidateID id.CandidateID) ([]*models.Candidacy, error) {
	query := `
		SELECT id, vacancy_id, candidate_id, company_id, ledger, version, created_at, updated_at
		FROM candidacies
		WHERE candidate_id = $1
		ORDER BY created_at DESC
	`
	return s.scanMany(ctx, query, uuid.UUID(candidateID))
}

func (s *Store) ListOverdueRequested(ctx context.Context, now time.Time) ([]*models.Candidacy, error) {
	query := `
		SELECT id, vacancy_id, candidate_id, company_id, ledger, version, created_at, updated_at
		FROM candidacies
		WHERE ledger->'video'->>'status' = 'REQUESTED'
		  AND (ledger->'video'->>'deadline')::timestamptz < $1
		  AND ledger->'feedback'->>'status' <> 'REJECTED'
	`
	return s.scanMany(ctx, query, now.UTC())
}

func (s *Store) ListExpiredUnsent(ctx context.Context) ([]*models.Candidacy, error) {
	query := `
		SELECT id, vacancy_id, candidate_id, company_id, ledger, version, created_at, updated_at
		FROM candidacies
		WHERE ledger->'video'->>'status' = 'EXPIRED'
		  AND NOT (ledger->'video'->>'expired_email_sent')::boolean
	`
	return s.scanMany(ctx, query)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanOne(row rowScanner) (*models.Candidacy, error) {
	var (
		c          models.Candidacy
		rawID      uuid.UUID
		vacancyID  uuid.UUID
		candID     uuid.UUID
		companyID  uuid.UUID
		ledgerJSON []byte
	)
	err := row.Scan(&rawID, &vacancyID, &candID, &companyID, &ledgerJSON, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan candidacy: %w", err)
	}

	if err := json.Unmarshal(ledgerJSON, &c.Ledger); err != nil {
		return nil, fmt.Errorf("unmarshal ledger: %w", err)
	}
	if c.Ledger.CompanyNotice == nil {
		c.Ledger.CompanyNotice = models.NoticeMap{}
	}
	if c.Ledger.CandidateNotice == nil {
		c.Ledger.CandidateNotice = models.NoticeMap{}
	}

	c.ID = id.CandidacyID(rawID)
	c.VacancyID = id.VacancyID(vacancyID)
	c.CandidateID = id.CandidateID(candID)
	c.CompanyID = id.CompanyID(companyID)
	return &c, nil
}

func (s *Store) scanMany(ctx context.Context, query string, args ...any) ([]*models.Candidacy, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidacies: %w", err)
	}
	defer rows.Close()

	var out []*models.Candidacy
	for rows.Next() {
		c, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidacies: %w", err)
	}
	return out, nil
}
