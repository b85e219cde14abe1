package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
	"github.com/kirillkom/fleet-claims/internal/core/ports"
	"github.com/kirillkom/fleet-claims/internal/infrastructure/resilience"
)

const (
	schemaLockKey      int64 = 2026101801
	uniqueViolation          = "23505"
	serializationError       = "40001"
	deadlockDetected         = "40P01"
)

// ClaimRepository stores each claim as a JSONB document next to the scalar
// columns used for filtering and ordering. Merges run inside a transaction
// that holds the row lock, so concurrent writers on one claim serialize.
type ClaimRepository struct {
	db       *sql.DB
	executor *resilience.Executor
	now      ports.Clock
}

func NewClaimRepository(db *sql.DB, executor *resilience.Executor, now ports.Clock) *ClaimRepository {
	if now == nil {
		now = time.Now
	}
	return &ClaimRepository{db: db, executor: executor, now: now}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ClaimRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// api and worker may start together.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS claims (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	current_agent TEXT NOT NULL,
	progress INTEGER NOT NULL DEFAULT 0,
	payout_estimate BIGINT NOT NULL DEFAULT 0,
	body JSONB NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);
CREATE INDEX IF NOT EXISTS idx_claims_submitted_at ON claims(submitted_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ClaimRepository) Create(ctx context.Context, claim *domain.Claim) error {
	stored := claim.Clone()
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = r.now().UTC()
	}
	body, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal claim: %w", err)
	}

	return r.run(ctx, "postgres.create_claim", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
INSERT INTO claims (id, status, current_agent, progress, payout_estimate, body, submitted_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
			stored.ID, string(stored.Status), stored.CurrentAgent, stored.Progress, stored.PayoutEstimate,
			body, stored.SubmittedAt, stored.UpdatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return domain.WrapError(domain.ErrDuplicateID, "insert claim", fmt.Errorf("id %s", stored.ID))
			}
			return fmt.Errorf("insert claim: %w", err)
		}
		return nil
	})
}

func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	var claim *domain.Claim
	err := r.run(ctx, "postgres.get_claim", func(ctx context.Context) error {
		var body []byte
		err := r.db.QueryRowContext(ctx, `SELECT body FROM claims WHERE id = $1`, id).Scan(&body)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("get claim", id)
			}
			return fmt.Errorf("select claim: %w", err)
		}
		claim, err = decodeClaim(body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

func (r *ClaimRepository) List(ctx context.Context, filter domain.ClaimFilter) ([]domain.Claim, error) {
	query := `SELECT body FROM claims`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY submitted_at DESC, id DESC`

	var out []domain.Claim
	err := r.run(ctx, "postgres.list_claims", func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("list claims: %w", err)
		}
		defer rows.Close()

		out = make([]domain.Claim, 0)
		for rows.Next() {
			var body []byte
			if err := rows.Scan(&body); err != nil {
				return fmt.Errorf("scan claim: %w", err)
			}
			claim, err := decodeClaim(body)
			if err != nil {
				return err
			}
			out = append(out, *claim)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate claims: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ClaimRepository) Update(ctx context.Context, id string, patch domain.ClaimPatch) error {
	return r.merge(ctx, "postgres.update_claim", id, func(c *domain.Claim) {
		patch.Apply(c)
	})
}

func (r *ClaimRepository) RecordStageOutput(ctx context.Context, id, stage, text string) error {
	return r.merge(ctx, "postgres.record_output", id, func(c *domain.Claim) {
		if c.AgentOutputs == nil {
			c.AgentOutputs = make(map[string]string)
		}
		c.AgentOutputs[stage] = text
	})
}

func (r *ClaimRepository) RecordEdit(ctx context.Context, id, stage string, fields domain.StageEdit) error {
	return r.merge(ctx, "postgres.record_edit", id, func(c *domain.Claim) {
		if c.EditedData == nil {
			c.EditedData = make(map[string]domain.StageEdit)
		}
		c.EditedData[stage] = fields.Clone()
	})
}

func (r *ClaimRepository) merge(ctx context.Context, op, id string, fn func(c *domain.Claim)) error {
	return r.run(ctx, op, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin merge tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		var body []byte
		err = tx.QueryRowContext(ctx, `SELECT body FROM claims WHERE id = $1 FOR UPDATE`, id).Scan(&body)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound(op, id)
			}
			return fmt.Errorf("lock claim: %w", err)
		}
		claim, err := decodeClaim(body)
		if err != nil {
			return err
		}

		fn(claim)
		claim.UpdatedAt = r.now().UTC()
		updated, err := json.Marshal(claim)
		if err != nil {
			return fmt.Errorf("marshal claim: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
UPDATE claims
SET status = $2, current_agent = $3, progress = $4, payout_estimate = $5, body = $6, updated_at = $7
WHERE id = $1
`, id, string(claim.Status), claim.CurrentAgent, claim.Progress, claim.PayoutEstimate, updated, claim.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update claim: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit merge tx: %w", err)
		}
		return nil
	})
}

func (r *ClaimRepository) run(ctx context.Context, op string, fn func(context.Context) error) error {
	if r.executor == nil {
		return fn(ctx)
	}
	return r.executor.Execute(ctx, op, fn, resilience.TransientClassifier(isTransient))
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == serializationError || pgErr.Code == deadlockDetected
	}
	return errors.Is(err, sql.ErrConnDone) || pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}

func decodeClaim(body []byte) (*domain.Claim, error) {
	var claim domain.Claim
	if err := json.Unmarshal(body, &claim); err != nil {
		return nil, fmt.Errorf("unmarshal claim: %w", err)
	}
	if claim.AgentOutputs == nil {
		claim.AgentOutputs = map[string]string{}
	}
	if claim.EditedData == nil {
		claim.EditedData = map[string]domain.StageEdit{}
	}
	return &claim, nil
}

func notFound(op, id string) error {
	return domain.WrapError(domain.ErrClaimNotFound, op, fmt.Errorf("id %s", id))
}
