package decision

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sentra-io/sentra/internal/fraud"
)

// PostgresStore persists decisions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed decision store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the decisions table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS decisions (
			id              VARCHAR(36) PRIMARY KEY,
			transaction_id  VARCHAR(64) NOT NULL,
			customer_id     VARCHAR(64),
			action          VARCHAR(16) NOT NULL CHECK (action IN ('APPROVE', 'BLOCK', 'MANUAL_REVIEW')),
			confidence      INT NOT NULL CHECK (confidence >= 0 AND confidence <= 100),
			reasoning       TEXT NOT NULL,
			risk_score      INT NOT NULL CHECK (risk_score >= 0 AND risk_score <= 100),
			risk_band       VARCHAR(10) NOT NULL,
			key_factors     JSONB NOT NULL DEFAULT '[]',
			recommended     JSONB NOT NULL DEFAULT '[]',
			decided_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_decisions_customer
			ON decisions (customer_id, decided_at DESC);

		CREATE INDEX IF NOT EXISTS idx_decisions_blocks
			ON decisions (decided_at DESC) WHERE action = 'BLOCK';
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, d *Decision) error {
	factorsJSON, err := json.Marshal(d.KeyFactors)
	if err != nil {
		return fmt.Errorf("failed to marshal key factors: %w", err)
	}
	recommendedJSON, err := json.Marshal(d.RecommendedActions)
	if err != nil {
		return fmt.Errorf("failed to marshal recommended actions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions (id, transaction_id, customer_id, action, confidence,
			reasoning, risk_score, risk_band, key_factors, recommended, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		d.ID,
		d.TransactionID,
		nullable(d.CustomerID),
		string(d.Action),
		d.Confidence,
		d.Reasoning,
		d.RiskScore,
		string(d.RiskBand),
		factorsJSON,
		recommendedJSON,
		d.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Decision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, customer_id, action, confidence,
			reasoning, risk_score, risk_band, key_factors, recommended, decided_at
		FROM decisions
		WHERE id = $1
	`, id)

	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, customer_id, action, confidence,
			reasoning, risk_score, risk_band, key_factors, recommended, decided_at
		FROM decisions
		WHERE customer_id = $1
		ORDER BY decided_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	return collectDecisions(rows)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, customer_id, action, confidence,
			reasoning, risk_score, risk_band, key_factors, recommended, decided_at
		FROM decisions
		ORDER BY decided_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	return collectDecisions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (*Decision, error) {
	var d Decision
	var customerID sql.NullString
	var action, band string
	var factorsJSON, recommendedJSON []byte
	var decidedAt time.Time

	if err := row.Scan(&d.ID, &d.TransactionID, &customerID, &action, &d.Confidence,
		&d.Reasoning, &d.RiskScore, &band, &factorsJSON, &recommendedJSON, &decidedAt); err != nil {
		return nil, err
	}

	d.CustomerID = customerID.String
	d.Action = fraud.Action(action)
	d.RiskBand = fraud.RiskBand(band)
	d.DecidedAt = decidedAt
	_ = json.Unmarshal(factorsJSON, &d.KeyFactors)
	_ = json.Unmarshal(recommendedJSON, &d.RecommendedActions)
	return &d, nil
}

func collectDecisions(rows *sql.Rows) ([]*Decision, error) {
	defer func() { _ = rows.Close() }()

	var result []*Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			continue
		}
		result = append(result, d)
	}
	return result, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
