package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sentra-io/sentra/internal/fraud"
)

// PostgresStore persists customer baselines in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed baseline store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the customer_baselines table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS customer_baselines (
			customer_id  VARCHAR(64) PRIMARY KEY,
			avg_amount   NUMERIC(14,2) NOT NULL,
			std_amount   NUMERIC(14,2) NOT NULL,
			tx_count     INT NOT NULL CHECK (tx_count >= 0),
			usual_hours  JSONB NOT NULL DEFAULT '[]',
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, customerID string) (*fraud.CustomerHistory, error) {
	var h fraud.CustomerHistory
	var hoursJSON []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT customer_id, avg_amount, std_amount, tx_count, usual_hours
		FROM customer_baselines
		WHERE customer_id = $1
	`, customerID).Scan(&h.CustomerID, &h.AvgAmount, &h.StdAmount, &h.TxCount, &hoursJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer baseline: %w", err)
	}

	_ = json.Unmarshal(hoursJSON, &h.UsualHours)
	return &h, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, h *fraud.CustomerHistory) error {
	hoursJSON, err := json.Marshal(h.UsualHours)
	if err != nil {
		return fmt.Errorf("failed to marshal usual hours: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO customer_baselines (customer_id, avg_amount, std_amount, tx_count, usual_hours, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (customer_id) DO UPDATE SET
			avg_amount = EXCLUDED.avg_amount,
			std_amount = EXCLUDED.std_amount,
			tx_count = EXCLUDED.tx_count,
			usual_hours = EXCLUDED.usual_hours,
			updated_at = NOW()
	`, h.CustomerID, h.AvgAmount, h.StdAmount, h.TxCount, hoursJSON)
	if err != nil {
		return fmt.Errorf("failed to upsert customer baseline: %w", err)
	}
	return nil
}
