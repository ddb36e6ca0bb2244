package decision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-io/sentra/internal/fraud"
	"github.com/sentra-io/sentra/internal/testutil"
)

func sampleDecision(id, txID, customerID string) *Decision {
	return &Decision{
		ID:            id,
		TransactionID: txID,
		CustomerID:    customerID,
		Action:        fraud.ActionManualReview,
		Confidence:    50,
		Reasoning:     "Risk score 55/100 requires manual review",
		RiskScore:     55,
		RiskBand:      fraud.BandMedium,
		KeyFactors:    []string{"Amount anomaly: 4.2 std devs above baseline"},
		RecommendedActions: []string{
			"Queue for analyst review",
			"Request additional verification from customer",
		},
		DecidedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	want := sampleDecision("dec_pg_1", "tx-pg-1", "cust-pg-1")
	require.NoError(t, store.Record(ctx, want))

	got, err := store.Get(ctx, "dec_pg_1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, want.TransactionID, got.TransactionID)
	assert.Equal(t, want.CustomerID, got.CustomerID)
	assert.Equal(t, want.Action, got.Action)
	assert.Equal(t, want.Confidence, got.Confidence)
	assert.Equal(t, want.RiskScore, got.RiskScore)
	assert.Equal(t, want.RiskBand, got.RiskBand)
	assert.Equal(t, want.KeyFactors, got.KeyFactors)
	assert.Equal(t, want.RecommendedActions, got.RecommendedActions)
	assert.WithinDuration(t, want.DecidedAt, got.DecidedAt, time.Millisecond)
}

func TestPostgresStoreGetMissing(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)

	got, err := store.Get(context.Background(), "dec_absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresStoreListByCustomer(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	for i, id := range []string{"dec_pg_a", "dec_pg_b", "dec_pg_c"} {
		d := sampleDecision(id, "tx-"+id, "cust-list")
		d.DecidedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Record(ctx, d))
	}
	other := sampleDecision("dec_pg_other", "tx-other", "cust-other")
	require.NoError(t, store.Record(ctx, other))

	list, err := store.ListByCustomer(ctx, "cust-list", 10)
	require.NoError(t, err)
	require.Len(t, list, 3)
	// Newest first
	assert.Equal(t, "dec_pg_c", list[0].ID)

	list, err = store.ListByCustomer(ctx, "cust-list", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPostgresStoreListRecent(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	d1 := sampleDecision("dec_pg_r1", "tx-r1", "")
	d1.DecidedAt = time.Now().UTC().Add(-time.Hour)
	d2 := sampleDecision("dec_pg_r2", "tx-r2", "")
	require.NoError(t, store.Record(ctx, d1))
	require.NoError(t, store.Record(ctx, d2))

	list, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "dec_pg_r2", list[0].ID)
}

func TestPostgresStoreRejectsInvalidAction(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)

	d := sampleDecision("dec_pg_bad", "tx-bad", "")
	d.Action = "ESCALATE"

	err := store.Record(context.Background(), d)
	require.Error(t, err)
}

func TestPostgresStoreInContainer(t *testing.T) {
	db, cleanup := testutil.ContainerPG(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	want := sampleDecision("dec_ctr_1", "tx-ctr-1", "cust-ctr")
	require.NoError(t, store.Record(ctx, want))

	got, err := store.Get(ctx, "dec_ctr_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, fraud.ActionManualReview, got.Action)
}
