package commission_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanglekit/artmarket/internal/commission"
	"github.com/tanglekit/artmarket/internal/store"
)

func newTestLedger() (*commission.Ledger, *mockStore) {
	st := newMockStore()
	alloc := commission.NewAllocator(st, newMockTangle())
	return commission.NewLedger(st, alloc), st
}

func TestCreateJob(t *testing.T) {
	ledger, _ := newTestLedger()
	artistID := uuid.New()

	job, rawKey, err := ledger.CreateJob(context.Background(), artistID)
	require.NoError(t, err)

	assert.Equal(t, artistID, job.ArtistID)
	assert.Equal(t, uint64(0), job.AddrIndex)
	assert.Equal(t, "ADDR90", job.Address)
	assert.Nil(t, job.CompletedAt)

	// 16 random bytes, hex encoded.
	assert.Len(t, rawKey, 32)
	// Only the bcrypt hash is stored, never the raw key.
	assert.NotEqual(t, rawKey, job.KeyHash)
	assert.NotContains(t, job.KeyHash, rawKey)
}

func TestCreateJob_KeysAreUnique(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	_, key1, err := ledger.CreateJob(ctx, uuid.New())
	require.NoError(t, err)
	_, key2, err := ledger.CreateJob(ctx, uuid.New())
	require.NoError(t, err)

	assert.NotEqual(t, key1, key2)
}

func TestGetJob_CorrectKey(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	job, rawKey, err := ledger.CreateJob(ctx, uuid.New())
	require.NoError(t, err)

	got, err := ledger.GetJob(ctx, job.ID, rawKey)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
}

func TestGetJob_WrongKey(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	job, _, err := ledger.CreateJob(ctx, uuid.New())
	require.NoError(t, err)

	_, err = ledger.GetJob(ctx, job.ID, "00000000000000000000000000000000")
	assert.ErrorIs(t, err, commission.ErrForbidden)
}

func TestGetJob_UnknownID(t *testing.T) {
	ledger, _ := newTestLedger()

	_, err := ledger.GetJob(context.Background(), uuid.New(), "whatever")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFinalize(t *testing.T) {
	ledger, st := newTestLedger()
	ctx := context.Background()

	job, rawKey, err := ledger.CreateJob(ctx, uuid.New())
	require.NoError(t, err)

	require.NoError(t, ledger.Finalize(ctx, job.ID, "piece.png"))

	got, err := ledger.GetJob(ctx, job.ID, rawKey)
	require.NoError(t, err)
	assert.True(t, got.Completed())
	require.NotNil(t, got.Filename)
	assert.Equal(t, "piece.png", *got.Filename)

	// Finalize is exactly-once.
	err = ledger.Finalize(ctx, job.ID, "other.png")
	assert.ErrorIs(t, err, store.ErrAlreadyFinalized)
	assert.Equal(t, 1, st.jobCount())
}

func TestCancel_IsIdempotent(t *testing.T) {
	ledger, st := newTestLedger()
	ctx := context.Background()

	job, _, err := ledger.CreateJob(ctx, uuid.New())
	require.NoError(t, err)

	require.NoError(t, ledger.Cancel(ctx, job.ID))
	assert.Equal(t, 0, st.jobCount())
	require.NoError(t, ledger.Cancel(ctx, job.ID))

	_, err = ledger.GetJob(ctx, job.ID, "any")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
