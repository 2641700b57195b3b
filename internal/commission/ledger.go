package commission

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tanglekit/artmarket/internal/store"
	"github.com/tanglekit/artmarket/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// ErrForbidden is returned when an access key does not match. The error
// carries no job state, so a caller holding a wrong key learns nothing
// beyond the refusal.
var ErrForbidden = errors.New("access denied")

const accessKeyBytes = 16 // 128 bits of entropy

// Ledger is the server-side record of outstanding commissions. Raw access
// keys are returned once at creation and only their bcrypt hashes are stored.
type Ledger struct {
	store     store.Store
	allocator *Allocator
}

func NewLedger(st store.Store, alloc *Allocator) *Ledger {
	return &Ledger{store: st, allocator: alloc}
}

// CreateJob allocates a payment address and a fresh access key, persists the
// pending job, and returns it together with the raw key.
func (l *Ledger) CreateJob(ctx context.Context, artistID uuid.UUID) (*models.Job, string, error) {
	rawKey, keyHash, err := newAccessKey()
	if err != nil {
		return nil, "", fmt.Errorf("generating access key: %w", err)
	}

	addr, index, err := l.allocator.Allocate(ctx)
	if err != nil {
		return nil, "", err
	}

	job := &models.Job{
		ID:        uuid.New(),
		KeyHash:   keyHash,
		AddrIndex: index,
		Address:   addr,
		ArtistID:  artistID,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.store.CreateJob(ctx, job); err != nil {
		return nil, "", fmt.Errorf("persisting job: %w", err)
	}
	return job, rawKey, nil
}

// GetJob returns the job only when the key matches. An unknown id yields
// store.ErrNotFound; a key mismatch yields ErrForbidden with no state leaked.
func (l *Ledger) GetJob(ctx context.Context, id uuid.UUID, rawKey string) (*models.Job, error) {
	job, err := l.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(job.KeyHash), []byte(rawKey)) != nil {
		return nil, ErrForbidden
	}
	return job, nil
}

// Finalize marks the job completed. A second call returns
// store.ErrAlreadyFinalized.
func (l *Ledger) Finalize(ctx context.Context, id uuid.UUID, filename string) error {
	return l.store.FinalizeJob(ctx, id, time.Now().UTC(), filename)
}

// Cancel deletes the job record entirely. Idempotent.
func (l *Ledger) Cancel(ctx context.Context, id uuid.UUID) error {
	return l.store.DeleteJob(ctx, id)
}

func newAccessKey() (raw, hash string, err error) {
	buf := make([]byte, accessKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)

	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return raw, string(hashed), nil
}
