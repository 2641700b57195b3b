package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tanglekit/artmarket/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrAlreadyFinalized = errors.New("job already finalized")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// The wallet row holds the marketplace seed and the single monotonically
	// increasing address index. NextAddrIndex performs the atomic
	// reserve-and-increment; no two callers ever observe the same index.
	EnsureWallet(ctx context.Context, seed string) error
	GetSeed(ctx context.Context) (string, error)
	NextAddrIndex(ctx context.Context) (uint64, error)

	CreateArtist(ctx context.Context, artist *models.Artist) error
	GetArtist(ctx context.Context, id uuid.UUID) (*models.Artist, error)
	ListArtists(ctx context.Context) ([]*models.Artist, error)
	UpdateArtist(ctx context.Context, artist *models.Artist) error
	DeleteArtist(ctx context.Context, id uuid.UUID) error
	RecordGenerationTime(ctx context.Context, artistID uuid.UUID, d time.Duration) error
	ListGenres(ctx context.Context) ([]string, error)

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	FinalizeJob(ctx context.Context, id uuid.UUID, completedAt time.Time, filename string) error
	DeleteJob(ctx context.Context, id uuid.UUID) error
}
