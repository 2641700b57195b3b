package commission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tanglekit/artmarket/internal/artist"
	"github.com/tanglekit/artmarket/internal/cache"
	"github.com/tanglekit/artmarket/internal/config"
	"github.com/tanglekit/artmarket/internal/store"
	"github.com/tanglekit/artmarket/internal/tangle"
	"github.com/tanglekit/artmarket/pkg/models"
)

// ErrJobPending is returned when artwork is requested before the job has
// completed. It is a normal polling state, not a failure.
var ErrJobPending = errors.New("job still pending")

const (
	listingTTL   = 30 * time.Second
	jobStatusTTL = 30 * time.Minute
)

// ArtRequest is the response to a commission request. StatusPath and
// RetrievePath are relative to the marketplace base URL.
type ArtRequest struct {
	Address      string    `json:"iota_addr"`
	JobID        uuid.UUID `json:"job_id"`
	Key          string    `json:"key"`
	StatusPath   string    `json:"status_addr"`
	RetrievePath string    `json:"retrieve_addr"`
}

// Service implements the marketplace operations behind the HTTP surface:
// the priced artist listing, commission requests with their payment
// watchers, and key-gated job queries.
type Service struct {
	store      store.Store
	cache      cache.Cache
	ledger     *Ledger
	supervisor *Supervisor
	tangle     tangle.Client
	registry   *artist.Registry
	pricing    config.PricingConfig
	watch      config.WatchConfig
	artDir     string
}

func NewService(
	st store.Store,
	ca cache.Cache,
	ledger *Ledger,
	sup *Supervisor,
	tc tangle.Client,
	reg *artist.Registry,
	pricing config.PricingConfig,
	watch config.WatchConfig,
	artDir string,
) *Service {
	return &Service{
		store:      st,
		cache:      ca,
		ledger:     ledger,
		supervisor: sup,
		tangle:     tc,
		registry:   reg,
		pricing:    pricing,
		watch:      watch,
		artDir:     artDir,
	}
}

// Listing returns every artist with its quoted cost. Quotes are cached
// briefly in redis; mutations to the catalog invalidate the cache.
func (s *Service) Listing(ctx context.Context) ([]models.ArtistListing, error) {
	if buf, ok, err := s.cache.Get(ctx, cache.ArtistListingKey()); err == nil && ok {
		var listing []models.ArtistListing
		if err := json.Unmarshal(buf, &listing); err == nil {
			return listing, nil
		}
	}

	artists, err := s.store.ListArtists(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing artists: %w", err)
	}

	listing := make([]models.ArtistListing, 0, len(artists))
	for _, a := range artists {
		listing = append(listing, models.ArtistListing{
			ID:    a.ID,
			Cost:  Cost(a, s.pricing),
			Genre: a.Genre,
		})
	}

	if buf, err := json.Marshal(listing); err == nil {
		_ = s.cache.Set(ctx, cache.ArtistListingKey(), buf, listingTTL)
	}
	return listing, nil
}

// InvalidateListing drops the cached quote listing after a catalog mutation.
func (s *Service) InvalidateListing(ctx context.Context) {
	_ = s.cache.Delete(ctx, cache.ArtistListingKey())
}

// RequestArt creates a pending job for the artist and starts its payment
// watcher. The call returns immediately; payment and generation proceed in
// the background.
func (s *Service) RequestArt(ctx context.Context, artistID uuid.UUID) (*ArtRequest, error) {
	a, err := s.store.GetArtist(ctx, artistID)
	if err != nil {
		return nil, err
	}

	gen, err := s.registry.Lookup(a.Generator)
	if err != nil {
		return nil, err
	}

	job, rawKey, err := s.ledger.CreateJob(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	// The watcher outlives the request; give it its own context.
	s.supervisor.Start(context.WithoutCancel(ctx), &Watcher{
		Job:         job,
		Required:    Cost(a, s.pricing),
		Ledger:      s.ledger,
		Store:       s.store,
		Cache:       s.cache,
		Tangle:      s.tangle,
		Generator:   gen,
		ArtDir:      s.artDir,
		Interval:    s.watch.BalanceCheckInterval,
		WaitPayment: s.watch.WaitPayment,
	})

	return &ArtRequest{
		Address:      job.Address,
		JobID:        job.ID,
		Key:          rawKey,
		StatusPath:   fmt.Sprintf("/%s/status", job.ID),
		RetrievePath: fmt.Sprintf("/%s/retrieve-art", job.ID),
	}, nil
}

// JobStatus returns the job's wire status after validating the access key.
func (s *Service) JobStatus(ctx context.Context, jobID uuid.UUID, rawKey string) (string, error) {
	job, err := s.ledger.GetJob(ctx, jobID, rawKey)
	if err != nil {
		return "", err
	}

	if status, ok, err := s.cache.GetJobStatus(ctx, jobID); err == nil && ok {
		return status, nil
	}
	return job.Status(), nil
}

// RetrieveArt returns the path of the finished artwork after validating the
// access key. A pending job yields ErrJobPending.
func (s *Service) RetrieveArt(ctx context.Context, jobID uuid.UUID, rawKey string) (string, error) {
	job, err := s.ledger.GetJob(ctx, jobID, rawKey)
	if err != nil {
		return "", err
	}
	if !job.Completed() {
		return "", ErrJobPending
	}
	// Generators return bare filenames; Base guards against anything else.
	return filepath.Join(s.artDir, filepath.Base(*job.Filename)), nil
}
