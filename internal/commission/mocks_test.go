package commission_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tanglekit/artmarket/internal/store"
	"github.com/tanglekit/artmarket/pkg/models"
)

// ─── mock store ──────────────────────────────────────────────────────────────

type mockStore struct {
	mu        sync.Mutex
	seed      string
	addrIndex uint64
	artists   map[uuid.UUID]*models.Artist
	jobs      map[uuid.UUID]*models.Job
	genTimes  map[uuid.UUID][]time.Duration

	nextIndexErr error
	createJobErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		artists:  make(map[uuid.UUID]*models.Artist),
		jobs:     make(map[uuid.UUID]*models.Job),
		genTimes: make(map[uuid.UUID][]time.Duration),
	}
}

func (s *mockStore) Ping(_ context.Context) error { return nil }

func (s *mockStore) EnsureWallet(_ context.Context, seed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seed == "" {
		s.seed = seed
	}
	return nil
}

func (s *mockStore) GetSeed(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seed, nil
}

func (s *mockStore) NextAddrIndex(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextIndexErr != nil {
		return 0, s.nextIndexErr
	}
	idx := s.addrIndex
	s.addrIndex++
	return idx, nil
}

func (s *mockStore) CreateArtist(_ context.Context, a *models.Artist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artists[a.ID] = a
	return nil
}

func (s *mockStore) GetArtist(_ context.Context, id uuid.UUID) (*models.Artist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artists[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *mockStore) ListArtists(_ context.Context) ([]*models.Artist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Artist, 0, len(s.artists))
	for _, a := range s.artists {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *mockStore) UpdateArtist(_ context.Context, a *models.Artist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.artists[a.ID]; !ok {
		return store.ErrNotFound
	}
	s.artists[a.ID] = a
	return nil
}

func (s *mockStore) DeleteArtist(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.artists[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.artists, id)
	return nil
}

func (s *mockStore) RecordGenerationTime(_ context.Context, artistID uuid.UUID, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.genTimes[artistID] = append(s.genTimes[artistID], d)
	return nil
}

func (s *mockStore) ListGenres(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var genres []string
	for _, a := range s.artists {
		if !seen[a.Genre] {
			seen[a.Genre] = true
			genres = append(genres, a.Genre)
		}
	}
	return genres, nil
}

func (s *mockStore) CreateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createJobErr != nil {
		return s.createJobErr
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *mockStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *mockStore) FinalizeJob(_ context.Context, id uuid.UUID, completedAt time.Time, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if j.CompletedAt != nil {
		return store.ErrAlreadyFinalized
	}
	j.CompletedAt = &completedAt
	j.Filename = &filename
	return nil
}

func (s *mockStore) DeleteJob(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func (s *mockStore) jobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// ─── mock tangle client ──────────────────────────────────────────────────────

type mockTangle struct {
	mu          sync.Mutex
	balances    map[string]uint64
	account     uint64
	allocateErr error
	balanceErr  error
	sendErr     error
	sent        []sentTransfer
}

type sentTransfer struct {
	amount  uint64
	address string
}

func newMockTangle() *mockTangle {
	return &mockTangle{balances: make(map[string]uint64)}
}

func (c *mockTangle) AllocateAddress(_ context.Context, index uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.allocateErr != nil {
		return "", c.allocateErr
	}
	return fmt.Sprintf("ADDR9%d", index), nil
}

func (c *mockTangle) Balance(_ context.Context, address string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.balanceErr != nil {
		return 0, c.balanceErr
	}
	return c.balances[address], nil
}

func (c *mockTangle) AccountBalance(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account, nil
}

func (c *mockTangle) Send(_ context.Context, amount uint64, address, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, sentTransfer{amount: amount, address: address})
	return nil
}

func (c *mockTangle) setBalance(address string, amount uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[address] = amount
}

// ─── mock cache ──────────────────────────────────────────────────────────────

type mockCache struct {
	mu       sync.Mutex
	entries  map[string][]byte
	statuses map[uuid.UUID]string
}

func newMockCache() *mockCache {
	return &mockCache{
		entries:  make(map[string][]byte),
		statuses: make(map[uuid.UUID]string),
	}
}

func (c *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *mockCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *mockCache) Ping(_ context.Context) error { return nil }

func (c *mockCache) SetJobStatus(_ context.Context, jobID uuid.UUID, status string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[jobID] = status
	return nil
}

func (c *mockCache) GetJobStatus(_ context.Context, jobID uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.statuses[jobID]
	return s, ok, nil
}

func (c *mockCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append(c.entries[key], 1)
	return int64(len(c.entries[key])), nil
}
