package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tanglekit/artmarket/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Wallet ---

// EnsureWallet seeds the singleton wallet row on first boot. An existing
// wallet is left untouched.
func (s *PostgresStore) EnsureWallet(ctx context.Context, seed string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO wallet (id, seed, addr_index) VALUES (1, $1, 0)
		 ON CONFLICT (id) DO NOTHING`, seed)
	if err != nil {
		return fmt.Errorf("ensure wallet: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSeed(ctx context.Context) (string, error) {
	var seed string
	err := s.pool.QueryRow(ctx, `SELECT seed FROM wallet LIMIT 1`).Scan(&seed)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get seed: %w", err)
	}
	return seed, nil
}

// NextAddrIndex reserves the next address index. The UPDATE ... RETURNING is a
// single atomic read-modify-write, so allocation is linearizable even under
// concurrent callers.
func (s *PostgresStore) NextAddrIndex(ctx context.Context) (uint64, error) {
	var next int64
	err := s.pool.QueryRow(ctx,
		`UPDATE wallet SET addr_index = addr_index + 1 RETURNING addr_index - 1`,
	).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("next addr index: %w", err)
	}
	return uint64(next), nil
}

// --- Artists ---

func (s *PostgresStore) CreateArtist(ctx context.Context, artist *models.Artist) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO artists (id, name, genre, average_duration_secs, surcharge, generator, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		artist.ID, artist.Name, artist.Genre, durationSecs(artist.AverageDuration),
		artist.Surcharge, artist.Generator, artist.CreatedAt, artist.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create artist: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetArtist(ctx context.Context, id uuid.UUID) (*models.Artist, error) {
	a, err := scanArtist(s.pool.QueryRow(ctx,
		`SELECT id, name, genre, average_duration_secs, surcharge, generator, created_at, updated_at
		 FROM artists WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artist: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListArtists(ctx context.Context) ([]*models.Artist, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, genre, average_duration_secs, surcharge, generator, created_at, updated_at
		 FROM artists ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	defer rows.Close()

	var artists []*models.Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artist: %w", err)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

func (s *PostgresStore) UpdateArtist(ctx context.Context, artist *models.Artist) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE artists SET name = $2, genre = $3, surcharge = $4, generator = $5, updated_at = NOW()
		 WHERE id = $1`,
		artist.ID, artist.Name, artist.Genre, artist.Surcharge, artist.Generator)
	if err != nil {
		return fmt.Errorf("update artist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteArtist(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM artists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete artist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordGenerationTime folds a completed commission's generation time into the
// artist's running average, which feeds future cost quotes.
func (s *PostgresStore) RecordGenerationTime(ctx context.Context, artistID uuid.UUID, d time.Duration) error {
	secs := int64(d.Round(time.Second) / time.Second)
	tag, err := s.pool.Exec(ctx,
		`UPDATE artists SET
		   average_duration_secs = CASE
		     WHEN average_duration_secs IS NULL THEN $2
		     ELSE (average_duration_secs + $2) / 2
		   END,
		   updated_at = NOW()
		 WHERE id = $1`, artistID, secs)
	if err != nil {
		return fmt.Errorf("record generation time: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListGenres(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT genre FROM artists ORDER BY genre`)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer rows.Close()

	var genres []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, key_hash, addr_index, address, artist_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.KeyHash, int64(job.AddrIndex), job.Address, job.ArtistID, job.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	var addrIndex int64
	err := s.pool.QueryRow(ctx,
		`SELECT id, key_hash, addr_index, address, artist_id, completed_at, filename, created_at
		 FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.KeyHash, &addrIndex, &j.Address, &j.ArtistID,
		&j.CompletedAt, &j.Filename, &j.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	j.AddrIndex = uint64(addrIndex)
	return &j, nil
}

// FinalizeJob records completion exactly once. The completed_at IS NULL guard
// makes a second finalize observable as ErrAlreadyFinalized rather than a
// silent overwrite.
func (s *PostgresStore) FinalizeJob(ctx context.Context, id uuid.UUID, completedAt time.Time, filename string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET completed_at = $2, filename = $3
		 WHERE id = $1 AND completed_at IS NULL`,
		id, completedAt, filename)
	if err != nil {
		return fmt.Errorf("finalize job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("finalize job: %w", err)
		}
		if exists {
			return ErrAlreadyFinalized
		}
		return ErrNotFound
	}
	return nil
}

// DeleteJob removes the job record entirely. Deleting an absent job is a no-op.
func (s *PostgresStore) DeleteJob(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtist(row rowScanner) (*models.Artist, error) {
	var a models.Artist
	var avgSecs *int64
	if err := row.Scan(&a.ID, &a.Name, &a.Genre, &avgSecs, &a.Surcharge,
		&a.Generator, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if avgSecs != nil {
		d := time.Duration(*avgSecs) * time.Second
		a.AverageDuration = &d
	}
	return &a, nil
}

func durationSecs(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	secs := int64(*d / time.Second)
	return &secs
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
