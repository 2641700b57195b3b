package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tanglekit/artmarket/internal/api/response"
	"github.com/tanglekit/artmarket/internal/artist"
	"github.com/tanglekit/artmarket/internal/store"
	"github.com/tanglekit/artmarket/pkg/models"
)

// Lister serves the priced artist listing.
type Lister interface {
	Listing(ctx context.Context) ([]models.ArtistListing, error)
}

// Catalog is the subset of the store the artist CRUD handlers need.
type Catalog interface {
	CreateArtist(ctx context.Context, artist *models.Artist) error
	GetArtist(ctx context.Context, id uuid.UUID) (*models.Artist, error)
	UpdateArtist(ctx context.Context, artist *models.Artist) error
	DeleteArtist(ctx context.Context, id uuid.UUID) error
	ListGenres(ctx context.Context) ([]string, error)
}

// generatorLookup is satisfied by artist.Registry; handlers only need to
// know whether a generator name is registered.
type generatorLookup interface {
	Lookup(name string) (artist.Generator, error)
}

// Invalidator drops cached listing quotes after a catalog mutation.
type Invalidator interface {
	InvalidateListing(ctx context.Context)
}

// NewArtistListHandler returns the handler for GET /artist-list.
// The response is a bare JSON array; its shape is fixed by deployed clients.
func NewArtistListHandler(svc Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listing, err := svc.Listing(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to list artists", nil)
			return
		}
		if listing == nil {
			listing = []models.ArtistListing{}
		}
		response.Plain(w, http.StatusOK, listing)
	}
}

type artistRequest struct {
	Name      string `json:"name"`
	Genre     string `json:"genre"`
	Surcharge uint64 `json:"surcharge"`
	Generator string `json:"generator"`
}

// NewCreateArtistHandler returns the handler for POST /artists.
func NewCreateArtistHandler(cat Catalog, gens generatorLookup, inv Invalidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req artistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Name == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
			return
		}
		if req.Genre == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "genre is required", nil)
			return
		}
		if _, err := gens.Lookup(req.Generator); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"generator is not registered", nil)
			return
		}

		now := time.Now().UTC()
		a := &models.Artist{
			ID:        uuid.New(),
			Name:      req.Name,
			Genre:     req.Genre,
			Surcharge: req.Surcharge,
			Generator: req.Generator,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := cat.CreateArtist(r.Context(), a); err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to create artist", nil)
			return
		}
		inv.InvalidateListing(r.Context())
		response.Created(w, a)
	}
}

// NewUpdateArtistHandler returns the handler for PUT /artists/{artistID}.
func NewUpdateArtistHandler(cat Catalog, gens generatorLookup, inv Invalidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "artistID"))
		if err != nil {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Artist not found", nil)
			return
		}

		var req artistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Name == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
			return
		}
		if req.Genre == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "genre is required", nil)
			return
		}
		if _, err := gens.Lookup(req.Generator); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"generator is not registered", nil)
			return
		}

		a, err := cat.GetArtist(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Artist not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to load artist", nil)
			return
		}

		a.Name = req.Name
		a.Genre = req.Genre
		a.Surcharge = req.Surcharge
		a.Generator = req.Generator
		if err := cat.UpdateArtist(r.Context(), a); err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to update artist", nil)
			return
		}
		inv.InvalidateListing(r.Context())
		response.JSON(w, a)
	}
}

// NewDeleteArtistHandler returns the handler for DELETE /artists/{artistID}.
func NewDeleteArtistHandler(cat Catalog, inv Invalidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "artistID"))
		if err != nil {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Artist not found", nil)
			return
		}
		if err := cat.DeleteArtist(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Artist not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to delete artist", nil)
			return
		}
		inv.InvalidateListing(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
}

// NewListGenresHandler returns the handler for GET /genres.
func NewListGenresHandler(cat Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		genres, err := cat.ListGenres(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to list genres", nil)
			return
		}
		if genres == nil {
			genres = []string{}
		}
		response.JSON(w, genres)
	}
}
