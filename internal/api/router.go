package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/tanglekit/artmarket/internal/api/middleware"
	"github.com/tanglekit/artmarket/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	ArtistList  http.HandlerFunc
	RequestArt  http.HandlerFunc
	JobStatus   http.HandlerFunc
	RetrieveArt http.HandlerFunc

	CreateArtist http.HandlerFunc
	UpdateArtist http.HandlerFunc
	DeleteArtist http.HandlerFunc
	ListGenres   http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
// The commission protocol paths are fixed; deployed clients depend on them.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.Limit)

		r.Get("/artist-list", orNotImplemented(deps.ArtistList))
		r.Get("/{artistID}/request-art", orNotImplemented(deps.RequestArt))
		r.Post("/{artistID}/request-art", orNotImplemented(deps.RequestArt))
		r.Post("/{jobID}/status", orNotImplemented(deps.JobStatus))
		r.Post("/{jobID}/retrieve-art", orNotImplemented(deps.RetrieveArt))

		r.Post("/artists", orNotImplemented(deps.CreateArtist))
		r.Put("/artists/{artistID}", orNotImplemented(deps.UpdateArtist))
		r.Delete("/artists/{artistID}", orNotImplemented(deps.DeleteArtist))
		r.Get("/genres", orNotImplemented(deps.ListGenres))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
