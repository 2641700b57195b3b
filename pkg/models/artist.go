package models

import (
	"time"

	"github.com/google/uuid"
)

// Artist is a registered generator that produces artwork on commission.
// AverageDuration is nil until at least one commission has completed;
// pricing falls back to a flat default cost in that case.
type Artist struct {
	ID              uuid.UUID      `db:"id"               json:"id"`
	Name            string         `db:"name"             json:"name"`
	Genre           string         `db:"genre"            json:"genre"`
	AverageDuration *time.Duration `db:"average_duration" json:"average_duration,omitempty"`
	Surcharge       uint64         `db:"surcharge"        json:"surcharge"`
	Generator       string         `db:"generator"        json:"generator"`
	CreatedAt       time.Time      `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"       json:"updated_at"`
}

// ArtistListing is the public wire shape served by GET /artist-list.
// Surcharge and average duration are folded into a single cost so clients
// never see the pricing inputs.
type ArtistListing struct {
	ID    uuid.UUID `json:"id"`
	Cost  uint64    `json:"cost"`
	Genre string    `json:"genre_name"`
}
