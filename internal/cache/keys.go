package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func ArtistListingKey() string {
	return "artists:listing"
}

func JobStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s", jobID)
}

func RateLimitKey(host string) string {
	return fmt.Sprintf("ratelimit:%s", host)
}
