package commission

import (
	"github.com/tanglekit/artmarket/internal/config"
	"github.com/tanglekit/artmarket/pkg/models"
)

// Cost quotes a commission for one artist. An artist with no recorded average
// duration is priced at the flat default; otherwise the time component is the
// average generation time in seconds times the per-second rate. The surcharge
// is always added on top.
func Cost(artist *models.Artist, pricing config.PricingConfig) uint64 {
	if artist.AverageDuration == nil {
		return artist.Surcharge + pricing.DefaultCost
	}
	return artist.Surcharge + uint64(artist.AverageDuration.Seconds()*float64(pricing.TimeCostPerSecond))
}
