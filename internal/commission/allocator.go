package commission

import (
	"context"
	"fmt"

	"github.com/tanglekit/artmarket/internal/store"
	"github.com/tanglekit/artmarket/internal/tangle"
)

// Allocator issues payment addresses, one per commission. Index reservation
// is the store's atomic increment, so concurrent allocations never collide.
// The counter advances before the address is derived: a failed derivation
// leaves an orphaned index, which is an acceptable gap, never a reused index.
type Allocator struct {
	store  store.Store
	tangle tangle.Client
}

func NewAllocator(st store.Store, tc tangle.Client) *Allocator {
	return &Allocator{store: st, tangle: tc}
}

// Allocate reserves the next address index and derives its address.
func (a *Allocator) Allocate(ctx context.Context) (string, uint64, error) {
	index, err := a.store.NextAddrIndex(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("reserving address index: %w", err)
	}

	addr, err := a.tangle.AllocateAddress(ctx, index)
	if err != nil {
		// Index stays burned; see policy above.
		return "", 0, fmt.Errorf("deriving address for index %d: %w", index, err)
	}
	return addr, index, nil
}
