package ledger

import (
	"context"

	"golang.org/x/sync/errgroup"

	"tiffin/internal/core"
	"tiffin/internal/storage"
)

// Snapshot is a read-only view of both collections taken straight from the
// store, for readers that do not own a Ledger.
type Snapshot struct {
	Orders  []core.TiffinOrder
	Members []core.Member
}

// ReadSnapshot loads orders and members concurrently.
func ReadSnapshot(ctx context.Context, store storage.Store) (Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return load(ctx, store, storage.KeyOrders, &snap.Orders)
	})
	g.Go(func() error {
		return load(ctx, store, storage.KeyMembers, &snap.Members)
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
