package ledger

import (
	"context"
	"log/slog"
	"sync"

	"tiffin/internal/core"
	"tiffin/internal/storage"
)

// Roster is the member list. Removing a member leaves historical orders
// untouched; their ids simply stop resolving to a name.
type Roster struct {
	mu      sync.Mutex
	store   storage.Store
	newID   IDGenerator
	members []core.Member
}

func NewRoster(store storage.Store, newID IDGenerator) *Roster {
	return &Roster{store: store, newID: orDefault(newID)}
}

func (r *Roster) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var members []core.Member
	if err := load(ctx, r.store, storage.KeyMembers, &members); err != nil {
		return err
	}
	if members == nil {
		members = []core.Member{}
	}
	r.members = members

	slog.InfoContext(ctx, "Members loaded", "count", len(members))
	return nil
}

func (r *Roster) List() []core.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Member{}, r.members...)
}

func (r *Roster) Get(id string) (core.Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.ID == id {
			return m, true
		}
	}
	return core.Member{}, false
}

// Names maps member ids to display names.
func (r *Roster) Names() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make(map[string]string, len(r.members))
	for _, m := range r.members {
		names[m.ID] = m.Name
	}
	return names
}

// Add appends a member with a fresh id.
func (r *Roster) Add(ctx context.Context, name string) (core.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := core.NewMember(r.newID(), name)
	if err != nil {
		return core.Member{}, err
	}

	next := make([]core.Member, len(r.members), len(r.members)+1)
	copy(next, r.members)
	next = append(next, m)

	if err := save(ctx, r.store, storage.KeyMembers, next); err != nil {
		return core.Member{}, err
	}
	r.members = next

	slog.InfoContext(ctx, "Member added", "id", m.ID, "name", m.Name)
	return m, nil
}

// Remove deletes the member with id. An unknown id is a no-op.
func (r *Roster) Remove(ctx context.Context, id string) (core.Member, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]core.Member, 0, len(r.members))
	var removed core.Member
	found := false
	for _, m := range r.members {
		if m.ID == id && !found {
			removed, found = m, true
			continue
		}
		next = append(next, m)
	}
	if !found {
		return core.Member{}, false, nil
	}

	if err := save(ctx, r.store, storage.KeyMembers, next); err != nil {
		return core.Member{}, false, err
	}
	r.members = next

	slog.InfoContext(ctx, "Member removed", "id", id)
	return removed, true, nil
}
