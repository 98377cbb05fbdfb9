package activity

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type Repo interface {
	Add(ctx context.Context, entry *Entry) (*Entry, error)
	ListRecent(ctx context.Context, email string, limit int) ([]Entry, error)
}

var (
	_ Repo = (*PsqlRepo)(nil)
	_ Repo = (*MemoryRepo)(nil)
)

// MemoryRepo keeps the activity log in process. Used in tests, and when
// running without postgres.
type MemoryRepo struct {
	mu      sync.Mutex
	nextID  int
	entries []Entry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		nextID: 1,
	}
}

func (r *MemoryRepo) Add(_ context.Context, entry *Entry) (*Entry, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	added := *entry
	added.ID = r.nextID
	added.Email = normalizeEmail(entry.Email)
	r.nextID++
	r.entries = append(r.entries, added)
	return &added, nil
}

func (r *MemoryRepo) ListRecent(_ context.Context, email string, limit int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email = normalizeEmail(email)
	var found []Entry
	for _, e := range r.entries {
		if e.Email == email {
			found = append(found, e)
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].CreatedAt.Equal(found[j].CreatedAt) {
			return found[i].ID > found[j].ID
		}
		return found[i].CreatedAt.After(found[j].CreatedAt)
	})

	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
