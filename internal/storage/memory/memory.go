package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tiffin/internal/core"
	"tiffin/internal/storage"
)

// Store is a process-local storage.Store. Nothing survives a restart.
type Store struct {
	mu     sync.Mutex
	values map[string]string
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{values: map[string]string{}}
}

// NewFromFiles seeds the store from base. A members.json or orders.json file
// is loaded verbatim under its key; otherwise seed_members.txt, one name per
// line, becomes the initial member list.
func NewFromFiles(base string) *Store {
	s := New()
	for _, key := range []string{storage.KeyMembers, storage.KeyOrders} {
		data, err := os.ReadFile(filepath.Join(base, key+".json"))
		if err == nil && json.Valid(data) {
			s.values[key] = string(data)
		}
	}
	if _, ok := s.values[storage.KeyMembers]; !ok {
		names := readLines(filepath.Join(base, "seed_members.txt"))
		if len(names) > 0 {
			members := make([]core.Member, 0, len(names))
			for _, n := range names {
				members = append(members, core.Member{ID: uuid.NewString(), Name: n})
			}
			if data, err := json.Marshal(members); err == nil {
				s.values[storage.KeyMembers] = string(data)
			}
		}
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupeSorted(out)
}

func dedupeSorted(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
