package keys

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/scriptguard/internal/common"
	"github.com/dmitrijs2005/scriptguard/internal/server/models"
)

// MemoryRepository is an in-process Repository. The bind is performed under
// a single mutex, matching the conditional UPDATE of the Postgres store.
type MemoryRepository struct {
	mu   sync.Mutex
	keys map[string]models.Key
}

func NewMemoryRepository(seed ...*models.Key) *MemoryRepository {
	r := &MemoryRepository{keys: make(map[string]models.Key, len(seed))}
	for _, k := range seed {
		r.keys[k.Key] = *k
	}
	return r
}

func (r *MemoryRepository) Create(_ context.Context, k *models.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keys[k.Key]; ok {
		return common.ErrorAlreadyExists
	}
	r.keys[k.Key] = *k
	return nil
}

func (r *MemoryRepository) GetByKey(_ context.Context, key string) (*models.Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.keys[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &k, nil
}

func (r *MemoryRepository) ListByProject(_ context.Context, projectID string) ([]*models.Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Key
	for _, k := range r.keys {
		if k.ProjectID == projectID {
			k := k
			out = append(out, &k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *MemoryRepository) BindFingerprint(_ context.Context, key, fingerprint string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.keys[key]
	if !ok || k.Bound() {
		return false, nil
	}
	k.BoundFingerprint = fingerprint
	r.keys[key] = k
	return true, nil
}

func (r *MemoryRepository) ResetFingerprint(_ context.Context, projectID, key string) error {
	return r.update(projectID, key, func(k *models.Key) {
		k.BoundFingerprint = ""
		k.Executor = ""
	})
}

func (r *MemoryRepository) UpdateNote(_ context.Context, projectID, key, note string) error {
	return r.update(projectID, key, func(k *models.Key) {
		k.Note = strings.TrimSpace(note)
	})
}

func (r *MemoryRepository) Delete(_ context.Context, projectID, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.keys[key]
	if !ok || k.ProjectID != projectID {
		return common.ErrorNotFound
	}
	delete(r.keys, key)
	return nil
}

func (r *MemoryRepository) DeleteByProject(_ context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, k := range r.keys {
		if k.ProjectID == projectID {
			delete(r.keys, key)
		}
	}
	return nil
}

func (r *MemoryRepository) update(projectID, key string, fn func(*models.Key)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.keys[key]
	if !ok || k.ProjectID != projectID {
		return common.ErrorNotFound
	}
	fn(&k)
	r.keys[key] = k
	return nil
}
