package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/scriptguard/internal/common"
	"github.com/dmitrijs2005/scriptguard/internal/dbx"
	"github.com/dmitrijs2005/scriptguard/internal/server/models"
	"github.com/dmitrijs2005/scriptguard/internal/server/repositories/admins"
	"github.com/dmitrijs2005/scriptguard/internal/server/repositories/apikeys"
	"github.com/dmitrijs2005/scriptguard/internal/server/repositories/executions"
	"github.com/dmitrijs2005/scriptguard/internal/server/repositories/keys"
	"github.com/dmitrijs2005/scriptguard/internal/server/repositories/projects"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// fakeRepoManager hands out the same in-memory repositories regardless of
// the DBTX, so transactional code paths see one shared state.
type fakeRepoManager struct {
	keys       *keys.MemoryRepository
	projects   *fakeProjects
	admins     *fakeAdmins
	apikeys    *fakeAPIKeys
	executions *fakeExecutions
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		keys:       keys.NewMemoryRepository(),
		projects:   &fakeProjects{items: map[string]*models.Project{}},
		admins:     &fakeAdmins{items: map[string]*models.Admin{}, grants: map[[2]string]bool{}},
		apikeys:    &fakeAPIKeys{items: map[string]*models.APIKey{}},
		executions: &fakeExecutions{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Keys(dbx.DBTX) keys.Repository                { return m.keys }
func (m *fakeRepoManager) Projects(dbx.DBTX) projects.Repository        { return m.projects }
func (m *fakeRepoManager) Admins(dbx.DBTX) admins.Repository            { return m.admins }
func (m *fakeRepoManager) APIKeys(dbx.DBTX) apikeys.Repository          { return m.apikeys }
func (m *fakeRepoManager) Executions(dbx.DBTX) executions.Repository    { return m.executions }

type fakeProjects struct {
	mu      sync.Mutex
	items   map[string]*models.Project
	seq     int
	failGet error
}

func (r *fakeProjects) Create(_ context.Context, p *models.Project) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[p.ID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	r.seq++
	cp := *p
	cp.CreatedAt = time.Unix(int64(r.seq), 0).UTC()
	r.items[p.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeProjects) Get(_ context.Context, id string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	p, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProjects) GetOldest(ctx context.Context) (*models.Project, error) {
	r.mu.Lock()
	var oldest *models.Project
	for _, p := range r.items {
		if oldest == nil || p.CreatedAt.Before(oldest.CreatedAt) {
			oldest = p
		}
	}
	r.mu.Unlock()
	if oldest == nil {
		return nil, common.ErrorNotFound
	}
	return r.Get(ctx, oldest.ID)
}

func (r *fakeProjects) ListByAuthor(_ context.Context, authorID string) ([]*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Project
	for _, p := range r.items {
		if p.AuthorID == authorID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeProjects) Update(_ context.Context, p *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[p.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *fakeProjects) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.items, id)
	return nil
}

type fakeAdmins struct {
	items  map[string]*models.Admin
	grants map[[2]string]bool
}

func (r *fakeAdmins) Get(_ context.Context, id string) (*models.Admin, error) {
	a, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (r *fakeAdmins) Upsert(_ context.Context, a *models.Admin) error {
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *fakeAdmins) Delete(_ context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.items, id)
	for g := range r.grants {
		if g[1] == id {
			delete(r.grants, g)
		}
	}
	return nil
}

func (r *fakeAdmins) IsProjectAdmin(_ context.Context, projectID, adminID string) (bool, error) {
	return r.grants[[2]string{projectID, adminID}], nil
}

func (r *fakeAdmins) AddProjectAdmin(_ context.Context, projectID, adminID string) error {
	r.grants[[2]string{projectID, adminID}] = true
	return nil
}

func (r *fakeAdmins) DeleteProjectAdmins(_ context.Context, projectID string) error {
	for g := range r.grants {
		if g[0] == projectID {
			delete(r.grants, g)
		}
	}
	return nil
}

type fakeAPIKeys struct {
	items map[string]*models.APIKey
}

func (r *fakeAPIKeys) Create(_ context.Context, k *models.APIKey) (*models.APIKey, error) {
	cp := *k
	cp.CreatedAt = time.Now()
	r.items[k.ID] = &cp
	return &cp, nil
}

func (r *fakeAPIKeys) ListByCreator(_ context.Context, creatorID string) ([]*models.APIKey, error) {
	var out []*models.APIKey
	for _, k := range r.items {
		if k.CreatorID == creatorID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *fakeAPIKeys) Delete(_ context.Context, projectID, id string) error {
	k, ok := r.items[id]
	if !ok || k.ProjectID != projectID {
		return common.ErrorNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeAPIKeys) DeleteByProject(_ context.Context, projectID string) error {
	for id, k := range r.items {
		if k.ProjectID == projectID {
			delete(r.items, id)
		}
	}
	return nil
}

type fakeExecutions struct {
	mu    sync.Mutex
	items []*models.Execution
	err   error
}

func (r *fakeExecutions) Create(_ context.Context, e *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.items = append(r.items, e)
	return nil
}

func (r *fakeExecutions) Count(_ context.Context, projectID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.items {
		if e.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (r *fakeExecutions) List(_ context.Context, projectID string, limit int) ([]*models.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Execution
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		if r.items[i].ProjectID == projectID {
			out = append(out, r.items[i])
		}
	}
	return out, nil
}

func (r *fakeExecutions) DeleteByProject(_ context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	for _, e := range r.items {
		if e.ProjectID != projectID {
			kept = append(kept, e)
		}
	}
	r.items = kept
	return nil
}
