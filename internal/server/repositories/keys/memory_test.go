package keys

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/scriptguard/internal/common"
	"github.com/dmitrijs2005/scriptguard/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_BindOnce(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository(&models.Key{ProjectID: "p1", Key: "K1", Type: models.KeyTypePermanent})

	ok, err := r.BindFingerprint(ctx, "K1", "fp-A")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.BindFingerprint(ctx, "K1", "fp-B")
	require.NoError(t, err)
	assert.False(t, ok)

	k, err := r.GetByKey(ctx, "K1")
	require.NoError(t, err)
	assert.Equal(t, "fp-A", k.BoundFingerprint)
}

func TestMemoryRepository_ConcurrentBind(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository(&models.Key{ProjectID: "p1", Key: "K1", Type: models.KeyTypePermanent})

	const n = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := r.BindFingerprint(ctx, "K1", string(rune('a'+i)))
			if err == nil && ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestMemoryRepository_ScopedByProject(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository(&models.Key{ProjectID: "p1", Key: "K1", BoundFingerprint: "fp", Executor: "x"})

	assert.ErrorIs(t, r.ResetFingerprint(ctx, "p2", "K1"), common.ErrorNotFound)
	assert.ErrorIs(t, r.Delete(ctx, "p2", "K1"), common.ErrorNotFound)

	require.NoError(t, r.ResetFingerprint(ctx, "p1", "K1"))
	k, err := r.GetByKey(ctx, "K1")
	require.NoError(t, err)
	assert.False(t, k.Bound())
	assert.Empty(t, k.Executor)

	require.NoError(t, r.UpdateNote(ctx, "p1", "K1", "  vip "))
	k, _ = r.GetByKey(ctx, "K1")
	assert.Equal(t, "vip", k.Note)

	require.NoError(t, r.Delete(ctx, "p1", "K1"))
	_, err = r.GetByKey(ctx, "K1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	require.NoError(t, r.Create(ctx, &models.Key{ProjectID: "p1", Key: "K1"}))
	assert.ErrorIs(t, r.Create(ctx, &models.Key{ProjectID: "p1", Key: "K1"}), common.ErrorAlreadyExists)

	require.NoError(t, r.Create(ctx, &models.Key{ProjectID: "p1", Key: "K0"}))
	list, err := r.ListByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "K0", list[0].Key)
}
