package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetMissingDoc(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	snap, err := store.Collection("users").Doc("ghost").Get(ctx)
	require.NoError(t, err)
	assert.False(t, snap.Exists)
	assert.Equal(t, "ghost", snap.ID)
}

func TestMemorySetAndMerge(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	ref := store.Collection("users").Doc("u1")

	require.NoError(t, ref.Set(ctx, map[string]any{"name": "Ada", "year": "2027"}))
	require.NoError(t, ref.Merge(ctx, map[string]any{"year": "2028"}))

	snap, err := ref.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", snap.Str("name"))
	assert.Equal(t, "2028", snap.Str("year"))

	// Plain Set replaces the whole document.
	require.NoError(t, ref.Set(ctx, map[string]any{"name": "Ada"}))
	snap, err = ref.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", snap.Str("year"))
}

func TestMemorySentinels(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	ref := store.Collection("users").Doc("u1")

	before := time.Now().UTC()
	require.NoError(t, ref.Set(ctx, map[string]any{
		"createdAt": ServerTimestamp,
		"count":     Increment(2),
		"roles":     []any{"student"},
	}))
	require.NoError(t, ref.Merge(ctx, map[string]any{
		"count": Increment(3),
		"roles": ArrayUnion("admin", "student"),
	}))

	snap, err := ref.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), snap.Int("count"))
	assert.False(t, snap.Time("createdAt").Before(before))
	assert.Equal(t, []any{"student", "admin"}, snap.Data["roles"])
}

func TestMemoryTransactionReadBeforeWrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	ref := store.Collection("users").Doc("u1")

	err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		tx.Set(ref, map[string]any{"name": "Ada"})
		_, err := tx.Get(ref)
		return err
	})
	assert.ErrorIs(t, err, ErrReadAfterWrite)
}

func TestMemoryTransactionAtomicity(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	ref := store.Collection("users").Doc("u1")
	require.NoError(t, ref.Set(ctx, map[string]any{"count": int64(1)}))

	// A failed callback must leave no trace of its buffered writes.
	sentinel := assert.AnError
	err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		tx.Merge(ref, map[string]any{"count": Increment(10)})
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	snap, err := ref.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Int("count"))
}

func TestMemoryPrefixQuery(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	users := store.Collection("users")

	require.NoError(t, users.Doc("a").Set(ctx, map[string]any{"nameLower": "joanna"}))
	require.NoError(t, users.Doc("b").Set(ctx, map[string]any{"nameLower": "john"}))
	require.NoError(t, users.Doc("c").Set(ctx, map[string]any{"nameLower": "mary"}))

	snaps, err := users.Where("nameLower", ">=", "jo").Where("nameLower", "<=", "jo").Documents(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "a", snaps[0].ID)
	assert.Equal(t, "b", snaps[1].ID)
}

func TestMemoryQueryOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	inbox := store.Collection("users").Doc("u1").Collection("friendRequests")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, inbox.Doc("old").Set(ctx, map[string]any{"createdAt": base}))
	require.NoError(t, inbox.Doc("mid").Set(ctx, map[string]any{"createdAt": base.Add(time.Hour)}))
	require.NoError(t, inbox.Doc("new").Set(ctx, map[string]any{"createdAt": base.Add(2 * time.Hour)}))

	snaps, err := inbox.OrderBy("createdAt", Desc).Limit(2).Documents(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "new", snaps[0].ID)
	assert.Equal(t, "mid", snaps[1].ID)
}

func TestMemorySubcollectionIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.Collection("users").Doc("u1").Set(ctx, map[string]any{"name": "Ada"}))
	require.NoError(t, store.Collection("users").Doc("u1").Collection("friends").Doc("u2").Set(ctx, map[string]any{"uid": "u2"}))

	// Subcollection documents must not leak into the parent listing.
	snaps, err := store.Collection("users").Documents(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "u1", snaps[0].ID)

	edges, err := store.Collection("users").Doc("u1").Collection("friends").Documents(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "u2", edges[0].ID)
}
