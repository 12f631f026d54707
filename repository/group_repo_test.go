package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-server/models"
)

func TestGroupCreateDuplicateName(t *testing.T) {
	repo := NewInMemoryGroupRepo()
	ctx := context.Background()

	_, err := repo.Create(ctx, "devs", "alice")
	require.NoError(t, err)

	_, err = repo.Create(ctx, "devs", "bob")
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestGroupCreatorIsMember(t *testing.T) {
	repo := NewInMemoryGroupRepo()
	g, err := repo.Create(context.Background(), "devs", "alice")
	require.NoError(t, err)
	assert.True(t, g.HasMember("alice"))
	assert.Len(t, g.Members, 1)
}

func TestGroupJoinIdempotent(t *testing.T) {
	repo := NewInMemoryGroupRepo()
	ctx := context.Background()
	g, err := repo.Create(ctx, "devs", "alice")
	require.NoError(t, err)

	first, err := repo.AddMember(ctx, g.ID, "bob")
	require.NoError(t, err)
	again, err := repo.AddMember(ctx, g.ID, "bob")
	require.NoError(t, err)

	assert.Equal(t, first.Members, again.Members)
	assert.Len(t, again.Members, 2)
}

func TestGroupConcurrentJoinsNeverDuplicate(t *testing.T) {
	repo := NewInMemoryGroupRepo()
	ctx := context.Background()
	g, err := repo.Create(ctx, "devs", "alice")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.AddMember(ctx, g.ID, "bob")
		}()
	}
	wg.Wait()

	got, err := repo.FindByID(ctx, g.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, got.Members)
}

func TestGroupJoinUnknownGroup(t *testing.T) {
	repo := NewInMemoryGroupRepo()
	_, err := repo.AddMember(context.Background(), "missing", "bob")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
