package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-server/logger"
	"chat-server/models"
	"chat-server/repository"
)

func newCensorFixture(t *testing.T) (*CensorService, *stubHub) {
	t.Helper()
	hub := &stubHub{}
	svc := NewCensorService(repository.NewInMemoryWordRepo(), hub, logger.Get())
	require.NoError(t, svc.Load(context.Background()))
	return svc, hub
}

func TestCensorAddLowercasesAndBroadcasts(t *testing.T) {
	svc, hub := newCensorFixture(t)
	ctx := context.Background()

	w, err := svc.Add(ctx, "  BadWord ", "alice")
	require.NoError(t, err)
	assert.Equal(t, "badword", w.Word)
	assert.Equal(t, []string{"badword"}, svc.Words())
	require.NotEmpty(t, hub.events)
	assert.Equal(t, "words:1", hub.events[len(hub.events)-1])
}

func TestCensorAddDuplicate(t *testing.T) {
	svc, _ := newCensorFixture(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "badword", "alice")
	require.NoError(t, err)
	_, err = svc.Add(ctx, "BADWORD", "bob")
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestCensorAddRejectsPhrases(t *testing.T) {
	svc, _ := newCensorFixture(t)
	_, err := svc.Add(context.Background(), "two words", "alice")
	assert.Error(t, err)
}

func TestCensorRemove(t *testing.T) {
	svc, hub := newCensorFixture(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "badword", "alice")
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, "badword"))
	assert.Empty(t, svc.Words())
	assert.Equal(t, "words:0", hub.events[len(hub.events)-1])

	err = svc.Remove(ctx, "badword")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCensorMaskContentUsesActiveSet(t *testing.T) {
	svc, _ := newCensorFixture(t)
	ctx := context.Background()

	assert.Equal(t, "clean text", svc.MaskContent("clean text"))

	_, err := svc.Add(ctx, "badword", "alice")
	require.NoError(t, err)
	masked := svc.MaskContent("this contains BADWORD here")
	assert.NotContains(t, masked, "BADWORD")
}

func TestCensorReloadBroadcastsSnapshot(t *testing.T) {
	svc, hub := newCensorFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Reload(ctx))
	assert.Equal(t, "words:0", hub.events[len(hub.events)-1])
}
