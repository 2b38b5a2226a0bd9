package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuagent-be/internal/entity"
)

func TestSessionSaveAndGet(t *testing.T) {
	repo := NewSessionRepository()

	repo.Save(&entity.ChatSession{
		Id:       "s1",
		ThreadId: "t1",
		UserId:   "u1",
		Tenant:   "acme",
	})

	got, found := repo.Get("s1")
	require.True(t, found)
	assert.Equal(t, "t1", got.ThreadId)
	assert.Equal(t, "acme", got.Tenant)
	assert.False(t, got.LastActiveAt.IsZero(), "save stamps activity time")
}

func TestSessionGetMissing(t *testing.T) {
	repo := NewSessionRepository()

	got, found := repo.Get("nope")
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestSessionTouchRefreshesActivity(t *testing.T) {
	repo := NewSessionRepository()

	session := &entity.ChatSession{Id: "s1"}
	repo.Save(session)
	first := session.LastActiveAt

	time.Sleep(5 * time.Millisecond)
	repo.Touch("s1")

	got, found := repo.Get("s1")
	require.True(t, found)
	assert.True(t, got.LastActiveAt.After(first))

	// Touching an unknown session must not create one.
	repo.Touch("ghost")
	_, found = repo.Get("ghost")
	assert.False(t, found)
}

func TestSessionDelete(t *testing.T) {
	repo := NewSessionRepository()

	repo.Save(&entity.ChatSession{Id: "s1"})
	repo.Delete("s1")

	_, found := repo.Get("s1")
	assert.False(t, found)
}
