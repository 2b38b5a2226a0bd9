package vectorstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/gorm"
)

func TestPoolReusesStorePerTenant(t *testing.T) {
	opens := 0
	pool := NewPool(func(string) (*gorm.DB, error) {
		opens++
		return &gorm.DB{}, nil
	})

	a1, err := pool.Get("acme")
	require.NoError(t, err)
	a2, err := pool.Get("acme")
	require.NoError(t, err)
	assert.Same(t, a1, a2, "one store per tenant")
	assert.Equal(t, 1, opens)

	b, err := pool.Get("globex")
	require.NoError(t, err)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, opens)

	assert.ElementsMatch(t, []string{"acme", "globex"}, pool.Tenants())
}

func TestPoolPropagatesOpenFailure(t *testing.T) {
	pool := NewPool(func(string) (*gorm.DB, error) {
		return nil, errors.New("connection refused")
	})

	_, err := pool.Get("acme")
	require.Error(t, err)
	assert.Empty(t, pool.Tenants(), "failed opens are not cached")
}

func TestSharedDBHandsOutSameHandle(t *testing.T) {
	db := &gorm.DB{}
	open := SharedDB(db)

	got1, err := open("acme")
	require.NoError(t, err)
	got2, err := open("globex")
	require.NoError(t, err)
	assert.Same(t, db, got1)
	assert.Same(t, got1, got2)

	pool := NewPool(open)
	a, err := pool.Get("acme")
	require.NoError(t, err)
	g, err := pool.Get("globex")
	require.NoError(t, err)
	// Distinct stores over a shared handle: isolation is per table.
	assert.NotSame(t, a, g)
	assert.Same(t, a.db, g.db)
}
