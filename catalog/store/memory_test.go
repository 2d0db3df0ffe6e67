package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/storemap/catalog"
)

func TestMemory_Quota(t *testing.T) {
	m := NewMemory(10)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", "1234"))
	assert.ErrorIs(t, m.Set(ctx, "b", "123456"), catalog.ErrQuotaExceeded)

	// Overwriting frees the old value first
	require.NoError(t, m.Set(ctx, "a", "123456789"))
	v, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "123456789", v)
}

func TestMemory_PutBypassesQuota(t *testing.T) {
	m := NewMemory(1)
	m.Put("big", "not limited")
	assert.Equal(t, []string{"big"}, m.Keys())

	require.NoError(t, m.Delete(context.Background(), "big"))
	assert.Empty(t, m.Keys())
}
