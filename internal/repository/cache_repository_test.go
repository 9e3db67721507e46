package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vozsegura-api/pkg/cache"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
)

func TestLocalCacheRepositoryRoundTrip(t *testing.T) {
	repo := NewLocalCacheRepository(cache.NewLocal(100))
	defer repo.Close()
	ctx := context.Background()

	var out []string
	assert.ErrorIs(t, repo.Get(ctx, "catalogo:facultades", &out), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "catalogo:facultades", []string{"Ingeniería"}, time.Minute))
	require.NoError(t, repo.Get(ctx, "catalogo:facultades", &out))
	assert.Equal(t, []string{"Ingeniería"}, out)
}

func TestLocalCacheRepositoryDeleteByPattern(t *testing.T) {
	repo := NewLocalCacheRepository(cache.NewLocal(100))
	defer repo.Close()
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "catalogo:facultades", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "catalogo:recursos", 2, time.Minute))
	require.NoError(t, repo.Set(ctx, "denuncias:estadisticas", 3, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "catalogo:*"))

	var n int
	assert.ErrorIs(t, repo.Get(ctx, "catalogo:facultades", &n), appErrors.ErrCacheMiss)
	assert.ErrorIs(t, repo.Get(ctx, "catalogo:recursos", &n), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Get(ctx, "denuncias:estadisticas", &n))
	assert.Equal(t, 3, n)
}

func TestNamespaceOf(t *testing.T) {
	assert.Equal(t, "catalogo", namespaceOf("catalogo:facultades"))
	assert.Equal(t, "catalogo", namespaceOf("catalogo:"))
	assert.Equal(t, "plain", namespaceOf("plain"))
	assert.Equal(t, "gen:catalogo", generationKey("catalogo"))
}
