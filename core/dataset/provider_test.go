package dataset

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"circularity-gap/core/types"
	"circularity-gap/internal/fixture"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoad(t *testing.T) {
	p := &fixture.Provider{}
	ds, err := Load(context.Background(), p, 3)
	require.NoError(t, err)

	assert.Equal(t, "memory://fixture", ds.Source)
	assert.Len(t, ds.Tables, len(types.AllTables()))
	for _, name := range types.AllTables() {
		assert.Equal(t, 1, p.Loads(name), name)
		require.NotNil(t, ds.Tables[name], name)
	}
	assert.Equal(t, 2, ds.Population.Len())

	countries, err := ds.Countries()
	require.NoError(t, err)
	assert.Equal(t, []string{"AA", "BB"}, countries)
}

func TestLoadPropagatesFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	p := &fixture.Provider{Fail: types.WasteUse, Err: boom}

	_, err := Load(context.Background(), p, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "load WU_ACT")
}

func TestCachedProvider(t *testing.T) {
	inner := &fixture.Provider{}
	cached, err := NewCachedProvider(inner, 4)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("repeat loads hit the cache", func(t *testing.T) {
		first, err := cached.Load(ctx, types.ResourceExtraction)
		require.NoError(t, err)
		second, err := cached.Load(ctx, types.ResourceExtraction)
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, 1, inner.Loads(types.ResourceExtraction))
	})

	t.Run("concurrent loads share one read", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := cached.Load(ctx, types.Emissions)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.LessOrEqual(t, inner.Loads(types.Emissions), 8)
		assert.GreaterOrEqual(t, inner.Loads(types.Emissions), 1)

		_, err := cached.Load(ctx, types.Emissions)
		require.NoError(t, err)
		before := inner.Loads(types.Emissions)
		_, err = cached.Load(ctx, types.Emissions)
		require.NoError(t, err)
		assert.Equal(t, before, inner.Loads(types.Emissions))
	})

	t.Run("eviction beyond capacity", func(t *testing.T) {
		cached.Purge()
		for _, name := range types.AllTables() {
			_, err := cached.Load(ctx, name)
			require.NoError(t, err)
		}
		assert.Equal(t, 4, cached.Len())
	})

	t.Run("population loaded once", func(t *testing.T) {
		a, err := cached.LoadPopulation(ctx)
		require.NoError(t, err)
		b, err := cached.LoadPopulation(ctx)
		require.NoError(t, err)
		assert.Same(t, a, b)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		failing := &fixture.Provider{Fail: types.StockDepletion, Err: errors.New("nope")}
		c, err := NewCachedProvider(failing, 0)
		require.NoError(t, err)

		_, err = c.Load(ctx, types.StockDepletion)
		require.Error(t, err)
		_, err = c.Load(ctx, types.StockDepletion)
		require.Error(t, err)
		assert.Equal(t, 2, failing.Loads(types.StockDepletion))
		assert.Equal(t, 0, c.Len())
	})

	assert.Equal(t, "memory://fixture", cached.Source())
}
