package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryOperatorRepository_GetCreatesOnce(t *testing.T) {
	repo := NewMemoryOperatorRepository()
	ctx := context.Background()

	a, err := repo.Get(ctx, 1, 100)
	require.NoError(t, err)
	b, err := repo.Get(ctx, 1, 100)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.NotSame(t, a, b)
	require.False(t, a.Subscribed)
}

func TestMemoryOperatorRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryOperatorRepository()
	ctx := context.Background()

	o, err := repo.Get(ctx, 1, 100)
	require.NoError(t, err)
	o.SetSubscribed(true)

	subs, err := repo.Subscribed(ctx)
	require.NoError(t, err)
	require.Empty(t, subs)

	require.NoError(t, repo.Save(ctx, o))
	subs, err = repo.Subscribed(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
}

func TestMemoryOperatorRepository_Subscribed(t *testing.T) {
	repo := NewMemoryOperatorRepository()
	ctx := context.Background()

	for _, id := range []int64{3, 1, 2} {
		_, err := repo.SetSubscribed(ctx, id, id*10, id != 2)
		require.NoError(t, err)
	}

	subs, err := repo.Subscribed(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, int64(1), subs[0].ID)
	require.Equal(t, int64(3), subs[1].ID)
	require.Equal(t, int64(30), subs[1].ChatID)
}

func TestMemoryOperatorRepository_ConcurrentSubscribeAndList(t *testing.T) {
	repo := NewMemoryOperatorRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_, err := repo.SetSubscribed(ctx, 1, 1, i%2 == 0)
			require.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			subs, err := repo.Subscribed(ctx)
			require.NoError(t, err)
			for _, o := range subs {
				require.True(t, o.Subscribed)
			}
		}
	}()
	wg.Wait()

	o, err := repo.Get(ctx, 1, 1)
	require.NoError(t, err)
	require.False(t, o.Subscribed)
}
