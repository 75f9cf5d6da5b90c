//go:build integration

package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/adwatch"
	"github.com/fwojciec/adwatch/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLedger(t *testing.T) *postgres.SeenAdLedger {
	t.Helper()
	dsn := os.Getenv("ADWATCH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ADWATCH_TEST_POSTGRES_DSN not set")
	}
	ledger, err := postgres.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func TestSeenAdLedger(t *testing.T) {
	ledger := openLedger(t)
	ctx := context.Background()
	// A subscriber ID unique to this run keeps repeated runs independent.
	sub := time.Now().UnixNano()

	t.Run("marks and reports seen ads", func(t *testing.T) {
		price := 100
		require.NoError(t, ledger.MarkSeen(ctx, sub, []*adwatch.Ad{{ID: 1, Price: &price}, {ID: 2}}))

		seen, err := ledger.SeenAds(ctx, sub, []int64{1, 2, 3})

		require.NoError(t, err)
		assert.Equal(t, map[int64]bool{1: true, 2: true}, seen)
	})

	t.Run("duplicate marks are absorbed", func(t *testing.T) {
		var wg sync.WaitGroup
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, ledger.MarkSeen(ctx, sub, []*adwatch.Ad{{ID: 1}, {ID: 9}}))
			}()
		}
		wg.Wait()

		seen, err := ledger.SeenAds(ctx, sub, []int64{1, 9})
		require.NoError(t, err)
		assert.Len(t, seen, 2)
	})
}
