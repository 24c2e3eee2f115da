package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanOut_ErrorsFollowItemOrder(t *testing.T) {
	boom := errors.New("boom")

	var calls atomic.Int32

	errs := fanOut(context.Background(), 2, []string{"a", "b", "c"}, func(_ context.Context, s string) error {
		calls.Add(1)
		if s == "b" {
			return boom
		}

		return nil
	})

	require.Len(t, errs, 3)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], boom)
	assert.NoError(t, errs[2])
	assert.Equal(t, int32(3), calls.Load())
}

func TestFanOut_BoundsInFlight(t *testing.T) {
	tests := []struct {
		name    string
		limit   int
		wantMax int32
	}{
		{name: "limit two", limit: 2, wantMax: 2},
		{name: "non-positive limit runs serially", limit: 0, wantMax: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inFlight, peak atomic.Int32

			items := make([]int, 8)

			errs := fanOut(context.Background(), tt.limit, items, func(context.Context, int) error {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}

				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)

				return nil
			})

			assert.Len(t, errs, 8)
			assert.LessOrEqual(t, peak.Load(), tt.wantMax)
		})
	}
}

func TestFanOut_NoItems(t *testing.T) {
	errs := fanOut(context.Background(), 4, nil, func(context.Context, int) error {
		t.Fatal("unexpected call")
		return nil
	})

	assert.Empty(t, errs)
}
