// internal/browser/session/context_utils_test.go
package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey string

const tabKey ctxKey = "tab"

func TestCombineContext(t *testing.T) {
	t.Run("InheritsValuesFromPrimary", func(t *testing.T) {
		ctx1 := context.WithValue(context.Background(), tabKey, "t1")
		combinedCtx, cancel := CombineContext(ctx1, context.Background())
		defer cancel()

		assert.Equal(t, "t1", combinedCtx.Value(tabKey))
		assert.NoError(t, combinedCtx.Err())
	})

	t.Run("CancelledByPrimary", func(t *testing.T) {
		ctx1, cancel1 := context.WithCancel(context.Background())
		combinedCtx, cancelCombined := CombineContext(ctx1, context.Background())
		defer cancelCombined()

		cancel1()
		assert.ErrorIs(t, combinedCtx.Err(), context.Canceled, "cancellation of the parent is synchronous")
	})

	t.Run("CancelledBySecondary", func(t *testing.T) {
		ctx2, cancel2 := context.WithCancel(context.Background())
		combinedCtx, cancelCombined := CombineContext(context.Background(), ctx2)
		defer cancelCombined()

		cancel2()
		assert.Eventually(t, func() bool {
			return combinedCtx.Err() != nil
		}, time.Second, 5*time.Millisecond)
		assert.ErrorIs(t, combinedCtx.Err(), context.Canceled)
	})

	t.Run("SecondaryDeadlineEndsCombined", func(t *testing.T) {
		ctx1, cancel1 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel1()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel2()

		combinedCtx, cancelCombined := CombineContext(ctx1, ctx2)
		defer cancelCombined()

		<-combinedCtx.Done()
		assert.ErrorIs(t, ctx2.Err(), context.DeadlineExceeded)
		// The combined context is canceled by the watcher, not by its own deadline.
		assert.ErrorIs(t, combinedCtx.Err(), context.Canceled)
	})

	t.Run("DeadlineFromPrimary", func(t *testing.T) {
		deadline := time.Now().Add(time.Minute)
		ctx1, cancel1 := context.WithDeadline(context.Background(), deadline)
		defer cancel1()

		combinedCtx, cancelCombined := CombineContext(ctx1, context.Background())
		defer cancelCombined()

		got, ok := combinedCtx.Deadline()
		require.True(t, ok)
		assert.True(t, got.Equal(deadline))
	})
}

func TestDetach(t *testing.T) {
	parentCtx, cancelParent := context.WithTimeout(context.WithValue(context.Background(), tabKey, "t2"), time.Minute)
	detachedCtx := Detach(parentCtx)
	cancelParent()

	assert.ErrorIs(t, parentCtx.Err(), context.Canceled)
	assert.Equal(t, "t2", detachedCtx.Value(tabKey))
	assert.NoError(t, detachedCtx.Err())
	assert.Nil(t, detachedCtx.Done())
	_, ok := detachedCtx.Deadline()
	assert.False(t, ok)

	derived, cancelDerived := context.WithTimeout(detachedCtx, 10*time.Millisecond)
	defer cancelDerived()
	<-derived.Done()
	assert.ErrorIs(t, derived.Err(), context.DeadlineExceeded, "derived contexts keep their own deadline")
}
