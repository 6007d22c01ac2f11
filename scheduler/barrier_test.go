package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum-optimism/infra/op-lanes/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrierAwaitWithNothingRegistered(t *testing.T) {
	b := NewBarrier()
	require.NoError(t, b.Await(context.Background()))
	assert.Equal(t, 1, b.Phase())
}

func TestBarrierReleasesAfterAllArrive(t *testing.T) {
	b := NewBarrier()
	t1 := b.Register()
	t2 := b.Register()

	released := make(chan error, 1)
	go func() { released <- b.Await(context.Background()) }()

	require.NoError(t, b.Arrive(t1))
	select {
	case <-released:
		t.Fatal("Await returned before every party arrived")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, b.Arrive(t2))
	select {
	case err := <-released:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Await did not return after every party arrived")
	}
}

func TestBarrierEarlyArrivalsDoNotReleaseUnsealedPhase(t *testing.T) {
	b := NewBarrier()
	tok := b.Register()
	require.NoError(t, b.Arrive(tok))

	// registered == arrived, but more parties may still register before Await
	late := b.Register()
	registered, arrived := b.Counts()
	assert.Equal(t, 2, registered)
	assert.Equal(t, 1, arrived)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = b.Arrive(late)
	}()
	require.NoError(t, b.Await(context.Background()))
}

func TestBarrierRejectsDuplicateArrival(t *testing.T) {
	b := NewBarrier()
	tok := b.Register()
	require.NoError(t, b.Arrive(tok))
	assert.Error(t, b.Arrive(tok))
	assert.Error(t, b.Arrive(Token{}))
}

func TestBarrierPhasesAreIndependent(t *testing.T) {
	b := NewBarrier()
	first := b.Register()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.Await(ctx)
	require.ErrorIs(t, err, types.ErrInterruptedWait)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the abandoned phase's late arrival does not count towards the next phase
	second := b.Register()
	require.NoError(t, b.Arrive(first))
	registered, arrived := b.Counts()
	assert.Equal(t, 1, registered)
	assert.Equal(t, 0, arrived)

	require.NoError(t, b.Arrive(second))
	require.NoError(t, b.Await(context.Background()))
}
