package loop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_DrainOrder(t *testing.T) {
	l := New()
	var got []int
	for i := 0; i < 3; i++ {
		l.Post(func() { got = append(got, i) })
	}
	require.Equal(t, 3, l.Pending())

	n := l.Drain()
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.Zero(t, l.Pending())
}

func TestLoop_DrainRunsNestedPosts(t *testing.T) {
	l := New()
	var got []string
	l.Post(func() {
		got = append(got, "outer")
		l.Post(func() { got = append(got, "inner") })
	})
	l.Drain()
	assert.Equal(t, []string{"outer", "inner"}, got)
}

func TestLoop_PostAfterClose(t *testing.T) {
	l := New()
	l.Post(func() { t.Fatal("queued task ran after Close") })
	l.Close()
	assert.False(t, l.Post(func() {}))
	assert.Zero(t, l.Drain())
	assert.ErrorIs(t, l.Run(context.Background()), ErrClosed)
}

func TestGo_CompletesOnLoop(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var result int
	var done bool
	Go(l, ctx, func(context.Context) (int, error) {
		return 42, nil
	}, func(v int, err error) {
		require.NoError(t, err)
		result = v
		done = true
	})

	require.NoError(t, l.RunUntil(ctx, func() bool { return done }))
	assert.Equal(t, 42, result)
}

func TestGo_DiscardWhenClosed(t *testing.T) {
	l := New()
	gate := make(chan struct{})
	discarded := make(chan int, 1)

	Go(l, context.Background(), func(context.Context) (int, error) {
		<-gate
		return 7, nil
	}, func(int, error) {
		t.Error("complete must not run on a closed loop")
	}, func(v int) { discarded <- v })

	l.Close()
	close(gate)

	select {
	case v := <-discarded:
		assert.Equal(t, 7, v)
	case <-time.After(2 * time.Second):
		t.Fatal("discard not called")
	}
}

func TestRunUntil_ContextDone(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.RunUntil(ctx, func() bool { return false })
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestCall(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	v, err := Call(ctx, l, func() string { return "ok" })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}
