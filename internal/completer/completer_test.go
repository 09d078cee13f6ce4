package completer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleter_ResolvesOnce(t *testing.T) {
	c := New[int]()
	assert.False(t, c.IsCompleted())

	assert.True(t, c.Complete(1))
	assert.False(t, c.Complete(2))
	assert.False(t, c.Fail(errors.New("late")))
	assert.True(t, c.IsCompleted())

	v, err := c.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestCompleter_Fail(t *testing.T) {
	c := New[string]()
	boom := errors.New("boom")
	assert.True(t, c.Fail(boom))

	_, err := c.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestCompleter_WaitHonoursContext(t *testing.T) {
	c := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, c.IsCompleted())
}

func TestCompleter_ConcurrentResolversOnlyOneWins(t *testing.T) {
	c := New[int]()
	var wg sync.WaitGroup
	wins := make(chan int, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if c.Complete(i) {
				wins <- i
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []int
	for w := range wins {
		winners = append(winners, w)
	}
	require.Len(t, winners, 1)
	v, _ := c.Result()
	assert.Equal(t, winners[0], v)
}
