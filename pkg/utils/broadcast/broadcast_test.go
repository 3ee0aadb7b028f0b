package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func collect(ch <-chan int, out *[]int) func() error {
	return func() error {
		for v := range ch {
			*out = append(*out, v)
		}
		return nil
	}
}

func TestBroadcastServer_fanOut(t *testing.T) {
	source := make(chan int)
	srv := NewBroadcastServer("s1", "frames", source)
	defer srv.Close()

	l1 := srv.Subscribe()
	l2 := srv.Subscribe()
	var got1, got2 []int
	g := errgroup.Group{}
	g.Go(collect(l1, &got1))
	g.Go(collect(l2, &got2))

	for _, v := range []int{1, 2, 3} {
		source <- v
	}
	close(source)
	assert.NoError(t, g.Wait())
	assert.Equal(t, []int{1, 2, 3}, got1)
	assert.Equal(t, []int{1, 2, 3}, got2)
}

func TestBroadcastServer_cancelSubscription(t *testing.T) {
	source := make(chan int)
	srv := NewBroadcastServer("s1", "frames", source)
	defer srv.Close()

	l1 := srv.Subscribe()
	l2 := srv.Subscribe()
	var got1, got2 []int
	g := errgroup.Group{}
	g.Go(collect(l1, &got1))
	g.Go(collect(l2, &got2))

	source <- 1
	srv.CancelSubscription(l2)
	source <- 2
	close(source)
	assert.NoError(t, g.Wait())
	assert.Equal(t, []int{1, 2}, got1)
	assert.Equal(t, []int{1}, got2)
}
