package scan_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/warp/storemap/catalog"
	"github.com/warp/storemap/scan"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// collector gathers delivered events.
type collector struct {
	mu     sync.Mutex
	events []scan.Event
}

func (c *collector) handle(ev scan.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Text
	}
	return out
}

func TestSubscribe_DeliversInOrderUntilClosed(t *testing.T) {
	// GIVEN: A decoder stream with padding and blank reads
	stream := make(chan string)
	var got collector
	sub := scan.Subscribe(context.Background(), stream, got.handle, nil)

	// WHEN: Decodes arrive and the stream closes
	for _, s := range []string{" 4901234567894 ", "", "   ", "①B2"} {
		stream <- s
	}
	close(stream)
	<-sub.Done()

	// THEN: Non-blank decodes were delivered trimmed, in order
	assert.Equal(t, []string{"4901234567894", "①B2"}, got.texts())
	for _, ev := range got.events {
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.At.IsZero())
	}
}

func TestSubscribe_StopEndsGoroutine(t *testing.T) {
	stream := make(chan string)
	var got collector
	sub := scan.Subscribe(context.Background(), stream, got.handle, nil)

	stream <- "first"
	sub.Stop()
	sub.Stop()

	select {
	case <-sub.Done():
	default:
		t.Fatal("subscription still running after Stop")
	}
	assert.Equal(t, []string{"first"}, got.texts())
}

func TestSubscribe_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := scan.Subscribe(ctx, make(chan string), func(scan.Event) {}, nil)

	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription ignored context cancellation")
	}
}

func TestEvent_Query(t *testing.T) {
	ev := scan.Event{Text: "green tea"}

	q := ev.Query("Drinks", catalog.ModeName)

	assert.Equal(t, catalog.Query{Category: "Drinks", Text: "green tea", Mode: catalog.ModeName}, q)
}

func TestLines_FeedsSubscribe(t *testing.T) {
	// GIVEN: A hardware scanner typing codes into a terminal
	ctx := context.Background()
	input := strings.NewReader("tea\n\n  soap  \nrope")
	var got collector

	// WHEN: Subscribing to its lines
	sub := scan.Subscribe(ctx, scan.Lines(ctx, input), got.handle, nil)
	<-sub.Done()

	// THEN: Each non-blank line is one scan
	require.Equal(t, []string{"tea", "soap", "rope"}, got.texts())
}
