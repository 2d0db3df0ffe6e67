/*
Package scan turns decoded QR strings into search submissions.

PURPOSE:
  The camera and decoder are someone else's job; they hand over one string
  per successful scan. This package consumes that stream and delivers each
  string as an Event, which callers treat exactly like typed query text.

DESIGN:
  - Subscribe starts one goroutine that reads until the stream closes or
    the context is cancelled
  - Blank decodes are dropped; surrounding whitespace is trimmed
  - Stop cancels and waits, so no goroutine outlives the subscription

USAGE:
  sub := scan.Subscribe(ctx, decoded, func(ev scan.Event) {
      res := catalog.Search(items, ev.Query(category, mode))
      ...
  }, logger)
  defer sub.Stop()

SEE ALSO:
  - catalog/search.go: Query
  - cmd/storemap/lookup.go: stdin scanner stream
*/
package scan

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/storemap/catalog"
)

// Event is one successful decode.
type Event struct {
	ID   string
	Text string
	At   time.Time
}

// Query builds the search submission for this scan.
func (e Event) Query(category string, mode catalog.Mode) catalog.Query {
	return catalog.Query{Category: category, Text: e.Text, Mode: mode}
}

// Subscription is a running consumer of a decode stream.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Subscribe delivers every non-blank string from stream to handle, in
// order, on a single goroutine.
func Subscribe(ctx context.Context, stream <-chan string, handle func(Event), logger *zap.Logger) *Subscription {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("scan")

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		for {
			select {
			case <-ctx.Done():
				return
			case text, ok := <-stream:
				if !ok {
					logger.Debug("Scan stream closed")
					return
				}
				text = strings.TrimSpace(text)
				if text == "" {
					continue
				}
				ev := Event{ID: uuid.NewString(), Text: text, At: time.Now()}
				logger.Debug("Scan decoded", zap.String("id", ev.ID), zap.String("text", ev.Text))
				handle(ev)
			}
		}
	}()

	return sub
}

// Done is closed when the subscription has finished.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Stop cancels the subscription and waits for it to finish.
func (s *Subscription) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}

// Lines exposes r as a decode stream, one decode per line, for hardware
// scanners that type into a terminal. The channel closes at EOF or when
// ctx is cancelled.
func Lines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
