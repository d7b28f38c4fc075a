package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/juju/ratelimit"
	"github.com/stretchr/testify/assert"
)

// gatedWriter blocks every write until the gate is opened.
type gatedWriter struct {
	gate chan struct{}

	mu  sync.Mutex
	buf bytes.Buffer
}

func (g *gatedWriter) Write(b []byte) (int, error) {
	<-g.gate

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buf.Write(b)
}

func (g *gatedWriter) String() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buf.String()
}

func TestQueuedWriter(t *testing.T) {
	dst := &gatedWriter{gate: make(chan struct{})}
	w := newQueuedWriter(context.Background(), dst, 4)

	written := make(chan struct{})
	go func() {
		defer close(written)
		for _, s := range []string{"hello ", "slow ", "world\n"} {
			n, err := io.WriteString(w, s)
			assert.Nil(t, err)
			assert.Equal(t, len(s), n)
		}
	}()

	select {
	case <-written:
	case <-time.After(5 * time.Second):
		t.Fatal("Write waited on the destination")
	}

	close(dst.gate)
	assert.Nil(t, w.Close())
	assert.Equal(t, "hello slow world\n", dst.String())

	_, err := w.Write([]byte("late"))
	assert.Equal(t, io.ErrClosedPipe, err)
}

func TestQueuedWriter_rateLimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bucket := ratelimit.NewBucketWithRate(10, 10)
	w := newQueuedWriter(ctx, ratelimit.Writer(io.Discard, bucket), 10)

	start := time.Now()
	n, err := w.Write(bytes.Repeat([]byte("x"), 100))
	assert.Nil(t, err)
	assert.Equal(t, 100, n)
	assert.Less(t, int64(time.Since(start)), int64(time.Second))
}

func TestQueuedWriter_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dst := &gatedWriter{gate: make(chan struct{})}
	w := newQueuedWriter(ctx, dst, 4)

	_, err := w.Write([]byte("never sent"))
	assert.Nil(t, err)

	cancel()
	close(dst.gate)

	assert.True(t, errors.Is(w.Close(), context.Canceled))
	assert.LessOrEqual(t, len(dst.String()), 4)
}

func TestQueuedWriter_destinationError(t *testing.T) {
	w := newQueuedWriter(context.Background(), failingWriter{}, 0)

	_, err := w.Write([]byte("x"))
	assert.Nil(t, err)
	assert.Equal(t, io.ErrShortWrite, w.Close())
}

type failingWriter struct{}

func (failingWriter) Write(b []byte) (int, error) {
	return 0, io.ErrShortWrite
}
