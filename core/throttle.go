package core

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// queuedWriter buffers writes in memory and copies them to dst on its own
// goroutine, so Write returns without waiting on a slow destination.
type queuedWriter struct {
	ctx       context.Context
	dst       io.Writer
	chunkSize int

	mu     sync.Mutex
	buf    bytes.Buffer
	err    error
	closed bool

	wake    chan struct{}
	stopped chan struct{}
}

// newQueuedWriter starts copying to dst until Close or ctx is done. Each write
// to dst is at most chunkSize bytes.
func newQueuedWriter(ctx context.Context, dst io.Writer, chunkSize int) *queuedWriter {
	if chunkSize <= 0 {
		chunkSize = 4096
	}

	w := &queuedWriter{
		ctx:       ctx,
		dst:       dst,
		chunkSize: chunkSize,
		wake:      make(chan struct{}, 1),
		stopped:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *queuedWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case w.err != nil:
		return 0, w.err
	case w.closed:
		return 0, io.ErrClosedPipe
	}

	w.buf.Write(b)
	w.signal()
	return len(b), nil
}

func (w *queuedWriter) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *queuedWriter) fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.err = err
	w.buf.Reset()
}

func (w *queuedWriter) run() {
	defer close(w.stopped)

	chunk := make([]byte, w.chunkSize)
	for {
		w.mu.Lock()
		n, _ := w.buf.Read(chunk)
		closed := w.closed
		w.mu.Unlock()

		if n > 0 {
			if _, err := w.dst.Write(chunk[:n]); err != nil {
				w.fail(err)
				return
			}
			if err := w.ctx.Err(); err != nil {
				w.fail(err)
				return
			}
			continue
		}

		if closed {
			return
		}

		select {
		case <-w.wake:
		case <-w.ctx.Done():
			w.fail(w.ctx.Err())
			return
		}
	}
}

// Close waits until everything written so far reached dst, or ctx is done.
func (w *queuedWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.signal()
	w.mu.Unlock()

	<-w.stopped

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
