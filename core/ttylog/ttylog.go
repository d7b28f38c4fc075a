// Package ttylog records and replays what a session's terminal showed.
package ttylog

import (
	"io"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Stream identifies which side of the terminal data travelled on.
type Stream int

const (
	StreamOutput Stream = iota
	StreamInput
)

// Entry is a chunk of terminal data.
type Entry struct {
	TimestampMicros int64
	Stream          Stream
	Data            []byte
}

// Sink receives entries.
type Sink func(e *Entry) error

// Source produces entries.
type Source interface {
	// Next fetches the next entry. It returns io.EOF when there are no more.
	Next() (*Entry, error)
}

var crlf = regexp.MustCompile(`\r?\n`)

// NewRealTimePlayback sleeps between entries to match when they were
// recorded. If maxSleep > 0 it caps each pause, otherwise entries are passed
// on immediately.
func NewRealTimePlayback(maxSleep time.Duration, next Sink) Sink {
	var once sync.Once
	var prevTimeMicros int64

	return func(e *Entry) error {
		once.Do(func() {
			prevTimeMicros = e.TimestampMicros
		})

		delta := e.TimestampMicros - prevTimeMicros
		prevTimeMicros = e.TimestampMicros

		if maxSleep > 0 {
			sleepDuration := time.Duration(delta) * time.Microsecond
			if sleepDuration > maxSleep {
				sleepDuration = maxSleep
			}
			time.Sleep(sleepDuration)
		}

		return next(e)
	}
}

// NewCRLFAdapter rewrites bare newlines as CRLF. Sessions without a PTY write
// bare newlines which drift across the screen when replayed on a terminal.
func NewCRLFAdapter(next Sink) Sink {
	return func(e *Entry) error {
		e.Data = crlf.ReplaceAll(e.Data, []byte("\r\n"))
		return next(e)
	}
}

// NewClientOutput writes the output stream to w.
func NewClientOutput(w io.Writer) Sink {
	return func(e *Entry) error {
		if e.Stream != StreamOutput {
			return nil
		}
		_, err := w.Write(e.Data)
		return err
	}
}

// Replay reads every entry from recording into callback.
func Replay(recording Source, callback Sink) error {
	for {
		e, err := recording.Next()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		if err := callback(e); err != nil {
			return err
		}
	}
}

// Recorder copies data passing through wrapped readers and writers to a sink.
// It's safe to use from multiple goroutines.
type Recorder struct {
	mu   sync.Mutex
	sink Sink
	log  zerolog.Logger

	// Now is the clock used for timestamps.
	Now func() time.Time
}

// NewRecorder creates a recorder that forwards entries to sink. Sink errors
// are logged and never fail the wrapped I/O.
func NewRecorder(sink Sink, log zerolog.Logger) *Recorder {
	return &Recorder{sink: sink, log: log, Now: time.Now}
}

func (r *Recorder) record(stream Stream, data []byte) {
	if len(data) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := &Entry{
		TimestampMicros: r.Now().UnixMicro(),
		Stream:          stream,
		Data:            append([]byte(nil), data...),
	}
	if err := r.sink(e); err != nil {
		r.log.Warn().Err(err).Msg("recording terminal data failed")
	}
}

// Reader records everything read from rd as input.
func (r *Recorder) Reader(rd io.Reader) io.Reader {
	return &recordingReader{r: r, wrapped: rd}
}

// Writer records everything successfully written to w as output.
func (r *Recorder) Writer(w io.Writer) io.Writer {
	return &recordingWriter{r: r, wrapped: w}
}

type recordingReader struct {
	r       *Recorder
	wrapped io.Reader
}

func (rr *recordingReader) Read(p []byte) (int, error) {
	n, err := rr.wrapped.Read(p)
	rr.r.record(StreamInput, p[:n])
	return n, err
}

type recordingWriter struct {
	r       *Recorder
	wrapped io.Writer
}

func (rw *recordingWriter) Write(p []byte) (int, error) {
	n, err := rw.wrapped.Write(p)
	rw.r.record(StreamOutput, p[:n])
	return n, err
}
