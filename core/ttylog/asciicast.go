package ttylog

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// AsciicastFileExt holds the suggested file extension for asciicast files.
const AsciicastFileExt = "cast"

// AsciicastHeader describes the terminal a recording was made on.
type AsciicastHeader struct {
	Width  int
	Height int
	Title  string
	Term   string
}

func writeJSONLine(w io.Writer, structure interface{}) error {
	line, err := json.Marshal(structure)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s\n", string(line))
	return err
}

// NewAsciicastSink creates a Sink writing the asciicast v2 format. The header
// is written with the first entry so its timestamp matches the recording.
//
// See: https://github.com/asciinema/asciinema/blob/develop/doc/asciicast-v2.md
func NewAsciicastSink(w io.Writer, header AsciicastHeader) Sink {
	var (
		firstLogTimeMicros int64
		once               sync.Once
	)

	if header.Width <= 0 {
		header.Width = 80
	}
	if header.Height <= 0 {
		header.Height = 24
	}
	if header.Term == "" {
		header.Term = "xterm-256color"
	}

	return func(e *Entry) error {
		var headerErr error
		once.Do(func() {
			firstLogTimeMicros = e.TimestampMicros
			headerErr = writeJSONLine(w, map[string]interface{}{
				"version":   2,
				"width":     header.Width,
				"height":    header.Height,
				"timestamp": time.UnixMicro(firstLogTimeMicros).Unix(),
				"title":     header.Title,
				"env": map[string]interface{}{
					"TERM":  header.Term,
					"SHELL": "/bin/sh",
				},
			})
		})
		if headerErr != nil {
			return headerErr
		}

		direction := "o"
		if e.Stream == StreamInput {
			direction = "i"
		}

		deltaSeconds := microsecondsToSeconds(e.TimestampMicros - firstLogTimeMicros)
		return writeJSONLine(w, &asciicastLine{deltaSeconds, direction, string(e.Data)})
	}
}

// AsciicastSource reads entries from an asciicast v2 recording. Timestamps
// are relative to the start of the recording.
type AsciicastSource struct {
	r             *bufio.Reader
	consumeHeader sync.Once
}

var _ Source = (*AsciicastSource)(nil)

// NewAsciicastSource creates a source reading r.
func NewAsciicastSource(r io.Reader) *AsciicastSource {
	return &AsciicastSource{r: bufio.NewReader(r)}
}

// Next implements Source.
func (s *AsciicastSource) Next() (*Entry, error) {
	var headerErr error
	s.consumeHeader.Do(func() {
		_, headerErr = s.r.ReadBytes('\n')
	})
	if headerErr != nil {
		return nil, headerErr
	}

	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil {
			return nil, err
		}

		if len(line) == 1 {
			// Skip blank lines
			continue
		}

		var al asciicastLine
		if err := json.Unmarshal(line, &al); err != nil {
			return nil, err
		}

		var stream Stream
		switch al.EventType {
		case "o":
			stream = StreamOutput
		case "i":
			stream = StreamInput
		default:
			// skip unknown events
			continue
		}

		return &Entry{
			TimestampMicros: secondsToMicroseconds(al.TimeSeconds),
			Stream:          stream,
			Data:            []byte(al.EventData),
		}, nil
	}
}

type asciicastLine struct {
	TimeSeconds float64
	EventType   string
	EventData   string
}

func (al *asciicastLine) UnmarshalJSON(data []byte) error {
	var v []interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if count := len(v); count != 3 {
		return fmt.Errorf("malformed line, expected 3 entries got %d", count)
	}

	var timeOk, typeOk, dataOk bool
	al.TimeSeconds, timeOk = v[0].(float64)
	al.EventType, typeOk = v[1].(string)
	al.EventData, dataOk = v[2].(string)

	if !timeOk || !typeOk || !dataOk {
		return fmt.Errorf("malformed data in line: %q", v)
	}

	return nil
}

func (al *asciicastLine) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{al.TimeSeconds, al.EventType, al.EventData})
}

func microsecondsToSeconds(microseconds int64) (seconds float64) {
	return (float64(microseconds) * float64(time.Microsecond)) / float64(time.Second)
}

func secondsToMicroseconds(seconds float64) (microseconds int64) {
	return int64(seconds*float64(time.Second)) / int64(time.Microsecond)
}
