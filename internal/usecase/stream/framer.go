// Package stream implements the streaming response client: line framing,
// frame decoding, snapshot accumulation, tool-output logging and the
// per-query session state machine.
package stream

import (
	"bytes"
	"fmt"

	"chatstream/internal/domain"
)

// DataPrefix marks a line that carries an event payload.
const DataPrefix = "data: "

// DefaultMaxFrameBytes bounds a single pending line. Content snapshots are
// cumulative, so a long answer produces long lines.
const DefaultMaxFrameBytes = 8 * 1024 * 1024 // 8 MiB

var dataPrefix = []byte(DataPrefix)

// LineFramer turns arbitrarily split chunks of a byte stream into complete
// event payloads. A trailing partial line is held until more input arrives.
// LineFramer is not safe for concurrent use.
type LineFramer struct {
	buf      []byte
	maxFrame int
}

// NewLineFramer creates a framer. maxFrame <= 0 selects DefaultMaxFrameBytes.
func NewLineFramer(maxFrame int) *LineFramer {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameBytes
	}
	return &LineFramer{maxFrame: maxFrame}
}

// Push consumes chunk and returns the payloads (prefix stripped) of every line
// it completed, in arrival order. Blank lines and lines without the data
// prefix are dropped. It fails with domain.ErrFrameTooLarge once the pending
// partial line grows beyond the configured limit.
func (f *LineFramer) Push(chunk []byte) ([]string, error) {
	f.buf = append(f.buf, chunk...)

	var frames []string
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(f.buf[:i], []byte("\r"))
		if payload, ok := framePayload(line); ok {
			frames = append(frames, payload)
		}
		f.buf = f.buf[i+1:]
	}

	if len(f.buf) > f.maxFrame {
		n := len(f.buf)
		f.buf = nil
		return frames, fmt.Errorf("%w: %d bytes pending", domain.ErrFrameTooLarge, n)
	}

	// Release the consumed prefix once nothing is pending.
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return frames, nil
}

// End discards any leftover partial line and returns its length. A frame
// without a terminating newline is never a valid event.
func (f *LineFramer) End() int {
	n := len(f.buf)
	f.buf = nil
	return n
}

// Pending returns the number of buffered bytes not yet terminated by a newline.
func (f *LineFramer) Pending() int { return len(f.buf) }

func framePayload(line []byte) (string, bool) {
	if len(bytes.TrimSpace(line)) == 0 {
		return "", false
	}
	if !bytes.HasPrefix(line, dataPrefix) {
		return "", false
	}
	return string(line[len(dataPrefix):]), true
}
