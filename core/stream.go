package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const chunkSize = 4096

// fenceTag matches the info string that may follow an opening fence.
var fenceTag = regexp.MustCompile(`^[\w+#.-]*[ \t]*$`)

// StripFences returns the contents of the first fenced block in s, trimmed. Text outside
// the block is dropped. An unterminated block yields everything after its opening line,
// and s without any fence is returned trimmed.
func StripFences(s string) string {
	open := strings.Index(s, "```")
	if open < 0 {
		return strings.TrimSpace(s)
	}
	body := s[open+3:]
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		// Opening line still streaming in.
		return ""
	}
	if fenceTag.MatchString(body[:nl]) {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	} else {
		// A closing fence may be arriving one backtick at a time.
		body = strings.TrimRight(body, "`")
	}
	return strings.TrimSpace(body)
}

// Accumulator collects a streamed response. The display value is derived from the whole
// buffer after every chunk so fence markers split across chunks are handled.
type Accumulator struct {
	buf   []byte
	fence bool
}

func NewAccumulator(stripFences bool) *Accumulator {
	return &Accumulator{fence: stripFences}
}

// Write appends a chunk and returns the new display value.
func (a *Accumulator) Write(chunk []byte) string {
	a.buf = append(a.buf, chunk...)
	return a.Display()
}

func (a *Accumulator) Display() string {
	if a.fence {
		return StripFences(string(a.buf))
	}
	return string(a.buf)
}

// Final is the display value with surrounding whitespace trimmed.
func (a *Accumulator) Final() string {
	return strings.TrimSpace(a.Display())
}

// Raw is the unprocessed buffer.
func (a *Accumulator) Raw() string {
	return string(a.buf)
}

// ReadStream drains r into an accumulator, calling onChunk with the display value after each
// chunk. On a read failure the partial display value is returned alongside the error.
func ReadStream(ctx context.Context, r io.Reader, stripFences bool, onChunk func(display string)) (string, error) {
	if r == nil {
		return "", errors.New("no response body")
	}
	acc := NewAccumulator(stripFences)
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return acc.Display(), err
		}
		n, err := r.Read(buf)
		if n > 0 {
			display := acc.Write(buf[:n])
			if onChunk != nil {
				onChunk(display)
			}
		}
		if errors.Is(err, io.EOF) {
			return acc.Final(), nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return acc.Display(), ctxErr
			}
			return acc.Display(), fmt.Errorf("error reading stream: %w", err)
		}
	}
}
