package streamparser

import (
	"bytes"
	"strings"
)

// DefaultMaxLine bounds a single buffered line when LineBuffer.MaxLine is zero.
const DefaultMaxLine = 1 << 20

// LineBuffer reassembles lines split across network reads. Not safe for
// concurrent use; each stream owns one.
type LineBuffer struct {
	// MaxLine caps the length of one line. Longer lines are dropped whole,
	// whether they arrive in one read or grow across several.
	MaxLine int

	buf        bytes.Buffer
	discarding bool
	dropped    int
}

// Feed appends a chunk and returns every complete line received so far,
// newline included. The trailing partial line stays buffered.
func (b *LineBuffer) Feed(chunk []byte) string {
	if b.discarding {
		idx := bytes.IndexByte(chunk, '\n')
		if idx < 0 {
			return ""
		}
		chunk = chunk[idx+1:]
		b.discarding = false
	}

	b.buf.Write(chunk)

	data := b.buf.Bytes()
	idx := bytes.LastIndexByte(data, '\n')
	complete := ""
	if idx >= 0 {
		complete = string(data[:idx+1])
		rest := append([]byte(nil), data[idx+1:]...)
		b.buf.Reset()
		b.buf.Write(rest)
	}

	if b.buf.Len() > b.maxLine() {
		b.buf.Reset()
		b.discarding = true
		b.dropped++
	}
	if len(complete) > b.maxLine() {
		complete = b.dropLongLines(complete)
	}
	return complete
}

func (b *LineBuffer) dropLongLines(complete string) string {
	var out strings.Builder
	out.Grow(len(complete))
	for _, line := range strings.SplitAfter(complete, "\n") {
		if len(strings.TrimSuffix(line, "\n")) > b.maxLine() {
			b.dropped++
			continue
		}
		out.WriteString(line)
	}
	return out.String()
}

// Flush returns whatever is left once the feed has ended.
func (b *LineBuffer) Flush() string {
	s := b.buf.String()
	b.buf.Reset()
	b.discarding = false
	return s
}

// Pending reports the number of buffered bytes.
func (b *LineBuffer) Pending() int {
	return b.buf.Len()
}

// Dropped reports how many oversized lines were discarded.
func (b *LineBuffer) Dropped() int {
	return b.dropped
}

func (b *LineBuffer) maxLine() int {
	if b.MaxLine > 0 {
		return b.MaxLine
	}
	return DefaultMaxLine
}
