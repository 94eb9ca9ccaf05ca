package streamparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineBufferReassemblesSplitLines(t *testing.T) {
	var lb LineBuffer

	assert.Equal(t, "", lb.Feed([]byte(`data: {"event":"tok`)))
	assert.Equal(t, 19, lb.Pending())

	assert.Equal(t, "data: {\"event\":\"token\",\"data\":\"a\"}\n", lb.Feed([]byte("en\",\"data\":\"a\"}\ndata: {\"ev")))
	assert.Equal(t, "data: {\"ev", lb.Flush())
	assert.Equal(t, 0, lb.Pending())
}

func TestLineBufferByteByByte(t *testing.T) {
	feed := "data: {\"event\":\"token\",\"data\":\"a\"}\n\ndata: {\"event\":\"token\",\"data\":\"b\"}\n"

	var lb LineBuffer
	parser := NewParser()
	var texts []string
	for i := 0; i < len(feed); i++ {
		for _, ev := range parser.Parse(lb.Feed([]byte{feed[i]})) {
			texts = append(texts, ev.Text())
		}
	}
	for _, ev := range parser.Parse(lb.Flush()) {
		texts = append(texts, ev.Text())
	}

	assert.Equal(t, []string{"a", "b"}, texts)
}

func TestLineBufferFlushWithoutTrailingNewline(t *testing.T) {
	var lb LineBuffer
	lb.Feed([]byte(`data: {"event":"token","data":"tail"}`))

	events := NewParser().Parse(lb.Flush())
	assert.Len(t, events, 1)
	assert.Equal(t, "tail", events[0].Text())
}

func TestLineBufferDropsOversizedLine(t *testing.T) {
	lb := LineBuffer{MaxLine: 8}

	assert.Equal(t, "", lb.Feed([]byte("data: 0123456789")))
	assert.Equal(t, 0, lb.Pending())
	assert.Equal(t, 1, lb.Dropped())

	// The rest of the oversized line is skipped up to its newline.
	assert.Equal(t, "", lb.Feed([]byte("still the same line")))
	assert.Equal(t, 0, lb.Pending())
	assert.Equal(t, "data: ok\n", lb.Feed([]byte("tail\ndata: ok\n")))
	assert.Equal(t, 1, lb.Dropped())

	assert.Equal(t, "", lb.Feed([]byte("part")))
	assert.Equal(t, "part", lb.Flush())
}

func TestLineBufferDropsLongCompleteLine(t *testing.T) {
	lb := LineBuffer{MaxLine: 8}

	assert.Equal(t, "data: a\n\ndata: b\n", lb.Feed([]byte("data: a\n\ndata: 0123456789\ndata: b\n")))
	assert.Equal(t, 1, lb.Dropped())
	assert.Equal(t, 0, lb.Pending())
}

func TestLineBufferDefaultCap(t *testing.T) {
	var lb LineBuffer
	lb.Feed(make([]byte, DefaultMaxLine))
	assert.Equal(t, DefaultMaxLine, lb.Pending())

	lb.Feed([]byte{'x'})
	assert.Equal(t, 0, lb.Pending())
	assert.Equal(t, 1, lb.Dropped())
}
