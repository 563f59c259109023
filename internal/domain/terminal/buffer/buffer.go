// Package buffer captures terminal output as a bounded sequence of lines.
package buffer

import (
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

const (
	// DefaultCapacity is the number of completed lines kept per session.
	DefaultCapacity = 10000
	// MaxLineBytes bounds a line still waiting for its '\n'. Output that
	// only ever redraws with '\r' is split into lines of this size.
	MaxLineBytes = 16 * 1024
)

// Buffer is a line-oriented ring for pty output.
//
// Bytes are decoded as UTF-8 with invalid sequences replaced by U+FFFD, '\r' is
// dropped and '\n' completes the current line. Once the ring is full the oldest
// line is evicted. Push never blocks on readers for longer than one append.
type Buffer struct {
	mu       sync.RWMutex
	lines    []string
	head     int // index of the oldest line once the ring is full
	capacity int
	total    uint64 // lines ever completed; sequence number of the next line
	partial  []byte
}

// New creates a buffer holding at most capacity lines.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity}
}

// Capacity returns the maximum number of retained lines.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Push decodes p and appends every completed line.
func (b *Buffer) Push(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range p {
		switch c {
		case '\n':
			b.appendLine(decode(b.partial))
			b.partial = b.partial[:0]
		case '\r':
		default:
			b.partial = append(b.partial, c)
			if len(b.partial) >= MaxLineBytes {
				b.splitPartial()
			}
		}
	}
}

// splitPartial completes the oversized partial line, keeping a trailing
// incomplete rune for the next line.
func (b *Buffer) splitPartial() {
	cut := len(b.partial)
	for i := cut - 1; i >= 0 && i >= cut-utf8.UTFMax; i-- {
		if utf8.RuneStart(b.partial[i]) {
			if !utf8.FullRune(b.partial[i:]) {
				cut = i
			}
			break
		}
	}
	b.appendLine(decode(b.partial[:cut]))
	b.partial = append(b.partial[:0], b.partial[cut:]...)
}

func (b *Buffer) appendLine(line string) {
	b.total++
	if len(b.lines) < b.capacity {
		b.lines = append(b.lines, line)
		return
	}
	b.lines[b.head] = line
	b.head = (b.head + 1) % b.capacity
}

// All returns a snapshot of the retained lines, oldest first.
func (b *Buffer) All() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.tail(len(b.lines))
}

// Recent returns the last n lines in arrival order.
func (b *Buffer) Recent(n int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.tail(n)
}

// Since returns the retained lines whose sequence number is >= seq, along with
// the sequence number of the next line. Lines already evicted are skipped.
func (b *Buffer) Since(seq uint64) ([]string, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if seq >= b.total {
		return []string{}, b.total
	}
	n := b.total - seq
	if n > uint64(len(b.lines)) {
		n = uint64(len(b.lines))
	}
	return b.tail(int(n)), b.total
}

// tail copies the newest n lines. Caller holds the lock.
func (b *Buffer) tail(n int) []string {
	if n <= 0 {
		return []string{}
	}
	if n > len(b.lines) {
		n = len(b.lines)
	}

	out := make([]string, 0, n)
	skip := len(b.lines) - n
	for i := skip; i < len(b.lines); i++ {
		out = append(out, b.lines[(b.head+i)%len(b.lines)])
	}
	return out
}

// Len returns the number of retained lines.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.lines)
}

// Total returns the sequence number the next completed line will get.
func (b *Buffer) Total() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.total
}

// Clear drops retained lines and the partial line. Sequence numbers keep
// counting so Since callers never see old lines again.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = nil
	b.head = 0
	b.partial = b.partial[:0]
}

func decode(p []byte) string {
	if len(p) == 0 {
		return ""
	}
	out, err := unicode.UTF8.NewDecoder().Bytes(p)
	if err != nil {
		return string(p)
	}
	return string(out)
}
