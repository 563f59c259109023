package buffer

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushSplitsLines(t *testing.T) {
	b := New(10)
	b.Push([]byte("one\r\ntwo\nthr"))

	assert.Equal(t, []string{"one", "two"}, b.All())

	b.Push([]byte("ee\n"))
	assert.Equal(t, []string{"one", "two", "three"}, b.All())
}

func TestPartialLineIsNotVisible(t *testing.T) {
	b := New(10)
	b.Push([]byte("$ "))

	assert.Empty(t, b.All())
	assert.Equal(t, 0, b.Len())
}

func TestCarriageReturnDiscarded(t *testing.T) {
	b := New(10)
	b.Push([]byte("a\rb\r\n"))

	assert.Equal(t, []string{"ab"}, b.All())
}

func TestEmptyLinesKept(t *testing.T) {
	b := New(10)
	b.Push([]byte("\n\nx\n"))

	assert.Equal(t, []string{"", "", "x"}, b.All())
}

func TestInvalidUTF8Replaced(t *testing.T) {
	b := New(10)
	b.Push([]byte{'o', 'k', 0xff, '\n'})

	lines := b.All()
	require.Len(t, lines, 1)
	assert.Equal(t, "ok�", lines[0])
}

func TestMultibyteSplitAcrossPushes(t *testing.T) {
	b := New(10)
	snowman := []byte("☃")
	b.Push(snowman[:1])
	b.Push(snowman[1:])
	b.Push([]byte("\n"))

	assert.Equal(t, []string{"☃"}, b.All())
}

func TestEvictionKeepsMostRecent(t *testing.T) {
	const capacity = 5
	b := New(capacity)

	for i := 0; i < 12; i++ {
		b.Push([]byte(fmt.Sprintf("line-%d\n", i)))
	}

	lines := b.All()
	require.Len(t, lines, capacity)
	for i, line := range lines {
		assert.Equal(t, fmt.Sprintf("line-%d", i+7), line)
	}
}

func TestNeverExceedsCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		input    string
	}{
		{"single chunk", 3, strings.Repeat("x\n", 50)},
		{"ragged lines", 4, "a\nbb\n\nccc\r\nd\ne\nf"},
		{"exact fit", 2, "a\nb\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.capacity)
			b.Push([]byte(tt.input))

			all := b.All()
			assert.LessOrEqual(t, len(all), tt.capacity)

			expected := strings.Split(strings.ReplaceAll(tt.input, "\r", ""), "\n")
			expected = expected[:len(expected)-1] // trailing partial line
			if len(expected) > tt.capacity {
				expected = expected[len(expected)-tt.capacity:]
			}
			assert.Equal(t, expected, all)
		})
	}
}

func TestRecent(t *testing.T) {
	b := New(10)
	b.Push([]byte("a\nb\nc\nd\n"))

	assert.Equal(t, []string{"c", "d"}, b.Recent(2))
	assert.Equal(t, []string{"a", "b", "c", "d"}, b.Recent(100))
	assert.Empty(t, b.Recent(0))
	assert.Empty(t, b.Recent(-1))
}

func TestRecentAfterWrap(t *testing.T) {
	b := New(3)
	b.Push([]byte("1\n2\n3\n4\n5\n"))

	assert.Equal(t, []string{"4", "5"}, b.Recent(2))
	assert.Equal(t, []string{"3", "4", "5"}, b.Recent(3))
}

func TestSince(t *testing.T) {
	b := New(3)
	b.Push([]byte("a\nb\n"))
	mark := b.Total()
	assert.Equal(t, uint64(2), mark)

	b.Push([]byte("c\nd\n"))
	lines, next := b.Since(mark)
	assert.Equal(t, []string{"c", "d"}, lines)
	assert.Equal(t, uint64(4), next)

	lines, _ = b.Since(next)
	assert.Empty(t, lines)

	// Lines evicted before they were read are skipped.
	lines, _ = b.Since(0)
	assert.Equal(t, []string{"b", "c", "d"}, lines)
}

func TestClear(t *testing.T) {
	b := New(10)
	b.Push([]byte("a\nb\npart"))
	b.Clear()

	assert.Empty(t, b.All())
	b.Push([]byte("ial\n"))
	assert.Equal(t, []string{"ial"}, b.All(), "partial line should be dropped by Clear")
}

func TestClearTwiceIsIdempotent(t *testing.T) {
	b := New(10)
	b.Push([]byte("a\n"))
	b.Clear()
	b.Clear()

	assert.Empty(t, b.All())
	assert.Equal(t, 0, b.Len())
}

func TestDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).Capacity())
}

func TestConcurrentPushAndRead(t *testing.T) {
	b := New(100)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			b.Push([]byte(fmt.Sprintf("%d\n", i)))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				assert.LessOrEqual(t, len(b.All()), 100)
				b.Recent(10)
			}
		}()
	}
	wg.Wait()

	lines := b.All()
	require.Len(t, lines, 100)
	assert.Equal(t, "900", lines[0])
	assert.Equal(t, "999", lines[99])
}

func TestPartialLineIsCapped(t *testing.T) {
	b := New(10)
	frame := []byte(strings.Repeat("#", 100) + "\r")
	for i := 0; i < 1000; i++ {
		b.Push(frame)
	}

	require.NotZero(t, b.Len())
	for _, line := range b.All() {
		assert.Len(t, line, MaxLineBytes)
	}
	assert.Less(t, len(b.partial), MaxLineBytes)
}

func TestPartialLineCapKeepsRunesWhole(t *testing.T) {
	b := New(10)
	b.Push([]byte(strings.Repeat("a", MaxLineBytes-1)))
	b.Push([]byte("€\n"))

	lines := b.All()
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Repeat("a", MaxLineBytes-1), lines[0])
	assert.Equal(t, "€", lines[1])
}
