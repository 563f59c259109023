package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseText(t *testing.T) {
	tests := []struct {
		name   string
		msg    string
		want   string
		resize bool
		cols   int
		rows   int
	}{
		{"plain keystrokes", "ls -la\n", "ls -la\n", false, 0, 0},
		{"data field", `{"data":"pwd\n"}`, "pwd\n", false, 0, 0},
		{"input field", `{"input":"whoami\n"}`, "whoami\n", false, 0, 0},
		{"data wins over input", `{"data":"a","input":"b"}`, "a", false, 0, 0},
		{"empty data", `{"data":""}`, "", false, 0, 0},
		{"resize", `{"type":"resize","cols":100,"rows":30}`, "", true, 100, 30},
		{"object without fields", `{"foo":1}`, `{"foo":1}`, false, 0, 0},
		{"non-string data", `{"data":5}`, `{"data":5}`, false, 0, 0},
		{"broken json", `{"data":`, `{"data":`, false, 0, 0},
		{"json array", `["data"]`, `["data"]`, false, 0, 0},
		{"data beside string cols", `{"data":"ls\n","cols":"80"}`, "ls\n", false, 0, 0},
		{"non-string data falls back to input", `{"data":5,"input":"pwd\n"}`, "pwd\n", false, 0, 0},
		{"numeric type", `{"type":7,"data":"x"}`, "x", false, 0, 0},
		{"fractional rows", `{"data":"ok","rows":1.5}`, "ok", false, 0, 0},
		{"resize with string cols", `{"type":"resize","cols":"80","rows":24,"data":"y"}`, "y", false, 0, 0},
		{"resize with fractional rows", `{"type":"resize","cols":80,"rows":2.5}`, `{"type":"resize","cols":80,"rows":2.5}`, false, 0, 0},
		{"null input", `{"input":null}`, `{"input":null}`, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := parseText([]byte(tt.msg))
			assert.Equal(t, tt.resize, act.resize)
			if tt.resize {
				assert.Equal(t, tt.cols, act.cols)
				assert.Equal(t, tt.rows, act.rows)
				return
			}
			assert.Equal(t, tt.want, string(act.write))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, ok := parseFormat("")
	assert.True(t, ok)
	assert.Equal(t, FormatRaw, f)

	f, ok = parseFormat("json")
	assert.True(t, ok)
	assert.Equal(t, FormatJSON, f)

	_, ok = parseFormat("xml")
	assert.False(t, ok)
}

func TestUTF8CarrySplitRune(t *testing.T) {
	euro := []byte("€") // 3 bytes
	var u utf8Carry

	assert.Equal(t, "a", u.text(append([]byte("a"), euro[:1]...)))
	assert.Equal(t, "", u.text(euro[1:2]))
	assert.Equal(t, "€b", u.text(append(euro[2:], 'b')))
	assert.Empty(t, u.flush())
}

func TestUTF8CarryInvalidBytes(t *testing.T) {
	var u utf8Carry

	assert.Equal(t, "x\uFFFDy", u.text([]byte{'x', 0xff, 'y'}))

	// An incomplete rune left at the end is replaced on flush.
	assert.Equal(t, "z", u.text([]byte{'z', 0xe2, 0x82}))
	assert.Equal(t, "\uFFFD", u.flush())
}
