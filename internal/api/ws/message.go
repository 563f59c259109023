package ws

import (
	"bytes"
	"math"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

// Format selects how output is framed on the wire.
type Format string

const (
	// FormatRaw sends output as plain text frames.
	FormatRaw Format = "raw"
	// FormatJSON wraps output in Envelope frames and ends with an exit envelope.
	FormatJSON Format = "json"
)

func parseFormat(raw string) (Format, bool) {
	switch Format(raw) {
	case "", FormatRaw:
		return FormatRaw, true
	case FormatJSON:
		return FormatJSON, true
	}
	return "", false
}

// Envelope is an outbound JSON frame.
type Envelope struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

const (
	typeOutput = "output"
	typeExit   = "exit"
	typeResize = "resize"
)

// action is what a text frame asks the relay to do.
type action struct {
	write  []byte
	resize bool
	cols   int
	rows   int
}

// parseText interprets a text frame. A JSON object carrying a string data or
// input field writes that field, a resize object with integral cols and rows
// resizes, and anything else is written verbatim. Fields of other types are
// ignored rather than failing the whole object.
func parseText(msg []byte) action {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return action{write: msg}
	}

	var in map[string]any
	if err := sonic.Unmarshal(trimmed, &in); err != nil || in == nil {
		return action{write: msg}
	}
	if typ, _ := in["type"].(string); typ == typeResize {
		cols, okCols := wholeNumber(in["cols"])
		rows, okRows := wholeNumber(in["rows"])
		if okCols && okRows {
			return action{resize: true, cols: cols, rows: rows}
		}
	}
	if data, ok := in["data"].(string); ok {
		return action{write: []byte(data)}
	}
	if input, ok := in["input"].(string); ok {
		return action{write: []byte(input)}
	}
	return action{write: msg}
}

func wholeNumber(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// utf8Carry turns a stream of byte chunks into valid UTF-8 text. A rune split
// across chunks is held back until its remaining bytes arrive; invalid bytes
// become U+FFFD.
type utf8Carry struct {
	pending []byte
}

func (u *utf8Carry) text(chunk []byte) string {
	data := chunk
	if len(u.pending) > 0 {
		data = append(u.pending, chunk...)
		u.pending = nil
	}

	cut := len(data)
	// A rune is at most utf8.UTFMax bytes; only the tail can be incomplete.
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if utf8.RuneStart(data[i]) {
			if !utf8.FullRune(data[i:]) {
				cut = i
			}
			break
		}
	}
	if cut < len(data) {
		u.pending = append([]byte(nil), data[cut:]...)
	}
	return toValid(data[:cut])
}

// flush returns whatever incomplete bytes remain.
func (u *utf8Carry) flush() string {
	s := toValid(u.pending)
	u.pending = nil
	return s
}

func toValid(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return string(bytes.ToValidUTF8(b, []byte("\uFFFD")))
}

func encodeEnvelope(env Envelope) ([]byte, error) {
	return sonic.Marshal(env)
}
