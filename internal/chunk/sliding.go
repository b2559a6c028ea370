package chunk

import (
	"strings"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// SlidingConfig configures SlidingWindow. Size and Overlap are measured
// in bytes.
type SlidingConfig struct {
	Size    int `json:"size"`
	Overlap int `json:"overlap"`
}

// SlidingWindow is a byte-based sliding window chunker. Chunk i covers
// bytes [i*(Size-Overlap), i*(Size-Overlap)+Size), clipped to the input
// length. Byte offsets that would split a UTF-8 scalar are always
// extended forward to the next code-point boundary, never shortened, so
// concatenating chunks with their overlap removed reconstructs the
// original input byte-for-byte.
type SlidingWindow struct {
	Size    int
	Overlap int
}

// Chunk splits input into overlapping byte windows.
func (w SlidingWindow) Chunk(input string) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	if w.Size < 1 {
		return nil, apperr.New(apperr.ChunkerConfig, "size must be at least 1")
	}
	if w.Overlap >= w.Size {
		return nil, apperr.New(apperr.ChunkerConfig, "overlap must be less than size")
	}

	step := w.Size - w.Overlap
	n := len(input)

	var chunks []string
	for start := 0; start < n; start += step {
		end := start + w.Size
		if end > n {
			end = n
		}
		s := utf8Boundary(input, start)
		e := utf8Boundary(input, end)
		chunks = append(chunks, input[s:e])
		if end >= n {
			break
		}
	}
	return chunks, nil
}

// utf8Boundary returns the smallest index >= idx that does not fall
// inside a multi-byte UTF-8 code point, clamped to [0, len(s)]. It only
// ever extends forward, never shortens, per the chunker's documented
// tie-break.
func utf8Boundary(s string, idx int) int {
	if idx <= 0 {
		return 0
	}
	if idx >= len(s) {
		return len(s)
	}
	for idx < len(s) && isUTF8Continuation(s[idx]) {
		idx++
	}
	return idx
}

func isUTF8Continuation(b byte) bool {
	return b&0xC0 == 0x80
}
