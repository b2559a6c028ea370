package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// SnappingConfig configures a sentence-aware sliding window. Size is
// measured in bytes; Overlap is measured in sentences (not bytes),
// unlike SlidingConfig.
type SnappingConfig struct {
	Size        int      `json:"size"`
	Overlap     int      `json:"overlap"`
	Delimiter   rune     `json:"delimiter"`
	SkipForward []string `json:"skipForward"`
	SkipBack    []string `json:"skipBack"`
}

type snapping struct {
	cfg SnappingConfig
}

func newSnapping(cfg SnappingConfig) snapping {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = '.'
	}
	return snapping{cfg: cfg}
}

// Chunk splits input on sentence boundaries around the delimiter,
// growing a central chunk until it reaches Size bytes and the current
// character is an un-skipped delimiter, then stitching Overlap
// sentences of leading and trailing context onto it.
//
// A delimiter is skipped (treated as an ordinary character) when: the
// text immediately preceding it ends with a SkipBack entry, the
// character immediately following it is not whitespace, or the text
// immediately following it starts with a SkipForward entry.
//
// A close whose leading context is empty (i.e. the very first
// sentence of the input) is suppressed; the next close absorbs it
// instead of emitting a near-empty leading chunk.
func (w snapping) Chunk(input string) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	if w.cfg.Size < 1 {
		return nil, apperr.New(apperr.ChunkerConfig, "size must be at least 1")
	}
	if w.cfg.Overlap > w.cfg.Size {
		return nil, apperr.New(apperr.ChunkerConfig, "overlap must not exceed size")
	}

	delim := w.cfg.Delimiter
	delimLen := utf8.RuneLen(delim)
	total := len(input)

	var chunks []string
	chunkStart := 0

	i := 0
	for i < total {
		r, w8 := utf8.DecodeRuneInString(input[i:])
		next := i + w8
		if r != delim {
			i = next
			continue
		}

		delimStart := i
		before := input[chunkStart:delimStart]
		if len(before) < w.cfg.Size {
			i = next
			continue
		}

		if skippedByBack(before, w.cfg.SkipBack) {
			i = next
			continue
		}
		if !followedByWhitespace(input, next) {
			i = next
			continue
		}
		if skippedByForward(input[next:], w.cfg.SkipForward) {
			i = next
			continue
		}

		chunkEnd := next
		prevRaw := input[:chunkStart]
		if prevRaw == "" {
			chunkStart = chunkEnd
			i = next
			continue
		}

		nextRaw := input[chunkEnd:]
		prevCtx := previousSentences(prevRaw, w.cfg.Overlap, delim, delimLen, w.cfg.SkipForward, w.cfg.SkipBack)
		nextCtx := nextSentences(nextRaw, w.cfg.Overlap, delim, delimLen, w.cfg.SkipForward, w.cfg.SkipBack)

		result := prevCtx + input[chunkStart:chunkEnd] + nextCtx
		chunks = append(chunks, result)

		if chunkEnd+len(nextCtx) >= total {
			return chunks, nil
		}

		chunkStart = chunkEnd
		i = next
	}

	return chunks, nil
}

func skippedByBack(before string, skipBack []string) bool {
	for _, skip := range skipBack {
		if skip != "" && strings.HasSuffix(before, skip) {
			return true
		}
	}
	return false
}

func skippedByForward(after string, skipForward []string) bool {
	for _, skip := range skipForward {
		if skip != "" && strings.HasPrefix(after, skip) {
			return true
		}
	}
	return false
}

// followedByWhitespace reports whether the rune starting at offset is
// whitespace, treating end-of-input as satisfying the check (there is
// nothing forcing the delimiter to be ordinary).
func followedByWhitespace(input string, offset int) bool {
	if offset >= len(input) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(input[offset:])
	return unicode.IsSpace(r)
}

// isSentenceBoundary reports whether the delimiter at byte offset
// delimStart (of length delimLen) inside text is a genuine sentence
// stop under the same rules as snapping.Chunk, used to split leading
// and trailing context into whole sentences.
func isSentenceBoundary(text string, delimStart, delimLen int, skipForward, skipBack []string) bool {
	before := text[:delimStart]
	if skippedByBack(before, skipBack) {
		return false
	}
	if !followedByWhitespace(text, delimStart+delimLen) {
		return false
	}
	if skippedByForward(text[delimStart+delimLen:], skipForward) {
		return false
	}
	return true
}

// splitSentences splits text into consecutive substrings, each ending
// at (and including) a genuine delimiter boundary, with any trailing
// remainder after the last boundary kept as a final partial sentence.
func splitSentences(text string, delim rune, delimLen int, skipForward, skipBack []string) []string {
	var sentences []string
	start := 0
	i := 0
	for i < len(text) {
		r, w8 := utf8.DecodeRuneInString(text[i:])
		if r == delim && isSentenceBoundary(text, i, delimLen, skipForward, skipBack) {
			sentences = append(sentences, text[start:i+delimLen])
			start = i + delimLen
			i = start
			continue
		}
		i += w8
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// previousSentences returns the last n sentences of prevText joined
// back together, where n = overlap, for use as leading context.
func previousSentences(prevText string, overlap int, delim rune, delimLen int, skipForward, skipBack []string) string {
	if overlap <= 0 {
		return ""
	}
	sentences := splitSentences(prevText, delim, delimLen, skipForward, skipBack)
	if len(sentences) == 0 {
		return ""
	}
	n := overlap
	if n > len(sentences) {
		n = len(sentences)
	}
	return strings.Join(sentences[len(sentences)-n:], "")
}

// nextSentences returns the first n sentences of nextText joined
// together, where n = overlap, for use as trailing context.
func nextSentences(nextText string, overlap int, delim rune, delimLen int, skipForward, skipBack []string) string {
	if overlap <= 0 {
		return ""
	}
	sentences := splitSentences(nextText, delim, delimLen, skipForward, skipBack)
	if len(sentences) == 0 {
		return ""
	}
	n := overlap
	if n > len(sentences) {
		n = len(sentences)
	}
	return strings.Join(sentences[:n], "")
}
