package chunk

import (
	"regexp"
	"strings"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// SplitlineConfig configures the line-based chunker used for CSVs,
// markdown, and any other document with line-delimited structure or
// distinguishable section headers.
//
// To use it as a pure section splitter, set Size to a very large
// value and rely entirely on Patterns; with no patterns at all it
// returns the whole document as a single chunk.
type SplitlineConfig struct {
	// Size is the maximum number of lines per chunk, not counting
	// header lines matched by Patterns.
	Size int `json:"size"`
	// Patterns are regular expressions matched against each line;
	// a match always starts a new chunk and becomes that chunk's
	// header. The first line of the input is always a header,
	// regardless of Patterns.
	Patterns []string `json:"patterns"`
	// PrependLatestHeader, when true, repeats the most recent
	// pattern-matched header at the top of every subsequent
	// size-bounded chunk until the next header is found.
	PrependLatestHeader bool `json:"prependLatestHeader"`
}

type splitline struct {
	cfg SplitlineConfig
}

func newSplitline(cfg SplitlineConfig) splitline {
	return splitline{cfg: cfg}
}

// Chunk groups consecutive lines into chunks of at most Size lines,
// always starting a new chunk at the first line matching any
// Pattern, and treating the document's very first line as an
// always-on header.
func (s splitline) Chunk(input string) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	patterns := make([]*regexp.Regexp, 0, len(s.cfg.Patterns))
	for _, p := range s.cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, apperr.Wrap(apperr.ChunkerConfig, err, "invalid splitline pattern %q", p)
		}
		patterns = append(patterns, re)
	}

	lines := splitLines(input)
	if len(lines) == 0 {
		return nil, nil
	}

	header := lines[0]
	if len(strings.TrimSpace(input)) == len(header) {
		return []string{input}, nil
	}

	var result []string
	var buf strings.Builder
	buf.WriteString(header)
	amount := 0

	for _, line := range lines[1:] {
		buf.WriteByte('\n')

		if amount == s.cfg.Size {
			result = append(result, buf.String())
			buf.Reset()
			if s.cfg.PrependLatestHeader {
				buf.WriteString(header)
				buf.WriteByte('\n')
			}
			amount = 0
		}

		if matchesAny(patterns, line) {
			if amount > 0 {
				result = append(result, buf.String())
			}
			buf.Reset()
			buf.WriteString(line)
			amount = 0
			header = line
			continue
		}

		buf.WriteString(line)
		amount++
	}

	if amount > 0 {
		if strings.HasSuffix(input, "\n") {
			buf.WriteByte('\n')
		}
		result = append(result, buf.String())
	}

	return result, nil
}

func matchesAny(patterns []*regexp.Regexp, line string) bool {
	for _, re := range patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// splitLines mirrors Rust's str::lines(): split on '\n', strip any
// trailing '\r' from each line, and drop the final empty element
// produced when input ends with a newline (a trailing newline
// terminates the last line rather than introducing an empty one).
func splitLines(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}
