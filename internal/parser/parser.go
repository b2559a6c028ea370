// Package parser implements the document parsing façade: it dispatches
// on file extension to either a small set of directly-implemented
// text formats (txt, md, json, csv, xml) or an externally-registered
// provider for paginated binary formats (pdf, docx, xlsx), which are
// treated as black boxes swapped in at deployment time.
package parser

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// Page is a single numbered page of text within a Section.
type Page struct {
	Number int
	Text   string
}

// Section is a contiguous run of pages sharing a page range, as
// produced by section-mode parsing.
type Section struct {
	Pages []Page
}

// Parsed is the façade's output: Text is populated in generic mode,
// Sections in section mode.
type Parsed struct {
	Mode     Mode
	Text     string
	Sections []Section
}

// ExternalParser handles one paginated, binary document extension
// (pdf, docx, xlsx). Implementations are not provided by this module;
// they are registered at deployment time.
type ExternalParser interface {
	ID() string // file extension, without the leading dot, e.g. "pdf"
	Parse(ctx context.Context, data []byte, cfg Config) (Parsed, error)
}

// directExtensions are the non-paginated formats parsed directly by
// this package; they only ever support generic mode.
var directExtensions = map[string]bool{
	"txt": true, "md": true, "json": true, "csv": true, "xml": true,
}

// Facade dispatches Parse calls by extension.
type Facade struct {
	externals map[string]ExternalParser
}

// New constructs a Facade, optionally registering external providers
// for paginated formats.
func New(externals ...ExternalParser) *Facade {
	f := &Facade{externals: make(map[string]ExternalParser, len(externals))}
	for _, e := range externals {
		f.externals[e.ID()] = e
	}
	return f
}

// Parse dispatches on ext (without a leading dot, e.g. "pdf", "txt")
// to either a direct parser or a registered ExternalParser.
func (f *Facade) Parse(ctx context.Context, ext string, data []byte, cfg Config) (Parsed, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))

	if err := cfg.Validate(); err != nil {
		return Parsed{}, err
	}

	if directExtensions[ext] {
		if cfg.Mode == ModeSection {
			return Parsed{}, apperr.New(apperr.InvalidParameter, "%q is not a paginated format; section mode is unsupported", ext)
		}
		text, err := parseDirect(ext, data)
		if err != nil {
			return Parsed{}, err
		}
		return f.finishGeneric(text, cfg)
	}

	external, ok := f.externals[ext]
	if !ok {
		return Parsed{}, apperr.New(apperr.UnsupportedFileType, "no parser registered for extension %q", ext)
	}

	parsed, err := external.Parse(ctx, data, cfg)
	if err != nil {
		return Parsed{}, apperr.Wrap(apperr.Parse, err, "parsing %q", ext)
	}
	if isEmptyParsed(parsed) {
		return Parsed{}, apperr.New(apperr.ParseConfig, "parser produced empty output")
	}
	return parsed, nil
}

func isEmptyParsed(p Parsed) bool {
	if p.Mode == ModeSection {
		for _, s := range p.Sections {
			for _, pg := range s.Pages {
				if strings.TrimSpace(pg.Text) != "" {
					return false
				}
			}
		}
		return true
	}
	return strings.TrimSpace(p.Text) == ""
}

// parseDirect turns raw bytes for a directly-supported extension into
// a flat string, before generic-config trimming/filtering is applied.
func parseDirect(ext string, data []byte) (string, error) {
	switch ext {
	case "txt", "md", "xml":
		if ext == "xml" {
			dec := xml.NewDecoder(strings.NewReader(string(data)))
			for {
				_, err := dec.Token()
				if err == io.EOF {
					break
				}
				if err != nil {
					return "", apperr.Wrap(apperr.Parse, err, "parsing xml")
				}
			}
		}
		return string(data), nil
	case "json":
		var probe any
		if err := json.Unmarshal(data, &probe); err != nil {
			return "", apperr.Wrap(apperr.Parse, err, "parsing json")
		}
		pretty, err := json.MarshalIndent(probe, "", "  ")
		if err != nil {
			return "", apperr.Wrap(apperr.Parse, err, "re-serializing json")
		}
		return string(pretty), nil
	case "csv":
		r := csv.NewReader(strings.NewReader(string(data)))
		r.FieldsPerRecord = -1
		records, err := r.ReadAll()
		if err != nil {
			return "", apperr.Wrap(apperr.Parse, err, "parsing csv")
		}
		var b strings.Builder
		for i, rec := range records {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(strings.Join(rec, ","))
		}
		return b.String(), nil
	default:
		return "", apperr.New(apperr.UnsupportedFileType, "unsupported extension %q", ext)
	}
}

// finishGeneric applies the generic parse config's line trimming and
// filters to already-decoded text.
func (f *Facade) finishGeneric(text string, cfg Config) (Parsed, error) {
	lines := strings.Split(text, "\n")

	for _, pattern := range cfg.Generic.Filters {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Parsed{}, apperr.Wrap(apperr.ParseConfig, err, "invalid filter pattern %q", pattern)
		}
		lines = filterLines(lines, re)
	}

	if cfg.Generic.Range {
		start, end := cfg.Generic.Start, cfg.Generic.End
		if start > len(lines) {
			lines = nil
		} else {
			if end > len(lines) {
				end = len(lines)
			}
			lines = lines[start-1 : end]
		}
	} else {
		lines = dropEdges(lines, cfg.Generic.Start, cfg.Generic.End)
	}

	result := strings.Join(lines, "\n")
	if strings.TrimSpace(result) == "" {
		return Parsed{}, apperr.New(apperr.ParseConfig, "parser produced empty output")
	}
	return Parsed{Mode: ModeGeneric, Text: result}, nil
}

func filterLines(lines []string, re *regexp.Regexp) []string {
	out := lines[:0:0]
	for _, l := range lines {
		if !re.MatchString(l) {
			out = append(out, l)
		}
	}
	return out
}

func dropEdges(lines []string, leading, trailing int) []string {
	if leading < 0 {
		leading = 0
	}
	if trailing < 0 {
		trailing = 0
	}
	if leading+trailing >= len(lines) {
		return nil
	}
	return lines[leading : len(lines)-trailing]
}
