package parser

import "github.com/vectorkit/vectorkit/internal/apperr"

// Mode selects the shape of a Parsed result: a flat string (Generic)
// or a list of page-numbered sections (Section, paginated formats
// only).
type Mode string

const (
	ModeGeneric Mode = "generic"
	ModeSection Mode = "section"
)

// Config is the discriminated parse configuration persisted per
// document. Exactly one of Generic/Section is meaningful, selected by
// Mode.
type Config struct {
	Mode    Mode           `json:"mode"`
	Generic *GenericConfig `json:"generic,omitempty"`
	Section *SectionConfig `json:"section,omitempty"`
}

// GenericConfig configures parsing of non-paginated formats (txt, md,
// json, csv, xml). When Range is false, Start leading lines and End
// trailing lines are dropped. When Range is true, Start and End are
// an inclusive 1-based line range and everything outside it is
// dropped. Filters are regular expressions; any line matching one is
// dropped regardless of Range.
type GenericConfig struct {
	Range   bool     `json:"range"`
	Start   int      `json:"start"`
	End     int      `json:"end"`
	Filters []string `json:"filters,omitempty"`
}

// PageRange is an inclusive 1-based page range.
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SectionConfig configures parsing of paginated formats (pdf, docx,
// xlsx) into a list of sections, each made of the pages falling in
// one of Ranges.
type SectionConfig struct {
	Ranges  []PageRange `json:"ranges"`
	Filters []string    `json:"filters,omitempty"`
}

// DefaultGenericConfig returns a config that parses the whole input
// with no trimming or filtering.
func DefaultGenericConfig() Config {
	return Config{Mode: ModeGeneric, Generic: &GenericConfig{}}
}

// Validate enforces spec's per-variant validation rules: in range
// mode, End > Start and Start >= 1; page ranges follow the same rule.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeGeneric:
		if c.Generic == nil {
			return apperr.New(apperr.ParseConfig, "missing generic parse config")
		}
		if c.Generic.Range {
			if err := validateRange(c.Generic.Start, c.Generic.End); err != nil {
				return err
			}
		}
		return nil
	case ModeSection:
		if c.Section == nil {
			return apperr.New(apperr.ParseConfig, "missing section parse config")
		}
		for _, r := range c.Section.Ranges {
			if err := validateRange(r.Start, r.End); err != nil {
				return err
			}
		}
		return nil
	default:
		return apperr.New(apperr.ParseConfig, "unknown parse mode %q", c.Mode)
	}
}

func validateRange(start, end int) error {
	if start < 1 {
		return apperr.New(apperr.ParseConfig, "range start must be >= 1, got %d", start)
	}
	if end <= start {
		return apperr.New(apperr.ParseConfig, "range end (%d) must be greater than start (%d)", end, start)
	}
	return nil
}
