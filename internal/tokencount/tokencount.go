// Package tokencount counts tokens the way the embedding models that
// consume chunked text do, so chunk-size budgets can be expressed in
// tokens rather than bytes when a caller wants model-accurate sizing.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// Counter counts the number of tokens a piece of text encodes to
// under a fixed encoding.
type Counter interface {
	Count(text string) int
	Encoding() string
}

type tikCounter struct {
	encoding string
	tke      *tiktoken.Tiktoken
}

// well-known encodings, named the way the pack's raggo chunker names
// them (tiktoken-go's own encoding identifiers).
const (
	EncodingCl100kBase = "cl100k_base"
	EncodingO200kBase  = "o200k_base"
)

var (
	mu    sync.Mutex
	cache = map[string]*tiktoken.Tiktoken{}
)

// New returns a Counter for the named tiktoken encoding. Encodings are
// cached process-wide since constructing one loads and parses its BPE
// rank file.
func New(encoding string) (Counter, error) {
	mu.Lock()
	tke, ok := cache[encoding]
	mu.Unlock()
	if !ok {
		var err error
		tke, err = tiktoken.GetEncoding(encoding)
		if err != nil {
			return nil, apperr.Wrap(apperr.InvalidParameter, err, "unknown token encoding %q", encoding)
		}
		mu.Lock()
		cache[encoding] = tke
		mu.Unlock()
	}
	return tikCounter{encoding: encoding, tke: tke}, nil
}

// ForModel resolves the encoding tiktoken associates with a model
// name, falling back to cl100k_base for models tiktoken does not
// recognize (local/open embedding models have no OpenAI tokenizer of
// their own, and cl100k_base is a reasonable dense approximation for
// budgeting purposes).
func ForModel(model string) (Counter, error) {
	tke, err := tiktoken.EncodingForModel(model)
	if err == nil {
		return tikCounter{encoding: model, tke: tke}, nil
	}
	return New(EncodingCl100kBase)
}

func (c tikCounter) Count(text string) int {
	return len(c.tke.Encode(text, nil, nil))
}

func (c tikCounter) Encoding() string {
	return c.encoding
}
