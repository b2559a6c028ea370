package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

func TestFacade_TxtPassthrough(t *testing.T) {
	f := New()
	parsed, err := f.Parse(context.Background(), "txt", []byte("line one\nline two\nline three"), DefaultGenericConfig())
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\nline three", parsed.Text)
}

func TestFacade_GenericSkipLeadingTrailing(t *testing.T) {
	f := New()
	cfg := Config{Mode: ModeGeneric, Generic: &GenericConfig{Start: 1, End: 1}}
	parsed, err := f.Parse(context.Background(), "txt", []byte("header\nbody one\nbody two\nfooter"), cfg)
	require.NoError(t, err)
	assert.Equal(t, "body one\nbody two", parsed.Text)
}

func TestFacade_GenericRangeMode(t *testing.T) {
	f := New()
	cfg := Config{Mode: ModeGeneric, Generic: &GenericConfig{Range: true, Start: 2, End: 3}}
	parsed, err := f.Parse(context.Background(), "txt", []byte("one\ntwo\nthree\nfour"), cfg)
	require.NoError(t, err)
	assert.Equal(t, "two\nthree", parsed.Text)
}

func TestFacade_GenericFilters(t *testing.T) {
	f := New()
	cfg := Config{Mode: ModeGeneric, Generic: &GenericConfig{Filters: []string{"^#"}}}
	parsed, err := f.Parse(context.Background(), "md", []byte("# Title\nintro text\n# Another heading\nmore text"), cfg)
	require.NoError(t, err)
	assert.Equal(t, "intro text\nmore text", parsed.Text)
}

func TestFacade_InvalidRange(t *testing.T) {
	f := New()
	cfg := Config{Mode: ModeGeneric, Generic: &GenericConfig{Range: true, Start: 5, End: 2}}
	_, err := f.Parse(context.Background(), "txt", []byte("a\nb\nc"), cfg)
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.ParseConfig, code)
}

func TestFacade_JSONReformats(t *testing.T) {
	f := New()
	parsed, err := f.Parse(context.Background(), "json", []byte(`{"a":1}`), DefaultGenericConfig())
	require.NoError(t, err)
	assert.Contains(t, parsed.Text, "\"a\": 1")
}

func TestFacade_JSONInvalid(t *testing.T) {
	f := New()
	_, err := f.Parse(context.Background(), "json", []byte(`{not json`), DefaultGenericConfig())
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Parse, code)
}

func TestFacade_CSVJoinsFields(t *testing.T) {
	f := New()
	parsed, err := f.Parse(context.Background(), "csv", []byte("a,b,c\n1,2,3"), DefaultGenericConfig())
	require.NoError(t, err)
	assert.Equal(t, "a,b,c\n1,2,3", parsed.Text)
}

func TestFacade_XMLMalformed(t *testing.T) {
	f := New()
	_, err := f.Parse(context.Background(), "xml", []byte("<a><b></a>"), DefaultGenericConfig())
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Parse, code)
}

func TestFacade_SectionModeOnNonPaginatedRejected(t *testing.T) {
	f := New()
	cfg := Config{Mode: ModeSection, Section: &SectionConfig{Ranges: []PageRange{{Start: 1, End: 2}}}}
	_, err := f.Parse(context.Background(), "txt", []byte("some text"), cfg)
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.InvalidParameter, code)
}

func TestFacade_UnsupportedExtension(t *testing.T) {
	f := New()
	_, err := f.Parse(context.Background(), "pdf", []byte("%PDF-1.4"), DefaultGenericConfig())
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.UnsupportedFileType, code)
}

type fakeExternal struct {
	id     string
	parsed Parsed
	err    error
}

func (f fakeExternal) ID() string { return f.id }
func (f fakeExternal) Parse(_ context.Context, _ []byte, _ Config) (Parsed, error) {
	return f.parsed, f.err
}

func TestFacade_ExternalProviderSection(t *testing.T) {
	external := fakeExternal{id: "pdf", parsed: Parsed{
		Mode:     ModeSection,
		Sections: []Section{{Pages: []Page{{Number: 1, Text: "page one text"}}}},
	}}
	f := New(external)

	cfg := Config{Mode: ModeSection, Section: &SectionConfig{Ranges: []PageRange{{Start: 1, End: 2}}}}
	parsed, err := f.Parse(context.Background(), "pdf", []byte("%PDF-1.4"), cfg)
	require.NoError(t, err)
	require.Len(t, parsed.Sections, 1)
	assert.Equal(t, "page one text", parsed.Sections[0].Pages[0].Text)
}

func TestFacade_ExternalProviderEmptyOutputRejected(t *testing.T) {
	external := fakeExternal{id: "pdf", parsed: Parsed{Mode: ModeGeneric, Text: "   "}}
	f := New(external)

	_, err := f.Parse(context.Background(), "pdf", []byte("%PDF-1.4"), DefaultGenericConfig())
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.ParseConfig, code)
}
