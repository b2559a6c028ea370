package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitline_SingleChunk(t *testing.T) {
	input := "NAME,AGE,GENDER\nJohn,32,M\nJane,28,F\nBob,45,M\nAlice,23,F"
	w := newSplitline(SplitlineConfig{Size: 1000})

	chunks, err := w.Chunk(input)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, input, chunks[0])
}

func TestSplitline_Size(t *testing.T) {
	input := "NAME,AGE,GENDER\nJohn,32,M\nJane,28,F\nBob,45,M\nAlice,23,F"
	w := newSplitline(SplitlineConfig{Size: 2})

	chunks, err := w.Chunk(input)
	require.NoError(t, err)
	require.Equal(t, []string{
		"NAME,AGE,GENDER\nJohn,32,M\nJane,28,F\n",
		"Bob,45,M\nAlice,23,F",
	}, chunks)
}

func TestSplitline_Patterns(t *testing.T) {
	input := "NAME,AGE,GENDER\nJohn,32,M\nJane,28,F\nBob,45,M\nAlice,23,F\nFOO,BAR,QUX,QAZ\n1,2,3,4\n5,6,7,8"
	w := newSplitline(SplitlineConfig{Size: 10, Patterns: []string{"FOO,BAR,QUX,QAZ"}})

	chunks, err := w.Chunk(input)
	require.NoError(t, err)
	require.Equal(t, []string{
		"NAME,AGE,GENDER\nJohn,32,M\nJane,28,F\nBob,45,M\nAlice,23,F\n",
		"FOO,BAR,QUX,QAZ\n1,2,3,4\n5,6,7,8",
	}, chunks)
}

func TestSplitline_PatternsPrepend(t *testing.T) {
	input := "NAME,AGE,GENDER\nJohn,32,M\nJane,28,F\nBob,45,M\nAlice,23,F\nFOO,BAR,QUX,QAZ\n1,2,3,4\n5,6,7,8\n9,10,11,12\n13,14,15,16"
	w := newSplitline(SplitlineConfig{Size: 2, Patterns: []string{"FOO,BAR,QUX,QAZ"}, PrependLatestHeader: true})

	chunks, err := w.Chunk(input)
	require.NoError(t, err)
	require.Equal(t, []string{
		"NAME,AGE,GENDER\nJohn,32,M\nJane,28,F\n",
		"NAME,AGE,GENDER\nBob,45,M\nAlice,23,F\n",
		"FOO,BAR,QUX,QAZ\n1,2,3,4\n5,6,7,8\n",
		"FOO,BAR,QUX,QAZ\n9,10,11,12\n13,14,15,16",
	}, chunks)
}

func TestSplitline_PatternsPrependNewline(t *testing.T) {
	input := "NAME,AGE,GENDER\nJohn,32,M\nJane,28,F\nBob,45,M\nAlice,23,F\nFOO,BAR,QUX,QAZ\n1,2,3,4\n5,6,7,8\n9,10,11,12\n13,14,15,16\n"
	w := newSplitline(SplitlineConfig{Size: 2, Patterns: []string{"FOO,BAR,QUX,QAZ"}, PrependLatestHeader: true})

	chunks, err := w.Chunk(input)
	require.NoError(t, err)
	require.Equal(t, []string{
		"NAME,AGE,GENDER\nJohn,32,M\nJane,28,F\n",
		"NAME,AGE,GENDER\nBob,45,M\nAlice,23,F\n",
		"FOO,BAR,QUX,QAZ\n1,2,3,4\n5,6,7,8\n",
		"FOO,BAR,QUX,QAZ\n9,10,11,12\n13,14,15,16\n",
	}, chunks)
}

func TestSplitline_Empty(t *testing.T) {
	w := newSplitline(SplitlineConfig{Size: 2})
	chunks, err := w.Chunk("")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitline_Header(t *testing.T) {
	w := newSplitline(SplitlineConfig{Size: 2})
	chunks, err := w.Chunk("NAME,AGE,GENDER")
	require.NoError(t, err)
	require.Equal(t, []string{"NAME,AGE,GENDER"}, chunks)
}

func TestSplitline_HeaderNewline(t *testing.T) {
	w := newSplitline(SplitlineConfig{Size: 2})
	chunks, err := w.Chunk("NAME,AGE,GENDER\n")
	require.NoError(t, err)
	require.Equal(t, []string{"NAME,AGE,GENDER\n"}, chunks)
}

func TestSplitline_SectionSplit(t *testing.T) {
	input := "\n" +
		"        1. A\n" +
		"          1.1 A1\n" +
		"          1.2 A2\n" +
		"          1.2.1 A2.1\n" +
		"        2. B\n" +
		"          2.1 B1\n" +
		"          2.2 B2\n" +
		"          2.2.1 B2.1\n" +
		"        3. C\n" +
		"          3.1 C1\n" +
		"          3.2 C2\n" +
		"          3.3 C3\n" +
		"        "

	w := newSplitline(SplitlineConfig{Size: 200, Patterns: []string{`^\s*\d\. .+$`}})

	chunks, err := w.Chunk(input)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Contains(t, chunks[0], "1. A")
	assert.Contains(t, chunks[0], "1.2.1 A2.1")
	assert.Contains(t, chunks[1], "2. B")
	assert.Contains(t, chunks[1], "2.2.1 B2.1")
	assert.Contains(t, chunks[2], "3. C")
	assert.Contains(t, chunks[2], "3.3 C3")
}
