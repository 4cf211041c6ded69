package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"ai-pdfchat-client/internal/pkg/apperr"
	"ai-pdfchat-client/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, d *Decoder) []Fragment {
	t.Helper()
	var out []Fragment
	for d.Next() {
		out = append(out, d.Fragment())
	}
	return out
}

func answers(frags []Fragment) []string {
	out := make([]string, 0, len(frags))
	for _, f := range frags {
		out = append(out, f.Answer)
	}
	return out
}

func TestDecoder_Frames(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "two frames",
			body: "data: {\"answer\":\"Hel\"}\n\ndata: {\"answer\":\"lo\"}\n\n",
			want: []string{"Hel", "lo"},
		},
		{
			name: "langserve event lines are ignored",
			body: "event: data\ndata: {\"answer\":\"a\"}\n\nevent: end\n\n",
			want: []string{"a"},
		},
		{
			name: "prefix without space and crlf",
			body: "data:{\"answer\":\"x\"}\r\n  data: {\"answer\":\"y\"}\r\n",
			want: []string{"x", "y"},
		},
		{
			name: "empty answers are skipped",
			body: "data: {\"answer\":\"\"}\ndata: {\"references\":[]}\ndata: {\"answer\":\"z\"}\n",
			want: []string{"z"},
		},
		{
			name: "malformed frame does not abort",
			body: "data: {\"answer\":\"a\"}\ndata: {not json\ndata: {\"answer\":\"b\"}\n",
			want: []string{"a", "b"},
		},
		{
			name: "unterminated trailing line is dropped",
			body: "data: {\"answer\":\"a\"}\ndata: {\"answer\":\"b\"}",
			want: []string{"a"},
		},
		{
			name: "empty body",
			body: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(strings.NewReader(tt.body), logger.NewNopLogger())
			got := answers(collect(t, d))
			assert.Equal(t, tt.want, got)
			assert.NoError(t, d.Err())
		})
	}
}

func TestDecoder_MultiByteSplitAcrossReads(t *testing.T) {
	body := "data: {\"answer\":\"héllo wörld 日本語\"}\ndata: {\"answer\":\"🙂\"}\n"

	// One byte per Read forces every multi-byte rune across a boundary.
	d := NewDecoder(iotest.OneByteReader(strings.NewReader(body)), logger.NewNopLogger())
	got := answers(collect(t, d))

	assert.Equal(t, []string{"héllo wörld 日本語", "🙂"}, got)
}

func TestDecoder_References(t *testing.T) {
	body := strings.Join([]string{
		`data: {"answer":"a","references":[{"text":"t1","page":1,"source":"r.pdf"},{"text":"t2","page":2,"source":"r.pdf"}]}`,
		`data: {"answer":"b"}`,
		`data: {"answer":"c","references":[]}`,
		"",
	}, "\n")

	frags := collect(t, NewDecoder(strings.NewReader(body), logger.NewNopLogger()))
	require.Len(t, frags, 3)

	assert.True(t, frags[0].HasReferences)
	require.Len(t, frags[0].References, 2)
	assert.Equal(t, 2, frags[0].References[1].Page)
	assert.Equal(t, "r.pdf", frags[0].References[0].Source)

	assert.False(t, frags[1].HasReferences, "absent field")

	assert.True(t, frags[2].HasReferences, "explicit empty list")
	assert.NotNil(t, frags[2].References)
	assert.Empty(t, frags[2].References)
}

func TestDecoder_ReadErrorIsStreamError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(
		strings.NewReader("data: {\"answer\":\"Hi\"}\n"),
		iotest.ErrReader(boom),
	)

	d := NewDecoder(r, logger.NewNopLogger())
	require.True(t, d.Next())
	assert.Equal(t, "Hi", d.Fragment().Answer)

	assert.False(t, d.Next())
	require.Error(t, d.Err())
	assert.ErrorIs(t, d.Err(), apperr.ErrStream)
	assert.ErrorIs(t, d.Err(), boom)
}

func TestDecoder_SingleConsumption(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: {\"answer\":\"a\"}\n"), logger.NewNopLogger())
	assert.Len(t, collect(t, d), 1)
	assert.False(t, d.Next())
	assert.False(t, d.Next())
	assert.Equal(t, Fragment{}, d.Fragment())
}

func TestParseFrame(t *testing.T) {
	_, err := ParseFrame("[1,2")
	assert.ErrorIs(t, err, apperr.ErrDecode)

	frag, err := ParseFrame(`{"answer":"ok","references":null}`)
	require.NoError(t, err)
	assert.Equal(t, "ok", frag.Answer)
	assert.False(t, frag.HasReferences)
}
