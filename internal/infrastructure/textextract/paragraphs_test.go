package textextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeParagraphs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "sentence end and blank line",
			in:   "First sentence.\n\nSecond one here.\nwraps on line\n\nThird",
			want: []string{"First sentence.", "Second one here. wraps on line Third"},
		},
		{
			name: "quadruple newline keeps the word",
			in:   "end\n\n\n\nnext part",
			want: []string{"end", "next part"},
		},
		{
			name: "hyphenated line break",
			in:   "the reac-\ntion proceeds",
			want: []string{"the reaction proceeds"},
		},
		{
			name: "tabs and double spaces",
			in:   "a\tb  c",
			want: []string{"a b c"},
		},
		{
			name: "private use infinity glyph",
			in:   "limit \uE060",
			want: []string{"limit INFINITY"},
		},
		{
			name: "crlf",
			in:   "One.\r\n\r\nTwo.",
			want: []string{"One.", "Two."},
		},
		{
			name: "empty",
			in:   "\n\n\n",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MakeParagraphs(tt.in))
		})
	}
}
