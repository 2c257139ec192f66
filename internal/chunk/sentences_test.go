package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "two sentences",
			in:   "Revenue grew to $100 million in Q4 2023. Net income was $5 million.",
			want: []string{"Revenue grew to $100 million in Q4 2023.", "Net income was $5 million."},
		},
		{
			name: "decimals stay whole",
			in:   "EPS was $1.10 per share! Margins expanded 2.5 points.",
			want: []string{"EPS was $1.10 per share!", "Margins expanded 2.5 points."},
		},
		{
			name: "abbreviations",
			in:   "Mr. Smith joined Acme Inc. in 2020. U.S. sales rose.",
			want: []string{"Mr. Smith joined Acme Inc. in 2020.", "U.S. sales rose."},
		},
		{
			name: "lowercase continuation",
			in:   "Sales rose approx. 5% year over year.",
			want: []string{"Sales rose approx. 5% year over year."},
		},
		{
			name: "newlines split first",
			in:   "Line one\n\nLine two? Yes.",
			want: []string{"Line one", "Line two?", "Yes."},
		},
		{
			name: "quotes close the sentence",
			in:   `He said "we grew." Then he left.`,
			want: []string{`He said "we grew."`, "Then he left."},
		},
		{
			name: "nfkc normalizes non-breaking space",
			in:   "Revenue\u00a0was $5.",
			want: []string{"Revenue was $5."},
		},
		{
			name: "empty",
			in:   "  \n ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sentences(tt.in))
		})
	}
}
