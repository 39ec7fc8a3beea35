package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "terminal punctuation",
			text: "This is the first sentence. This is the second sentence! Is this the third sentence? Yes, and this is the fourth.",
			want: []string{
				"This is the first sentence.",
				"This is the second sentence!",
				"Is this the third sentence?",
				"Yes, and this is the fourth.",
			},
		},
		{
			name: "abbreviations and acronyms",
			text: "Dr. Smith went to the U.S.A. He arrived on Monday. What a trip!",
			want: []string{"Dr. Smith went to the U.S.A.", "He arrived on Monday.", "What a trip!"},
		},
		{
			name: "decimals and p values",
			text: "Pain fell by 3.5 points (p < 0.001). Adverse events were rare.",
			want: []string{"Pain fell by 3.5 points (p < 0.001).", "Adverse events were rare."},
		},
		{
			name: "citation and e.g.",
			text: "As shown by Smith et al. Results differ. Drugs, e.g. Aspirin, were excluded.",
			want: []string{"As shown by Smith et al. Results differ.", "Drugs, e.g. Aspirin, were excluded."},
		},
		{
			name: "initials",
			text: "Samples were analysed by J. Smith. Data were pooled.",
			want: []string{"Samples were analysed by J. Smith.", "Data were pooled."},
		},
		{
			name: "sentence starting with a number",
			text: "We enrolled patients. 125 completed follow-up.",
			want: []string{"We enrolled patients.", "125 completed follow-up."},
		},
		{
			name: "abbreviation before a lowercase word",
			text: "Values were approx. equal in both arms.",
			want: []string{"Values were approx. equal in both arms."},
		},
		{
			name: "sentence starting with a lowercase gene name",
			text: "We measured IL-6. mRNA levels rose in all arms. p53 expression was unchanged.",
			want: []string{"We measured IL-6.", "mRNA levels rose in all arms.", "p53 expression was unchanged."},
		},
		{
			name: "all lowercase text",
			text: "to study x. we did y.",
			want: []string{"to study x.", "we did y."},
		},
		{
			name: "dotted acronym before a lowercase word",
			text: "Trials in the U.S. were pooled. eGFR declined.",
			want: []string{"Trials in the U.S. were pooled.", "eGFR declined."},
		},
		{
			name: "lowercase after et al.",
			text: "As reported by Smith et al. in 2010, doses varied.",
			want: []string{"As reported by Smith et al. in 2010, doses varied."},
		},
		{
			name: "closing parenthesis after period",
			text: "Outcomes improved (see appendix.) Further work is needed.",
			want: []string{"Outcomes improved (see appendix.)", "Further work is needed."},
		},
		{
			name: "wrapped lines and paragraphs",
			text: "Background text\nthat wraps.\n\nMethods without a period\n\nResults.",
			want: []string{"Background text that wraps.", "Methods without a period", "Results."},
		},
		{
			name: "no terminal punctuation",
			text: "  a single fragment  ",
			want: []string{"a single fragment"},
		},
		{
			name: "empty",
			text: " \n\t ",
			want: nil,
		},
	}
	s := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Segment(tt.text))
		})
	}
}

func TestWithAbbreviations(t *testing.T) {
	text := "Patients received 5 mg. Dose was doubled."
	assert.Len(t, New().Segment(text), 2)
	assert.Equal(t, []string{text}, New(WithAbbreviations("MG.")).Segment(text))
}
