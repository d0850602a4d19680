package tokenizer

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "plain words",
			in:   "aap noot mies",
			want: []string{"aap", "noot", "mies"},
		},
		{
			name: "trailing punctuation dropped",
			in:   "De aap krijgt een noot van Mies.",
			want: []string{"De", "aap", "krijgt", "een", "noot", "van", "Mies"},
		},
		{
			name: "casing preserved",
			in:   "Amsterdam NOT amsterdam",
			want: []string{"Amsterdam", "NOT", "amsterdam"},
		},
		{
			name: "quotes and bangs filtered",
			in:   `"hallo" wereld!`,
			want: []string{"hallo", "wereld"},
		},
		{
			name: "ellipsis and question mark filtered",
			in:   "waar… ben je?",
			want: []string{"waar", "ben", "je"},
		},
		{
			name: "parens colon asterisk percent",
			in:   "prijs (incl: btw) * 10%",
			want: []string{"prijs", "incl", "btw", "10"},
		},
		{
			name: "numbers survive",
			in:   "route 66",
			want: []string{"route", "66"},
		},
		{
			name: "empty input",
			in:   "",
			want: nil,
		},
		{
			name: "only punctuation",
			in:   "... !!! ???",
			want: nil,
		},
		{
			name: "unicode words",
			in:   "café São Paulo",
			want: []string{"café", "São", "Paulo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTokenizeNeverEmitsEmptyTokens(t *testing.T) {
	for _, tok := range Tokenize("  spaties \t overal \n hier  ") {
		if strings.TrimSpace(tok) == "" {
			t.Fatalf("got whitespace token %q", tok)
		}
	}
}

func BenchmarkTokenize(b *testing.B) {
	text := strings.Repeat("De aap krijgt een noot van Mies. Wim bakt koekjes met de zus van Jet. ", 50)
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		Tokenize(text)
	}
}
