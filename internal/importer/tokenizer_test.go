package importer_test

import (
	"strings"
	"testing"

	"github.com/car-storefront-api/internal/importer"
	"github.com/stretchr/testify/assert"
)

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "quoted comma kept",
			line: `Toyota,Corolla,2022,35000,125000.00,"Ótimo estado, revisado"`,
			want: []string{"Toyota", "Corolla", "2022", "35000", "125000.00", "Ótimo estado, revisado"},
		},
		{
			name: "empty line yields one empty field",
			line: "",
			want: []string{""},
		},
		{
			name: "trailing delimiter emits empty field",
			line: "a,b,",
			want: []string{"a", "b", ""},
		},
		{
			name: "fields are trimmed",
			line: "  Honda , Civic\t,  2021 ",
			want: []string{"Honda", "Civic", "2021"},
		},
		{
			name: "unbalanced quote keeps partial field",
			line: `a,"b,c`,
			want: []string{"a", "b,c"},
		},
		{
			name: "doubled quotes are dropped",
			line: `"a""b",c`,
			want: []string{"ab", "c"},
		},
		{
			name: "carriage return is trimmed",
			line: "a,b\r",
			want: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, importer.SplitLine(tt.line))
		})
	}
}

func TestSplitLine_FieldCountMatchesUnquotedCommas(t *testing.T) {
	lines := []string{
		`a,b,c`,
		`"x,y",z`,
		`,,,`,
		`"one, two, three"`,
		`Fiat,Uno,2010,120000,15000,"Motor 1.0, econômico",sold,false,"http://img/1.jpg",,`,
	}

	for _, line := range lines {
		commas := 0
		inQuotes := false
		for _, r := range line {
			switch {
			case r == '"':
				inQuotes = !inQuotes
			case r == ',' && !inQuotes:
				commas++
			}
		}
		assert.Len(t, importer.SplitLine(line), commas+1, "line %q", line)
	}
}

func TestSplitLine_NeverEmpty(t *testing.T) {
	for _, line := range []string{"", `"`, `""`, ",", strings.Repeat(`"`, 7)} {
		assert.NotEmpty(t, importer.SplitLine(line), "line %q", line)
	}
}
