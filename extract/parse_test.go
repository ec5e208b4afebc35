package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Signal
	}{
		{
			name: "plain record",
			raw:  "Chile | Lithium | 8 | Echoes 1938 Mexican oil nationalization",
			want: Signal{Country: "Chile", Mineral: "Lithium", Score: "8", HistoricalNote: "Echoes 1938 Mexican oil nationalization"},
		},
		{
			name: "fields are trimmed",
			raw:  "  Peru|Copper |  6|  Recalls the 2019 Las Bambas blockade  \n",
			want: Signal{Country: "Peru", Mineral: "Copper", Score: "6", HistoricalNote: "Recalls the 2019 Las Bambas blockade"},
		},
		{
			name: "extra fields ignored",
			raw:  "Indonesia | Nickel | 7 | Ore export ban of 2014 | extra | more",
			want: Signal{Country: "Indonesia", Mineral: "Nickel", Score: "7", HistoricalNote: "Ore export ban of 2014"},
		},
		{
			name: "sentinel values",
			raw:  "Global | Diversified | 3 | none",
			want: Signal{Country: "Global", Mineral: "Diversified", Score: "3", HistoricalNote: "none"},
		},
		{
			name: "blank country and mineral become sentinels",
			raw:  " |  | 2 | ",
			want: Signal{Country: GlobalCountry, Mineral: DiversifiedMineral, Score: "2", HistoricalNote: ""},
		},
		{
			name: "score kept raw",
			raw:  "China | Rare Earth | high | 2010 export quota dispute",
			want: Signal{Country: "China", Mineral: "Rare Earth", Score: "high", HistoricalNote: "2010 export quota dispute"},
		},
		{
			name: "preamble before record",
			raw:  "Here is the analysis:\nChile | Lithium | 8 | Echoes 1938",
			want: Signal{Country: "Chile", Mineral: "Lithium", Score: "8", HistoricalNote: "Echoes 1938"},
		},
		{
			name: "echoed header skipped",
			raw:  "Country | Mineral | Score | HistoricalNote\nChile | Lithium | 8 | Echoes 1938",
			want: Signal{Country: "Chile", Mineral: "Lithium", Score: "8", HistoricalNote: "Echoes 1938"},
		},
		{
			name: "line break before first separator",
			raw:  "Chile\n| Lithium | 8 | Echoes 1938",
			want: Signal{Country: "Chile", Mineral: "Lithium", Score: "8", HistoricalNote: "Echoes 1938"},
		},
		{
			name: "header-like text without a following record",
			raw:  "Country | Mineral | Score | note",
			want: Signal{Country: "Country", Mineral: "Mineral", Score: "Score", HistoricalNote: "note"},
		},
		{
			name: "preamble kept when the record needs it",
			raw:  "Chile | Lithium\n| 8 | Echoes 1938",
			want: Signal{Country: "Chile", Mineral: "Lithium", Score: "8", HistoricalNote: "Echoes 1938"},
		},
		{
			name: "code fence unwrapped",
			raw:  "```\nDRC | Copper | 9 | Katanga secession of 1960\n```",
			want: Signal{Country: "DRC", Mineral: "Copper", Score: "9", HistoricalNote: "Katanga secession of 1960"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "  \n\t "},
		{"no separator", "no data here"},
		{"no structured data", "no structured data available"},
		{"two fields", "France | Lithium"},
		{"three fields", "France | Lithium | 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

// Leading fields of any well-formed record come back trimmed and in order.
func TestParsePreservesFieldOrder(t *testing.T) {
	records := [][4]string{
		{"Chile", "Lithium", "8", "note"},
		{" Australia ", " Lithium", "4 ", " Pilbara strike "},
		{"Zambia", "Copper", "10", "1969 Mulungushi reforms"},
		{"Philippines", "Nickel", "0", "2017 mine closures"},
	}
	for _, r := range records {
		raw := r[0] + "|" + r[1] + "|" + r[2] + "|" + r[3]
		got, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, strings.TrimSpace(r[0]), got.Country)
		assert.Equal(t, strings.TrimSpace(r[1]), got.Mineral)
		assert.Equal(t, strings.TrimSpace(r[2]), got.Score)
		assert.Equal(t, strings.TrimSpace(r[3]), got.HistoricalNote)
	}
}
