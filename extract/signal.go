// Package extract turns a headline into a geopolitical-risk Signal: it holds
// the instruction prompt sent to the model and the parser that validates the
// model's pipe-delimited reply.
package extract

// Sentinel values stored when the model leaves a field blank.
const (
	GlobalCountry      = "Global"
	DiversifiedMineral = "Diversified"
)

// Separator delimits the fields of a model reply.
const Separator = "|"

// Signal is the structured record extracted from one model reply.
//
// Score stays as the raw text the model produced; it is coerced and checked
// when the signal is written to the graph. Headline and Link are copied from
// the feed item by the caller.
type Signal struct {
	Country        string `json:"country"`
	Mineral        string `json:"mineral"`
	Score          string `json:"score"`
	HistoricalNote string `json:"historical_note"`
	Headline       string `json:"headline"`
	Link           string `json:"link"`
}
