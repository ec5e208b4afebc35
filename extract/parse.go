package extract

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ErrMalformedResponse is returned when a model reply does not have the
// `Country | Mineral | Score | HistoricalNote` shape.
var ErrMalformedResponse = errors.New("georisk: malformed model response")

// fieldCount is the number of leading fields that make up a record.
const fieldCount = 4

// codeFenceRe strips markdown code fences some models wrap their reply in.
var codeFenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)\\n?```")

// Parse validates a raw model reply and decodes it into a Signal.
//
// The reply is untrusted: it must contain the separator and at least four
// fields. Fields are trimmed; anything after the fourth field is ignored.
// Blank country and mineral fields become GlobalCountry and
// DiversifiedMineral. Parse does not interpret Score.
func Parse(raw string) (Signal, error) {
	if strings.TrimSpace(raw) == "" {
		return Signal{}, fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}

	record, ok := recordText(raw)
	if !ok {
		return Signal{}, fmt.Errorf("%w: no %q separator in %q", ErrMalformedResponse, Separator, truncate(raw, 80))
	}

	fields := strings.Split(record, Separator)
	if len(fields) < fieldCount {
		return Signal{}, fmt.Errorf("%w: got %d fields, need %d", ErrMalformedResponse, len(fields), fieldCount)
	}

	sig := Signal{
		Country:        strings.TrimSpace(fields[0]),
		Mineral:        strings.TrimSpace(fields[1]),
		Score:          strings.TrimSpace(fields[2]),
		HistoricalNote: strings.TrimSpace(fields[3]),
	}
	if sig.Country == "" {
		sig.Country = GlobalCountry
	}
	if sig.Mineral == "" {
		sig.Mineral = DiversifiedMineral
	}
	return sig, nil
}

// recordText locates the record inside a reply. Code fences are unwrapped.
// Lines before the first separator-bearing line are dropped as preamble
// only when that line opens with a field and the rest still holds a full
// record; a line opening with the separator continues the first field.
// An echoed format header is skipped only when a full record follows it.
func recordText(raw string) (string, bool) {
	if m := codeFenceRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}
	if !strings.Contains(raw, Separator) {
		return "", false
	}

	lines := strings.Split(raw, "\n")
	first := slices.IndexFunc(lines, hasSeparator)
	if first > 0 && !opensWithSeparator(lines[first]) && isRecord(lines[first:]) {
		lines = lines[first:]
		first = 0
	}

	if first == 0 && isHeaderLine(lines[0]) {
		if next := slices.IndexFunc(lines[1:], hasSeparator); next >= 0 {
			rest := lines[next+1:]
			if !opensWithSeparator(rest[0]) && isRecord(rest) {
				lines = rest
			}
		}
	}
	return strings.Join(lines, "\n"), true
}

func hasSeparator(line string) bool {
	return strings.Contains(line, Separator)
}

func opensWithSeparator(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), Separator)
}

func isRecord(lines []string) bool {
	return len(strings.Split(strings.Join(lines, "\n"), Separator)) >= fieldCount
}

func isHeaderLine(line string) bool {
	fields := strings.Split(line, Separator)
	if len(fields) < 3 {
		return false
	}
	want := []string{"country", "mineral", "score"}
	for i, w := range want {
		if strings.ToLower(strings.Trim(strings.TrimSpace(fields[i]), "*")) != w {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
