package search

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer reshapes a title that was not found so that one more lookup
// can be attempted. It must be deterministic. A nil Normalizer disables
// the fallback.
type Normalizer func(title string) string

// Normalization strategy names accepted by ParseNormalizer.
const (
	NormalizeNone        = "none"
	NormalizeFirstLetter = "first-letter"
	NormalizeWordInitial = "word-initial"
)

// FirstLetter upper-cases the first rune and leaves the rest untouched.
func FirstLetter(title string) string {
	r, size := utf8.DecodeRuneInString(title)
	if r == utf8.RuneError {
		return title
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return title
	}
	return string(upper) + title[size:]
}

// WordInitial upper-cases the first rune of every word and leaves the other
// runes untouched, e.g. "paul singer (businessman)" becomes
// "Paul Singer (Businessman)".
func WordInitial(title string) string {
	// Casers carry state and must not be shared between goroutines.
	return cases.Title(language.Und, cases.NoLower).String(title)
}

// ParseNormalizer returns the strategy registered under name.
func ParseNormalizer(name string) (Normalizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NormalizeNone, "":
		return nil, nil
	case NormalizeFirstLetter:
		return FirstLetter, nil
	case NormalizeWordInitial:
		return WordInitial, nil
	}
	return nil, fmt.Errorf("%w: unknown normalization %q", ErrInvalidOption, name)
}
