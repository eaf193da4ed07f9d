package quality

import (
	"strings"
	"unicode"

	"github.com/surgebase/porter2"

	"github.com/standardbeagle/unitsync/internal/frontend"
)

// minStemLength leaves short words such as "is" or "to" untouched
const minStemLength = 3

// splitName breaks an identifier into lower-case words at underscores, hyphens,
// dots, camelCase humps and acronym boundaries ("parseHTTPHeader" gives parse,
// http, header).
func splitName(name string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(name)
	for i, ch := range runes {
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) {
			flush()
			continue
		}
		if i > 0 && len(cur) > 0 {
			prev := runes[i-1]
			switch {
			case unicode.IsLower(prev) && unicode.IsUpper(ch):
				flush()
			case unicode.IsUpper(prev) && unicode.IsUpper(ch) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				flush()
			case unicode.IsDigit(prev) != unicode.IsDigit(ch):
				flush()
			}
		}
		cur = append(cur, ch)
	}
	flush()
	return words
}

func stem(word string) string {
	if len(word) < minStemLength {
		return word
	}
	return porter2.Stem(word)
}

// stemKey normalizes an identifier to its joined word stems
func stemKey(name string) string {
	words := splitName(name)
	for i, w := range words {
		words[i] = stem(w)
	}
	return strings.Join(words, "_")
}

// lastSegment returns the part of an id after its final "::"
func lastSegment(id string) string {
	if i := strings.LastIndex(id, "::"); i >= 0 {
		return id[i+2:]
	}
	return id
}

// NameAffinity reports whether the test named by testID looks like it was
// named after the declaration named by codeID. The test name is stripped of
// its test affix and both names are compared by word stems; a focal name
// contained in the test name also counts ("test_parse_args_empty" and
// "parse_args").
func NameAffinity(testID, codeID string) bool {
	focal := stemKey(lastSegment(codeID))
	if focal == "" {
		return false
	}
	test := stemKey(frontend.FuzzyFocalName(lastSegment(testID)))
	if test == focal {
		return true
	}
	return strings.HasPrefix(test, focal+"_") || strings.HasSuffix(test, "_"+focal) ||
		strings.Contains(test, "_"+focal+"_")
}
