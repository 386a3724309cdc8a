package menu

import (
	"strconv"
	"strings"
	"unicode"
)

var numberWords = map[string]int{
	"zero": 0,
	"a":    1, "an": 1, "one": 1, "single": 1,
	"two": 2, "pair": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"dozen": 12,
}

// Words dropped between the quantity and the item ("two orders of the fries").
var fillerWords = map[string]struct{}{
	"of": {}, "the": {}, "x": {}, "order": {}, "orders": {}, "serving": {},
	"servings": {}, "piece": {}, "pieces": {}, "more": {}, "please": {},
}

// Words dropped after the item ("fries please", "a coke too").
var trailingWords = map[string]struct{}{
	"please": {}, "thanks": {}, "thx": {}, "too": {}, "also": {}, "then": {},
}

// Normalize lowercases text, turns punctuation into spaces, collapses
// whitespace and singularizes simple plurals word by word.
func Normalize(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = singularize(f)
	}
	return strings.Join(fields, " ")
}

func singularize(w string) string {
	if len(w) <= 3 {
		return w
	}
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "sses"),
		strings.HasSuffix(w, "ches"),
		strings.HasSuffix(w, "shes"),
		strings.HasSuffix(w, "xes"),
		strings.HasSuffix(w, "zes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ss"),
		strings.HasSuffix(w, "us"),
		strings.HasSuffix(w, "is"):
		return w
	case strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}

// SplitQuantity extracts an optional leading quantity from a raw mention and
// returns it with the normalized remainder. Missing quantities default to 1 and
// zero or negative quantities are clamped to 1.
func SplitQuantity(mention string) (int, string) {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(mention)))
	qty := 1
	if len(tokens) == 0 {
		return qty, ""
	}

	if n, ok := parseQuantityToken(tokens[0]); ok {
		qty = n
		tokens = tokens[1:]
		// "a couple of", "a dozen", "a pair of"
		if len(tokens) > 0 && qty == 1 {
			if next, ok := numberWords[strings.Trim(tokens[0], ",.")]; ok && next > 1 {
				qty = next
				tokens = tokens[1:]
			} else if tokens[0] == "couple" {
				qty = 2
				tokens = tokens[1:]
			}
		}
	} else if tokens[0] == "couple" {
		qty = 2
		tokens = tokens[1:]
	}

	for len(tokens) > 0 {
		if _, ok := fillerWords[strings.Trim(tokens[0], ",.")]; !ok {
			break
		}
		tokens = tokens[1:]
	}
	for len(tokens) > 0 {
		if _, ok := trailingWords[strings.Trim(tokens[len(tokens)-1], ",.!?")]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}

	if qty <= 0 {
		qty = 1
	}
	return qty, Normalize(strings.Join(tokens, " "))
}

func parseQuantityToken(tok string) (int, bool) {
	tok = strings.Trim(tok, ",.")
	if n, ok := numberWords[tok]; ok {
		return n, true
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(tok, "x"), "x")
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
