package intent

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
	minAddressLen  = 6
)

var (
	phoneRun   = regexp.MustCompile(`\+?[\d(][\d\s().-]{5,}\d`)
	addressRun = regexp.MustCompile(`\b\d+[A-Za-z]?\s+\p{L}`)
)

// PhoneDigits strips separators and keeps a leading plus.
func PhoneDigits(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidPhone reports whether s has 7 to 15 digits once separators are removed.
func ValidPhone(s string) bool {
	d := strings.TrimPrefix(PhoneDigits(s), "+")
	if strings.ContainsRune(d, '+') {
		return false
	}
	return len(d) >= minPhoneDigits && len(d) <= maxPhoneDigits
}

// ExtractPhone returns the first phone-shaped run in text as spoken.
func ExtractPhone(text string) (string, bool) {
	for _, m := range phoneRun.FindAllString(text, -1) {
		m = strings.TrimSpace(m)
		if ValidPhone(m) {
			return m, true
		}
	}
	return "", false
}

// ExtractAddress returns the text from the first house number onwards when it
// looks like a street address.
func ExtractAddress(text string) (string, bool) {
	loc := addressRun.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	addr := strings.TrimRight(strings.TrimSpace(text[loc[0]:]), ".!?")
	if !ValidAddress(addr) {
		return "", false
	}
	return addr, true
}

// ValidAddress requires a house number, a word and at least six characters.
func ValidAddress(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= minAddressLen && addressRun.MatchString(s)
}

var (
	affirmWords   = wordSet("yes", "yeah", "yep", "yup", "sure", "correct", "confirm", "confirmed", "ok", "okay", "absolutely", "definitely", "right")
	affirmPhrases = []string{"go ahead", "sounds good", "that's right", "that is right", "place it", "please do", "do it"}
	negateWords   = wordSet("no", "nope", "nah", "cancel", "wrong", "incorrect", "don't", "dont", "stop")
	negatePhrases = []string{"not right", "start over", "scratch that", "never mind", "nevermind"}
	byeWords      = wordSet("bye", "goodbye", "farewell")
	byePhrases    = []string{"that's all", "that is all", "hang up", "see you", "nothing else", "i'm done", "im done"}
	donePhrases   = []string{"that's all", "that is all", "that's it", "that is it", "nothing else", "nothing more", "i'm done", "im done"}
)

// IsNegative is checked before IsAffirmative so "no, that's not right" never confirms.
func IsNegative(text string) bool {
	return matchesAny(text, negateWords, negatePhrases)
}

func IsAffirmative(text string) bool {
	return !IsNegative(text) && matchesAny(text, affirmWords, affirmPhrases)
}

func IsGoodbye(text string) bool {
	return matchesAny(text, byeWords, byePhrases)
}

// IsOrderComplete matches the ways callers say they have finished adding items.
// The same phrases end a call that has nothing pending.
func IsOrderComplete(text string) bool {
	return matchesAny(text, nil, donePhrases)
}

func matchesAny(text string, words map[string]struct{}, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	}) {
		if _, ok := words[w]; ok {
			return true
		}
	}
	padded := " " + strings.Join(strings.Fields(lower), " ") + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p) {
			return true
		}
	}
	return false
}

func wordSet(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}
