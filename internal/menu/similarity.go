package menu

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// tokenMatchFloor is the edit ratio at which two tokens count as the same word.
const tokenMatchFloor = 0.8

// Similarity scores two normalized strings in [0,1]. Equal strings score 1.
// Otherwise the score is the best of the edit-distance ratio, token overlap and
// a whole-word containment score. A short mention found inside a longer name
// scores in [0.80,0.95); a name found inside a longer mention scores lower, in
// [0.75,0.90), so a near-exact typo of a longer name outranks it.
func Similarity(a, b string) float64 {
	score, _ := similarity(a, b)
	return score
}

// similarity returns the overall score and the direct score without the
// containment bonus.
func similarity(a, b string) (float64, float64) {
	if a == "" || b == "" {
		return 0, 0
	}
	if a == b {
		return 1, 1
	}

	direct := editRatio(a, b)
	if d := tokenDice(a, b); d > direct {
		direct = d
	}
	score := direct
	if c := containment(a, b); c > score {
		score = c
	}
	return score, direct
}

func containment(mention, name string) float64 {
	lm, ln := utf8.RuneCountInString(mention), utf8.RuneCountInString(name)
	switch {
	case lm < ln && strings.Contains(" "+name+" ", " "+mention+" "):
		return 0.80 + 0.15*float64(lm)/float64(ln)
	case ln < lm && strings.Contains(" "+mention+" ", " "+name+" "):
		return 0.75 + 0.15*float64(ln)/float64(lm)
	}
	return 0
}

func editRatio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// tokenDice is the Dice overlap of the two token lists. Tokens pair up one to
// one; a pair of near-identical tokens counts by its edit ratio.
func tokenDice(a, b string) float64 {
	ta, tb := strings.Fields(a), strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	used := make([]bool, len(ta))
	common := 0.0
	for _, t := range tb {
		best, bestScore := -1, 0.0
		for i, u := range ta {
			if used[i] {
				continue
			}
			s := 1.0
			if u != t {
				s = editRatio(u, t)
			}
			if s > bestScore {
				best, bestScore = i, s
			}
		}
		if best >= 0 && bestScore >= tokenMatchFloor {
			used[best] = true
			common += bestScore
		}
	}
	return 2 * common / float64(len(ta)+len(tb))
}
