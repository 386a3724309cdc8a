// Package satisfaction estimates how pleased a caller sounds from the words of
// a single utterance.
package satisfaction

import (
	"math"
	"strings"
	"unicode/utf8"
)

const Engine = "go-lexical-v1"

type Result struct {
	Mood       string  `json:"mood"`
	Valence    float64 `json:"valence"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// valence runs from -1 (hostile) to 1 (delighted).
var valence = map[string]float64{
	"neutral":      0.00,
	"pleased":      0.70,
	"grateful":     0.60,
	"relieved":     0.45,
	"confused":     -0.15,
	"impatient":    -0.45,
	"frustrated":   -0.55,
	"disappointed": -0.60,
	"angry":        -0.80,
}

var moodHints = []struct {
	mood  string
	hints []string
}{
	{mood: "pleased", hints: []string{"great", "perfect", "awesome", "excellent", "sounds good", "lovely", "love it", "nice", "delicious", "yum", "amazing"}},
	{mood: "grateful", hints: []string{"thanks", "thank you", "appreciate", "cheers", "much obliged"}},
	{mood: "relieved", hints: []string{"finally", "phew", "at last", "that's better"}},
	{mood: "confused", hints: []string{"huh", "confusing", "don't understand", "not sure what", "what do you mean"}},
	{mood: "impatient", hints: []string{"hurry", "how long", "taking forever", "come on", "already told you", "i already said"}},
	{mood: "frustrated", hints: []string{"annoying", "ugh", "not what i said", "that's wrong", "again", "seriously", "i said"}},
	{mood: "disappointed", hints: []string{"disappointed", "too bad", "that sucks", "shame", "sold out", "out of stock"}},
	{mood: "angry", hints: []string{"terrible", "ridiculous", "useless", "stupid", "awful", "worst", "hate", "garbage"}},
}

// Analyze scores text. ok is false when the text carries no mood cue at all.
func (a *Analyzer) Analyze(text string) (Result, bool) {
	t := " " + strings.Join(strings.Fields(strings.ToLower(text)), " ") + " "
	if strings.TrimSpace(t) == "" {
		return neutral(), false
	}

	scores := moodScores(t)
	total := 0.0
	weighted := 0.0
	top, topScore := "neutral", 0.0
	for _, item := range moodHints {
		s := scores[item.mood]
		total += s
		weighted += s * valence[item.mood]
		if s > topScore {
			top, topScore = item.mood, s
		}
	}
	if total <= 1e-9 {
		return neutral(), false
	}

	v := clamp(weighted/total, -1, 1)
	// exclamation amplifies whichever way the caller leans
	if strings.Contains(t, "!") {
		v = clamp(v*1.2, -1, 1)
	}
	evidence := math.Min(1.0, total/3.0)
	return Result{
		Mood:       top,
		Valence:    round(v, 3),
		Score:      round((v+1)/2, 3),
		Confidence: round(clamp(0.5+0.3*(topScore/total)+0.2*evidence, 0.5, 0.99), 3),
	}, true
}

// Score adapts Analyze to the turn pipeline: a satisfaction in [0,1].
func (a *Analyzer) Score(text string) (float64, bool) {
	res, ok := a.Analyze(text)
	if !ok {
		return 0, false
	}
	return res.Score, true
}

func moodScores(padded string) map[string]float64 {
	scores := make(map[string]float64, len(moodHints))
	for _, item := range moodHints {
		for _, h := range item.hints {
			if containsWord(padded, h) {
				scores[item.mood] += 1.0 + math.Min(float64(utf8.RuneCountInString(h))/10.0, 1.0)
			}
		}
	}
	if strings.Contains(padded, "?") {
		scores["confused"] += 0.3
	}
	return scores
}

// containsWord matches hint on word boundaries of an already padded, lowercased text.
func containsWord(padded, hint string) bool {
	i := strings.Index(padded, hint)
	for i >= 0 {
		end := i + len(hint)
		if boundary(padded, i-1) && boundary(padded, end) {
			return true
		}
		next := strings.Index(padded[i+1:], hint)
		if next < 0 {
			return false
		}
		i += next + 1
	}
	return false
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '\'')
}

func neutral() Result {
	return Result{Mood: "neutral", Score: 0.5, Confidence: 0.5}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func round(v float64, precision int) float64 {
	p := math.Pow10(precision)
	return math.Round(v*p) / p
}
