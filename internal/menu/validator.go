// Package menu resolves free-text item mentions against the menu catalog.
package menu

import (
	"sort"
	"strings"

	"blink/internal/catalog"
	"blink/internal/domain"
)

type Config struct {
	// Threshold is the minimum score for a mention to resolve to an entry.
	Threshold float64
	// Margin is the minimum lead of the best entry over the runner-up.
	Margin float64
	// MaxCandidates bounds suggestion and clarification lists.
	MaxCandidates int
	// SuggestionFloor is the minimum score for a "did you mean" suggestion.
	SuggestionFloor float64
}

func DefaultConfig() Config {
	return Config{
		Threshold:       0.75,
		Margin:          0.08,
		MaxCandidates:   3,
		SuggestionFloor: 0.45,
	}
}

type Candidate struct {
	Item  domain.MenuItem
	Score float64
}

type Match struct {
	Mention  string
	Item     domain.MenuItem
	Quantity int
	Score    float64
}

type Unresolved struct {
	Mention    string
	Quantity   int
	Candidates []Candidate
}

type Result struct {
	Matched   []Match
	Unmatched []Unresolved
	Ambiguous []Unresolved
}

// Clean reports whether every mention resolved to exactly one entry.
func (r Result) Clean() bool {
	return len(r.Unmatched) == 0 && len(r.Ambiguous) == 0
}

// Err summarizes the worst outcome using the validation error taxonomy.
func (r Result) Err() error {
	switch {
	case len(r.Unmatched) > 0:
		return domain.ErrValidationUnmatched
	case len(r.Ambiguous) > 0:
		return domain.ErrValidationAmbiguous
	}
	return nil
}

type indexedEntry struct {
	item  domain.MenuItem
	names []string
}

type Validator struct {
	cfg     Config
	entries []indexedEntry
}

func NewValidator(c *catalog.Catalog, cfg Config) *Validator {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Margin < 0 {
		cfg.Margin = def.Margin
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = def.MaxCandidates
	}
	if cfg.SuggestionFloor <= 0 {
		cfg.SuggestionFloor = def.SuggestionFloor
	}

	items := c.Entries()
	entries := make([]indexedEntry, 0, len(items))
	for _, item := range items {
		names := []string{Normalize(item.Name)}
		for _, a := range item.Aliases {
			if n := Normalize(a); n != "" {
				names = append(names, n)
			}
		}
		entries = append(entries, indexedEntry{item: item, names: names})
	}
	return &Validator{cfg: cfg, entries: entries}
}

// Validate classifies each mention as matched, ambiguous or unmatched. Matches
// of the same entry are merged into one line with the summed quantity.
func (v *Validator) Validate(mentions []string) Result {
	var out Result
	matchIndex := map[string]int{}

	for _, raw := range mentions {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		qty, normalized := SplitQuantity(raw)
		if normalized == "" {
			out.Unmatched = append(out.Unmatched, Unresolved{Mention: raw, Quantity: qty})
			continue
		}

		ranked, exact := v.rank(normalized)
		switch {
		case len(exact) == 1:
			out.addMatch(matchIndex, Match{Mention: raw, Item: exact[0].Item, Quantity: qty, Score: 1})
		case len(exact) > 1:
			out.Ambiguous = append(out.Ambiguous, Unresolved{Mention: raw, Quantity: qty, Candidates: v.limit(exact)})
		case len(ranked) > 0 && ranked[0].Score >= v.cfg.Threshold:
			top := ranked[0]
			if len(ranked) == 1 || top.Score-ranked[1].Score >= v.cfg.Margin {
				out.addMatch(matchIndex, Match{Mention: raw, Item: top.Item, Quantity: qty, Score: top.Score})
				continue
			}
			out.Ambiguous = append(out.Ambiguous, Unresolved{
				Mention:    raw,
				Quantity:   qty,
				Candidates: v.limit(above(ranked, v.cfg.Threshold)),
			})
		default:
			out.Unmatched = append(out.Unmatched, Unresolved{
				Mention:    raw,
				Quantity:   qty,
				Candidates: v.limit(above(ranked, v.cfg.SuggestionFloor)),
			})
		}
	}
	return out
}

func (r *Result) addMatch(index map[string]int, m Match) {
	if i, ok := index[m.Item.Name]; ok {
		r.Matched[i].Quantity += m.Quantity
		return
	}
	index[m.Item.Name] = len(r.Matched)
	r.Matched = append(r.Matched, m)
}

// rank scores every entry by its best name and returns them best first, along
// with the entries whose canonical name or alias equals the mention. When some
// entry clears the threshold on edit distance or token overlap alone,
// containment no longer counts for any entry.
func (v *Validator) rank(normalized string) ([]Candidate, []Candidate) {
	ranked := make([]Candidate, 0, len(v.entries))
	directs := make([]float64, 0, len(v.entries))
	topDirect := 0.0
	var exact []Candidate
	for _, e := range v.entries {
		best, bestDirect := 0.0, 0.0
		for _, name := range e.names {
			score, direct := similarity(normalized, name)
			if score > best {
				best = score
			}
			if direct > bestDirect {
				bestDirect = direct
			}
		}
		c := Candidate{Item: e.item, Score: best}
		if best >= 1 {
			exact = append(exact, c)
		}
		ranked = append(ranked, c)
		directs = append(directs, bestDirect)
		if bestDirect > topDirect {
			topDirect = bestDirect
		}
	}
	if len(exact) == 0 && topDirect >= v.cfg.Threshold {
		for i := range ranked {
			ranked[i].Score = directs[i]
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked, exact
}

func (v *Validator) limit(cands []Candidate) []Candidate {
	if len(cands) > v.cfg.MaxCandidates {
		cands = cands[:v.cfg.MaxCandidates]
	}
	return append([]Candidate(nil), cands...)
}

func above(ranked []Candidate, floor float64) []Candidate {
	n := 0
	for n < len(ranked) && ranked[n].Score >= floor {
		n++
	}
	return ranked[:n]
}
