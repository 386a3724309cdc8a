package satisfaction

import "testing"

func TestAnalyzePleased(t *testing.T) {
	a := NewAnalyzer()
	got, ok := a.Analyze("Thanks, that's perfect")
	if !ok {
		t.Fatal("expected a mood cue")
	}
	if got.Mood != "pleased" {
		t.Fatalf("mood=%s, want pleased", got.Mood)
	}
	if got.Score <= 0.75 {
		t.Fatalf("score=%.3f, want > 0.75", got.Score)
	}
}

func TestAnalyzeAngry(t *testing.T) {
	a := NewAnalyzer()
	got, ok := a.Analyze("This is ridiculous, I said no onions")
	if !ok {
		t.Fatal("expected a mood cue")
	}
	if got.Mood != "angry" {
		t.Fatalf("mood=%s, want angry", got.Mood)
	}
	if got.Score >= 0.25 {
		t.Fatalf("score=%.3f, want < 0.25", got.Score)
	}
}

func TestAnalyzeExclamationAmplifies(t *testing.T) {
	a := NewAnalyzer()
	plain, _ := a.Analyze("great")
	loud, _ := a.Analyze("great!")
	if loud.Score <= plain.Score {
		t.Fatalf("loud=%.3f plain=%.3f, want loud > plain", loud.Score, plain.Score)
	}
}

func TestAnalyzeNoCue(t *testing.T) {
	a := NewAnalyzer()
	for _, text := range []string{"two cheeseburgers", "", "cut nicely please", "the thanksgiving special"} {
		got, ok := a.Analyze(text)
		if ok {
			t.Fatalf("%q: unexpected cue, mood=%s", text, got.Mood)
		}
		if got.Score != 0.5 {
			t.Fatalf("%q: score=%.3f, want 0.5", text, got.Score)
		}
	}
}

func TestScore(t *testing.T) {
	a := NewAnalyzer()
	if _, ok := a.Score("a lemonade"); ok {
		t.Fatal("expected no score without a cue")
	}
	s, ok := a.Score("awful")
	if !ok || s >= 0.5 {
		t.Fatalf("score=%.3f ok=%v, want a low score", s, ok)
	}
}
