package lexicon

import "testing"

func TestMatcherFirstUsesListOrder(t *testing.T) {
	m := NewMatcher([]string{"breaking", "secret", "shocking"})
	// "shocking" appears first in the text but "secret" has priority in the list.
	got, ok := m.First("Shocking! a SECRET plan")
	if !ok || got != "secret" {
		t.Fatalf("expected secret, got %q %v", got, ok)
	}
}

func TestMatcherNoHit(t *testing.T) {
	m := ClickbaitMatcher()
	if _, ok := m.First("Reserve Bank of India kept interest rates unchanged"); ok {
		t.Fatalf("expected no clickbait hit")
	}
	if m.Any("") {
		t.Fatalf("empty text must not match")
	}
}

func TestMatcherPhraseWithApostrophe(t *testing.T) {
	got, ok := ClickbaitMatcher().First("What THEY DON'T WANT you to know")
	if !ok || got != "they don't want" {
		t.Fatalf("unexpected %q %v", got, ok)
	}
}

func TestSensationalCoversForward(t *testing.T) {
	if !SensationalMatcher().Any("forward this to everyone now") {
		t.Fatalf("expected sensational hit")
	}
}

func TestStopWords(t *testing.T) {
	for _, w := range []string{"the", "news", "three", "according"} {
		if !IsStopWord(w) {
			t.Fatalf("%q should be a stop word", w)
		}
	}
	if IsStopWord("cancer") {
		t.Fatalf("cancer is not a stop word")
	}
}
