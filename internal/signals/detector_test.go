package signals

import (
	"reflect"
	"testing"
)

func TestDetectBreakingExample(t *testing.T) {
	got := Detect("BREAKING: Scientists confirm drinking cow urine daily cures cancer diabetes")
	want := []string{"Clickbait phrase: 'breaking'"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v", got)
	}
}

func TestDetectCleanText(t *testing.T) {
	got := Detect("Reserve Bank of India kept interest rates unchanged at 6.5 percent amid inflation concerns.")
	if len(got) != 0 {
		t.Fatalf("expected no signals, got %v", got)
	}
}

func TestDetectAllDetectorsInOrder(t *testing.T) {
	text := "SHOCKING TRUTH EXPOSED!!! Is it real???? The DEEP STATE hides it"
	got := Detect(text)
	want := []string{
		"Excessive capitalization detected",
		"Clickbait phrase: 'shocking'",
		"Multiple exclamation marks detected",
		"Excessive question marks detected",
		"All-caps words detected: SHOCKING, TRUTH, EXPOSED!!!",
		"Conspiracy keyword: 'deep state'",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}

func TestPunctuationThresholds(t *testing.T) {
	if s := Detect("calm text with two marks!! and three??? only"); len(s) != 0 {
		t.Fatalf("thresholds are exclusive, got %v", s)
	}
	s := Detect("calm text with three marks!!! and nothing else here")
	if len(s) != 1 || s[0] != "Multiple exclamation marks detected" {
		t.Fatalf("got %v", s)
	}
}

func TestAllCapsNeedsTwoWords(t *testing.T) {
	if s := Detect("only one LOUD word in this rather long sentence"); len(s) != 0 {
		t.Fatalf("got %v", s)
	}
	words := AllCapsWords("NASA and ISRO met; USA is short, 123 has no letters")
	if !reflect.DeepEqual(words, []string{"NASA", "ISRO"}) {
		t.Fatalf("got %v", words)
	}
}

func TestCapsRatioEmpty(t *testing.T) {
	if r := CapsRatio(""); r != 0 {
		t.Fatalf("ratio %v", r)
	}
	if r := CapsRatio("AB"); r != 1 {
		t.Fatalf("ratio %v", r)
	}
}

func TestAnalyzeKinds(t *testing.T) {
	got := Analyze("a cover up by the illuminati, deep state too")
	if len(got) != 1 || got[0].Kind != KindConspiracy || got[0].Message != "Conspiracy keyword: 'illuminati'" {
		t.Fatalf("got %+v", got)
	}
}

func TestDetectDeterministic(t *testing.T) {
	text := "VIRAL FORWARD: Eating 5 bananas daily makes antibodies stronger!"
	a, b := Detect(text), Detect(text)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("not deterministic")
	}
}

func TestKindOfRoundTrip(t *testing.T) {
	text := "SHOCKING NEWS!!! Is it TRUE??? Are they HIDING it???? the deep state cover up"
	for _, s := range Analyze(text) {
		k, ok := KindOf(s.Message)
		if !ok || k != s.Kind {
			t.Fatalf("KindOf(%q) = %v %v, want %v", s.Message, k, ok, s.Kind)
		}
	}
	if _, ok := KindOf("something else"); ok {
		t.Fatalf("unknown message must not map to a kind")
	}
}
