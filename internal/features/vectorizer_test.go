package features

import (
	"math"
	"reflect"
	"testing"
)

func TestNGrams(t *testing.T) {
	got := NGrams([]string{"cow", "urine", "cures", "cancer"}, 1, 3)
	want := []string{
		"cow", "urine", "cures", "cancer",
		"cow urine", "urine cures", "cures cancer",
		"cow urine cures", "urine cures cancer",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v", got)
	}
	if g := NGrams(nil, 1, 3); len(g) != 0 {
		t.Fatalf("expected no n-grams for empty input, got %v", g)
	}
}

func TestFitVocabularyAndIDF(t *testing.T) {
	corpus := [][]string{
		{"bank", "rates"},
		{"bank", "cure"},
	}
	v, vecs := Fit(corpus, Options{MinN: 1, MaxN: 2, MaxFeatures: 100})
	wantTerms := []string{"bank", "bank cure", "bank rates", "cure", "rates"}
	if v.Len() != len(wantTerms) {
		t.Fatalf("vocab size %d", v.Len())
	}
	for i, term := range wantTerms {
		if v.Term(i) != term {
			t.Fatalf("term %d = %q, want %q", i, v.Term(i), term)
		}
	}
	bank, _ := v.Lookup("bank")
	if got := v.IDF(bank); math.Abs(got-1.0) > 1e-12 {
		t.Fatalf("idf for term in every doc should be 1, got %v", got)
	}
	cure, _ := v.Lookup("cure")
	if want := math.Log(3.0/2.0) + 1; math.Abs(v.IDF(cure)-want) > 1e-12 {
		t.Fatalf("idf cure %v want %v", v.IDF(cure), want)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors")
	}
	for _, fv := range vecs {
		assertUnitNorm(t, fv)
	}
}

func TestFitCapRanksByFrequencyThenFirstSeen(t *testing.T) {
	corpus := [][]string{
		{"zeta", "alpha", "zeta"},
		{"beta", "gamma"},
	}
	v, _ := Fit(corpus, Options{MinN: 1, MaxN: 1, MaxFeatures: 2})
	// zeta has count 2; alpha, beta, gamma tie at 1 and alpha was seen first.
	if v.Len() != 2 {
		t.Fatalf("vocab size %d", v.Len())
	}
	if _, ok := v.Lookup("zeta"); !ok {
		t.Fatalf("zeta must survive the cap")
	}
	if _, ok := v.Lookup("alpha"); !ok {
		t.Fatalf("alpha must win the tie")
	}
	if _, ok := v.Lookup("gamma"); ok {
		t.Fatalf("gamma should be cut")
	}
}

func TestSublinearTF(t *testing.T) {
	corpus := [][]string{{"spam", "spam", "spam", "ham"}, {"eggs"}}
	v, vecs := Fit(corpus, Options{MinN: 1, MaxN: 1})
	spam, _ := v.Lookup("spam")
	ham, _ := v.Lookup("ham")
	fv := vecs[0]
	vals := map[int]float64{}
	for k, i := range fv.Indices {
		vals[i] = fv.Values[k]
	}
	ratio := vals[spam] / vals[ham]
	if want := 1 + math.Log(3); math.Abs(ratio-want) > 1e-9 {
		t.Fatalf("ratio %v want %v", ratio, want)
	}
}

func TestTransformDropsUnknownNGrams(t *testing.T) {
	v, _ := Fit([][]string{{"reserve", "bank"}}, DefaultOptions())
	fv := Transform([]string{"completely", "unknown", "words"}, v)
	if fv.Len() != 0 {
		t.Fatalf("expected empty vector, got %+v", fv)
	}
	if fv.Dot([]float64{1, 2, 3}) != 0 {
		t.Fatalf("zero vector must have zero dot product")
	}
	fv = Transform([]string{"reserve", "unknown"}, v)
	if fv.Len() != 1 {
		t.Fatalf("expected one known n-gram, got %+v", fv)
	}
	assertUnitNorm(t, fv)
}

func TestTransformMatchesFit(t *testing.T) {
	corpus := [][]string{
		{"shocking", "government", "secretly", "planning"},
		{"reserve", "bank", "kept", "rates", "unchanged"},
	}
	v, vecs := Fit(corpus, DefaultOptions())
	for i, doc := range corpus {
		if got := Transform(doc, v); !reflect.DeepEqual(got, vecs[i]) {
			t.Fatalf("doc %d: transform %v != fit %v", i, got, vecs[i])
		}
	}
}

func TestSnapshotRoundTripAndValidation(t *testing.T) {
	v, _ := Fit([][]string{{"alpha", "beta"}}, DefaultOptions())
	back, err := FromSnapshot(v.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back.Snapshot(), v.Snapshot()) {
		t.Fatalf("snapshot mismatch")
	}
	bad := v.Snapshot()
	bad.IDF = bad.IDF[:1]
	if _, err := FromSnapshot(bad); err == nil {
		t.Fatalf("expected error for mismatched lengths")
	}
	dup := Snapshot{Terms: []string{"a", "a"}, IDF: []float64{1, 1}, MinN: 1, MaxN: 1}
	if _, err := FromSnapshot(dup); err == nil {
		t.Fatalf("expected error for duplicate terms")
	}
}

func assertUnitNorm(t *testing.T, fv FeatureVector) {
	t.Helper()
	sum := 0.0
	for _, x := range fv.Values {
		if x < 0 {
			t.Fatalf("negative weight %v", x)
		}
		sum += x * x
	}
	if math.Abs(math.Sqrt(sum)-1) > 1e-9 {
		t.Fatalf("norm %v", math.Sqrt(sum))
	}
}
