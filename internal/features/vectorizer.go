// Package features converts normalized token streams into sparse TF-IDF
// vectors over a fixed n-gram vocabulary.
package features

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Options controls vocabulary fitting.
type Options struct {
	MinN        int `yaml:"minN"`
	MaxN        int `yaml:"maxN"`
	MaxFeatures int `yaml:"maxFeatures"`
}

// DefaultOptions returns unigrams to trigrams capped at 10,000 entries.
func DefaultOptions() Options {
	return Options{MinN: 1, MaxN: 3, MaxFeatures: 10000}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinN <= 0 {
		o.MinN = d.MinN
	}
	if o.MaxN < o.MinN {
		o.MaxN = o.MinN
	}
	if o.MaxFeatures <= 0 {
		o.MaxFeatures = d.MaxFeatures
	}
	return o
}

// FeatureVector is a sparse vector: Indices ascending, Values parallel to them.
type FeatureVector struct {
	Indices []int     `json:"i"`
	Values  []float64 `json:"v"`
}

// Len returns the number of non-zero entries.
func (fv FeatureVector) Len() int { return len(fv.Indices) }

// Dot returns the inner product with a dense weight vector. Indices outside w
// contribute nothing.
func (fv FeatureVector) Dot(w []float64) float64 {
	sum := 0.0
	for k, i := range fv.Indices {
		if i >= 0 && i < len(w) {
			sum += fv.Values[k] * w[i]
		}
	}
	return sum
}

// Vocabulary maps n-grams to stable indices and carries their IDF weights.
// It is read-only once built and safe to share between goroutines.
type Vocabulary struct {
	terms []string
	idf   []float64
	index map[string]int
	minN  int
	maxN  int
}

// Snapshot is the serialisable form of a Vocabulary.
type Snapshot struct {
	Terms []string  `json:"terms"`
	IDF   []float64 `json:"idf"`
	MinN  int       `json:"min_n"`
	MaxN  int       `json:"max_n"`
}

var ErrCorruptVocabulary = errors.New("features: corrupt vocabulary")

// FromSnapshot rebuilds a Vocabulary, validating its shape.
func FromSnapshot(s Snapshot) (*Vocabulary, error) {
	if len(s.Terms) != len(s.IDF) {
		return nil, fmt.Errorf("%w: %d terms, %d idf weights", ErrCorruptVocabulary, len(s.Terms), len(s.IDF))
	}
	if s.MinN <= 0 || s.MaxN < s.MinN {
		return nil, fmt.Errorf("%w: n-gram range [%d,%d]", ErrCorruptVocabulary, s.MinN, s.MaxN)
	}
	v := &Vocabulary{
		terms: append([]string(nil), s.Terms...),
		idf:   append([]float64(nil), s.IDF...),
		index: make(map[string]int, len(s.Terms)),
		minN:  s.MinN,
		maxN:  s.MaxN,
	}
	for i, t := range v.terms {
		if _, dup := v.index[t]; dup {
			return nil, fmt.Errorf("%w: duplicate term %q", ErrCorruptVocabulary, t)
		}
		if v.idf[i] <= 0 || math.IsNaN(v.idf[i]) {
			return nil, fmt.Errorf("%w: idf for %q is %v", ErrCorruptVocabulary, t, v.idf[i])
		}
		v.index[t] = i
	}
	return v, nil
}

// Snapshot copies the vocabulary into its serialisable form.
func (v *Vocabulary) Snapshot() Snapshot {
	return Snapshot{
		Terms: append([]string(nil), v.terms...),
		IDF:   append([]float64(nil), v.idf...),
		MinN:  v.minN,
		MaxN:  v.maxN,
	}
}

// Len is the vocabulary size, which is also the feature dimension.
func (v *Vocabulary) Len() int { return len(v.terms) }

// Lookup returns the index of an n-gram.
func (v *Vocabulary) Lookup(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Term returns the n-gram at index i.
func (v *Vocabulary) Term(i int) string { return v.terms[i] }

// IDF returns the inverse document frequency weight at index i.
func (v *Vocabulary) IDF(i int) float64 { return v.idf[i] }

// NGrams enumerates contiguous n-grams for n in [minN, maxN], shortest first.
func NGrams(tokens []string, minN, maxN int) []string {
	var out []string
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

func countNGrams(tokens []string, minN, maxN int) map[string]int {
	counts := make(map[string]int)
	for _, g := range NGrams(tokens, minN, maxN) {
		counts[g]++
	}
	return counts
}

// SmoothIDF is ln((1+n)/(1+df)) + 1; it stays positive even when df == n.
func SmoothIDF(nDocs, df int) float64 {
	return math.Log(float64(1+nDocs)/float64(1+df)) + 1
}

// Fit builds a vocabulary from a corpus of normalized documents and returns
// the vector for every document in corpus order.
func Fit(corpus [][]string, opts Options) (*Vocabulary, []FeatureVector) {
	opts = opts.withDefaults()

	docCounts := make([]map[string]int, len(corpus))
	total := make(map[string]int)
	df := make(map[string]int)
	var seen []string
	for d, tokens := range corpus {
		c := countNGrams(tokens, opts.MinN, opts.MaxN)
		docCounts[d] = c
		// walk n-grams in document order so first-seen order is deterministic
		for _, g := range NGrams(tokens, opts.MinN, opts.MaxN) {
			if _, ok := total[g]; !ok {
				seen = append(seen, g)
				total[g] = 0
			}
		}
		for g, n := range c {
			total[g] += n
			df[g]++
		}
	}

	selected := seen
	if len(selected) > opts.MaxFeatures {
		rank := make(map[string]int, len(seen))
		for i, g := range seen {
			rank[g] = i
		}
		ranked := append([]string(nil), seen...)
		sort.SliceStable(ranked, func(i, j int) bool {
			if total[ranked[i]] != total[ranked[j]] {
				return total[ranked[i]] > total[ranked[j]]
			}
			return rank[ranked[i]] < rank[ranked[j]]
		})
		selected = ranked[:opts.MaxFeatures]
	}
	terms := append([]string(nil), selected...)
	sort.Strings(terms)

	v := &Vocabulary{
		terms: terms,
		idf:   make([]float64, len(terms)),
		index: make(map[string]int, len(terms)),
		minN:  opts.MinN,
		maxN:  opts.MaxN,
	}
	for i, t := range terms {
		v.index[t] = i
		v.idf[i] = SmoothIDF(len(corpus), df[t])
	}

	vectors := make([]FeatureVector, len(corpus))
	for d, c := range docCounts {
		vectors[d] = v.vectorize(c)
	}
	return v, vectors
}

// Transform vectorizes one normalized document against a frozen vocabulary.
// Unknown n-grams are dropped.
func Transform(tokens []string, v *Vocabulary) FeatureVector {
	if v == nil {
		return FeatureVector{}
	}
	return v.vectorize(countNGrams(tokens, v.minN, v.maxN))
}

func (v *Vocabulary) vectorize(counts map[string]int) FeatureVector {
	idx := make([]int, 0, len(counts))
	for g := range counts {
		if i, ok := v.index[g]; ok {
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)
	vals := make([]float64, len(idx))
	for k, i := range idx {
		c := counts[v.terms[i]]
		vals[k] = (1 + math.Log(float64(c))) * v.idf[i]
	}
	if len(vals) > 0 {
		if norm := floats.Norm(vals, 2); norm > 0 {
			floats.Scale(1/norm, vals)
		}
	}
	return FeatureVector{Indices: idx, Values: vals}
}
