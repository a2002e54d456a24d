package analytics

import (
	"sort"
	"time"

	"truthlens/internal/model"
	"truthlens/internal/store"
)

// Bucket is the verdict tally for one UTC hour.
type Bucket struct {
	Hour     time.Time `json:"hour"`
	Fake     int       `json:"fake"`
	Real     int       `json:"real"`
	Fallback int       `json:"fallback"`
}

// HourlyVerdicts aggregates verdict records into per-hour buckets, oldest first.
func HourlyVerdicts(records []store.VerdictRecord) []Bucket {
	buckets := make(map[time.Time]*Bucket)
	for _, r := range records {
		key := r.CreatedAt.UTC().Truncate(time.Hour)
		b, ok := buckets[key]
		if !ok {
			b = &Bucket{Hour: key}
			buckets[key] = b
		}
		if r.Verdict.Label == model.LabelFake {
			b.Fake++
		} else {
			b.Real++
		}
		if r.Verdict.Source == model.SourceFallback {
			b.Fallback++
		}
	}
	out := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour.Before(out[j].Hour) })
	return out
}

// FakeShare is the fraction of FAKE verdicts across buckets, 0 when empty.
func FakeShare(buckets []Bucket) float64 {
	fake, total := 0, 0
	for _, b := range buckets {
		fake += b.Fake
		total += b.Fake + b.Real
	}
	if total == 0 {
		return 0
	}
	return float64(fake) / float64(total)
}
