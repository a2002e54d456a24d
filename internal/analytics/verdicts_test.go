package analytics

import (
	"testing"
	"time"

	"truthlens/internal/model"
	"truthlens/internal/store"
)

func rec(at time.Time, l model.Label, s model.Source) store.VerdictRecord {
	return store.VerdictRecord{CreatedAt: at, Verdict: model.Verdict{Label: l, Source: s}}
}

func TestHourlyVerdicts(t *testing.T) {
	h := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	records := []store.VerdictRecord{
		rec(h.Add(2*time.Hour+5*time.Minute), model.LabelReal, model.SourceModel),
		rec(h.Add(10*time.Minute), model.LabelFake, model.SourceModel),
		rec(h.Add(50*time.Minute), model.LabelFake, model.SourceFallback),
		rec(h.Add(2*time.Hour+59*time.Minute), model.LabelFake, model.SourceModel),
	}
	got := HourlyVerdicts(records)
	if len(got) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(got))
	}
	if !got[0].Hour.Equal(h) || got[0].Fake != 2 || got[0].Real != 0 || got[0].Fallback != 1 {
		t.Fatalf("unexpected first bucket %+v", got[0])
	}
	if !got[1].Hour.Equal(h.Add(2*time.Hour)) || got[1].Fake != 1 || got[1].Real != 1 {
		t.Fatalf("unexpected second bucket %+v", got[1])
	}
	if s := FakeShare(got); s != 0.75 {
		t.Fatalf("fake share %v", s)
	}
	if FakeShare(nil) != 0 {
		t.Fatalf("empty share should be 0")
	}
}
