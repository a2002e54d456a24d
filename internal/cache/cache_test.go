package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"truthlens/internal/model"
)

func TestKeyDependsOnVersion(t *testing.T) {
	if Key("v1", "text") == Key("v2", "text") {
		t.Fatalf("key must change with the model version")
	}
	if Key("v1", "text") != Key("v1", "text") {
		t.Fatalf("key must be stable")
	}
}

func TestNewRedisWithoutAddrIsNop(t *testing.T) {
	c := NewRedis(context.Background(), "", time.Minute)
	if _, ok := c.(Nop); !ok {
		t.Fatalf("expected Nop cache, got %T", c)
	}
	if err := c.Set(context.Background(), "v", "t", model.Verdict{Label: model.LabelFake}); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(context.Background(), "v", "t"); hit {
		t.Fatalf("Nop cache must never hit")
	}
}

func TestNewRedisUnreachableIsNop(t *testing.T) {
	c := NewRedis(context.Background(), "127.0.0.1:1", time.Minute)
	if _, ok := c.(Nop); !ok {
		t.Fatalf("expected Nop cache for unreachable redis, got %T", c)
	}
}

func TestMemory(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	p := 0.3
	v := model.Verdict{Label: model.LabelFake, Confidence: 0.7, PReal: &p, Source: model.SourceModel}
	if err := c.Set(ctx, "v1", "some text", v); err != nil {
		t.Fatal(err)
	}
	got, hit, err := c.Get(ctx, "v1", "some text")
	if err != nil || !hit || got.Label != model.LabelFake || *got.PReal != p {
		t.Fatalf("unexpected cache result %+v %v %v", got, hit, err)
	}
	if _, hit, _ := c.Get(ctx, "v2", "some text"); hit {
		t.Fatalf("other model version must miss")
	}
}

func TestOnlyRedisNeedsClosing(t *testing.T) {
	var c VerdictCache = &Redis{}
	if _, ok := c.(io.Closer); !ok {
		t.Fatalf("Redis must release its client on shutdown")
	}
	c = NewRedis(context.Background(), "", time.Minute)
	if _, ok := c.(io.Closer); ok {
		t.Fatalf("Nop has nothing to close")
	}
}
