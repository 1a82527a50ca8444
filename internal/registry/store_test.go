package registry_test

import (
	"context"
	"testing"

	"slate/internal/registry"
	"slate/internal/testsupport"
)

func TestOpenDisabledReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRegistryDisabled())
	store, err := registry.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if store != nil {
		t.Fatal("disabled registry should yield nil store")
	}

	// Nil store ignores calls.
	if _, err := store.Record(context.Background(), registry.Publish{}); err != nil {
		t.Fatal(err)
	}
	if pubs, err := store.List(context.Background(), registry.Filter{}); err != nil || pubs != nil {
		t.Fatalf("nil store list: %v %v", pubs, err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRecordAndList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := registry.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	pub := registry.Publish{
		Job:        "showA",
		Profile:    "shot",
		EntityType: "seq010",
		Entity:     "sh010",
		Task:       "anim",
		Tag:        "main",
		Type:       "publish",
		Ver:        1,
		Path:       "/jobs/showA/shots/seq010/sh010/publish/anim/sh010_anim_main_v001.abc",
		Extn:       "abc",
		Owner:      "artist",
		Notes:      "first publish",
	}
	if _, err := store.Record(ctx, pub); err != nil {
		t.Fatal(err)
	}
	pub.Ver = 2
	pub.Path = "/jobs/showA/shots/seq010/sh010/publish/anim/sh010_anim_main_v002.abc"
	if _, err := store.Record(ctx, pub); err != nil {
		t.Fatal(err)
	}

	pubs, err := store.List(ctx, registry.Filter{Job: "showA", Entity: "sh010"})
	if err != nil {
		t.Fatal(err)
	}
	if len(pubs) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(pubs))
	}

	none, err := store.List(ctx, registry.Filter{Entity: "sh020"})
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no publishes, got %d", len(none))
	}
}

func TestRecordSamePathUpserts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := registry.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	pub := registry.Publish{
		Job:     "showA",
		Profile: "shot",
		Entity:  "sh010",
		Task:    "anim",
		Type:    "publish",
		Ver:     1,
		Path:    "/jobs/showA/shots/seq010/sh010/publish/anim/sh010_anim_v001.abc",
		Notes:   "initial",
	}
	if _, err := store.Record(ctx, pub); err != nil {
		t.Fatal(err)
	}
	pub.Notes = "amended"
	if _, err := store.Record(ctx, pub); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetByPath(ctx, pub.Path)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Notes != "amended" {
		t.Fatalf("upsert did not amend: %+v", got)
	}

	pubs, err := store.List(ctx, registry.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(pubs) != 1 {
		t.Fatalf("duplicate path should not duplicate rows: %d", len(pubs))
	}
}

func TestStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := registry.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for i, typ := range []string{"publish", "publish", "render"} {
		pub := registry.Publish{
			Job:    "showA",
			Entity: "sh010",
			Task:   "anim",
			Type:   typ,
			Ver:    i + 1,
			Path:   "/jobs/showA/p" + string(rune('a'+i)),
		}
		if _, err := store.Record(ctx, pub); err != nil {
			t.Fatal(err)
		}
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats["publish"] != 2 || stats["render"] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
