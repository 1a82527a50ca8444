package pipecache_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"slate/internal/host"
	"slate/internal/pipe"
	"slate/internal/pipecache"
	"slate/internal/registry"
	"slate/internal/testsupport"
)

func TestObtEntityReturnsSameInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")
	workPath := testsupport.MkWork(t, shotDir, "maya", "anim", "main", 1, "ma")

	session := pipecache.NewSession(cfg, pipecache.Options{})

	first, err := session.ObtEntity(shotDir)
	if err != nil {
		t.Fatal(err)
	}
	second, err := session.ObtEntity(shotDir + string(os.PathSeparator))
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatal("same identity path should yield same instance")
	}

	// A deep path resolves to the same canonical entity.
	viaWork, err := session.ObtEntity(workPath)
	if err != nil {
		t.Fatal(err)
	}
	if viaWork != first {
		t.Fatal("deep path should resolve to canonical entity instance")
	}

	work, err := session.ObtWork(workPath)
	if err != nil {
		t.Fatal(err)
	}
	if work.WorkDir.Entity != first {
		t.Fatal("work's entity should be the canonical instance")
	}
	again, err := session.ObtWork(workPath)
	if err != nil {
		t.Fatal(err)
	}
	if work != again {
		t.Fatal("same work path should yield same instance")
	}
}

func TestResetStartsNewGeneration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")

	session := pipecache.NewSession(cfg, pipecache.Options{})
	before, err := session.ObtEntity(shotDir)
	if err != nil {
		t.Fatal(err)
	}
	gen := session.Generation()

	session.Reset()
	if session.Generation() == gen {
		t.Fatal("reset should change the generation id")
	}
	after, err := session.ObtEntity(shotDir)
	if err != nil {
		t.Fatal(err)
	}
	if before == after {
		t.Fatal("reset should drop cached instances")
	}
}

func TestFindOutputsCachesUntilForced(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")
	testsupport.MkPublish(t, shotDir, "anim", "main", 1, "abc")

	session := pipecache.NewSession(cfg, pipecache.Options{})
	entity, err := session.ObtEntity(shotDir)
	if err != nil {
		t.Fatal(err)
	}

	outputs, err := session.FindOutputs(entity, pipe.OutputOpts{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(outputs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(outputs))
	}

	// New publish lands on disk; the cached listing does not see it.
	testsupport.MkPublish(t, shotDir, "anim", "main", 2, "abc")
	outputs, err = session.FindOutputs(entity, pipe.OutputOpts{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(outputs) != 1 {
		t.Fatalf("cached listing should be stable, got %d", len(outputs))
	}

	// Force re-reads the disk and recomputes Latest.
	outputs, err = session.FindOutputs(entity, pipe.OutputOpts{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(outputs) != 2 {
		t.Fatalf("force should see the new publish, got %d", len(outputs))
	}
	if outputs[0].Latest || !outputs[1].Latest {
		t.Fatalf("latest flags stale after force: %+v %+v", outputs[0], outputs[1])
	}
}

func TestLatestAfterDeleteAndForce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")
	testsupport.MkPublish(t, shotDir, "anim", "main", 1, "abc")
	pub2 := testsupport.MkPublish(t, shotDir, "anim", "main", 2, "abc")

	session := pipecache.NewSession(cfg, pipecache.Options{})
	entity, err := session.ObtEntity(shotDir)
	if err != nil {
		t.Fatal(err)
	}
	outputs, err := session.FindOutputs(entity, pipe.OutputOpts{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(outputs) != 2 || !outputs[1].Latest {
		t.Fatalf("setup: %v", outputs)
	}

	if err := os.Remove(pub2); err != nil {
		t.Fatal(err)
	}
	outputs, err = session.FindOutputs(entity, pipe.OutputOpts{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(outputs) != 1 || !outputs[0].Latest {
		t.Fatalf("v001 should become latest after v002 removal: %v", outputs)
	}
}

func TestCurWorkFromHostScene(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")
	workPath := testsupport.MkWork(t, shotDir, "maya", "anim", "main", 3, "ma")

	session := pipecache.NewSession(cfg, pipecache.Options{
		Host: &host.Static{HostName: "maya", Scene: workPath},
	})
	work, err := session.CurWork()
	if err != nil {
		t.Fatal(err)
	}
	if work == nil || work.VerN != 3 {
		t.Fatalf("current work not resolved: %v", work)
	}
	job, err := session.CurJob()
	if err != nil {
		t.Fatal(err)
	}
	if job == nil || job.Name != "showA" {
		t.Fatalf("current job not resolved: %v", job)
	}

	canonical, err := session.ObtWork(workPath)
	if err != nil {
		t.Fatal(err)
	}
	if canonical != work {
		t.Fatal("current work should be the canonical instance")
	}
}

func TestCurWorkNoScene(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	session := pipecache.NewSession(cfg, pipecache.Options{
		Host: &host.Static{},
	})
	work, err := session.CurWork()
	if err != nil || work != nil {
		t.Fatalf("no scene should mean no work: %v %v", work, err)
	}
}

func TestUpdateCacheRecordsAndRescans(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")
	workPath := testsupport.MkWork(t, shotDir, "maya", "anim", "main", 1, "ma")
	testsupport.MkPublish(t, shotDir, "anim", "main", 1, "abc")

	store, err := registry.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	session := pipecache.NewSession(cfg, pipecache.Options{Registry: store})
	entity, err := session.ObtEntity(shotDir)
	if err != nil {
		t.Fatal(err)
	}
	// Warm the output cache before the publish lands.
	if _, err := session.FindOutputs(entity, pipe.OutputOpts{}, false); err != nil {
		t.Fatal(err)
	}

	pub2 := testsupport.MkPublish(t, shotDir, "anim", "main", 2, "abc")
	work, err := session.ObtWork(workPath)
	if err != nil {
		t.Fatal(err)
	}
	output, err := session.ObtOutput(pub2)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := session.UpdateCache(ctx, work, []*pipe.Output{output}, "publish v002"); err != nil {
		t.Fatal(err)
	}

	outputs, err := session.FindOutputs(entity, pipe.OutputOpts{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(outputs) != 2 {
		t.Fatalf("update should have rescanned outputs, got %d", len(outputs))
	}

	pubs, err := store.List(ctx, registry.Filter{Job: "showA"})
	if err != nil {
		t.Fatal(err)
	}
	if len(pubs) != 1 || pubs[0].Notes != "publish v002" {
		t.Fatalf("publish not recorded: %v", pubs)
	}
}

func TestVersionUpCopiesContent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")
	workPath := testsupport.MkWork(t, shotDir, "maya", "anim", "main", 1, "ma")
	if err := os.WriteFile(workPath, []byte("scene content"), 0o644); err != nil {
		t.Fatal(err)
	}

	session := pipecache.NewSession(cfg, pipecache.Options{})
	work, err := session.ObtWork(workPath)
	if err != nil {
		t.Fatal(err)
	}
	next, err := session.VersionUp(work, "bump")
	if err != nil {
		t.Fatal(err)
	}
	if next.VerN != 2 {
		t.Fatalf("expected v002, got v%03d", next.VerN)
	}
	payload, err := os.ReadFile(filepath.FromSlash(next.Path))
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "scene content" {
		t.Fatalf("content not carried over: %q", payload)
	}
	if next.Notes() != "bump" {
		t.Fatalf("notes not recorded: %q", next.Notes())
	}
}

func TestMappedPathsShareCanonicalInstances(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.PathMap = []string{"V:/jobs>>>" + cfg.Paths.JobsRoot}
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")
	workPath := testsupport.MkWork(t, shotDir, "maya", "anim", "main", 1, "ma")

	session := pipecache.NewSession(cfg, pipecache.Options{})

	native, err := session.ObtEntity(shotDir)
	if err != nil {
		t.Fatal(err)
	}
	mapped, err := session.ObtEntity("V:/jobs/showA/shots/seq010/sh010")
	if err != nil {
		t.Fatal(err)
	}
	if mapped != native {
		t.Fatal("mapped address should resolve to the canonical entity instance")
	}

	work, err := session.ObtWork("V:/jobs/showA/shots/seq010/sh010/maya/anim/work/sh010_anim_main_v001.ma")
	if err != nil {
		t.Fatal(err)
	}
	if work.Path != pipe.NormPath(workPath) {
		t.Fatalf("mapped work path not remapped: %q", work.Path)
	}
}

func TestObtJobsUsesFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithJobsFilter("show*"))
	testsupport.MkJob(t, cfg, "showA")
	testsupport.MkJob(t, cfg, "scratch")

	session := pipecache.NewSession(cfg, pipecache.Options{})
	jobs, err := session.ObtJobs(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].Name != "showA" {
		t.Fatalf("unexpected jobs: %v", jobs)
	}

	first, err := session.ObtJob("showA")
	if err != nil {
		t.Fatal(err)
	}
	if first != jobs[0] {
		t.Fatal("ObtJob should return the canonical instance")
	}
}
