package pipe_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"slate/internal/pipe"
	"slate/internal/testsupport"
)

func TestFindJobsAppliesFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithJobsFilter("show*"))
	testsupport.MkJob(t, cfg, "showA")
	testsupport.MkJob(t, cfg, "showB")
	testsupport.MkJob(t, cfg, "scratch")

	jobs, err := pipe.FindJobs(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Name != "showA" || jobs[1].Name != "showB" {
		t.Fatalf("unexpected jobs: %v, %v", jobs[0], jobs[1])
	}
}

func TestToEntityResolvesAssetAndShot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	testsupport.MkAsset(t, jobDir, "char", "hero")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")

	job, err := pipe.LoadJob(cfg, jobDir)
	if err != nil {
		t.Fatal(err)
	}

	asset, err := job.ToEntity(filepath.Join(jobDir, "assets", "char", "hero"))
	if err != nil {
		t.Fatal(err)
	}
	if asset.Profile != pipe.ProfileAsset || asset.Asset != "hero" || asset.AssetType != "char" {
		t.Fatalf("bad asset entity: %+v", asset)
	}

	shot, err := job.ToEntity(shotDir)
	if err != nil {
		t.Fatal(err)
	}
	if shot.Profile != pipe.ProfileShot || shot.Shot != "sh010" || shot.Sequence != "seq010" {
		t.Fatalf("bad shot entity: %+v", shot)
	}
	if !shot.Exists() {
		t.Fatal("shot dir should exist")
	}
}

func TestToEntityFromDeepPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")
	workPath := testsupport.MkWork(t, shotDir, "maya", "anim", "main", 2, "ma")

	job, err := pipe.LoadJob(cfg, jobDir)
	if err != nil {
		t.Fatal(err)
	}
	entity, err := job.ToEntity(workPath)
	if err != nil {
		t.Fatal(err)
	}
	if entity.Shot != "sh010" {
		t.Fatalf("deep path resolved wrong entity: %+v", entity)
	}
}

func TestToEntityRejectsForeignPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")

	job, err := pipe.LoadJob(cfg, jobDir)
	if err != nil {
		t.Fatal(err)
	}
	_, err = job.ToEntity("/tmp/elsewhere/file.txt")
	if !errors.Is(err, pipe.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
	if _, ok := job.ToEntityOr("/tmp/elsewhere/file.txt"); ok {
		t.Fatal("probe form should report false")
	}
}

func TestFindEntities(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	testsupport.MkAsset(t, jobDir, "char", "hero")
	testsupport.MkAsset(t, jobDir, "prop", "sword")
	testsupport.MkShot(t, jobDir, "seq010", "sh010")
	testsupport.MkShot(t, jobDir, "seq010", "sh020")
	testsupport.MkShot(t, jobDir, "seq020", "sh010")

	job, err := pipe.LoadJob(cfg, jobDir)
	if err != nil {
		t.Fatal(err)
	}
	entities, err := job.FindEntities()
	if err != nil {
		t.Fatal(err)
	}
	if len(entities) != 5 {
		t.Fatalf("expected 5 entities, got %d", len(entities))
	}

	shots, err := job.FindShots("seq010")
	if err != nil {
		t.Fatal(err)
	}
	if len(shots) != 2 {
		t.Fatalf("expected 2 shots in seq010, got %d", len(shots))
	}

	assets, err := job.FindAssets("char")
	if err != nil {
		t.Fatal(err)
	}
	if len(assets) != 1 || assets[0].Asset != "hero" {
		t.Fatalf("unexpected char assets: %v", assets)
	}
}

func TestWorkResolutionAndVersions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")
	testsupport.MkWork(t, shotDir, "maya", "anim", "main", 1, "ma")
	testsupport.MkWork(t, shotDir, "maya", "anim", "main", 2, "ma")
	wip := testsupport.MkWork(t, shotDir, "maya", "anim", "wip", 5, "ma")

	job, err := pipe.LoadJob(cfg, jobDir)
	if err != nil {
		t.Fatal(err)
	}
	work, err := job.ToWork(wip)
	if err != nil {
		t.Fatal(err)
	}
	if work.Tag != "wip" || work.VerN != 5 || work.Extn != "ma" || work.Task() != "anim" {
		t.Fatalf("bad work tokens: %+v", work)
	}

	workDir := work.WorkDir
	works, err := workDir.FindWorks()
	if err != nil {
		t.Fatal(err)
	}
	if len(works) != 3 {
		t.Fatalf("expected 3 works, got %d", len(works))
	}

	main, err := workDir.ToWork("main", 1, "ma")
	if err != nil {
		t.Fatal(err)
	}
	vers, err := main.FindVers()
	if err != nil {
		t.Fatal(err)
	}
	if len(vers) != 2 || vers[1].VerN != 2 {
		t.Fatalf("unexpected main stream: %v", vers)
	}

	latest, err := main.FindLatest()
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.VerN != 2 {
		t.Fatalf("unexpected latest: %v", latest)
	}

	next, err := main.FindNext()
	if err != nil {
		t.Fatal(err)
	}
	if next.VerN != 3 || next.Ver != "003" {
		t.Fatalf("unexpected next: %+v", next)
	}
	if next.Exists() {
		t.Fatal("next version should not exist yet")
	}
}

func TestFindNextOnEmptyStream(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")

	job, err := pipe.LoadJob(cfg, jobDir)
	if err != nil {
		t.Fatal(err)
	}
	entity, err := job.ToEntity(shotDir)
	if err != nil {
		t.Fatal(err)
	}
	workDir, err := entity.ToWorkDir("maya", "anim")
	if err != nil {
		t.Fatal(err)
	}
	seed, err := workDir.ToWork("main", 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if seed.Extn != "ma" {
		t.Fatalf("dcc extension fallback failed: %q", seed.Extn)
	}
	next, err := seed.FindNext()
	if err != nil {
		t.Fatal(err)
	}
	if next.VerN != 1 {
		t.Fatalf("empty stream should start at v001, got v%03d", next.VerN)
	}
}

func TestWorkSaveBackupAndMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")

	job, err := pipe.LoadJob(cfg, jobDir)
	if err != nil {
		t.Fatal(err)
	}
	entity, err := job.ToEntity(shotDir)
	if err != nil {
		t.Fatal(err)
	}
	workDir, err := entity.ToWorkDir("maya", "anim")
	if err != nil {
		t.Fatal(err)
	}
	work, err := workDir.ToWork("main", 1, "ma")
	if err != nil {
		t.Fatal(err)
	}

	if err := work.Save([]byte("scene v1"), "first pass"); err != nil {
		t.Fatal(err)
	}
	if !work.Exists() {
		t.Fatal("saved work should exist")
	}
	if work.Notes() != "first pass" {
		t.Fatalf("notes not recorded: %q", work.Notes())
	}

	backups, err := work.FindBkps()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 0 {
		t.Fatalf("first save should not back up: %v", backups)
	}

	if err := work.Save([]byte("scene v1 fixed"), "tweak"); err != nil {
		t.Fatal(err)
	}
	backups, err = work.FindBkps()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(backups))
	}
	payload, err := os.ReadFile(backups[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "scene v1" {
		t.Fatalf("backup holds wrong content: %q", payload)
	}

	if err := work.AddMetadata("fps", 24); err != nil {
		t.Fatal(err)
	}
	meta, err := work.Metadata()
	if err != nil {
		t.Fatal(err)
	}
	if meta.Notes != "tweak" || meta.Extra["fps"] != 24 {
		t.Fatalf("metadata mismatch: %+v", meta)
	}

	if err := work.FlushBkps(false); err == nil {
		t.Fatal("flush without force should refuse")
	}
	if err := work.FlushBkps(true); err != nil {
		t.Fatal(err)
	}
	backups, _ = work.FindBkps()
	if len(backups) != 0 {
		t.Fatalf("backups survived flush: %v", backups)
	}
}

func TestFindOutputsAndLatest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")
	testsupport.MkPublish(t, shotDir, "anim", "main", 1, "abc")
	pub2 := testsupport.MkPublish(t, shotDir, "anim", "main", 2, "abc")

	job, err := pipe.LoadJob(cfg, jobDir)
	if err != nil {
		t.Fatal(err)
	}
	entity, err := job.ToEntity(shotDir)
	if err != nil {
		t.Fatal(err)
	}
	outputs, err := entity.FindOutputs(pipe.OutputOpts{Type: pipe.OutputTypePublish})
	if err != nil {
		t.Fatal(err)
	}
	if len(outputs) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(outputs))
	}
	if outputs[0].Latest || !outputs[1].Latest {
		t.Fatalf("latest flag wrong: %+v %+v", outputs[0], outputs[1])
	}

	output, err := job.ToOutput(pub2)
	if err != nil {
		t.Fatal(err)
	}
	if output.Type != pipe.OutputTypePublish || output.VerN != 2 || output.Task != "anim" {
		t.Fatalf("bad output tokens: %+v", output)
	}
	isLatest, err := output.IsLatest()
	if err != nil {
		t.Fatal(err)
	}
	if !isLatest {
		t.Fatal("v002 should be latest")
	}
}

func TestFrameSequenceOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")
	renderDir := testsupport.MkRenderFrames(t, shotDir, "lighting", "main", "beauty", 1, "exr", []int{1, 2, 3})

	job, err := pipe.LoadJob(cfg, jobDir)
	if err != nil {
		t.Fatal(err)
	}
	entity, err := job.ToEntity(shotDir)
	if err != nil {
		t.Fatal(err)
	}

	// A concrete frame file resolves to the sequence identity.
	framePath := filepath.Join(renderDir, "sh010_beauty_v001.0002.exr")
	output, err := job.ToOutput(framePath)
	if err != nil {
		t.Fatal(err)
	}
	if !output.IsSeq() || output.Frame != "%04d" {
		t.Fatalf("frame file should collapse to sequence: %+v", output)
	}
	frames, err := output.FindFrames()
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 3 || frames[2] != 3 {
		t.Fatalf("unexpected frames: %v", frames)
	}

	dirs, err := entity.FindSeqDirs(pipe.OutputOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 1 {
		t.Fatalf("expected 1 seq dir, got %d", len(dirs))
	}
	seqDir := dirs[0]
	if seqDir.OutputName != "beauty" || seqDir.VerN != 1 {
		t.Fatalf("bad seq dir tokens: %+v", seqDir)
	}

	expanded, err := seqDir.Expand(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(expanded) != 1 || !expanded[0].IsSeq() {
		t.Fatalf("expansion should yield one sequence output: %v", expanded)
	}
}

func TestSettingsInheritanceChain(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")

	job, err := pipe.LoadJob(cfg, jobDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := job.Settings().Set("fps", 24); err != nil {
		t.Fatal(err)
	}
	seq := job.ToSequence("seq010")
	if seq == nil {
		t.Fatal("sequence should resolve")
	}
	if err := seq.Settings().Set("res", "1920x1080"); err != nil {
		t.Fatal(err)
	}

	shot, err := job.ToEntity(shotDir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := shot.Settings().Settings()
	if err != nil {
		t.Fatal(err)
	}
	if got["fps"] != 24 {
		t.Fatalf("fps should inherit from job: %v", got["fps"])
	}
	if got["res"] != "1920x1080" {
		t.Fatalf("res should inherit from sequence: %v", got["res"])
	}

	if err := shot.Settings().Set("fps", 12); err != nil {
		t.Fatal(err)
	}
	got, err = shot.Settings().Settings()
	if err != nil {
		t.Fatal(err)
	}
	if got["fps"] != 12 {
		t.Fatalf("shot override should win: %v", got["fps"])
	}
}

func TestNormPathIdentity(t *testing.T) {
	cases := map[string]string{
		"/jobs/showA/":                 "/jobs/showA",
		"\\jobs\\showA\\shots":         "/jobs/showA/shots",
		"/jobs//showA/./shots/sh010/.": "/jobs/showA/shots/sh010",
	}
	for in, want := range cases {
		if got := pipe.NormPath(in); got != want {
			t.Fatalf("NormPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJobFromPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")

	job, err := pipe.JobFromPath(cfg, shotDir)
	if err != nil {
		t.Fatal(err)
	}
	if job.Name != "showA" {
		t.Fatalf("wrong job: %v", job)
	}

	_, err = pipe.JobFromPath(cfg, "/somewhere/else")
	if !errors.Is(err, pipe.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestVerPaddingShapesDefaultTemplates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.VerPadding = 4
	jobDir := testsupport.MkJob(t, cfg, "showA")
	shotDir := testsupport.MkShot(t, jobDir, "seq010", "sh010")

	job, err := pipe.LoadJob(cfg, jobDir)
	if err != nil {
		t.Fatal(err)
	}
	entity, err := job.ToEntity(shotDir)
	if err != nil {
		t.Fatal(err)
	}
	workDir, err := entity.ToWorkDir("maya", "anim")
	if err != nil {
		t.Fatal(err)
	}
	work, err := workDir.ToWork("main", 1, "ma")
	if err != nil {
		t.Fatal(err)
	}
	if work.Ver != "0001" || work.Base() != "sh010_anim_main_v0001.ma" {
		t.Fatalf("padding not applied: %q %q", work.Ver, work.Base())
	}

	parsed, err := job.ToWork(work.Path)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.VerN != 1 {
		t.Fatalf("padded version should parse back: %+v", parsed)
	}
}

func TestResolveAppliesPathMap(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.PathMap = []string{"V:/jobs>>>" + cfg.Paths.JobsRoot}
	jobDir := testsupport.MkJob(t, cfg, "showA")
	testsupport.MkShot(t, jobDir, "seq010", "sh010")

	job, err := pipe.JobFromPath(cfg, "V:/jobs/showA/shots/seq010/sh010")
	if err != nil {
		t.Fatal(err)
	}
	if job.Name != "showA" {
		t.Fatalf("wrong job: %v", job)
	}

	entity, err := pipe.ToEntity(cfg, "V:/jobs/showA/shots/seq010/sh010")
	if err != nil {
		t.Fatal(err)
	}
	if entity.Shot != "sh010" || entity.Path != pipe.NormPath(jobDir)+"/shots/seq010/sh010" {
		t.Fatalf("mapped path resolved wrong entity: %+v", entity)
	}
}
