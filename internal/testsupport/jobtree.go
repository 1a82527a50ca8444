package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"slate/internal/config"
)

// Job tree fabrication for tests. Paths follow the default job layout so
// fabricated trees resolve without a per-job config file.

// MkJob creates a job root under the configured jobs root.
func MkJob(t testing.TB, cfg *config.Config, name string) string {
	t.Helper()
	dir := filepath.Join(cfg.Paths.JobsRoot, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir job %s: %v", name, err)
	}
	return dir
}

// MkShot creates a shot entity directory inside a job root.
func MkShot(t testing.TB, jobDir, sequence, shot string) string {
	t.Helper()
	dir := filepath.Join(jobDir, "shots", sequence, shot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir shot %s/%s: %v", sequence, shot, err)
	}
	return dir
}

// MkAsset creates an asset entity directory inside a job root.
func MkAsset(t testing.TB, jobDir, assetType, asset string) string {
	t.Helper()
	dir := filepath.Join(jobDir, "assets", assetType, asset)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir asset %s/%s: %v", assetType, asset, err)
	}
	return dir
}

// MkWork creates a saved work file beneath an entity directory and returns
// its path.
func MkWork(t testing.TB, entityDir, dcc, task, tag string, ver int, extn string) string {
	t.Helper()
	entity := filepath.Base(entityDir)
	name := fmt.Sprintf("%s_%s_%s_v%03d.%s", entity, task, tag, ver, extn)
	path := filepath.Join(entityDir, dcc, task, "work", name)
	WriteFile(t, path, 1)
	return path
}

// MkPublish creates a published output file beneath an entity directory.
func MkPublish(t testing.TB, entityDir, task, tag string, ver int, extn string) string {
	t.Helper()
	entity := filepath.Base(entityDir)
	name := fmt.Sprintf("%s_%s_%s_v%03d.%s", entity, task, tag, ver, extn)
	path := filepath.Join(entityDir, "publish", task, name)
	WriteFile(t, path, 1)
	return path
}

// MkRenderFrames creates a render sequence directory with the given frame
// numbers and returns the directory path.
func MkRenderFrames(t testing.TB, entityDir, task, tag, outputName string, ver int, extn string, frames []int) string {
	t.Helper()
	entity := filepath.Base(entityDir)
	dir := filepath.Join(entityDir, "render", task, tag, fmt.Sprintf("%s_v%03d", outputName, ver))
	for _, frame := range frames {
		name := fmt.Sprintf("%s_%s_v%03d.%04d.%s", entity, outputName, ver, frame, extn)
		WriteFile(t, filepath.Join(dir, name), 1)
	}
	if len(frames) == 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir render dir: %v", err)
		}
	}
	return dir
}
