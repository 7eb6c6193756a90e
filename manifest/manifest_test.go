package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
version = "1.2.3"

[build]
strip = true
output = "out"
cache = ".hissy/cache.db"

[vm]
max-frames = 512
trace = true
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Project.Name != "demo" || m.Project.Version != "1.2.3" {
		t.Errorf("project = %+v", m.Project)
	}
	if !m.Build.Strip || m.Build.Output != "out" {
		t.Errorf("build = %+v", m.Build)
	}
	if m.VM.MaxFrames != 512 || !m.VM.Trace {
		t.Errorf("vm = %+v", m.VM)
	}
	if m.OutputDir() != filepath.Join(m.Dir, "out") {
		t.Errorf("OutputDir = %q", m.OutputDir())
	}
	if m.CachePath() != filepath.Join(m.Dir, ".hissy", "cache.db") {
		t.Errorf("CachePath = %q", m.CachePath())
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[project]\nname = \"bare\"\n")

	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Build.Output != "build" {
		t.Errorf("default output = %q, want build", m.Build.Output)
	}
	if m.VM.MaxFrames != 256 {
		t.Errorf("default max-frames = %d, want 256", m.VM.MaxFrames)
	}
	if m.Build.Strip || m.VM.Trace {
		t.Error("boolean options default on")
	}
	if m.CachePath() != "" {
		t.Errorf("cache defaults to %q, want disabled", m.CachePath())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("loading an empty directory succeeded")
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[project\nname =")
	if _, err := Load(dir); err == nil {
		t.Fatal("malformed manifest accepted")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[project]\nname = \"top\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil {
		t.Fatal("manifest not found from nested directory")
	}
	if m.Project.Name != "top" {
		t.Errorf("name = %q, want top", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Errorf("unexpected manifest: %+v", m)
	}
}

func TestDefault(t *testing.T) {
	m := Default()
	if m.VM.MaxFrames != 256 || m.Build.Output != "build" {
		t.Errorf("defaults = %+v", m)
	}
}
