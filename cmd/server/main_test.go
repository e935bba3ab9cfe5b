package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bwilder0/folktexts/api"
	"github.com/bwilder0/folktexts/internal/config"
	"github.com/bwilder0/folktexts/internal/store"
)

func TestRunMainHelp(t *testing.T) {
	var buf bytes.Buffer
	old := stderrWriter
	stderrWriter = &buf
	t.Cleanup(func() { stderrWriter = old })

	if got := runMain([]string{"-h"}); got != 0 {
		t.Fatalf("runMain(-h) = %d, want 0", got)
	}
}

func TestRunMainBadFlag(t *testing.T) {
	var buf bytes.Buffer
	old := stderrWriter
	stderrWriter = &buf
	t.Cleanup(func() { stderrWriter = old })

	if got := runMain([]string{"-no-such-flag"}); got != 2 {
		t.Fatalf("runMain(bad flag) = %d, want 2", got)
	}
}

func TestRunMainWithoutConfigFile(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	var buf bytes.Buffer
	oldErr := stderrWriter
	stderrWriter = &buf
	t.Cleanup(func() { stderrWriter = oldErr })

	oldOpen, oldNew, oldRun := openStore, newServer, runServer
	t.Cleanup(func() { openStore, newServer, runServer = oldOpen, oldNew, oldRun })

	var openedPath string
	openStore = func(path string) (*store.Store, error) {
		openedPath = path
		return nil, nil
	}
	newServer = func(cfg *config.Config, st *store.Store) (*api.Server, error) {
		return nil, nil
	}
	runServer = func(srv *api.Server, addr string) error { return nil }

	if got := runMain(nil); got != 0 {
		t.Fatalf("runMain() = %d, want 0 (stderr: %s)", got, buf.String())
	}
	if openedPath != store.DefaultPath {
		t.Fatalf("store path = %q, want %q", openedPath, store.DefaultPath)
	}
}

func TestRunMainMissingConfig(t *testing.T) {
	var buf bytes.Buffer
	old := stderrWriter
	stderrWriter = &buf
	t.Cleanup(func() { stderrWriter = old })

	path := filepath.Join(t.TempDir(), "nope.yaml")
	if got := runMain([]string{"-config", path}); got != 1 {
		t.Fatalf("runMain(missing config) = %d, want 1", got)
	}
	if buf.Len() == 0 {
		t.Fatal("expected an error message on stderr")
	}
}
