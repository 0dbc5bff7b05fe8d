package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRootHasCommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"generate", "config"} {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Fatalf("missing %q command", name)
		}
	}
}

func TestGenerateRequiresFlags(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"generate"})
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	if err := root.Execute(); err == nil {
		t.Fatal("generate without --report/--script must fail")
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qcpack.toml")
	root := newRootCommand()
	root.SetArgs([]string{"config", "init", path})
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	if err := root.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}
}
