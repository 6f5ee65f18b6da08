package config

import (
	"strings"
	"testing"
)

const sampleYAML = `
cvsroot: /cvsroot/proj
workers: 8
rename_branch:
  - "+^REL.*"
main_branch: trunk
`

func TestLoadParsesFields(t *testing.T) {
	f, err := Load(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if f.CVSRoot != "/cvsroot/proj" {
		t.Fatalf("cvsroot = %q", f.CVSRoot)
	}
	if f.Workers != 8 {
		t.Fatalf("workers = %d", f.Workers)
	}
	if f.MainBranch != "trunk" {
		t.Fatalf("main_branch = %q", f.MainBranch)
	}
	if len(f.RenameBranch) != 1 || f.RenameBranch[0] != "+^REL.*" {
		t.Fatalf("rename_branch = %v", f.RenameBranch)
	}
}

func TestLoadFileMissingReturnsError(t *testing.T) {
	if _, err := LoadFile("/nonexistent/cvsgitimport.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
