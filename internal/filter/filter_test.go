package filter

import (
	"testing"
	"time"

	"github.com/esr-cvsgit/cvsgitimport/internal/catalog"
	"github.com/esr-cvsgit/cvsgitimport/internal/revision"
	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

func TestSplitMultiBranch(t *testing.T) {
	cat := catalog.New()
	f1 := cat.GetOrCreate("f1")
	f2 := cat.GetOrCreate("f2")
	f1.SetBranch("BR-1", revision.MustParse("1.2.0.2"))

	c := vcommit.New("c1", []vcommit.FileRevision{
		{File: f1, Rev: revision.MustParse("1.2.2.1")},
		{File: f2, Rev: revision.MustParse("1.3")},
	})
	out := SplitMultiBranch([]*vcommit.Commit{c})
	if len(out) != 2 {
		t.Fatalf("expected split into 2 commits, got %d", len(out))
	}
	if out[0].CommitID != "c1-BR-1" || out[1].CommitID != "c1-MAIN" {
		t.Fatalf("unexpected ids: %s %s", out[0].CommitID, out[1].CommitID)
	}
}

func TestVerifyMultipleAuthors(t *testing.T) {
	cat := catalog.New()
	f1 := cat.GetOrCreate("f1")
	now := time.Now()
	c := vcommit.New("c1", []vcommit.FileRevision{
		{File: f1, Rev: revision.MustParse("1.1"), Author: "alice", Time: now},
		{File: f1, Rev: revision.MustParse("1.2"), Author: "bob", Time: now},
	})
	Verify(c, VerifyOptions{})
	if len(c.Errors) != 1 {
		t.Fatalf("expected one verification error, got %v", c.Errors)
	}
}

func TestExclusionFilterDropsEmptyCommit(t *testing.T) {
	cat := catalog.New()
	f1 := cat.GetOrCreate("f1")
	c := vcommit.New("c1", []vcommit.FileRevision{
		{File: f1, Rev: revision.MustParse("1.1")},
	})
	ef := &ExclusionFilter{BranchExcluded: func(string) bool { return true }}
	out, err := ef.Apply([]*vcommit.Commit{c})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("expected commit with all members excluded to be dropped, got %d", len(out))
	}
}
