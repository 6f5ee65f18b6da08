package merge

import (
	"testing"

	"github.com/esr-cvsgit/cvsgitimport/internal/branchstream"
	"github.com/esr-cvsgit/cvsgitimport/internal/catalog"
	"github.com/esr-cvsgit/cvsgitimport/internal/diag"
	"github.com/esr-cvsgit/cvsgitimport/internal/revision"
	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

func TestResolveElectsSingleSource(t *testing.T) {
	cat := catalog.New()
	f1 := cat.GetOrCreate("f1")

	branchRev := revision.MustParse("1.2.2.1")
	if err := f1.SetBranch("FEATURE", revision.MustParse("1.2.0.2")); err != nil {
		t.Fatal(err)
	}

	branchCommit := vcommit.New("b1", []vcommit.FileRevision{{File: f1, Rev: branchRev}})
	f1.SetCommitRef(branchRev, branchCommit)

	mainRoot := vcommit.New("m0", []vcommit.FileRevision{{File: f1, Rev: revision.MustParse("1.2")}})
	mergeCommit := vcommit.New("m1", []vcommit.FileRevision{
		{File: f1, Rev: revision.MustParse("1.3"), Mergepoint: branchRev},
	})

	stream, err := branchstream.New(map[string][]*vcommit.Commit{
		branchstream.MainBranch: {mainRoot, mergeCommit},
		"FEATURE":               {branchCommit},
	}, []string{branchstream.MainBranch, "FEATURE"}, map[string]*vcommit.Commit{"FEATURE": mainRoot})
	if err != nil {
		t.Fatal(err)
	}

	Resolve(cat, stream, diag.New(0))

	if mergeCommit.MergeFrom != branchCommit {
		t.Fatalf("expected MergeFrom set to branch commit, got %v", mergeCommit.MergeFrom)
	}
}

// TestResolveRepairsCrossedMerge covers two trunk merges that cite their
// FEATURE-branch sources out of order: m1 merges from the later branch
// commit b2 while m2, appearing after m1 on trunk, merges from the
// earlier branch commit b1. The source branch must be reordered to b2,b1
// so each merge's source precedes it, rather than moving either trunk
// commit.
func TestResolveRepairsCrossedMerge(t *testing.T) {
	cat := catalog.New()
	f1 := cat.GetOrCreate("f1")
	if err := f1.SetBranch("FEATURE", revision.MustParse("1.1.0.2")); err != nil {
		t.Fatal(err)
	}

	b1Rev := revision.MustParse("1.1.2.1")
	b2Rev := revision.MustParse("1.1.2.2")
	b1 := vcommit.New("b1", []vcommit.FileRevision{{File: f1, Rev: b1Rev}})
	b2 := vcommit.New("b2", []vcommit.FileRevision{{File: f1, Rev: b2Rev}})
	f1.SetCommitRef(b1Rev, b1)
	f1.SetCommitRef(b2Rev, b2)

	c0 := vcommit.New("c0", []vcommit.FileRevision{{File: f1, Rev: revision.MustParse("1.1")}})
	m1 := vcommit.New("m1", []vcommit.FileRevision{{File: f1, Rev: revision.MustParse("1.2"), Mergepoint: b2Rev}})
	m2 := vcommit.New("m2", []vcommit.FileRevision{{File: f1, Rev: revision.MustParse("1.3"), Mergepoint: b1Rev}})

	stream, err := branchstream.New(map[string][]*vcommit.Commit{
		branchstream.MainBranch: {c0, m1, m2},
		"FEATURE":               {b1, b2},
	}, []string{branchstream.MainBranch, "FEATURE"}, map[string]*vcommit.Commit{"FEATURE": c0})
	if err != nil {
		t.Fatal(err)
	}

	Resolve(cat, stream, diag.New(0))

	if m1.MergeFrom != b2 {
		t.Fatalf("expected m1.MergeFrom == b2, got %v", m1.MergeFrom)
	}
	if m2.MergeFrom != b1 {
		t.Fatalf("expected m2.MergeFrom == b1, got %v", m2.MergeFrom)
	}
	if stream.Root("FEATURE") != b2 {
		t.Fatalf("expected FEATURE root reordered to b2, got %v", stream.Root("FEATURE"))
	}
	if stream.Head("FEATURE") != b1 {
		t.Fatalf("expected FEATURE head reordered to b1, got %v", stream.Head("FEATURE"))
	}
}

// TestResolveIgnoresMergeFromExcludedBranch covers a mergepoint citing a
// commit that was never spliced into the stream (an excluded branch): the
// source's Index stays -1, so MergeFrom must remain nil rather than error.
func TestResolveIgnoresMergeFromExcludedBranch(t *testing.T) {
	cat := catalog.New()
	f1 := cat.GetOrCreate("f1")

	b1Rev := revision.MustParse("1.1.2.1")
	b2Rev := revision.MustParse("1.1.2.2")
	b1 := vcommit.New("b1", []vcommit.FileRevision{{File: f1, Rev: b1Rev}})
	b2 := vcommit.New("b2", []vcommit.FileRevision{{File: f1, Rev: b2Rev}})
	f1.SetCommitRef(b1Rev, b1)
	f1.SetCommitRef(b2Rev, b2)

	c0 := vcommit.New("c0", []vcommit.FileRevision{{File: f1, Rev: revision.MustParse("1.1")}})
	m1 := vcommit.New("m1", []vcommit.FileRevision{{File: f1, Rev: revision.MustParse("1.2"), Mergepoint: b2Rev}})
	m2 := vcommit.New("m2", []vcommit.FileRevision{{File: f1, Rev: revision.MustParse("1.3"), Mergepoint: b1Rev}})

	stream, err := branchstream.New(map[string][]*vcommit.Commit{
		branchstream.MainBranch: {c0, m1, m2},
	}, []string{branchstream.MainBranch}, nil)
	if err != nil {
		t.Fatal(err)
	}

	Resolve(cat, stream, diag.New(0))

	if m1.MergeFrom != nil {
		t.Fatalf("expected m1.MergeFrom nil, got %v", m1.MergeFrom)
	}
	if m2.MergeFrom != nil {
		t.Fatalf("expected m2.MergeFrom nil, got %v", m2.MergeFrom)
	}
}
