package label

import (
	"testing"

	"github.com/esr-cvsgit/cvsgitimport/internal/branchstream"
	"github.com/esr-cvsgit/cvsgitimport/internal/catalog"
	"github.com/esr-cvsgit/cvsgitimport/internal/repostate"
	"github.com/esr-cvsgit/cvsgitimport/internal/revision"
	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

func trunkRepo(t *testing.T) (*catalog.Catalog, *branchstream.Collection, *repostate.Collection, []*vcommit.Commit) {
	t.Helper()
	cat := catalog.New()
	f1 := cat.GetOrCreate("f1")
	f2 := cat.GetOrCreate("f2")

	c0 := vcommit.New("c0", []vcommit.FileRevision{
		{File: f1, Rev: revision.MustParse("1.1")},
		{File: f2, Rev: revision.MustParse("1.1")},
	})
	c1 := vcommit.New("c1", []vcommit.FileRevision{
		{File: f1, Rev: revision.MustParse("1.2")},
	})
	commits := []*vcommit.Commit{c0, c1}

	stream, err := branchstream.New(map[string][]*vcommit.Commit{branchstream.MainBranch: commits}, []string{branchstream.MainBranch}, nil)
	if err != nil {
		t.Fatal(err)
	}

	states := repostate.NewCollection()
	states.AddRoot(repostate.NewBranchState(branchstream.MainBranch, true, false))

	return cat, stream, states, commits
}

func TestResolveTagExactMatch(t *testing.T) {
	cat, stream, states, commits := trunkRepo(t)
	f1 := cat.Get("f1")
	if err := f1.SetTag("REL1", revision.MustParse("1.1")); err != nil {
		t.Fatal(err)
	}
	f2 := cat.Get("f2")
	if err := f2.SetTag("REL1", revision.MustParse("1.1")); err != nil {
		t.Fatal(err)
	}

	r := &Resolver{Catalog: cat, Stream: stream, States: states, Opts: Options{PartialLabelThreshold: 0}}
	res, err := r.Resolve("REL1", TagCapability)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Resolved {
		t.Fatalf("expected resolved, got %v (%v)", res.Status, res.Warnings)
	}
	if res.Commit != commits[0] {
		t.Fatalf("expected c0, got %v", res.Commit.CommitID)
	}
}

func TestResolveTagUnknownLabel(t *testing.T) {
	cat, stream, states, _ := trunkRepo(t)
	r := &Resolver{Catalog: cat, Stream: stream, States: states}
	res, err := r.Resolve("NOSUCH", TagCapability)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Unresolved {
		t.Fatalf("expected unresolved, got %v", res.Status)
	}
}

func TestResolveTagAtMatchingCandidateNeedsNoSplit(t *testing.T) {
	cat, stream, states, commits := trunkRepo(t)
	f1 := cat.Get("f1")
	f2 := cat.Get("f2")
	// Tag names f1@1.1 but f2@1.1 too; f1 in c0 also advances past 1.1 in c1,
	// so tagging 1.1 on f1 and f2 should resolve cleanly at c0 without needing
	// a split since the tag matches c0's own members exactly.
	if err := f1.SetTag("REL2", revision.MustParse("1.1")); err != nil {
		t.Fatal(err)
	}
	if err := f2.SetTag("REL2", revision.MustParse("1.1")); err != nil {
		t.Fatal(err)
	}
	r := &Resolver{Catalog: cat, Stream: stream, States: states}
	res, err := r.Resolve("REL2", TagCapability)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Resolved || res.Commit != commits[0] {
		t.Fatalf("expected resolved at c0, got %v %v", res.Status, res.Warnings)
	}
}

func commitIDs(commits []*vcommit.Commit) []string {
	out := make([]string, len(commits))
	for i, c := range commits {
		out[i] = c.CommitID
	}
	return out
}

func assertOrder(t *testing.T, stream *branchstream.Collection, want []string) {
	t.Helper()
	got := commitIDs(stream.Commits())
	if len(got) != len(want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

// TestResolveTagSplitsOvershootingCandidate covers the case where the only
// commit that could serve as the candidate also moves one of the tag's
// files past the tagged revision: c2 carries f1@1.3 (past the tag's
// f1@1.2) and f2@1.2 (exactly the tag). The overshooting half must split
// off and move after the retained half, not get silently dropped from the
// move record.
func TestResolveTagSplitsOvershootingCandidate(t *testing.T) {
	cat := catalog.New()
	f1 := cat.GetOrCreate("f1")
	f2 := cat.GetOrCreate("f2")

	c0 := vcommit.New("c0", []vcommit.FileRevision{
		{File: f1, Rev: revision.MustParse("1.1")},
		{File: f2, Rev: revision.MustParse("1.1")},
	})
	c1 := vcommit.New("c1", []vcommit.FileRevision{
		{File: f1, Rev: revision.MustParse("1.2")},
	})
	c2 := vcommit.New("c2", []vcommit.FileRevision{
		{File: f1, Rev: revision.MustParse("1.3")},
		{File: f2, Rev: revision.MustParse("1.2")},
	})
	commits := []*vcommit.Commit{c0, c1, c2}

	stream, err := branchstream.New(map[string][]*vcommit.Commit{branchstream.MainBranch: commits}, []string{branchstream.MainBranch}, nil)
	if err != nil {
		t.Fatal(err)
	}
	states := repostate.NewCollection()
	states.AddRoot(repostate.NewBranchState(branchstream.MainBranch, true, false))

	if err := f1.SetTag("REL3", revision.MustParse("1.2")); err != nil {
		t.Fatal(err)
	}
	if err := f2.SetTag("REL3", revision.MustParse("1.2")); err != nil {
		t.Fatal(err)
	}

	r := &Resolver{Catalog: cat, Stream: stream, States: states, Opts: Options{PartialLabelThreshold: 0}}
	res, err := r.Resolve("REL3", TagCapability)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Resolved {
		t.Fatalf("expected resolved, got %v (%v)", res.Status, res.Warnings)
	}
	if res.Commit == nil || res.Commit.CommitID != "c2-1" {
		t.Fatalf("expected resolved commit c2-1, got %v", res.Commit)
	}
	assertOrder(t, stream, []string{"c0", "c1", "c2-1", "c2-2"})
}

// TestResolveTagReordersAddedFile covers an untagged-but-live file (f3,
// added by c1) that is live at the candidate c2: the add commit c1 should
// be detected as "extra" and moved past the candidate rather than making
// the label partial or unresolved.
func TestResolveTagReordersAddedFile(t *testing.T) {
	cat := catalog.New()
	f1 := cat.GetOrCreate("f1")
	f2 := cat.GetOrCreate("f2")
	f3 := cat.GetOrCreate("f3")

	c0 := vcommit.New("c0", []vcommit.FileRevision{
		{File: f1, Rev: revision.MustParse("1.1")},
		{File: f2, Rev: revision.MustParse("1.1")},
	})
	c1 := vcommit.New("c1", []vcommit.FileRevision{
		{File: f3, Rev: revision.MustParse("1.1")},
	})
	c2 := vcommit.New("c2", []vcommit.FileRevision{
		{File: f2, Rev: revision.MustParse("1.2")},
	})
	commits := []*vcommit.Commit{c0, c1, c2}

	stream, err := branchstream.New(map[string][]*vcommit.Commit{branchstream.MainBranch: commits}, []string{branchstream.MainBranch}, nil)
	if err != nil {
		t.Fatal(err)
	}
	states := repostate.NewCollection()
	states.AddRoot(repostate.NewBranchState(branchstream.MainBranch, true, false))

	if err := f1.SetTag("REL4", revision.MustParse("1.1")); err != nil {
		t.Fatal(err)
	}
	if err := f2.SetTag("REL4", revision.MustParse("1.2")); err != nil {
		t.Fatal(err)
	}

	r := &Resolver{Catalog: cat, Stream: stream, States: states, Opts: Options{PartialLabelThreshold: 0}}
	res, err := r.Resolve("REL4", TagCapability)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Resolved {
		t.Fatalf("expected resolved, got %v (%v)", res.Status, res.Warnings)
	}
	if res.Commit != c2 {
		t.Fatalf("expected resolved commit c2, got %v", res.Commit)
	}
	assertOrder(t, stream, []string{"c0", "c2", "c1"})
}

// TestResolveTagIgnoresFileDeletedBeforeTag covers a file deleted before
// the candidate is reached: it must not be flagged as an unresolved
// mismatch or trigger any reordering, since a dead file is simply not
// live and the tag never names it.
func TestResolveTagIgnoresFileDeletedBeforeTag(t *testing.T) {
	cat := catalog.New()
	f1 := cat.GetOrCreate("f1")
	f2 := cat.GetOrCreate("f2")

	c0 := vcommit.New("c0", []vcommit.FileRevision{
		{File: f1, Rev: revision.MustParse("1.1")},
		{File: f2, Rev: revision.MustParse("1.1")},
	})
	c1 := vcommit.New("c1", []vcommit.FileRevision{
		{File: f2, Rev: revision.MustParse("1.2"), Dead: true},
	})
	c2 := vcommit.New("c2", []vcommit.FileRevision{
		{File: f1, Rev: revision.MustParse("1.2")},
	})
	commits := []*vcommit.Commit{c0, c1, c2}

	stream, err := branchstream.New(map[string][]*vcommit.Commit{branchstream.MainBranch: commits}, []string{branchstream.MainBranch}, nil)
	if err != nil {
		t.Fatal(err)
	}
	states := repostate.NewCollection()
	states.AddRoot(repostate.NewBranchState(branchstream.MainBranch, true, false))

	if err := f1.SetTag("REL5", revision.MustParse("1.2")); err != nil {
		t.Fatal(err)
	}

	r := &Resolver{Catalog: cat, Stream: stream, States: states, Opts: Options{PartialLabelThreshold: 0}}
	res, err := r.Resolve("REL5", TagCapability)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Resolved {
		t.Fatalf("expected resolved, got %v (%v)", res.Status, res.Warnings)
	}
	if res.Commit != c2 {
		t.Fatalf("expected resolved commit c2, got %v", res.Commit)
	}
	assertOrder(t, stream, []string{"c0", "c1", "c2"})
}
