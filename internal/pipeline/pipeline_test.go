package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/esr-cvsgit/cvsgitimport/internal/branchstream"
	"github.com/esr-cvsgit/cvsgitimport/internal/diag"
	"github.com/esr-cvsgit/cvsgitimport/internal/label"
)

// sampleLog is a minimal two-file rlog stream: one file stays on trunk, the
// other carries a branch ("BRANCH", departing from 1.1) and a tag
// ("REL1_0") bound to the trunk root revision.
const sampleLog = `RCS file: /cvsroot/proj/src/foo.c,v
Working file: src/foo.c
head: 1.2
branch:
locks: strict
access list:
symbolic names:
	BRANCH: 1.1.0.2
	REL1_0: 1.1
keyword substitution: kv
total revisions: 3;	selected revisions: 3
description:
----------------------------
revision 1.2
date: 2020/01/02 10:00:00;  author: alice;  state: Exp;  lines: +1 -0;
second trunk commit
----------------------------
revision 1.1.2.1
date: 2020/01/02 11:00:00;  author: bob;  state: Exp;
branch commit
----------------------------
revision 1.1
date: 2020/01/01 10:00:00;  author: alice;  state: Exp;
initial commit
=============================================================================
RCS file: /cvsroot/proj/src/bar.c,v
Working file: src/bar.c
head: 1.1
branch:
locks: strict
access list:
symbolic names:
keyword substitution: kv
total revisions: 1;	selected revisions: 1
description:
----------------------------
revision 1.1
date: 2020/01/01 09:00:00;  author: alice;  state: Exp;
add bar
=============================================================================
`

func newTestDriver() *Driver {
	return NewDriver(Config{PartialLabelThreshold: 0}, diag.New(0), nil)
}

func TestRunBuildsStreamWithBranchAndTag(t *testing.T) {
	d := newTestDriver()
	res, err := d.Run(context.Background(), strings.NewReader(sampleLog))
	if err != nil {
		t.Fatal(err)
	}

	if res.Stream.Root(branchstream.MainBranch) == nil {
		t.Fatal("expected a MAIN root commit")
	}
	if res.Stream.Root("BRANCH") == nil {
		t.Fatal("expected a BRANCH root commit")
	}

	var foundTag bool
	for _, tr := range res.TagResults {
		if tr.Label != "REL1_0" {
			continue
		}
		foundTag = true
		if tr.Status != label.Resolved {
			t.Fatalf("expected REL1_0 to resolve, got status %v warnings %v", tr.Status, tr.Warnings)
		}
	}
	if !foundTag {
		t.Fatal("expected a tag result for REL1_0")
	}

	var foundBranch bool
	for _, br := range res.BranchResults {
		if br.Branch != "BRANCH" {
			continue
		}
		foundBranch = true
		if br.Branchpoint == nil {
			t.Fatal("expected BRANCH to resolve a branchpoint commit")
		}
	}
	if !foundBranch {
		t.Fatal("expected a branch mapping result for BRANCH")
	}

	if len(res.VerifyErrors) != 0 {
		t.Fatalf("expected no verify errors, got %v", res.VerifyErrors)
	}
}

func TestRunRejectsCanceledContext(t *testing.T) {
	d := newTestDriver()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Run(ctx, strings.NewReader(sampleLog)); err == nil {
		t.Fatal("expected cancellation error")
	}
}
