package headonly

import (
	"testing"
	"time"

	"github.com/esr-cvsgit/cvsgitimport/internal/branchstream"
	"github.com/esr-cvsgit/cvsgitimport/internal/catalog"
	"github.com/esr-cvsgit/cvsgitimport/internal/repostate"
	"github.com/esr-cvsgit/cvsgitimport/internal/revision"
	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

func TestOverlayEmitsDeadForMissingFile(t *testing.T) {
	cat := catalog.New()
	f1 := cat.GetOrCreate("f1")
	f2 := cat.GetOrCreate("f2")

	m0 := vcommit.New("m0", []vcommit.FileRevision{
		{File: f1, Rev: revision.MustParse("1.1")},
		{File: f2, Rev: revision.MustParse("1.1")},
	})
	stream, err := branchstream.New(map[string][]*vcommit.Commit{branchstream.MainBranch: {m0}}, []string{branchstream.MainBranch}, nil)
	if err != nil {
		t.Fatal(err)
	}

	states := repostate.NewCollection()
	mainState := repostate.NewBranchState(branchstream.MainBranch, true, false)
	if err := mainState.Apply(m0); err != nil {
		t.Fatal(err)
	}
	states.AddRoot(mainState)

	// VENDOR only ever received f1; f2 must come back as a dead member so
	// the overlay commit removes it relative to MAIN's state.
	vendorState := repostate.NewBranchState("VENDOR", false, false)
	if err := vendorState.Apply(vcommit.New("b0", []vcommit.FileRevision{{File: f1, Rev: revision.MustParse("1.1")}})); err != nil {
		t.Fatal(err)
	}
	states.AddRoot(vendorState)

	c, err := Overlay(cat, stream, states, "VENDOR", branchstream.MainBranch, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	var sawDead bool
	for _, m := range c.Members {
		if m.File.Name == "f2" && m.Dead {
			sawDead = true
		}
	}
	if !sawDead {
		t.Fatalf("expected dead f2 member, got %+v", c.Members)
	}
}
