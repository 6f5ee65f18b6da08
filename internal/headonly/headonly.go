// Package headonly builds the synthetic "final state only" commit used
// for a branch whose rename/include rules mark it head-only (spec
// §4.11): instead of replaying every commit on the branch, a single
// commit carrying the branch's live-file state at its last known instant
// is appended at the branch's tip, with dead
// FileRevisions emitted for any file the parent carries but this
// branch's head does not.
package headonly

import (
	"fmt"
	"time"

	"github.com/esr-cvsgit/cvsgitimport/internal/branchstream"
	"github.com/esr-cvsgit/cvsgitimport/internal/catalog"
	"github.com/esr-cvsgit/cvsgitimport/internal/repostate"
	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

// Overlay appends the synthetic head-only commit to branch's tip and
// returns it. When branch has no commits yet, the overlay becomes its root,
// departing from parentBranch's current head; otherwise it is parented on
// branch's own head.
func Overlay(cat *catalog.Catalog, stream *branchstream.Collection, states *repostate.Collection, branch, parentBranch string, at time.Time) (*vcommit.Commit, error) {
	state := states.Get(branch)
	if state == nil {
		return nil, fmt.Errorf("headonly: unknown branch %q", branch)
	}
	parentState := states.Get(parentBranch)
	if parentState == nil {
		return nil, fmt.Errorf("headonly: unknown parent branch %q", parentBranch)
	}
	parentCommit := stream.Head(parentBranch)
	if parentCommit == nil {
		return nil, fmt.Errorf("headonly: parent branch %q has no commits yet", parentBranch)
	}

	live := map[string]bool{}
	var members []vcommit.FileRevision
	for _, name := range state.Files() {
		fi := cat.Get(name)
		if fi == nil {
			continue
		}
		live[name] = true
		members = append(members, vcommit.FileRevision{
			File: fi,
			Rev:  state.Revision(name),
			Time: at,
		})
	}
	for _, name := range parentState.Files() {
		if live[name] {
			continue
		}
		fi := cat.Get(name)
		if fi == nil {
			continue
		}
		members = append(members, vcommit.FileRevision{
			File: fi,
			Rev:  parentState.Revision(name),
			Time: at,
			Dead: true,
		})
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("headonly: branch %q has no live files to overlay", branch)
	}

	c := vcommit.New("headonly-"+branch, members)
	c.SortMembersByPath()
	wasRoot := stream.Head(branch) == nil
	c.Predecessor = parentCommit
	stream.Append(branch, c)
	if wasRoot {
		parentCommit.Branches = append(parentCommit.Branches, c)
	}
	return c, nil
}
