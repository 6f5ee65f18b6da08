// Package repostate replays commits into per-branch live-file maps used as
// the oracle when resolving labels.
package repostate

import (
	"fmt"

	"github.com/esr-cvsgit/cvsgitimport/internal/revision"
	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

// BranchState is the live filename->revision map for one branch.
type BranchState struct {
	Branch string
	// Full branch state inherits every parent file's revision at the
	// branchpoint; changes-only state carries only what's added on this
	// branch. Strict mode requires the file's previous recorded revision
	// to directly precede each applied revision.
	Full   bool
	Strict bool

	files map[string]revision.Revision
}

// NewBranchState builds an empty state for branch.
func NewBranchState(branch string, full, strict bool) *BranchState {
	return &BranchState{Branch: branch, Full: full, Strict: strict, files: map[string]revision.Revision{}}
}

// Revision returns the current live revision of file, or Empty if the file
// is not live (never added, or deleted) on this branch.
func (b *BranchState) Revision(file string) revision.Revision {
	return b.files[file]
}

// Live reports whether file currently has a revision recorded.
func (b *BranchState) Live(file string) bool {
	_, ok := b.files[file]
	return ok
}

// Files returns every currently-live filename, in no particular order.
func (b *BranchState) Files() []string {
	out := make([]string, 0, len(b.files))
	for f := range b.files {
		out = append(out, f)
	}
	return out
}

// Clone deep-copies the file map, used when branching off a full-state
// parent at its branchpoint.
func (b *BranchState) Clone(newBranch string) *BranchState {
	clone := NewBranchState(newBranch, b.Full, b.Strict)
	for f, r := range b.files {
		clone.files[f] = r
	}
	return clone
}

// Apply removes dead files and sets live files' revisions from c's
// members. Under Strict, the file's previous recorded revision must
// directly precede each applied revision, else a RepositoryConsistency error is
// returned; the resolver's own walk uses a non-strict state, so this path
// is only exercised by callers that opt into strictness explicitly.
func (b *BranchState) Apply(c *vcommit.Commit) error {
	for _, m := range c.Members {
		if b.Strict {
			if prev, ok := b.files[m.File.Name]; ok {
				if !prev.DirectlyPrecedes(m.Rev) {
					return fmt.Errorf("repostate: %s: %s does not directly precede %s on branch %s",
						m.File.Name, prev, m.Rev, b.Branch)
				}
			}
		}
		if m.Dead {
			delete(b.files, m.File.Name)
			continue
		}
		b.files[m.File.Name] = m.Rev
	}
	return nil
}

// Collection holds one BranchState per branch, plus the side-effect
// linkage needed to propagate a commit into any child branch for which
// one of the commit's revisions is the recorded branchpoint.
type Collection struct {
	states map[string]*BranchState
	// branchpointRevOf[branch] is the revision on the parent line this
	// branch departs from; used to detect the case where a commit contains
	// a revision that is the branchpoint for some other live branch in the
	// state, so the corresponding files are also applied to that branch's
	// state.
	branchpointRevOf map[string]revision.Revision
	parentOf         map[string]string
}

// NewCollection builds an empty Collection.
func NewCollection() *Collection {
	return &Collection{
		states:           map[string]*BranchState{},
		branchpointRevOf: map[string]revision.Revision{},
		parentOf:         map[string]string{},
	}
}

// Get returns the state for branch, or nil.
func (col *Collection) Get(branch string) *BranchState {
	return col.states[branch]
}

// AddRoot registers MAIN or an already-cloned branch state directly
// (skipping branchpoint derivation), used for trunk.
func (col *Collection) AddRoot(state *BranchState) {
	col.states[state.Branch] = state
}

// Branch derives a child branch's state from its parent at branchpointRev:
// Full states clone the parent's live-file map at that instant;
// changes-only states start empty.
func (col *Collection) Branch(parentBranch, childBranch string, branchpointRev revision.Revision, full bool) error {
	parent, ok := col.states[parentBranch]
	if !ok {
		return fmt.Errorf("repostate: unknown parent branch %q", parentBranch)
	}
	var child *BranchState
	if full {
		child = parent.Clone(childBranch)
	} else {
		child = NewBranchState(childBranch, false, parent.Strict)
	}
	col.states[childBranch] = child
	col.branchpointRevOf[childBranch] = branchpointRev
	col.parentOf[childBranch] = parentBranch
	return nil
}

// Clone deep-copies every branch state and the branch-topology side
// tables. The label resolver clones the canonical Collection once per
// label so it can replay and mutate state freely without disturbing the
// collection other labels (or the merge resolver) will use.
func (col *Collection) Clone() *Collection {
	clone := NewCollection()
	for name, st := range col.states {
		clone.states[name] = st.Clone(name)
	}
	for k, v := range col.branchpointRevOf {
		clone.branchpointRevOf[k] = v
	}
	for k, v := range col.parentOf {
		clone.parentOf[k] = v
	}
	return clone
}

// Apply applies c to its branch's state, then propagates the branchpoint
// side-effect: for every child branch whose recorded branchpoint revision
// is among c's members, the same commit is also applied to that child's
// state (a full-state child inherits the parent's edit at the instant its
// branch departs).
func (col *Collection) Apply(c *vcommit.Commit) error {
	branch := c.Branch()
	state, ok := col.states[branch]
	if !ok {
		return fmt.Errorf("repostate: unknown branch %q", branch)
	}
	if err := state.Apply(c); err != nil {
		return err
	}
	for _, m := range c.Members {
		for childBranch, bpRev := range col.branchpointRevOf {
			if bpRev == m.Rev {
				if child := col.states[childBranch]; child != nil && child.Full {
					if err := child.Apply(c); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
