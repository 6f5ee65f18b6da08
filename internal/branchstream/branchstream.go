// Package branchstream implements BranchStreamCollection: the doubly
// linked per-branch commit chains, branchpoint attachment, index
// management, and the move/split operations that preserve index density.
//
// This package is the sole mutator of a Commit's Index, Predecessor,
// Successor, and Branches fields.
package branchstream

import (
	"fmt"

	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

// MainBranch is the name Collection treats as the trunk/root branch.
const MainBranch = "MAIN"

// Collection owns per-branch roots and heads over a dense, totally
// ordered sequence of commits.
type Collection struct {
	roots map[string]*vcommit.Commit
	heads map[string]*vcommit.Commit
	// order is the dense index -> commit mapping; order[i].Index == i.
	order []*vcommit.Commit
}

// New builds a Collection from commits already grouped per branch, in
// arrival order: each branch's first commit in the slice becomes its
// root. branchpointOf maps a non-MAIN branch name to the commit that is
// its branchpoint (the predecessor of the branch's root); callers build
// this from the catalog's branch-marker back-references before calling
// New.
func New(commitsByBranch map[string][]*vcommit.Commit, branchOrder []string, branchpointOf map[string]*vcommit.Commit) (*Collection, error) {
	col := &Collection{roots: map[string]*vcommit.Commit{}, heads: map[string]*vcommit.Commit{}}

	for _, branch := range branchOrder {
		commits := commitsByBranch[branch]
		if len(commits) == 0 {
			continue
		}
		var prev *vcommit.Commit
		for _, c := range commits {
			if prev != nil {
				prev.Successor = c
				c.Predecessor = prev
			}
			col.order = append(col.order, c)
			prev = c
		}
		col.roots[branch] = commits[0]
		col.heads[branch] = commits[len(commits)-1]

		if branch != MainBranch {
			bp, ok := branchpointOf[branch]
			if !ok {
				return nil, fmt.Errorf("branchstream: no branchpoint recorded for branch %q", branch)
			}
			commits[0].Predecessor = bp
			bp.Branches = append(bp.Branches, commits[0])
		}
	}

	col.reindex()
	return col, nil
}

// reindex assigns dense, strictly increasing indices over col.order in its
// current slice order and must be called after every structural mutation
// before the collection is handed to the next pipeline stage.
func (col *Collection) reindex() {
	for i, c := range col.order {
		c.Index = i
	}
}

// Root returns branch's first commit.
func (col *Collection) Root(branch string) *vcommit.Commit { return col.roots[branch] }

// Head returns branch's last commit.
func (col *Collection) Head(branch string) *vcommit.Commit { return col.heads[branch] }

// Branches returns every branch name with at least one commit.
func (col *Collection) Branches() []string {
	out := make([]string, 0, len(col.roots))
	for b := range col.roots {
		out = append(out, b)
	}
	return out
}

// Commits returns the full order slice; callers must not retain it across
// a structural mutation (Move/Split/Append all reassign indices and may
// reallocate the backing array).
func (col *Collection) Commits() []*vcommit.Commit {
	return col.order
}

// Move shifts commit c forward to occupy the position immediately after
// dst, swapping indices with every commit traversed in between so that
// indices remain densely strictly increasing afterward. It is an error to
// move c to a destination that precedes it (dst.Index < c.Index):
// resolution only ever moves commits forward in index order, never
// backward.
func (col *Collection) Move(c, dst *vcommit.Commit) error {
	if dst.Index < c.Index {
		return fmt.Errorf("branchstream: move destination %s (index %d) precedes source %s (index %d)",
			dst.CommitID, dst.Index, c.CommitID, c.Index)
	}
	if c == dst {
		return nil
	}

	srcIdx := c.Index
	dstIdx := dst.Index

	// Unlink c from its current position in the branch chain.
	col.unlinkFromChain(c)

	// Remove c from order, then reinsert immediately after dst.
	col.order = append(col.order[:srcIdx], col.order[srcIdx+1:]...)
	// dst's position shifted left by one because c (which was before it)
	// was removed; locate dst's new index by identity rather than by the
	// stale dstIdx.
	newDstPos := -1
	for i, x := range col.order {
		if x == dst {
			newDstPos = i
			break
		}
	}
	if newDstPos == -1 {
		return fmt.Errorf("branchstream: destination %s vanished during move", dst.CommitID)
	}
	_ = dstIdx
	insertAt := newDstPos + 1
	col.order = append(col.order[:insertAt], append([]*vcommit.Commit{c}, col.order[insertAt:]...)...)

	col.relinkAfter(c, dst)
	col.reindex()
	return nil
}

// unlinkFromChain removes c from its branch's doubly linked list, joining
// its old predecessor and successor directly, and fixing up root/head and,
// when c was the branch root, the branchpoint's Branches entry for it
// (replaced by the new root, or dropped if the branch is left empty).
func (col *Collection) unlinkFromChain(c *vcommit.Commit) {
	branch := c.Branch()
	pred, succ := c.Predecessor, c.Successor

	if col.roots[branch] == c {
		col.roots[branch] = succ
		if pred != nil && pred.Branch() != branch {
			for i, b := range pred.Branches {
				if b == c {
					if succ != nil {
						pred.Branches[i] = succ
					} else {
						pred.Branches = append(pred.Branches[:i], pred.Branches[i+1:]...)
					}
					break
				}
			}
		}
	}
	if col.heads[branch] == c {
		col.heads[branch] = pred
	}

	if pred != nil && pred.Branch() == branch {
		pred.Successor = succ
	}
	if succ != nil {
		succ.Predecessor = pred
	}
	c.Predecessor, c.Successor = nil, nil
}

// relinkAfter splices c into the chain immediately after dst (on dst's
// branch), updating root/head and branchpoint linkage as needed.
func (col *Collection) relinkAfter(c, dst *vcommit.Commit) {
	branch := dst.Branch()
	oldSucc := dst.Successor

	dst.Successor = c
	c.Predecessor = dst
	c.Successor = oldSucc
	if oldSucc != nil {
		oldSucc.Predecessor = c
	}
	if col.heads[branch] == dst {
		col.heads[branch] = c
	}
}

// Append adds c to the end of branch's chain without reordering anything
// else; used by the head-only overlay, which only ever grows a branch at
// its tip.
func (col *Collection) Append(branch string, c *vcommit.Commit) {
	head := col.heads[branch]
	if head != nil {
		head.Successor = c
		c.Predecessor = head
	} else {
		col.roots[branch] = c
	}
	col.heads[branch] = c
	col.order = append(col.order, c)
	col.reindex()
}

// Split divides c into an included half (the FileRevisions in
// includedFiles) and an excluded half (everything else). The included
// half gets id "<id>-1" and takes
// c's position in the chain (and, if c was a branch root, c's
// branchpoint-root status and child-branch linkage); the excluded half
// gets id "<id>-2" and is inserted immediately after it. FileRevisions'
// file->commit back-references are rewritten to whichever half now owns
// them. Split returns (included, excluded).
func (col *Collection) Split(c *vcommit.Commit, includedFiles map[string]bool) (*vcommit.Commit, *vcommit.Commit, error) {
	var includedMembers, excludedMembers []vcommit.FileRevision
	for _, m := range c.Members {
		if includedFiles[m.File.Name] {
			includedMembers = append(includedMembers, m)
		} else {
			excludedMembers = append(excludedMembers, m)
		}
	}
	if len(includedMembers) == 0 || len(excludedMembers) == 0 {
		return nil, nil, fmt.Errorf("branchstream: split of %s requires both halves non-empty", c.CommitID)
	}

	included := vcommit.New(c.CommitID+"-1", includedMembers)
	excluded := vcommit.New(c.CommitID+"-2", excludedMembers)

	for _, m := range includedMembers {
		m.File.SetCommitRef(m.Rev, included)
	}
	for _, m := range excludedMembers {
		m.File.SetCommitRef(m.Rev, excluded)
	}

	branch := c.Branch()
	pred, succ := c.Predecessor, c.Successor

	included.Predecessor = pred
	if pred != nil && pred.Branch() == branch {
		pred.Successor = included
	}
	included.Successor = excluded
	excluded.Predecessor = included
	excluded.Successor = succ
	if succ != nil {
		succ.Predecessor = excluded
	}

	if col.roots[branch] == c {
		col.roots[branch] = included
		// c was a branchpoint root: included inherits that status and the
		// parent's Branches-set entry must now point at included.
		if pred != nil {
			for i, b := range pred.Branches {
				if b == c {
					pred.Branches[i] = included
				}
			}
		}
	}
	if col.heads[branch] == c {
		col.heads[branch] = excluded
	}
	// c's own child branchpoints (if c was itself some other branch's
	// branchpoint) move to whichever half retains the FileRevision whose
	// file the child branch departs from; a commit is only a branchpoint
	// because one of its members is that branch's marker revision's
	// ancestor on a shared file, so exactly one half should keep it.
	for _, childRoot := range c.Branches {
		if childRoot.Predecessor != c {
			continue
		}
		owner := excluded
		for _, m := range includedMembers {
			if m.File == childRoot.Members[0].File {
				owner = included
				break
			}
		}
		childRoot.Predecessor = owner
		owner.Branches = append(owner.Branches, childRoot)
	}

	idx := c.Index
	col.order[idx] = included
	col.order = append(col.order[:idx+1], append([]*vcommit.Commit{excluded}, col.order[idx+1:]...)...)
	col.reindex()

	return included, excluded, nil
}

// Len returns the total number of commits under management.
func (col *Collection) Len() int { return len(col.order) }
