// Package merge elects a single merge-source commit per mergepoint and
// repairs crossed merges: a commit whose members cite a
// mergepoint revision on another branch gets its Commit.MergeFrom set to
// the commit that owns that revision, reordering the source branch when a
// later-elected source would otherwise sit ahead of an earlier one.
package merge

import (
	"github.com/esr-cvsgit/cvsgitimport/internal/branchstream"
	"github.com/esr-cvsgit/cvsgitimport/internal/catalog"
	"github.com/esr-cvsgit/cvsgitimport/internal/diag"
	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

// Resolve elects a merge source for every commit in stream that carries a
// mergepoint and wires Commit.MergeFrom accordingly. Crossed merges — a
// source elected out of order relative to a previous merge from the same
// branch — are repaired by moving the source commit forward to sit
// immediately after that previous source, keeping each branch's merge
// sources emitted in the order their destinations reference them.
func Resolve(cat *catalog.Catalog, stream *branchstream.Collection, log *diag.Logger) {
	lastMergeFrom := map[string]*vcommit.Commit{}

	for _, c := range stream.Commits() {
		source := elect(c)
		if source == nil || source == c {
			continue
		}
		if !validSource(stream, source, c) {
			log.Logf(diag.ClassMerge, "%s: merge source %s does not descend from this branch (merge from parent or an excluded branch); ignoring", c.CommitID, source.CommitID)
			continue
		}

		srcBranch := source.Branch()
		if prev, ok := lastMergeFrom[srcBranch]; ok && source.Index < prev.Index {
			if blocksReorder(source) || blocksReorder(prev) {
				log.Shout("%s: crossed merge with %s on %s but a branchpoint blocks reordering; leaving order as-is", c.CommitID, source.CommitID, srcBranch)
			} else if err := stream.Move(source, prev); err != nil {
				log.Shout("%s: could not repair crossed merge on %s: %v", c.CommitID, srcBranch, err)
			}
		}

		c.MergeFrom = source
		lastMergeFrom[srcBranch] = source
	}
}

// elect picks, among the commits this commit's members cite as mergepoint
// (resolved through each member's file catalog back-reference), the one
// with the greatest stream index — the most recently emitted source,
// which is the commit a merge at this point actually pulls in.
func elect(c *vcommit.Commit) *vcommit.Commit {
	var best *vcommit.Commit
	for _, m := range c.Members {
		if m.Mergepoint.IsEmpty() {
			continue
		}
		ref := m.File.CommitOf(m.Mergepoint)
		if ref == nil {
			continue
		}
		src, ok := ref.(*vcommit.Commit)
		if !ok {
			continue
		}
		if best == nil || src.Index > best.Index {
			best = src
		}
	}
	return best
}

// validSource reports whether source can legitimately serve as dest's
// merge source: source must be spliced into the stream, and its branch's
// root must depart from a commit living on dest's branch. A merge citing
// a revision on dest's own parent branch, or on a branch excluded from
// history, fails this and is left unwired rather than misreported.
func validSource(stream *branchstream.Collection, source, dest *vcommit.Commit) bool {
	if source.Index < 0 {
		return false
	}
	root := stream.Root(source.Branch())
	if root == nil || root.Predecessor == nil {
		return false
	}
	return root.Predecessor.Branch() == dest.Branch()
}

// blocksReorder reports whether c is itself a branchpoint for another
// branch, in which case moving it would tear that branch loose.
func blocksReorder(c *vcommit.Commit) bool {
	return len(c.Branches) > 0
}

var _ catalog.CommitRef = (*vcommit.Commit)(nil)
