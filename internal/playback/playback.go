// Package playback computes the final linear commit-emission order across
// every branch, once tag/branch resolution (internal/label) and
// merge-source election (internal/merge) have settled the shape of the
// commit DAG.
package playback

import (
	"sort"

	"github.com/esr-cvsgit/cvsgitimport/internal/branchstream"
	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

// Order walks every branch's chain in lockstep: at each step it picks the
// earliest-time commit among the current per-branch frontiers that is
// ready to emit (its predecessor, and recursively its merge source's own
// prerequisite chain, already emitted). Branch names are visited in a
// fixed, deterministic order (MAIN first, then lexical) when times tie.
func Order(stream *branchstream.Collection) []*vcommit.Commit {
	branches := sortedBranches(stream.Branches())
	frontier := make(map[string]*vcommit.Commit, len(branches))
	for _, b := range branches {
		frontier[b] = stream.Root(b)
	}

	emitted := make(map[*vcommit.Commit]bool, stream.Len())
	out := make([]*vcommit.Commit, 0, stream.Len())

	for len(out) < stream.Len() {
		nextBranch, next := pickReady(branches, frontier, emitted)
		if next == nil {
			// No ready candidate: a dependency cycle or a merge source
			// that never got attached to this stream. Fast-forward the
			// first remaining frontier instead of looping forever; the
			// resulting order may violate parent-before-child for the
			// commits involved, which the merge resolver's diagnostics
			// should already have flagged.
			nextBranch, next = pickAny(branches, frontier)
			if next == nil {
				break
			}
		}
		out = append(out, next)
		emitted[next] = true
		frontier[nextBranch] = next.Successor
	}
	return out
}

func pickReady(branches []string, frontier map[string]*vcommit.Commit, emitted map[*vcommit.Commit]bool) (string, *vcommit.Commit) {
	var bestBranch string
	var best *vcommit.Commit
	for _, b := range branches {
		c := frontier[b]
		if c == nil || !ready(c, emitted) {
			continue
		}
		if best == nil || c.Time().Before(best.Time()) {
			best, bestBranch = c, b
		}
	}
	return bestBranch, best
}

func pickAny(branches []string, frontier map[string]*vcommit.Commit) (string, *vcommit.Commit) {
	for _, b := range branches {
		if c := frontier[b]; c != nil {
			return b, c
		}
	}
	return "", nil
}

// ready reports whether c's predecessor and merge-source chain have
// already been emitted.
func ready(c *vcommit.Commit, emitted map[*vcommit.Commit]bool) bool {
	if c.Predecessor != nil && !emitted[c.Predecessor] {
		return false
	}
	return mergeChainReady(c.MergeFrom, emitted)
}

// mergeChainReady walks a possibly-stacked merge source - a merge whose own
// source is itself a merge commit - confirming the whole chain has been
// emitted.
func mergeChainReady(source *vcommit.Commit, emitted map[*vcommit.Commit]bool) bool {
	for source != nil {
		if !emitted[source] {
			return false
		}
		source = source.MergeFrom
	}
	return true
}

func sortedBranches(branches []string) []string {
	out := make([]string, len(branches))
	copy(out, branches)
	sort.Slice(out, func(i, j int) bool {
		if out[i] == branchstream.MainBranch {
			return true
		}
		if out[j] == branchstream.MainBranch {
			return false
		}
		return out[i] < out[j]
	})
	return out
}
