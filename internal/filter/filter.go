// Package filter implements the multi-branch commit splitter, the
// exclusion filter, and commit verification.
package filter

import (
	"fmt"
	"sort"
	"time"

	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

// SplitMultiBranch replaces any Commit whose members span more than one
// branch with one Commit per branch, ids "<id>-<branch>", preserving the
// order branches first appear in the member list. Legacy exports can emit
// a single commit-id across simultaneous commits on different branches;
// this undoes that.
func SplitMultiBranch(commits []*vcommit.Commit) []*vcommit.Commit {
	var out []*vcommit.Commit
	for _, c := range commits {
		branches := branchOrder(c)
		if len(branches) <= 1 {
			out = append(out, c)
			continue
		}
		byBranch := map[string][]vcommit.FileRevision{}
		for _, m := range c.Members {
			b := m.Branch()
			byBranch[b] = append(byBranch[b], m)
		}
		for _, b := range branches {
			out = append(out, vcommit.New(fmt.Sprintf("%s-%s", c.CommitID, b), byBranch[b]))
		}
	}
	return out
}

func branchOrder(c *vcommit.Commit) []string {
	seen := map[string]bool{}
	var order []string
	for _, m := range c.Members {
		b := m.Branch()
		if !seen[b] {
			seen[b] = true
			order = append(order, b)
		}
	}
	return order
}

// HeadOnlyState is the minimal changes-only RepositoryState contract the
// exclusion filter applies head-only slices to; satisfied by
// *repostate.BranchState.
type HeadOnlyState interface {
	Apply(c *vcommit.Commit) error
}

// ExclusionFilter drops FileRevisions on excluded branches, and partitions
// surviving commits into an "included" slice (emitted as a history commit)
// and a "head-only" slice applied to a separate changes-only
// RepositoryState for later synthesis (internal/headonly), never itself
// emitted. A commit with no included members is dropped entirely.
type ExclusionFilter struct {
	// BranchExcluded reports whether a branch name is excluded from history.
	BranchExcluded func(branch string) bool
	// FileHeadOnly reports whether a file is excluded from history but
	// wanted at branch tips.
	FileHeadOnly func(file string) bool
	// HeadOnlyStates holds the changes-only state per branch that
	// head-only slices are applied to.
	HeadOnlyStates map[string]HeadOnlyState
}

// Apply runs the filter over commits in order, returning the surviving
// included commits.
func (f *ExclusionFilter) Apply(commits []*vcommit.Commit) ([]*vcommit.Commit, error) {
	var out []*vcommit.Commit
	for _, c := range commits {
		var included, headOnly []vcommit.FileRevision
		for _, m := range c.Members {
			if f.BranchExcluded != nil && f.BranchExcluded(m.Branch()) {
				continue
			}
			if f.FileHeadOnly != nil && f.FileHeadOnly(m.File.Name) {
				headOnly = append(headOnly, m)
				continue
			}
			included = append(included, m)
		}
		if len(headOnly) > 0 {
			branch := c.Branch()
			if len(included) > 0 {
				branch = included[0].Branch()
			} else if len(headOnly) > 0 {
				branch = headOnly[0].Branch()
			}
			if state, ok := f.HeadOnlyStates[branch]; ok {
				shadow := vcommit.New(c.CommitID, headOnly)
				if err := state.Apply(shadow); err != nil {
					return nil, err
				}
			}
		}
		if len(included) == 0 {
			continue
		}
		c.Members = included
		out = append(out, c)
	}
	return out, nil
}

// VerifyOptions controls the strictness of Verify.
type VerifyOptions struct {
	// Fussy enables the stricter time-span check.
	Fussy bool
}

// Verify records non-fatal diagnostics on c and writes file->commit
// back-references into the catalog. It never returns an
// error; problems are appended to c.Errors.
func Verify(c *vcommit.Commit, opts VerifyOptions) {
	authors := map[string]bool{}
	branches := map[string]bool{}
	var minT, maxT = c.Time(), c.Time()

	// Per-file merge-destination analysis: each member with a mergepoint
	// contributes the branch that mergepoint revision lives on; if the
	// per-member branch sets share no common branch, this commit was
	// merged from more than one source branch at once.
	var mergeBranchSets []map[string]bool

	for _, m := range c.Members {
		authors[m.Author] = true
		branches[m.Branch()] = true
		if m.Time.Before(minT) {
			minT = m.Time
		}
		if m.Time.After(maxT) {
			maxT = m.Time
		}
		m.File.SetCommitRef(m.Rev, c)

		if !m.Mergepoint.IsEmpty() {
			mergeBranchSets = append(mergeBranchSets, map[string]bool{
				vcommit.BranchOf(m.File, m.Mergepoint): true,
			})
		}
	}

	if len(authors) > 1 {
		c.AddError(fmt.Sprintf("commit %s: multiple authors %v", c.CommitID, sortedKeys(authors)))
	}
	if len(branches) > 1 {
		c.AddError(fmt.Sprintf("commit %s: multiple branches %v", c.CommitID, sortedKeys(branches)))
	}
	if opts.Fussy && maxT.Sub(minT) > time.Minute {
		c.AddError(fmt.Sprintf("commit %s: time span %s exceeds fussy limit", c.CommitID, maxT.Sub(minT)))
	}
	if len(mergeBranchSets) > 1 {
		intersection := mergeBranchSets[0]
		for _, s := range mergeBranchSets[1:] {
			intersection = intersectBranchSets(intersection, s)
		}
		if len(intersection) == 0 {
			c.AddError(fmt.Sprintf("commit %s: multiple branches merged from", c.CommitID))
		}
	}
}

func intersectBranchSets(a, b map[string]bool) map[string]bool {
	out := map[string]bool{}
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
