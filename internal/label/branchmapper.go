package label

import (
	"fmt"

	"github.com/esr-cvsgit/cvsgitimport/internal/branchstream"
	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

// BranchMapping is the outcome of attaching one branch to its resolved
// branchpoint commit.
type BranchMapping struct {
	Branch       string
	Branchpoint  *vcommit.Commit
	Status       Status
	Warnings     []string
}

// MapBranches resolves every branch name in branches (in the order given,
// which must already respect any nesting a rename rule set imposes) to its
// branchpoint commit, using BranchCapability, and reattaches the branch's
// root commit in stream to that branchpoint when it differs from where
// aggregation first attached it. This is a thin façade over Resolve: the
// branch case is the same algorithm as a tag resolution whose target names
// a departure point instead of a snapshot, per design note §9.2.
func MapBranches(r *Resolver, branches []string) ([]BranchMapping, error) {
	out := make([]BranchMapping, 0, len(branches))
	for _, b := range branches {
		if b == branchstream.MainBranch {
			continue
		}
		res, err := r.Resolve(b, BranchCapability)
		if err != nil {
			return out, err
		}
		mapping := BranchMapping{Branch: b, Status: res.Status, Warnings: res.Warnings}
		if res.Status == Resolved {
			mapping.Branchpoint = res.Commit
			if err := reattach(r.Stream, b, res.Commit); err != nil {
				return out, fmt.Errorf("label: reattaching branch %q: %w", b, err)
			}
		}
		out = append(out, mapping)
	}
	return out, nil
}

// reattach moves branch's root commit to depart from branchpoint instead of
// wherever it was provisionally attached during aggregation, when they
// differ. A stray commit accumulated on the wrong parent (common when CVS
// branch-marker revisions are recorded out of commit order) is the case
// this corrects.
func reattach(stream *branchstream.Collection, branch string, branchpoint *vcommit.Commit) error {
	root := stream.Root(branch)
	if root == nil {
		return fmt.Errorf("branch %q has no commits to reattach", branch)
	}
	if root.Predecessor == branchpoint {
		return nil
	}
	if root.Predecessor != nil {
		preds := root.Predecessor.Branches
		for i, b := range preds {
			if b == root {
				root.Predecessor.Branches = append(preds[:i], preds[i+1:]...)
				break
			}
		}
	}
	root.Predecessor = branchpoint
	branchpoint.Branches = append(branchpoint.Branches, root)
	return nil
}
