package label

import (
	"fmt"
	"sort"
	"strings"

	difflib "github.com/ianbruene/go-difflib/difflib"

	"github.com/esr-cvsgit/cvsgitimport/internal/branchstream"
	"github.com/esr-cvsgit/cvsgitimport/internal/catalog"
	"github.com/esr-cvsgit/cvsgitimport/internal/repostate"
	"github.com/esr-cvsgit/cvsgitimport/internal/revision"
	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

// moveEntry records that commit overshot the label on files: those files'
// revisions are already past what the label names, so the commit must be
// split and the overshooting half moved to just after the eventual target.
// The same record also carries files an add/delete search resolved during
// reconciliation (they are handled identically by apply).
type moveEntry struct {
	commit *vcommit.Commit
	files  map[string]bool
}

// moveRecord accumulates the splits and moves needed to make a label
// resolve to exactly one commit.
type moveRecord struct {
	target *vcommit.Commit
	moves  []moveEntry
}

func newMoveRecord() *moveRecord {
	return &moveRecord{}
}

func (r *moveRecord) add(c *vcommit.Commit, files []string) {
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[f] = true
	}
	r.moves = append(r.moves, moveEntry{commit: c, files: set})
}

func (r *moveRecord) needsReorder() bool {
	return len(r.moves) > 0
}

func (r *moveRecord) resolvedTarget() *vcommit.Commit {
	return r.target
}

// apply replays the recorded splits/moves against stream. A commit that
// overshoots the label on some of its own files (the candidate itself,
// self-targeting) is split first, since Split replaces it with a new
// commit object that every subsequent Move must reference; every other
// recorded commit is then either moved whole (if every one of its members
// is implicated) or split, with only the implicated half moved to sit
// immediately after the (possibly now-split) target.
func (r *moveRecord) apply(stream *branchstream.Collection) error {
	origTarget := r.target

	for _, mv := range r.moves {
		if mv.commit != origTarget || len(mv.files) == 0 {
			continue
		}
		keep := map[string]bool{}
		for _, m := range mv.commit.Members {
			if !mv.files[m.File.Name] {
				keep[m.File.Name] = true
			}
		}
		if len(keep) == 0 {
			return fmt.Errorf("moverecord: candidate %s has no retained members after removing its own overshooting files", mv.commit.CommitID)
		}
		included, _, err := stream.Split(mv.commit, keep)
		if err != nil {
			return fmt.Errorf("moverecord: splitting overshooting candidate %s: %w", mv.commit.CommitID, err)
		}
		r.target = included
	}

	for _, mv := range r.moves {
		c := mv.commit
		if c == origTarget || len(mv.files) == 0 {
			continue
		}
		keep := map[string]bool{}
		for _, m := range c.Members {
			if !mv.files[m.File.Name] {
				keep[m.File.Name] = true
			}
		}
		if len(keep) == 0 {
			if err := stream.Move(c, r.target); err != nil {
				return fmt.Errorf("moverecord: moving %s: %w", c.CommitID, err)
			}
			continue
		}
		_, overshoot, err := stream.Split(c, keep)
		if err != nil {
			return fmt.Errorf("moverecord: splitting %s: %w", c.CommitID, err)
		}
		if err := stream.Move(overshoot, r.target); err != nil {
			return fmt.Errorf("moverecord: moving split half of %s: %w", c.CommitID, err)
		}
	}
	return nil
}

// reconcile runs once the walk stops at a candidate commit, either because
// it compares exactly equal to the label across its own members (modulo
// any files already scheduled to move away as overshoot, folded in via
// overrides) or because it is the last candidate: it checks the whole
// catalog for files the label names that are not live at the candidate
// ("missing") and files live at the candidate the label says nothing
// about ("extra"), and tries to resolve each by searching the commit
// sequence for an add/delete that can be scheduled into record instead of
// counting against the partial-label threshold.
func (r *Resolver) reconcile(label string, cap Capability, state *repostate.BranchState, overrides map[string]revision.Revision, candidate **vcommit.Commit, record *moveRecord, all []*vcommit.Commit, finalBranch string) (Status, []string, error) {
	effectiveLive := func(name string) (revision.Revision, bool) {
		if rev, ok := overrides[name]; ok {
			return rev, true
		}
		return state.Revision(name), state.Live(name)
	}

	var missing, extra []string
	for _, fi := range r.Catalog.Files() {
		labelRev := cap.LabelRevision(fi, label)
		cur, live := effectiveLive(fi.Name)
		switch {
		case labelRev.IsEmpty():
			if live {
				extra = append(extra, fi.Name)
			}
		case cap.ExcludeFromMissing(fi, label):
			// Legitimately absent at this point in history (e.g. a branch
			// capability checking a file not yet added when its branch
			// departed); not a real miss.
		case !live:
			missing = append(missing, fi.Name)
		case cur != labelRev:
			return Unresolved, nil, fmt.Errorf("label %q: file %q resolved at %s, expected %s", label, fi.Name, cur, labelRev)
		}
	}

	var unresolvedMissing, unresolvedExtra []string
	for _, name := range missing {
		if r.resolveMissing(cap, all, finalBranch, label, name, candidate, record) {
			continue
		}
		unresolvedMissing = append(unresolvedMissing, name)
	}
	for _, name := range extra {
		if resolveExtra(all, finalBranch, name, *candidate, candidate, record) {
			continue
		}
		unresolvedExtra = append(unresolvedExtra, name)
	}

	if len(unresolvedMissing) == 0 && len(unresolvedExtra) == 0 {
		return Resolved, nil, nil
	}

	total := len(unresolvedMissing) + len(unresolvedExtra)
	if total <= r.Opts.PartialLabelThreshold {
		warnings := make([]string, 0, total+1)
		for _, f := range unresolvedMissing {
			warnings = append(warnings, fmt.Sprintf("label %q: file %q missing at resolved commit", label, f))
		}
		for _, f := range unresolvedExtra {
			warnings = append(warnings, fmt.Sprintf("label %q: file %q live but untagged at resolved commit", label, f))
		}
		warnings = append(warnings, fileSetDiff(label, expectedFiles(r.Catalog, cap, label), state.Files()))
		return Partial, warnings, nil
	}
	return Unresolved, nil, fmt.Errorf("label %q: %d missing and %d extra files exceed the partial-label threshold (%d)",
		label, len(unresolvedMissing), len(unresolvedExtra), r.Opts.PartialLabelThreshold)
}

// resolveMissing reconciles a file the label names but that is not live at
// the candidate: first by searching forward for an add that introduces the
// file at the label's revision (the candidate then advances to it, and any
// intervening commit on the same branch that also touches the file is
// scheduled to move past the new candidate); failing that, by searching
// backward for a delete of the file and scheduling that delete to move
// past the candidate, which reinstates liveness there.
func (r *Resolver) resolveMissing(cap Capability, all []*vcommit.Commit, branch, label, file string, candidate **vcommit.Commit, record *moveRecord) bool {
	fi := r.Catalog.Get(file)
	labelRev := cap.LabelRevision(fi, label)
	cur := *candidate

	if add := searchForward(all, branch, cur.Index, func(c *vcommit.Commit) bool {
		return hasLiveMemberAt(c, file, labelRev)
	}); add != nil {
		for _, mid := range between(all, branch, cur.Index, add.Index) {
			if touchesFile(mid, file) {
				record.add(mid, []string{file})
			}
		}
		*candidate = add
		return true
	}

	if del := searchBackward(all, branch, cur.Index, func(c *vcommit.Commit) bool {
		return hasDeadMemberFor(c, file)
	}); del != nil {
		record.add(del, []string{file})
		return true
	}
	return false
}

// resolveExtra reconciles a file that is live at the candidate but that
// the label says nothing about: either by moving the nearer-preceding
// commit that added it to sit after the candidate (so it is not yet live
// there), or, if a following delete is at least as close, by advancing the
// candidate to that delete (so the file is already gone by the time the
// candidate is reached). Ties favor the forward delete.
func resolveExtra(all []*vcommit.Commit, branch, file string, cur *vcommit.Commit, candidate **vcommit.Commit, record *moveRecord) bool {
	add := searchBackward(all, branch, cur.Index, func(c *vcommit.Commit) bool {
		return touchesFileLive(c, file)
	})
	del := searchForward(all, branch, cur.Index, func(c *vcommit.Commit) bool {
		return hasDeadMemberFor(c, file)
	})

	switch {
	case add == nil && del == nil:
		return false
	case del == nil:
		record.add(add, []string{file})
	case add == nil:
		*candidate = del
	default:
		addDist := cur.Index - add.Index
		delDist := del.Index - cur.Index
		if addDist < delDist {
			record.add(add, []string{file})
		} else {
			*candidate = del
		}
	}
	return true
}

// searchForward returns the nearest commit on branch whose index is
// strictly greater than fromIdx and that satisfies pred, scanning all in
// increasing index order.
func searchForward(all []*vcommit.Commit, branch string, fromIdx int, pred func(*vcommit.Commit) bool) *vcommit.Commit {
	for _, c := range all {
		if c.Index <= fromIdx || c.Branch() != branch {
			continue
		}
		if pred(c) {
			return c
		}
	}
	return nil
}

// searchBackward returns the nearest commit on branch whose index is
// strictly less than fromIdx and that satisfies pred, scanning all in
// decreasing index order.
func searchBackward(all []*vcommit.Commit, branch string, fromIdx int, pred func(*vcommit.Commit) bool) *vcommit.Commit {
	for i := len(all) - 1; i >= 0; i-- {
		c := all[i]
		if c.Index >= fromIdx || c.Branch() != branch {
			continue
		}
		if pred(c) {
			return c
		}
	}
	return nil
}

// between returns every commit on branch strictly between fromIdx and
// toIdx, in index order.
func between(all []*vcommit.Commit, branch string, fromIdx, toIdx int) []*vcommit.Commit {
	var out []*vcommit.Commit
	for _, c := range all {
		if c.Branch() == branch && c.Index > fromIdx && c.Index < toIdx {
			out = append(out, c)
		}
	}
	return out
}

func touchesFile(c *vcommit.Commit, file string) bool {
	for _, m := range c.Members {
		if m.File.Name == file {
			return true
		}
	}
	return false
}

func touchesFileLive(c *vcommit.Commit, file string) bool {
	for _, m := range c.Members {
		if m.File.Name == file && !m.Dead {
			return true
		}
	}
	return false
}

func hasLiveMemberAt(c *vcommit.Commit, file string, rev revision.Revision) bool {
	for _, m := range c.Members {
		if m.File.Name == file && !m.Dead && m.Rev == rev {
			return true
		}
	}
	return false
}

func hasDeadMemberFor(c *vcommit.Commit, file string) bool {
	for _, m := range c.Members {
		if m.File.Name == file && m.Dead {
			return true
		}
	}
	return false
}

// expectedFiles lists every file the label binds a revision to, under cap.
func expectedFiles(cat *catalog.Catalog, cap Capability, label string) []string {
	var out []string
	for _, fi := range cat.Files() {
		if !cap.LabelRevision(fi, label).IsEmpty() {
			out = append(out, fi.Name)
		}
	}
	return out
}

// fileSetDiff renders a compact +/- summary of how the resolved commit's
// live file set differs from what the label expects, the way the legacy
// tool's changelog-attribution pass diffs two line sequences with
// difflib.NewMatcherWithJunk to report only the changed spans instead of
// every line.
func fileSetDiff(label string, expected, actual []string) string {
	sort.Strings(expected)
	sort.Strings(actual)
	matcher := difflib.NewMatcherWithJunk(expected, actual, false, nil)
	var added, removed []string
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'd':
			removed = append(removed, expected[op.I1:op.I2]...)
		case 'r':
			removed = append(removed, expected[op.I1:op.I2]...)
			added = append(added, actual[op.J1:op.J2]...)
		case 'i':
			added = append(added, actual[op.J1:op.J2]...)
		}
	}
	return fmt.Sprintf("label %q: file set differs from expected (-%d +%d): -[%s] +[%s]",
		label, len(removed), len(added), strings.Join(removed, " "), strings.Join(added, " "))
}
