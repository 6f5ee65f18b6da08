package label

import (
	"fmt"

	"github.com/esr-cvsgit/cvsgitimport/internal/branchstream"
	"github.com/esr-cvsgit/cvsgitimport/internal/catalog"
	"github.com/esr-cvsgit/cvsgitimport/internal/pipeerr"
	"github.com/esr-cvsgit/cvsgitimport/internal/repostate"
	"github.com/esr-cvsgit/cvsgitimport/internal/revision"
	"github.com/esr-cvsgit/cvsgitimport/internal/vcommit"
)

// Options controls resolver tolerance for partial label matches and error
// handling when a label cannot be fully resolved.
type Options struct {
	// PartialLabelThreshold is the maximum tolerated count of unresolved
	// files (missing plus extra) at the candidate: up to this many marks
	// the label partial, more leaves it unresolved.
	PartialLabelThreshold int
	// ContinueOnError downgrades a tag-resolution failure to a warning
	// instead of aborting the whole pipeline.
	ContinueOnError bool
	// NoReorder skips the apply step entirely, marking every label that
	// would need reordering as unresolved instead (prevents forward
	// references to not-yet-emitted commits during streaming import).
	NoReorder bool
}

// Status classifies how a label resolution concluded.
type Status int

const (
	Resolved Status = iota
	Unresolved
	Partial
	InconsistentBranchPath
)

func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Unresolved:
		return "unresolved"
	case Partial:
		return "partial"
	case InconsistentBranchPath:
		return "inconsistent-branch-path"
	default:
		return "unknown"
	}
}

// Result is the outcome of resolving one label.
type Result struct {
	Label      string
	Status     Status
	Commit     *vcommit.Commit // the resolved commit, valid iff Status == Resolved
	Branch     string
	Warnings   []string
}

// Resolver resolves tag and branch labels against a commit sequence
// already laid out in a branchstream.Collection.
type Resolver struct {
	Catalog *catalog.Catalog
	Stream  *branchstream.Collection
	States  *repostate.Collection
	Opts    Options
}

// Resolve runs the full algorithm for one label under cap.
func (r *Resolver) Resolve(label string, cap Capability) (Result, error) {
	all := r.Stream.Commits()

	path, candidates, err := r.branchPath(all, label, cap)
	if err != nil {
		return Result{Label: label, Status: InconsistentBranchPath}, nil
	}
	if len(candidates) == 0 {
		return Result{Label: label, Status: Unresolved}, nil
	}
	finalBranch := path[len(path)-1]
	lastCandidate := candidates[len(candidates)-1]

	pathSet := map[string]bool{}
	for _, b := range path {
		pathSet[b] = true
	}

	states := r.States.Clone()
	record := newMoveRecord()
	var currCandidate *vcommit.Commit

	for _, c := range all {
		if err := states.Apply(c); err != nil {
			// Non-strict full-state apply per §3; the clone is built
			// non-strict, so this only happens for a branch this
			// resolver does not know about yet, which we tolerate.
			_ = err
		}
		if !pathSet[c.Branch()] {
			continue
		}
		if contributes(c, label, cap) {
			currCandidate = c
		}
		if currCandidate == nil {
			if c == lastCandidate {
				break
			}
			continue
		}

		finalState := states.Get(finalBranch)
		outcome := compare(r.Catalog, finalState, c, label, cap)
		switch outcome.kind {
		case outcomeAhead:
			record.add(c, outcome.files)
		case outcomeExact:
			goto reconcile
		case outcomeBehind:
			// no action; keep walking
		}
		if c == lastCandidate {
			break
		}
	}

reconcile:
	if currCandidate == nil {
		return Result{Label: label, Status: Unresolved}, nil
	}
	record.target = currCandidate

	finalState := states.Get(finalBranch)

	// The candidate itself may still overshoot the label on some of its
	// own files (it was picked as a candidate because some other member
	// matched); fold those files' intended label revision in as an
	// override so reconciliation sees the state the split in moveRecord
	// will actually produce, instead of flagging them as mismatches.
	overrides := map[string]revision.Revision{}
	if selfOutcome := compare(r.Catalog, finalState, currCandidate, label, cap); selfOutcome.kind == outcomeAhead {
		for _, f := range selfOutcome.files {
			overrides[f] = cap.LabelRevision(r.Catalog.Get(f), label)
		}
	}

	status, warnings, err := r.reconcile(label, cap, finalState, overrides, &currCandidate, record, all, finalBranch)
	if err != nil {
		if r.Opts.ContinueOnError {
			return Result{Label: label, Status: Unresolved, Warnings: []string{err.Error()}}, nil
		}
		return Result{}, pipeerr.Wrap(pipeerr.TagResolution, err, "resolving label %q", label)
	}
	if status != Resolved {
		return Result{Label: label, Status: status, Warnings: warnings}, nil
	}
	record.target = currCandidate

	if r.Opts.NoReorder && record.needsReorder() {
		return Result{Label: label, Status: Unresolved, Warnings: []string{"reordering required but no-reorder is set"}}, nil
	}
	if !r.Opts.NoReorder {
		if err := record.apply(r.Stream); err != nil {
			if r.Opts.ContinueOnError {
				return Result{Label: label, Status: Unresolved, Warnings: []string{err.Error()}}, nil
			}
			return Result{}, pipeerr.Wrap(pipeerr.ImportFailed, err, "applying move record for label %q", label)
		}
	}

	return Result{Label: label, Status: Resolved, Commit: record.resolvedTarget(), Branch: finalBranch, Warnings: warnings}, nil
}

// contributes reports whether c has a member whose revision is exactly the
// revision cap's capability names for label on that file.
func contributes(c *vcommit.Commit, label string, cap Capability) bool {
	for _, m := range c.Members {
		if rev := cap.LabelRevision(m.File, label); !rev.IsEmpty() && rev == m.Rev {
			return true
		}
	}
	return false
}

// branchPath computes the candidate set and the ordered branch path: every
// commit containing a revision tagged label is a candidate; the path is the
// sequence of distinct branches those candidates appear on, in commit
// order. A branch visited, left, and revisited makes the path inconsistent.
func (r *Resolver) branchPath(all []*vcommit.Commit, label string, cap Capability) ([]string, []*vcommit.Commit, error) {
	var candidates []*vcommit.Commit
	var path []string
	seen := map[string]bool{}
	lastBranch := ""

	for _, c := range all {
		if !contributes(c, label, cap) {
			continue
		}
		candidates = append(candidates, c)
		b := c.Branch()
		if b != lastBranch {
			if seen[b] {
				return nil, nil, fmt.Errorf("label %q: not a clean branch path (branch %q revisited)", label, b)
			}
			seen[b] = true
			path = append(path, b)
			lastBranch = b
		}
	}
	return path, candidates, nil
}

type compareKind int

const (
	outcomeBehind compareKind = iota
	outcomeAhead
	outcomeExact
)

type compareOutcome struct {
	kind  compareKind
	files []string
}

// compare reports whether commit sits behind, ahead of, or exactly at the
// label's expected revisions given the branch's current replayed state.
func compare(cat *catalog.Catalog, state *repostate.BranchState, c *vcommit.Commit, label string, cap Capability) compareOutcome {
	var ahead []string
	for _, m := range c.Members {
		if m.Dead {
			continue
		}
		labelRev := cap.LabelRevision(m.File, label)
		if labelRev.IsEmpty() {
			continue
		}
		cur := state.Revision(m.File.Name)
		switch {
		case cur == labelRev:
			// neutral
		case cur.Precedes(labelRev):
			// behind; no action here, default outcome below
		case labelRev.Precedes(cur):
			ahead = append(ahead, m.File.Name)
		}
	}
	if len(ahead) > 0 {
		return compareOutcome{kind: outcomeAhead, files: ahead}
	}
	exact := true
	for _, fi := range cat.Files() {
		labelRev := cap.LabelRevision(fi, label)
		if labelRev.IsEmpty() {
			continue
		}
		if state.Revision(fi.Name) != labelRev {
			exact = false
			break
		}
	}
	if exact {
		return compareOutcome{kind: outcomeExact}
	}
	return compareOutcome{kind: outcomeBehind}
}
