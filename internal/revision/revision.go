// Package revision implements dotted RCS/CVS revision-number arithmetic:
// parsing, branch/trunk classification, ancestry (precedes/directly
// precedes), and branchpoint derivation.
//
// A Revision is immutable and interned: two Revisions built from the same
// dotted string always compare reference-equal, which lets every other
// package use plain "==" for revision identity instead of reaching for a
// deep-compare helper.
package revision

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Revision is an interned, immutable dotted revision number, e.g. "1.2",
// "1.2.4.3" (branch), or "1.2.0.4" (branch marker). The zero value is the
// sentinel Empty revision used where the legacy data records no revision
// at all (a missing tag, a never-added file).
//
// Revision wraps a pointer to its backing data so that value equality
// (interning) and reference equality (Go's built-in ==) coincide: a slice
// field would make the struct incomparable, so the parts/text pair lives
// in a separate, never-mutated revisionData that every copy of an interned
// Revision points at in common.
type Revision struct {
	data *revisionData
}

type revisionData struct {
	parts []int
	text  string
}

// Empty is the sentinel "no revision" value.
var Empty = Revision{}

var (
	internMu sync.Mutex
	interned = map[string]Revision{}
)

// Parse interns and returns the Revision for a dotted revision string. The
// empty string parses to Empty. Validation forbids a zero part except at a
// branchpoint position (the penultimate part of an even-length sequence of
// at least 4 parts, i.e. a branch-marker revision like "1.2.0.4").
func Parse(text string) (Revision, error) {
	if text == "" {
		return Empty, nil
	}
	internMu.Lock()
	if r, ok := interned[text]; ok {
		internMu.Unlock()
		return r, nil
	}
	internMu.Unlock()

	fields := strings.Split(text, ".")
	parts := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Empty, fmt.Errorf("revision %q: invalid part %q", text, f)
		}
		parts[i] = n
	}
	if err := validate(parts, text); err != nil {
		return Empty, err
	}
	r := Revision{data: &revisionData{parts: parts, text: text}}

	internMu.Lock()
	if existing, ok := interned[text]; ok {
		internMu.Unlock()
		return existing, nil
	}
	interned[text] = r
	internMu.Unlock()
	return r, nil
}

// MustParse is Parse but panics on a malformed revision; used for
// compile-time-known test fixtures and internal constants, never on
// untrusted input.
func MustParse(text string) Revision {
	r, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return r
}

func validate(parts []int, text string) error {
	n := len(parts)
	if n == 0 {
		return fmt.Errorf("revision %q: empty", text)
	}
	for i, p := range parts {
		isBranchpointSlot := n >= 4 && n%2 == 0 && i == n-2
		if p == 0 && !isBranchpointSlot {
			return fmt.Errorf("revision %q: zero part outside branchpoint position", text)
		}
		if p < 0 {
			return fmt.Errorf("revision %q: negative part", text)
		}
	}
	return nil
}

// IsEmpty reports whether this is the Empty sentinel.
func (r Revision) IsEmpty() bool { return r.data == nil }

// String renders the canonical dotted form ("" for Empty).
func (r Revision) String() string {
	if r.data == nil {
		return ""
	}
	return r.data.text
}

// Parts returns the dotted components. Callers must not mutate the slice;
// it is shared with the interned value.
func (r Revision) Parts() []int {
	if r.data == nil {
		return nil
	}
	return r.data.parts
}

// IsBranch reports whether this revision is a branch-marker revision: an
// even-length sequence of at least 4 parts with a zero at the penultimate
// position (e.g. "1.2.0.4" names branch 1.2.4.* departing from 1.2).
func (r Revision) IsBranch() bool {
	p := r.Parts()
	n := len(p)
	return n >= 4 && n%2 == 0 && p[n-2] == 0
}

// IsTrunk reports whether this is a 2-part trunk revision.
func (r Revision) IsTrunk() bool {
	return len(r.Parts()) == 2
}

// BranchStem returns the branch-marker revision identifying the branch this
// (non-trunk) revision lives on: for "1.2.4.3" that is "1.2.0.4", the same
// marker form a symbolic-names table binds the branch tag to. Undefined for
// a branch-marker revision itself; those already name their own branch.
func (r Revision) BranchStem() Revision {
	p := r.Parts()
	n := len(p)
	if r.IsEmpty() || n < 4 {
		return Empty
	}
	marker := make([]int, 0, n)
	marker = append(marker, p[:n-2]...)
	marker = append(marker, 0, p[n-2])
	stem, _ := Parse(joinInts(marker))
	return stem
}

// Branchpoint returns the ancestor revision on the parent line from which
// this revision's branch departs. For a branch-marker revision ("1.2.0.4")
// that is the revision formed by dropping the last two parts ("1.2"). For
// an ordinary branch revision ("1.2.4.3") it is the same as for the branch
// marker that introduces that branch ("1.2").
func (r Revision) Branchpoint() Revision {
	if r.IsEmpty() {
		return Empty
	}
	parts := r.Parts()
	if r.IsBranch() {
		parent, _ := Parse(joinInts(parts[:len(parts)-2]))
		return parent
	}
	if len(parts) < 4 {
		return Empty
	}
	parent, _ := Parse(joinInts(parts[:len(parts)-2]))
	return parent
}

// DirectlyPrecedes reports whether other is the immediate next revision
// after r on the same branch line, including the transition from a
// branch's first revision back to its branchpoint (decrementing the last
// part below one, on a branch, yields the branchpoint on the parent line):
// i.e. Branchpoint().DirectlyPrecedes(firstRevisionOnBranch) holds.
func (r Revision) DirectlyPrecedes(other Revision) bool {
	if r.IsEmpty() || other.IsEmpty() {
		return false
	}
	rp, op := r.Parts(), other.Parts()
	if len(rp) == len(op) && samePrefix(rp, op, len(rp)-1) {
		return op[len(op)-1] == rp[len(rp)-1]+1
	}
	// branchpoint -> first revision on a child branch: r is "1.2", other
	// is "1.2.N.1" for some branch index N.
	if len(op) == len(rp)+2 && samePrefix(rp, op, len(rp)) {
		return op[len(op)-1] == 1
	}
	return false
}

// Precedes reports strict ancestry on the same branch line: r is a
// strictly lesser revision earlier on the identical line as other (no
// branch crossing).
func (r Revision) Precedes(other Revision) bool {
	rp, op := r.Parts(), other.Parts()
	if r.IsEmpty() || other.IsEmpty() || len(rp) != len(op) {
		return false
	}
	if !samePrefix(rp, op, len(rp)-1) {
		return false
	}
	return rp[len(rp)-1] < op[len(op)-1]
}

// Equal reports value equality; since Revisions are interned this is
// equivalent to reference equality (r == other) but spelled out for
// readability at call sites that compare optional/derived values.
func (r Revision) Equal(other Revision) bool {
	return r == other
}

func samePrefix(a, b []int, n int) bool {
	if len(a) < n || len(b) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinInts(parts []int) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = strconv.Itoa(p)
	}
	return strings.Join(strs, ".")
}
