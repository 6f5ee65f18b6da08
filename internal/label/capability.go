// Package label implements the label resolver, the branch-label
// specialization, and the manual branch-to-branchpoint façade. One
// algorithm, two Capabilities: the resolver is parametric in "which
// revision does this label name on this file" rather than split across a
// tag/branch class hierarchy.
package label

import (
	"github.com/esr-cvsgit/cvsgitimport/internal/catalog"
	"github.com/esr-cvsgit/cvsgitimport/internal/revision"
)

// Capability supplies the two file-level queries the resolver needs;
// everything else in the algorithm is identical between tags and branches.
type Capability struct {
	// Kind names the capability for diagnostics ("tag" or "branch").
	Kind string

	// LabelRevision returns the revision label names on fi: for a tag,
	// the tagged revision; for a branch, the branchpoint revision the
	// branch departs from on fi. Empty if the label says nothing about
	// this file.
	LabelRevision func(fi *catalog.FileInfo, label string) revision.Revision

	// ExcludeFromMissing reports whether fi should be exempted from the
	// "missing file" reconciliation pass even though LabelRevision is set:
	// used only by the branch capability, to drop files whose
	// BranchAddedOn equals the branch being resolved (they legitimately
	// don't exist yet at the branchpoint).
	ExcludeFromMissing func(fi *catalog.FileInfo, label string) bool
}

// TagCapability resolves ordinary labels: LabelRevision is the file's
// tagged revision for label.
var TagCapability = Capability{
	Kind: "tag",
	LabelRevision: func(fi *catalog.FileInfo, label string) revision.Revision {
		return fi.TagRevision(label)
	},
	ExcludeFromMissing: func(*catalog.FileInfo, string) bool { return false },
}

// BranchCapability resolves a branch's branchpoint: LabelRevision is the
// revision the branch departs from on this file (its branchpoint, derived
// from the file's branch-marker revision).
var BranchCapability = Capability{
	Kind: "branch",
	LabelRevision: func(fi *catalog.FileInfo, label string) revision.Revision {
		marker := fi.BranchMarker(label)
		if marker.IsEmpty() {
			return revision.Empty
		}
		return marker.Branchpoint()
	},
	ExcludeFromMissing: func(fi *catalog.FileInfo, label string) bool {
		return fi.BranchAddedOn == label
	},
}
