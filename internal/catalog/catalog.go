// Package catalog is the per-file table of tags, branches, and
// revision<->commit back-references that the rest of the pipeline treats
// as the read-mostly oracle for "what does this symbolic name mean for
// this file".
package catalog

import (
	"fmt"

	"github.com/esr-cvsgit/cvsgitimport/internal/revision"
)

// CommitRef is an opaque back-reference to the commit that owns a given
// FileRevision. The catalog package does not depend on the commit package
// (that would be a cycle — commits reference FileInfo, not vice versa) so
// this is declared as a minimal interface the commit package's *Commit
// satisfies.
type CommitRef interface {
	// ID returns a stable identifier, used only for diagnostics.
	ID() string
}

// FileInfo is the stable-identity record for one versioned file. FileInfo
// values are owned by a Catalog and referenced by pointer from every
// FileRevision that mentions the file; they never outlive the Catalog.
type FileInfo struct {
	Name string

	// KeywordExpansion distinguishes RCS keyword-substituting (text) files
	// from binary ones.
	KeywordExpansion bool

	// BranchAddedOn is the branch on which this file was first introduced;
	// defaults to "MAIN" (trunk) unless a "file ... was initially added on
	// branch <B>" marker revision says otherwise (see internal/aggregate).
	BranchAddedOn string

	tagToRevision    map[string]revision.Revision
	revisionToTags   map[revision.Revision][]string
	branchToMarker   map[string]revision.Revision
	markerToBranch   map[revision.Revision]string
	revisionToCommit map[revision.Revision]CommitRef
}

// NewFileInfo builds an empty FileInfo for name, defaulting BranchAddedOn
// to trunk.
func NewFileInfo(name string) *FileInfo {
	return &FileInfo{
		Name:             name,
		BranchAddedOn:    "MAIN",
		tagToRevision:    map[string]revision.Revision{},
		revisionToTags:   map[revision.Revision][]string{},
		branchToMarker:   map[string]revision.Revision{},
		markerToBranch:   map[revision.Revision]string{},
		revisionToCommit: map[revision.Revision]CommitRef{},
	}
}

// SetTag records that label binds to rev on this file. Invariant: rev must
// not be a branch-marker revision — tags name whole-tree snapshots, never
// branch departures.
func (f *FileInfo) SetTag(label string, rev revision.Revision) error {
	if rev.IsBranch() {
		return fmt.Errorf("catalog: tag %q on %s cannot reference branch-marker revision %s", label, f.Name, rev)
	}
	if old, ok := f.tagToRevision[label]; ok {
		f.removeFromTagsOf(old, label)
	}
	f.tagToRevision[label] = rev
	f.revisionToTags[rev] = append(f.revisionToTags[rev], label)
	return nil
}

func (f *FileInfo) removeFromTagsOf(rev revision.Revision, label string) {
	tags := f.revisionToTags[rev]
	for i, t := range tags {
		if t == label {
			f.revisionToTags[rev] = append(tags[:i], tags[i+1:]...)
			return
		}
	}
}

// TagRevision returns the revision bound to label, or Empty if unset.
func (f *FileInfo) TagRevision(label string) revision.Revision {
	return f.tagToRevision[label]
}

// HasTag reports whether label is bound on this file.
func (f *FileInfo) HasTag(label string) bool {
	_, ok := f.tagToRevision[label]
	return ok
}

// TagsOf returns every label bound to rev on this file.
func (f *FileInfo) TagsOf(rev revision.Revision) []string {
	return f.revisionToTags[rev]
}

// AllTags returns every tag name bound on this file.
func (f *FileInfo) AllTags() []string {
	out := make([]string, 0, len(f.tagToRevision))
	for name := range f.tagToRevision {
		out = append(out, name)
	}
	return out
}

// SetBranch records that branch departs from marker on this file.
// Invariant: marker must be a branch-marker revision.
func (f *FileInfo) SetBranch(branch string, marker revision.Revision) error {
	if !marker.IsBranch() {
		return fmt.Errorf("catalog: branch %q on %s must reference a branch-marker revision, got %s", branch, f.Name, marker)
	}
	f.branchToMarker[branch] = marker
	f.markerToBranch[marker] = branch
	return nil
}

// BranchMarker returns the branch-marker revision for branch, or Empty.
func (f *FileInfo) BranchMarker(branch string) revision.Revision {
	return f.branchToMarker[branch]
}

// BranchOfMarker returns the branch name owning marker, or "" if none.
func (f *FileInfo) BranchOfMarker(marker revision.Revision) string {
	return f.markerToBranch[marker]
}

// AllBranches returns every branch name departing from this file.
func (f *FileInfo) AllBranches() []string {
	out := make([]string, 0, len(f.branchToMarker))
	for name := range f.branchToMarker {
		out = append(out, name)
	}
	return out
}

// SetCommitRef records the commit that owns the FileRevision at rev. This
// is written during verification (§4.5) and rewritten during label-resolver
// commit splitting, which is why it is mutable even though the catalog is
// otherwise read-mostly after parsing.
func (f *FileInfo) SetCommitRef(rev revision.Revision, c CommitRef) {
	f.revisionToCommit[rev] = c
}

// CommitOf returns the commit owning rev, or nil if none recorded yet.
func (f *FileInfo) CommitOf(rev revision.Revision) CommitRef {
	return f.revisionToCommit[rev]
}

// Catalog owns every FileInfo by stable identity, keyed by path.
type Catalog struct {
	files map[string]*FileInfo
	order []string
}

// New builds an empty Catalog.
func New() *Catalog {
	return &Catalog{files: map[string]*FileInfo{}}
}

// GetOrCreate returns the FileInfo for name, creating it (in first-seen
// order) if absent.
func (c *Catalog) GetOrCreate(name string) *FileInfo {
	if fi, ok := c.files[name]; ok {
		return fi
	}
	fi := NewFileInfo(name)
	c.files[name] = fi
	c.order = append(c.order, name)
	return fi
}

// Get returns the FileInfo for name, or nil if not present.
func (c *Catalog) Get(name string) *FileInfo {
	return c.files[name]
}

// Files returns every FileInfo in first-seen order.
func (c *Catalog) Files() []*FileInfo {
	out := make([]*FileInfo, len(c.order))
	for i, name := range c.order {
		out[i] = c.files[name]
	}
	return out
}

// Len reports the number of distinct files in the catalog.
func (c *Catalog) Len() int { return len(c.order) }
